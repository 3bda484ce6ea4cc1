package registry

import "github.com/razvanmacovei/untrack-operator/internal/extract"

func parameter(pattern, name string) Rule {
	return Rule{Pattern: pattern, Spec: extract.Spec{Kind: extract.KindParameter, Parameter: name}}
}

func marker(pattern, m string) Rule {
	return Rule{Pattern: pattern, Spec: extract.Spec{Kind: extract.KindMarker, Marker: m}}
}

func call(pattern string) Rule {
	return Rule{Pattern: pattern, Spec: extract.Spec{Kind: extract.KindCall}}
}

// DefaultRules returns the built-in tracker rules. Order matters: the
// regional TradeDoubler hosts use call syntax and are listed before the
// parameter-based one.
func DefaultRules() []Rule {
	return []Rule{
		call("*://clkuk.tradedoubler.com/click?*"),
		call("*://clkde.tradedoubler.com/click?*"),
		parameter("*://clk.tradedoubler.com/click?*", "url"),
		parameter("*://www.awin1.com/cread.php?*", "p"),
		parameter("*://shareasale.com/*", "urllink"),
		parameter("*://www.googleadservices.com/pagead/aclk?*", "adurl"),
		parameter("*://track.effiliation.com/servlet/effi.redir?*", "url"),
		parameter("*://*.evyy.net/c/*", "u"),
		parameter("*://www.dpbolvw.net/click*", "url"),
		marker("*://mailtracking.gitter.im/track/click/*", "/"),
		marker("*://track.webgains.com/click.html?*", "wgtarget="),
		marker("*://ad.admitad.com/*", "ulp="),
		marker("*://clickserve.dartsearch.net/link/click?*", "ds_dest_url="),
	}
}
