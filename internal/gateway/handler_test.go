package gateway

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/razvanmacovei/untrack-operator/internal/extract"
	"github.com/razvanmacovei/untrack-operator/internal/registry"
	"github.com/razvanmacovei/untrack-operator/internal/rulestore"
)

func newTestStore(t *testing.T, rules ...registry.Rule) *rulestore.Store {
	t.Helper()
	if rules == nil {
		rules = registry.DefaultRules()
	}
	store, err := rulestore.New(rules)
	if err != nil {
		t.Fatalf("rulestore.New returned error: %v", err)
	}
	return store
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{in: "", want: PolicyAllow},
		{in: "allow", want: PolicyAllow},
		{in: "CANCEL", want: PolicyCancel},
		{in: "block", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePolicy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name         string
		policy       Policy
		url          string
		wantAction   Action
		wantLocation string
		wantErr      error
	}{
		{
			name:         "redirect",
			policy:       PolicyAllow,
			url:          "https://www.awin1.com/cread.php?p=https%3A%2F%2Fr.example%2F",
			wantAction:   ActionRedirect,
			wantLocation: "https://r.example/",
		},
		{
			name:         "redirect ignores cancel policy",
			policy:       PolicyCancel,
			url:          "https://www.awin1.com/cread.php?p=r.example",
			wantAction:   ActionRedirect,
			wantLocation: "http://r.example",
		},
		{
			name:       "no match allowed",
			policy:     PolicyAllow,
			url:        "https://example.com/",
			wantAction: ActionAllow,
			wantErr:    registry.ErrNoPatternMatch,
		},
		{
			name:       "no match cancelled",
			policy:     PolicyCancel,
			url:        "https://example.com/",
			wantAction: ActionCancel,
			wantErr:    registry.ErrNoPatternMatch,
		},
		{
			name:       "extraction empty allowed",
			policy:     PolicyAllow,
			url:        "https://www.awin1.com/cread.php?awinmid=1",
			wantAction: ActionAllow,
			wantErr:    extract.ErrNotFound,
		},
		{
			name:       "malformed encoding cancelled",
			policy:     PolicyCancel,
			url:        "https://www.awin1.com/cread.php?p=%zz",
			wantAction: ActionCancel,
			wantErr:    extract.ErrMalformedEncoding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(newTestStore(t), tt.policy)
			d := h.Decide(tt.url)
			if d.Action != tt.wantAction {
				t.Errorf("Action = %q, want %q", d.Action, tt.wantAction)
			}
			if d.Location != tt.wantLocation {
				t.Errorf("Location = %q, want %q", d.Location, tt.wantLocation)
			}
			if tt.wantErr != nil && !errors.Is(d.Outcome.Err, tt.wantErr) {
				t.Errorf("Outcome.Err = %v, want %v", d.Outcome.Err, tt.wantErr)
			}
		})
	}
}

func TestHandlerRedirects(t *testing.T) {
	h := NewHandler(newTestStore(t), PolicyAllow)

	r := httptest.NewRequest("GET", "http://clkuk.tradedoubler.com/click?p(1)a(2)url(https%3A%2F%2Fshop.example%2Fitem)", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	resp := w.Result()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("StatusCode = %d, want %d", resp.StatusCode, http.StatusFound)
	}
	if loc := resp.Header.Get("Location"); loc != "https://shop.example/item" {
		t.Errorf("Location = %q, want %q", loc, "https://shop.example/item")
	}
}

func TestHandlerCancels(t *testing.T) {
	h := NewHandler(newTestStore(t), PolicyCancel)

	r := httptest.NewRequest("GET", "http://ad.admitad.com/g/abc/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestHandlerTunnelUpstreamDown(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	addr := backend.Listener.Addr().String()
	backend.Close()

	h := NewHandler(newTestStore(t), PolicyAllow)
	r := httptest.NewRequest("CONNECT", "http://"+addr, nil)
	r.Host = addr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want %d", w.Code, http.StatusBadGateway)
	}
}

func TestHandlerPassesThrough(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("origin " + r.URL.Path + "?" + r.URL.RawQuery))
	}))
	defer backend.Close()

	tests := []struct {
		name  string
		rules []registry.Rule
		path  string
	}{
		{
			name:  "no pattern match",
			rules: registry.DefaultRules(),
			path:  "/hello?x=1",
		},
		{
			name: "pattern matches but nothing to extract",
			rules: []registry.Rule{
				{Pattern: "http://127.0.0.1:*/track?*", Spec: extract.Spec{Kind: extract.KindMarker, Marker: "to="}},
			},
			path: "/track?id=5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(newTestStore(t, tt.rules...), PolicyAllow)

			r := httptest.NewRequest("GET", backend.URL+tt.path, nil)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			if w.Code != http.StatusOK {
				t.Fatalf("StatusCode = %d, want %d", w.Code, http.StatusOK)
			}
			body, _ := io.ReadAll(w.Result().Body)
			if want := "origin " + tt.path; string(body) != want {
				t.Errorf("body = %q, want %q", body, want)
			}
		})
	}
}

func TestHandlerPassThroughUpstreamDown(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	url := backend.URL
	backend.Close()

	h := NewHandler(newTestStore(t), PolicyAllow)
	r := httptest.NewRequest("GET", url+"/gone", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want %d", w.Code, http.StatusBadGateway)
	}
}

func TestRequestURL(t *testing.T) {
	raw := "http://clk.tradedoubler.com/click?url=http%3A%2F%2Ffoo.com"

	t.Run("request URI is used verbatim", func(t *testing.T) {
		r := httptest.NewRequest("GET", raw, nil)
		if got := requestURL(r); got != raw {
			t.Errorf("requestURL = %q, want %q", got, raw)
		}
	})

	t.Run("parsed URL without request URI", func(t *testing.T) {
		r := httptest.NewRequest("GET", raw, nil)
		r.RequestURI = ""
		if got := requestURL(r); got != raw {
			t.Errorf("requestURL = %q, want %q", got, raw)
		}
	})
}
