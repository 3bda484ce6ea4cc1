package querystring

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want Values
	}{
		{name: "no query", url: "http://some.site/some", want: Values{}},
		{name: "trailing question mark", url: "http://some.site/some?", want: Values{}},
		{name: "key without value", url: "http://some.site/some?foo", want: Values{"foo": {""}}},
		{name: "key with empty value", url: "http://some.site/some?foo=", want: Values{"foo": {""}}},
		{name: "empty key and value", url: "http://some.site/some?=", want: Values{"": {""}}},
		{name: "single pair", url: "http://some.site/some?foo=bar", want: Values{"foo": {"bar"}}},
		{name: "two pairs", url: "http://some.site/some?foo=bar&azz=zza", want: Values{"foo": {"bar"}, "azz": {"zza"}}},
		{name: "repeated key", url: "http://some.site/some?foo=bar&foo=baz", want: Values{"foo": {"bar", "baz"}}},
		{name: "key repeated three times", url: "http://some.site/some?foo=bar&foo=baz&foo=qux", want: Values{"foo": {"bar", "baz", "qux"}}},
		{name: "mixed", url: "http://some.site/some?foo=bar&foo=baz&oof=duh", want: Values{"foo": {"bar", "baz"}, "oof": {"duh"}}},
		{name: "percent-decoded", url: "http://a.com/c?u%20rl=http%3A%2F%2Fb.com%2F%3Fx%3D1", want: Values{"u rl": {"http://b.com/?x=1"}}},
		{name: "plus is not a space", url: "http://a.com/c?q=a+b", want: Values{"q": {"a+b"}}},
		{name: "value keeps later equals signs", url: "http://a.com/c?p=x=y", want: Values{"p": {"x=y"}}},
		{name: "uses last question mark", url: "http://a.com/c?x=1?y=2", want: Values{"y": {"2"}}},
		{name: "empty pair between ampersands", url: "http://a.com/c?a=1&&b=2", want: Values{"a": {"1"}, "": {""}, "b": {"2"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.url)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.url, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.url, diff)
			}
		})
	}
}

func TestParseMalformedEncoding(t *testing.T) {
	for _, u := range []string{
		"http://a.com/c?url=%zz",
		"http://a.com/c?%=1",
		"http://a.com/c?ok=1&bad=%E0%A4%A",
		"http://a.com/c?truncated=%E0%A4",
	} {
		t.Run(u, func(t *testing.T) {
			_, err := Parse(u)
			if !errors.Is(err, ErrMalformedEncoding) {
				t.Errorf("Parse(%q) error = %v, want ErrMalformedEncoding", u, err)
			}
		})
	}
}

func TestValuesAccessors(t *testing.T) {
	v := Values{"foo": {"bar", "baz"}, "oof": {"duh"}}

	if got, ok := v.Get("foo"); !ok || got != "bar" {
		t.Errorf("Get(foo) = %q, %v, want %q, true", got, ok, "bar")
	}
	if _, ok := v.Get("missing"); ok {
		t.Error("Get(missing) reported ok")
	}
	if !v.IsMulti("foo") {
		t.Error("IsMulti(foo) = false, want true")
	}
	if v.IsMulti("oof") {
		t.Error("IsMulti(oof) = true, want false")
	}
}
