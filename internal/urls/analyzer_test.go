package urls

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/aruiz/llm-phish-triage/internal/core"
)

func testConfig() Config {
	return Config{
		Allowlist:     []string{"paypal.com", "corp.com"},
		BrandDomains:  []string{"paypal.com", "microsoft.com"},
		Shorteners:    []string{"bit.ly", "tinyurl.com"},
		EditThreshold: 2,
		MaxURLs:       10,
	}
}

type stubReputation struct {
	entries map[string]*core.DomainReputation
	err     error
}

func (s *stubReputation) Lookup(_ context.Context, domain string) (*core.DomainReputation, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.entries[domain], nil
}

func TestScoreReasons(t *testing.T) {
	tests := []struct {
		name     string
		textBody string
		acct     core.AccountContext
		want     []core.URLFinding
	}{
		{
			name:     "ip literal host",
			textBody: "Verify at http://192.168.0.1/login now",
			want: []core.URLFinding{
				{URL: "http://192.168.0.1/login", Reason: core.URLIPLiteralHost},
			},
		},
		{
			name:     "ip literal wins over look-alike context",
			textBody: "PayPal alert: http://203.0.113.9/paypal",
			want: []core.URLFinding{
				{URL: "http://203.0.113.9/paypal", Reason: core.URLIPLiteralHost},
			},
		},
		{
			name:     "owned domain is clean",
			textBody: "Reset at https://portal.corp.example/reset",
			acct:     core.AccountContext{OwnedDomains: []string{"corp.example"}},
			want:     nil,
		},
		{
			name:     "trusted sender domain is clean",
			textBody: "Invoice: https://billing.vendor.example/inv/42",
			acct:     core.AccountContext{TrustedSenders: []string{"accounts@vendor.example"}},
			want:     nil,
		},
		{
			name:     "homoglyph look-alike of mentioned brand",
			textBody: "Your PayPal account is locked: http://paypa1.com/unlock",
			want: []core.URLFinding{
				{URL: "http://paypa1.com/unlock", Reason: core.URLLookAlikeDomain},
			},
		},
		{
			name:     "edit distance look-alike",
			textBody: "PayPal says: http://paypall.com/confirm",
			want: []core.URLFinding{
				{URL: "http://paypall.com/confirm", Reason: core.URLLookAlikeDomain},
			},
		},
		{
			name:     "genuine brand domain is not a look-alike",
			textBody: "Sign in to PayPal at https://www.paypal.com/signin",
			want:     nil,
		},
		{
			name:     "shortener",
			textBody: "Click https://bit.ly/3xYz",
			want: []core.URLFinding{
				{URL: "https://bit.ly/3xYz", Reason: core.URLShortener},
			},
		},
		{
			name:     "allowlisted subdomain is clean",
			textBody: "Docs at https://docs.corp.com/handbook",
			want:     nil,
		},
		{
			name:     "unrecognized host",
			textBody: "Prize claim: http://free-stuff.example/win",
			want: []core.URLFinding{
				{URL: "http://free-stuff.example/win", Reason: core.URLNotAllowlisted},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnalyzer(testConfig(), nil, nil)
			got := a.Analyze(context.Background(), "", tt.textBody, tt.acct)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Analyze() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAnalyzeCleanBodyIsNil(t *testing.T) {
	a := NewAnalyzer(testConfig(), nil, nil)

	// Both the no-URL path and the all-clean path return nil, so
	// serialized evidence never distinguishes the two.
	for _, body := range []string{
		"no links in this message at all",
		"Manage your PayPal account at https://www.paypal.com/settings",
	} {
		if got := a.Analyze(context.Background(), "", body, core.AccountContext{}); got != nil {
			t.Errorf("Analyze(%q) = %#v, want nil", body, got)
		}
	}
}

func TestReputationLookup(t *testing.T) {
	store := &stubReputation{entries: map[string]*core.DomainReputation{
		"goodco.example": {Domain: "goodco.example", Trusted: true},
		"badco.example":  {Domain: "badco.example", Trusted: false},
	}}
	a := NewAnalyzer(testConfig(), store, nil)

	got := a.Analyze(context.Background(), "", "See https://goodco.example/promo", core.AccountContext{})
	if len(got) != 0 {
		t.Errorf("trusted reputation should suppress the finding, got %+v", got)
	}

	got = a.Analyze(context.Background(), "", "See https://badco.example/promo", core.AccountContext{})
	if len(got) != 1 || got[0].Reason != core.URLNotAllowlisted {
		t.Errorf("untrusted reputation should not suppress, got %+v", got)
	}

	failing := NewAnalyzer(testConfig(), &stubReputation{err: errors.New("store down")}, nil)
	got = failing.Analyze(context.Background(), "", "See https://goodco.example/promo", core.AccountContext{})
	if len(got) != 1 || got[0].Reason != core.URLNotAllowlisted {
		t.Errorf("lookup failure should degrade to not allowlisted, got %+v", got)
	}
}

func TestExtractOrderAndDedupe(t *testing.T) {
	a := NewAnalyzer(testConfig(), nil, nil)

	htmlBody := `<html><body>
		<a href="http://first.example/a">click</a>
		<img src="http://second.example/pixel.gif">
		<form action="http://third.example/submit"></form>
		<a href="http://first.example/a">again</a>
	</body></html>`
	textBody := "Plain copy: http://fourth.example/b and http://second.example/pixel.gif"

	got := a.extract(htmlBody, textBody)
	want := []string{
		"http://first.example/a",
		"http://second.example/pixel.gif",
		"http://third.example/submit",
		"http://fourth.example/b",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("extract() = %v, want %v", got, want)
	}
}

func TestExtractTrimsTrailingPunctuation(t *testing.T) {
	a := NewAnalyzer(testConfig(), nil, nil)

	got := a.extract("", "Go to https://example.net/login. Then call us!")
	want := []string{"https://example.net/login"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("extract() = %v, want %v", got, want)
	}
}

func TestExtractCap(t *testing.T) {
	cfg := testConfig()
	cfg.MaxURLs = 3
	a := NewAnalyzer(cfg, nil, nil)

	textBody := "http://a.example/1 http://b.example/2 http://c.example/3 http://d.example/4"
	got := a.extract("", textBody)
	if len(got) != 3 {
		t.Fatalf("extract() returned %d URLs, want 3", len(got))
	}
	if got[2] != "http://c.example/3" {
		t.Errorf("cap should keep first occurrences, got %v", got)
	}
}

func TestNonHTTPSchemesIgnored(t *testing.T) {
	a := NewAnalyzer(testConfig(), nil, nil)

	htmlBody := `<a href="javascript:alert(1)">x</a><a href="mailto:a@b.example">y</a>`
	got := a.Analyze(context.Background(), htmlBody, "", core.AccountContext{})
	if len(got) != 0 {
		t.Errorf("non-http links should be ignored, got %+v", got)
	}
}
