package headers

import (
	"testing"

	"github.com/aruiz/llm-phish-triage/internal/core"
)

func TestCollapseAuth(t *testing.T) {
	a := NewAnalyzer(DefaultBrands())

	tests := []struct {
		name    string
		headers string
		want    core.AuthResult
	}{
		{
			name: "all pass",
			headers: "From: a@example.com\n" +
				"Authentication-Results: mx.example.com; spf=pass; dkim=pass; dmarc=pass\n",
			want: core.AuthPass,
		},
		{
			name: "single fail wins over passes",
			headers: "From: a@example.com\n" +
				"Authentication-Results: mx.example.com; spf=pass; dkim=fail; dmarc=pass\n",
			want: core.AuthFail,
		},
		{
			name: "softfail collapses to fail",
			headers: "From: a@example.com\n" +
				"Authentication-Results: mx.example.com; spf=softfail\n",
			want: core.AuthFail,
		},
		{
			name: "permerror collapses to fail",
			headers: "From: a@example.com\n" +
				"Authentication-Results: mx.example.com; dmarc=permerror\n",
			want: core.AuthFail,
		},
		{
			name: "neutral results are unknown",
			headers: "From: a@example.com\n" +
				"Authentication-Results: mx.example.com; spf=neutral\n",
			want: core.AuthUnknown,
		},
		{
			name:    "no mechanisms at all",
			headers: "From: a@example.com\nSubject: hi\n",
			want:    core.AuthNone,
		},
		{
			name: "received-spf pass",
			headers: "From: a@example.com\n" +
				"Received-SPF: pass (mx: domain designates sender)\n",
			want: core.AuthPass,
		},
		{
			name: "received-spf fail beats auth results pass",
			headers: "From: a@example.com\n" +
				"Authentication-Results: mx.example.com; dkim=pass\n" +
				"Received-SPF: fail (mx: not designated)\n",
			want: core.AuthFail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Analyze(tt.headers, core.AccountContext{})
			if got.AuthResult != tt.want {
				t.Errorf("AuthResult = %q, want %q", got.AuthResult, tt.want)
			}
		})
	}
}

func TestAnalyzeMalformedInput(t *testing.T) {
	a := NewAnalyzer(DefaultBrands())

	for _, raw := range []string{"", "   ", "not a header block at all\x00\x01"} {
		got := a.Analyze(raw, core.AccountContext{})
		want := core.NeutralHeaderFindings()
		if got != want {
			t.Errorf("Analyze(%q) = %+v, want neutral findings", raw, got)
		}
	}
}

func TestReplyToMismatch(t *testing.T) {
	a := NewAnalyzer(DefaultBrands())

	tests := []struct {
		name    string
		headers string
		acct    core.AccountContext
		want    bool
	}{
		{
			name: "differing domains",
			headers: "From: support@bank.com\n" +
				"Reply-To: collect@evil.net\n",
			want: true,
		},
		{
			name: "same domain",
			headers: "From: support@bank.com\n" +
				"Reply-To: billing@bank.com\n",
			want: false,
		},
		{
			name: "subdomains of an owned domain",
			headers: "From: alerts@mail.corp.com\n" +
				"Reply-To: help@support.corp.com\n",
			acct: core.AccountContext{OwnedDomains: []string{"corp.com"}},
			want: false,
		},
		{
			name:    "missing reply-to",
			headers: "From: support@bank.com\n",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Analyze(tt.headers, tt.acct)
			if got.ReplyToMismatch != tt.want {
				t.Errorf("ReplyToMismatch = %v, want %v", got.ReplyToMismatch, tt.want)
			}
		})
	}
}

func TestDisplayNameSpoof(t *testing.T) {
	a := NewAnalyzer(DefaultBrands())

	tests := []struct {
		name    string
		headers string
		acct    core.AccountContext
		want    bool
	}{
		{
			name:    "brand name from foreign domain",
			headers: "From: \"PayPal Support\" <support@evil.net>\n",
			want:    true,
		},
		{
			name:    "homoglyph brand name",
			headers: "From: \"P@yp4l Security\" <alerts@random.org>\n",
			want:    true,
		},
		{
			name:    "brand name from its own domain",
			headers: "From: \"PayPal\" <service@paypal.com>\n",
			want:    false,
		},
		{
			name:    "brand name from brand subdomain",
			headers: "From: \"Microsoft account team\" <no-reply@accounts.microsoft.com>\n",
			want:    false,
		},
		{
			name:    "trusted sender exempt",
			headers: "From: \"Amazon Orders\" <orders@reseller.example>\n",
			acct:    core.AccountContext{TrustedSenders: []string{"orders@reseller.example"}},
			want:    false,
		},
		{
			name:    "no display name",
			headers: "From: support@evil.net\n",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Analyze(tt.headers, tt.acct)
			if got.DisplayNameSpoof != tt.want {
				t.Errorf("DisplayNameSpoof = %v, want %v", got.DisplayNameSpoof, tt.want)
			}
		})
	}
}

func TestPunycodeDetected(t *testing.T) {
	a := NewAnalyzer(DefaultBrands())

	withPunycode := "From: alerts@xn--paypl-7ve.com\nSubject: hi\n"
	got := a.Analyze(withPunycode, core.AccountContext{})
	if !got.PunycodeDetected {
		t.Error("expected punycode detection in From domain")
	}

	clean := "From: alerts@paypal.com\nSubject: hi\n"
	got = a.Analyze(clean, core.AccountContext{})
	if got.PunycodeDetected {
		t.Error("unexpected punycode detection in clean headers")
	}
}

func TestSuspiciousRouting(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		headers string
		want    bool
	}{
		{
			name: "too many hops",
			opts: []Option{WithMaxRelayHops(2)},
			headers: "From: a@example.com\n" +
				"Received: from mx1.example.com by mx2.example.com; Mon, 1 Jan 2024 00:00:00 +0000\n" +
				"Received: from mx2.example.com by mx3.example.com; Mon, 1 Jan 2024 00:00:01 +0000\n" +
				"Received: from mx3.example.com by mx4.example.com; Mon, 1 Jan 2024 00:00:02 +0000\n",
			want: true,
		},
		{
			name: "two anomaly indicators",
			headers: "From: a@example.com\n" +
				"Received: from relay.cheap.tk by mx.example.com; Mon, 1 Jan 2024 00:00:00 +0000\n" +
				"Received: from [192.168.1.5] by mx.example.com; Mon, 1 Jan 2024 00:00:01 +0000\n",
			want: true,
		},
		{
			name: "single indicator is tolerated",
			headers: "From: a@example.com\n" +
				"Received: from relay.cheap.tk by mx.example.com; Mon, 1 Jan 2024 00:00:00 +0000\n",
			want: false,
		},
		{
			name: "ordinary chain",
			headers: "From: a@example.com\n" +
				"Received: from mail.sender.com by mx.example.com; Mon, 1 Jan 2024 00:00:00 +0000\n",
			want: false,
		},
		{
			name:    "no received headers",
			headers: "From: a@example.com\nSubject: hi\n",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnalyzer(DefaultBrands(), tt.opts...)
			got := a.Analyze(tt.headers, core.AccountContext{})
			if got.SuspiciousRoutingChain != tt.want {
				t.Errorf("SuspiciousRoutingChain = %v, want %v", got.SuspiciousRoutingChain, tt.want)
			}
		})
	}
}
