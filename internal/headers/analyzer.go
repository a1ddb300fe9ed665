// Package headers derives authentication and spoofing findings from raw
// email header text. Analysis is pure and total: malformed or absent
// headers degrade to neutral findings, never to an error.
package headers

import (
	"net/mail"
	"net/textproto"
	"regexp"
	"strings"

	"github.com/aruiz/llm-phish-triage/internal/core"
)

var (
	authMechanismRe = regexp.MustCompile(`(spf|dkim|dmarc)\s*=\s*([a-z]+)`)
	receivedSPFRe   = regexp.MustCompile(`^\s*(pass|fail|softfail|neutral|none)`)
	privateIPRe     = regexp.MustCompile(`\b(?:127\.|192\.168\.|10\.|172\.(?:1[6-9]|2[0-9]|3[01])\.)`)
	hopStructureRe  = regexp.MustCompile(`by\s+\S+`)
)

// Analyzer evaluates raw headers against a brand list and routing limits
type Analyzer struct {
	brands         []Brand
	suspiciousTLDs map[string]struct{}
	maxRelayHops   int
}

// Brand pairs a display-name token with the domains legitimately allowed
// to carry it.
type Brand struct {
	Token   string
	Domains []string
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithMaxRelayHops overrides the relay-hop threshold for the suspicious
// routing check.
func WithMaxRelayHops(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxRelayHops = n
		}
	}
}

// WithSuspiciousTLDs overrides the TLD set flagged in the routing chain.
func WithSuspiciousTLDs(tlds []string) Option {
	return func(a *Analyzer) {
		a.suspiciousTLDs = make(map[string]struct{}, len(tlds))
		for _, t := range tlds {
			a.suspiciousTLDs[strings.ToLower(t)] = struct{}{}
		}
	}
}

// NewAnalyzer creates a header analyzer over the given brand list.
func NewAnalyzer(brands []Brand, opts ...Option) *Analyzer {
	a := &Analyzer{
		brands:       brands,
		maxRelayHops: 8,
		suspiciousTLDs: map[string]struct{}{
			".tk": {}, ".ml": {}, ".ga": {}, ".cf": {}, ".click": {},
			".download": {}, ".bid": {}, ".loan": {}, ".racing": {},
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze parses rawHeaders and reports authentication and spoofing
// signals. Unparsable input yields AuthUnknown with all flags clear.
func (a *Analyzer) Analyze(rawHeaders string, acct core.AccountContext) core.HeaderFindings {
	if strings.TrimSpace(rawHeaders) == "" {
		return core.NeutralHeaderFindings()
	}

	msg, err := mail.ReadMessage(strings.NewReader(normalizeHeaderBlock(rawHeaders)))
	if err != nil {
		return core.NeutralHeaderFindings()
	}
	h := msg.Header

	findings := core.HeaderFindings{
		AuthResult: a.collapseAuth(h),
	}
	findings.ReplyToMismatch = a.replyToMismatch(h, acct)
	findings.DisplayNameSpoof = a.displayNameSpoof(h, acct)
	findings.PunycodeDetected = punycodePresent(h)
	findings.SuspiciousRoutingChain = a.suspiciousRouting(h)
	return findings
}

// collapseAuth folds every reported mechanism into a single worst-case
// verdict. Any failing mechanism wins over any number of passes.
func (a *Analyzer) collapseAuth(h mail.Header) core.AuthResult {
	var sawPass, sawFail, sawAny bool

	for _, line := range allValues(h, "Authentication-Results") {
		for _, m := range authMechanismRe.FindAllStringSubmatch(strings.ToLower(line), -1) {
			sawAny = true
			switch m[2] {
			case "pass":
				sawPass = true
			case "fail", "softfail", "permerror":
				sawFail = true
			}
		}
	}

	if spf := h.Get("Received-SPF"); spf != "" {
		if m := receivedSPFRe.FindStringSubmatch(strings.ToLower(spf)); m != nil {
			sawAny = true
			switch m[1] {
			case "pass":
				sawPass = true
			case "fail", "softfail":
				sawFail = true
			}
		}
	}

	switch {
	case sawFail:
		return core.AuthFail
	case sawPass:
		return core.AuthPass
	case sawAny:
		return core.AuthUnknown
	default:
		return core.AuthNone
	}
}

// replyToMismatch reports a Reply-To domain that differs from the From
// domain. Subdomains of the same owned domain count as equal.
func (a *Analyzer) replyToMismatch(h mail.Header, acct core.AccountContext) bool {
	fromDom := addressDomain(h.Get("From"))
	replyDom := addressDomain(h.Get("Reply-To"))
	if fromDom == "" || replyDom == "" {
		return false
	}
	if fromDom == replyDom {
		return false
	}
	for _, owned := range acct.OwnedDomains {
		if domainWithin(fromDom, owned) && domainWithin(replyDom, owned) {
			return false
		}
	}
	return true
}

// displayNameSpoof reports a trusted brand token in the display name while
// the actual address domain is foreign to that brand and to the account's
// trusted senders and owned domains.
func (a *Analyzer) displayNameSpoof(h mail.Header, acct core.AccountContext) bool {
	addr, err := mail.ParseAddress(h.Get("From"))
	if err != nil || addr.Name == "" {
		return false
	}
	name := normalizeHomoglyphs(strings.ToLower(addr.Name))
	domain := addressDomain(h.Get("From"))
	if domain == "" {
		return false
	}
	if a.domainTrusted(domain, acct) {
		return false
	}

	for _, brand := range a.brands {
		if !strings.Contains(name, brand.Token) {
			continue
		}
		legit := false
		for _, d := range brand.Domains {
			if domainWithin(domain, d) {
				legit = true
				break
			}
		}
		if !legit {
			return true
		}
	}
	return false
}

func (a *Analyzer) domainTrusted(domain string, acct core.AccountContext) bool {
	for _, owned := range acct.OwnedDomains {
		if domainWithin(domain, owned) {
			return true
		}
	}
	for _, sender := range acct.TrustedSenders {
		if d := emailDomain(sender); d != "" && domainWithin(domain, d) {
			return true
		}
	}
	return false
}

// punycodePresent scans the headers that carry domains for IDN-encoded
// labels.
func punycodePresent(h mail.Header) bool {
	for _, key := range []string{"From", "Reply-To", "Return-Path", "Message-Id"} {
		if strings.Contains(strings.ToLower(h.Get(key)), "xn--") {
			return true
		}
	}
	for _, line := range allValues(h, "Received") {
		if strings.Contains(strings.ToLower(line), "xn--") {
			return true
		}
	}
	return false
}

// suspiciousRouting flags a relay chain that is too long or accumulates
// two or more anomaly indicators.
func (a *Analyzer) suspiciousRouting(h mail.Header) bool {
	received := allValues(h, "Received")
	if len(received) == 0 {
		return false
	}
	if len(received) > a.maxRelayHops {
		return true
	}

	indicators := 0
	for _, hop := range received {
		lower := strings.ToLower(hop)
		for tld := range a.suspiciousTLDs {
			if strings.Contains(lower, tld) {
				indicators++
				break
			}
		}
		if privateIPRe.MatchString(hop) {
			indicators++
		}
		if !hopStructureRe.MatchString(lower) {
			indicators++
		}
	}
	return indicators >= 2
}

// normalizeHeaderBlock terminates the header block so net/mail accepts a
// headers-only payload.
func normalizeHeaderBlock(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	return strings.TrimRight(raw, "\n") + "\n\n"
}

func allValues(h mail.Header, key string) []string {
	return h[textproto.CanonicalMIMEHeaderKey(key)]
}

func addressDomain(field string) string {
	if field == "" {
		return ""
	}
	addr, err := mail.ParseAddress(field)
	if err != nil {
		return ""
	}
	return emailDomain(addr.Address)
}

func emailDomain(address string) string {
	at := strings.LastIndexByte(address, '@')
	if at < 0 || at == len(address)-1 {
		return ""
	}
	return strings.ToLower(address[at+1:])
}

// domainWithin reports whether host equals base or is a subdomain of it.
func domainWithin(host, base string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	base = strings.ToLower(strings.TrimSuffix(base, "."))
	if base == "" {
		return false
	}
	return host == base || strings.HasSuffix(host, "."+base)
}

var homoglyphs = strings.NewReplacer(
	"0", "o",
	"1", "l",
	"3", "e",
	"4", "a",
	"5", "s",
	"7", "t",
	"8", "b",
	"@", "a",
	"$", "s",
)

// normalizeHomoglyphs folds common digit/symbol substitutions so "payp4l"
// compares equal to "paypal".
func normalizeHomoglyphs(s string) string {
	return homoglyphs.Replace(s)
}
