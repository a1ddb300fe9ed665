// Package urls extracts links from email bodies and scores their hosts
// with purely lexical checks: no DNS, no WHOIS, no fetches. The only I/O
// is an optional bounded lookup against the read-only reputation store.
package urls

import (
	"context"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/aruiz/llm-phish-triage/internal/core"
)

var textURLRe = regexp.MustCompile(`https?://[^\s<>"'\)\]]+`)

// Analyzer scores extracted URLs against allowlists, brand domains and
// look-alike heuristics
type Analyzer struct {
	allowlist     map[string]struct{}
	brandDomains  []string
	shorteners    map[string]struct{}
	editThreshold int
	maxURLs       int
	reputation    core.ReputationStore
	logger        *zap.Logger
}

// Config carries the analyzer policy knobs
type Config struct {
	Allowlist     []string
	BrandDomains  []string
	Shorteners    []string
	EditThreshold int
	MaxURLs       int
}

// NewAnalyzer creates a URL analyzer. The reputation store may be nil.
func NewAnalyzer(cfg Config, reputation core.ReputationStore, logger *zap.Logger) *Analyzer {
	a := &Analyzer{
		allowlist:     toSet(cfg.Allowlist),
		brandDomains:  lowerAll(cfg.BrandDomains),
		shorteners:    toSet(cfg.Shorteners),
		editThreshold: cfg.EditThreshold,
		maxURLs:       cfg.MaxURLs,
		reputation:    reputation,
		logger:        logger,
	}
	if a.editThreshold <= 0 {
		a.editThreshold = 2
	}
	if a.maxURLs <= 0 {
		a.maxURLs = 10
	}
	return a
}

// Analyze extracts candidate URLs from both bodies in first-occurrence
// order, deduplicates them by exact string, and returns a finding for
// every URL whose reason is not none.
func (a *Analyzer) Analyze(ctx context.Context, htmlBody, textBody string, acct core.AccountContext) []core.URLFinding {
	candidates := a.extract(htmlBody, textBody)
	if len(candidates) == 0 {
		return nil
	}

	mentioned := a.brandsMentioned(htmlBody + " " + textBody)

	var findings []core.URLFinding
	for _, raw := range candidates {
		reason := a.scoreURL(ctx, raw, mentioned, acct)
		if reason == core.URLNone {
			continue
		}
		findings = append(findings, core.URLFinding{URL: raw, Reason: reason})
	}
	return findings
}

// extract pulls URLs out of the HTML body (anchor, image and form
// attributes) and then the text body, capped at maxURLs.
func (a *Analyzer) extract(htmlBody, textBody string) []string {
	seen := make(map[string]struct{})
	var ordered []string
	add := func(raw string) {
		raw = strings.TrimRight(raw, ".,;:!?")
		if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
			return
		}
		if _, dup := seen[raw]; dup {
			return
		}
		if len(ordered) >= a.maxURLs {
			return
		}
		seen[raw] = struct{}{}
		ordered = append(ordered, raw)
	}

	if htmlBody != "" {
		doc, err := html.Parse(strings.NewReader(htmlBody))
		if err == nil {
			walkLinks(doc, add)
		} else if a.logger != nil {
			a.logger.Debug("HTML parse failed, falling back to text scan", zap.Error(err))
		}
	}
	for _, m := range textURLRe.FindAllString(textBody, -1) {
		add(m)
	}
	return ordered
}

func walkLinks(n *html.Node, add func(string)) {
	if n.Type == html.ElementNode {
		var attr string
		switch n.Data {
		case "a":
			attr = "href"
		case "img":
			attr = "src"
		case "form":
			attr = "action"
		}
		if attr != "" {
			for _, at := range n.Attr {
				if at.Key == attr {
					add(strings.TrimSpace(at.Val))
				}
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkLinks(c, add)
	}
}

// scoreURL assigns the single reason for a URL, in fixed precedence:
// IP-literal host, look-alike domain, shortener, not allowlisted.
func (a *Analyzer) scoreURL(ctx context.Context, raw string, mentionedBrands []string, acct core.AccountContext) core.URLReason {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return core.URLNone
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return core.URLNone
	}

	if net.ParseIP(host) != nil {
		return core.URLIPLiteralHost
	}

	if a.hostTrusted(host, acct) {
		return core.URLNone
	}

	if a.looksAlike(host, mentionedBrands) {
		return core.URLLookAlikeDomain
	}

	if _, ok := a.shorteners[host]; ok {
		return core.URLShortener
	}

	if _, ok := a.allowlist[host]; ok {
		return core.URLNone
	}
	for allowed := range a.allowlist {
		if domainWithin(host, allowed) {
			return core.URLNone
		}
	}
	if a.reputationTrusted(ctx, host) {
		return core.URLNone
	}
	return core.URLNotAllowlisted
}

func (a *Analyzer) hostTrusted(host string, acct core.AccountContext) bool {
	for _, owned := range acct.OwnedDomains {
		if domainWithin(host, owned) {
			return true
		}
	}
	for _, sender := range acct.TrustedSenders {
		if d := emailDomain(sender); d != "" && domainWithin(host, d) {
			return true
		}
	}
	return false
}

// looksAlike reports whether host lexically imitates one of the brand
// domains mentioned elsewhere in the message: a small edit distance on the
// registrable label, or equality after folding homoglyphs.
func (a *Analyzer) looksAlike(host string, mentionedBrands []string) bool {
	hostLabel := baseLabel(host)
	hostFolded := normalizeHomoglyphs(hostLabel)

	for _, brand := range mentionedBrands {
		brandLabel := baseLabel(brand)
		if hostLabel == brandLabel && domainWithin(host, brand) {
			// The genuine brand domain, not an imitation.
			continue
		}
		if normalizeHomoglyphs(brandLabel) == hostFolded {
			return true
		}
		d := levenshtein.ComputeDistance(hostLabel, brandLabel)
		if d > 0 && d < a.editThreshold {
			return true
		}
	}
	return false
}

// brandsMentioned returns the configured brand domains whose base token
// appears anywhere in the message content.
func (a *Analyzer) brandsMentioned(content string) []string {
	folded := normalizeHomoglyphs(strings.ToLower(content))
	var mentioned []string
	for _, brand := range a.brandDomains {
		token := baseLabel(brand)
		if token != "" && strings.Contains(folded, token) {
			mentioned = append(mentioned, brand)
		}
	}
	return mentioned
}

// reputationTrusted consults the collaborator store; a missing store or a
// lookup failure clears nothing and flags nothing.
func (a *Analyzer) reputationTrusted(ctx context.Context, host string) bool {
	if a.reputation == nil {
		return false
	}
	rep, err := a.reputation.Lookup(ctx, host)
	if err != nil {
		if a.logger != nil {
			a.logger.Debug("Reputation lookup failed", zap.String("domain", host), zap.Error(err))
		}
		return false
	}
	return rep != nil && rep.Trusted
}

// baseLabel returns the registrable label of a host: "paypal" for
// "www.paypal.com".
func baseLabel(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return host
	}
	return labels[len(labels)-2]
}

func domainWithin(host, base string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	base = strings.ToLower(strings.TrimSuffix(base, "."))
	if base == "" {
		return false
	}
	return host == base || strings.HasSuffix(host, "."+base)
}

func emailDomain(address string) string {
	at := strings.LastIndexByte(address, '@')
	if at < 0 || at == len(address)-1 {
		return ""
	}
	return strings.ToLower(address[at+1:])
}

var homoglyphs = strings.NewReplacer(
	"0", "o",
	"1", "l",
	"3", "e",
	"4", "a",
	"5", "s",
	"7", "t",
	"8", "b",
	"$", "s",
)

func normalizeHomoglyphs(s string) string {
	return homoglyphs.Replace(s)
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[strings.ToLower(strings.TrimSpace(it))] = struct{}{}
	}
	return set
}

func lowerAll(items []string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = strings.ToLower(strings.TrimSpace(it))
	}
	return out
}
