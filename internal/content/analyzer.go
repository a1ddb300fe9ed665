// Package content scans normalized body text for phishing-indicative
// language with locale-aware pattern vocabularies. Matching is pure and
// presence-only: tags carry no scores at this layer.
package content

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/language"

	"github.com/aruiz/llm-phish-triage/internal/core"
)

var (
	entityRe     = regexp.MustCompile(`&[a-zA-Z0-9#]+;`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	stripPolicy  = bluemonday.StrictPolicy()
)

// vocabulary is one locale's pattern set, keyed by signal tag
type vocabulary map[core.ContentSignal][]*regexp.Regexp

// Analyzer matches locale vocabularies against body text
type Analyzer struct {
	matcher      language.Matcher
	vocabularies map[language.Tag]vocabulary
	shared       vocabulary
	fallback     language.Tag
}

// NewAnalyzer creates a content analyzer with the built-in English and
// Spanish vocabularies.
func NewAnalyzer() *Analyzer {
	supported := []language.Tag{language.English, language.Spanish}
	return &Analyzer{
		matcher: language.NewMatcher(supported),
		vocabularies: map[language.Tag]vocabulary{
			language.English: englishVocabulary,
			language.Spanish: spanishVocabulary,
		},
		shared:   sharedVocabulary,
		fallback: language.English,
	}
}

// Analyze returns the distinct signal tags matched in textBody, in
// canonical vocabulary order. An empty or unmatched body yields an empty
// set, never an error.
func (a *Analyzer) Analyze(textBody, userLocale string) []core.ContentSignal {
	text := Normalize(textBody)
	if text == "" {
		return nil
	}

	vocab := a.vocabularyFor(userLocale)
	matched := make(map[core.ContentSignal]bool)
	for tag, patterns := range vocab {
		for _, re := range patterns {
			if re.MatchString(text) {
				matched[tag] = true
				break
			}
		}
	}
	for tag, patterns := range a.shared {
		if matched[tag] {
			continue
		}
		for _, re := range patterns {
			if re.MatchString(text) {
				matched[tag] = true
				break
			}
		}
	}

	var out []core.ContentSignal
	for _, tag := range core.SignalVocabulary {
		if matched[tag] {
			out = append(out, tag)
		}
	}
	return out
}

func (a *Analyzer) vocabularyFor(userLocale string) vocabulary {
	desired, err := language.Parse(userLocale)
	if err != nil {
		return a.vocabularies[a.fallback]
	}
	_, index, _ := a.matcher.Match(desired)
	switch index {
	case 1:
		return a.vocabularies[language.Spanish]
	default:
		return a.vocabularies[language.English]
	}
}

// Normalize lowercases, strips HTML entities and collapses whitespace.
func Normalize(text string) string {
	text = entityRe.ReplaceAllString(text, " ")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.ToLower(strings.TrimSpace(text))
}

// StripHTML derives plain text from an HTML body for analysis when no
// text body was supplied.
func StripHTML(htmlBody string) string {
	return stripPolicy.Sanitize(htmlBody)
}

// StripHTML satisfies the content-analysis port.
func (a *Analyzer) StripHTML(htmlBody string) string {
	return StripHTML(htmlBody)
}

// AnalyzeAttachments satisfies the content-analysis port.
func (a *Analyzer) AnalyzeAttachments(meta []core.AttachmentMeta) []core.ContentSignal {
	return AnalyzeAttachments(meta)
}

var englishVocabulary = vocabulary{
	core.SignalUrgency: compileAll(
		`\b(?:urgent|immediately?|asap|right now|act now|quickly)\b`,
		`\b(?:expires?|suspend(?:ed)?|cancel(?:led)?|terminate[ds]?)\b`,
		`\bwithin \d+ (?:hours?|days?|minutes?)\b`,
		`\b(?:action|response) required\b`,
	),
	core.SignalCredentialRequest: compileAll(
		`\b(?:password|username|login|credentials?|pin|security code)\b`,
		`\b(?:verify|confirm|update|validate) (?:your )?(?:account|identity|information|details)\b`,
		`\b(?:enter|provide|submit) your (?:password|details|information)\b`,
		`\bclick (?:here|below|the link)\b`,
	),
	core.SignalFinancialBait: compileAll(
		`\b(?:credit card|card number|bank(?:ing)? (?:account|details))\b`,
		`\b(?:wire transfer|payment|invoice|refund|fine|outstanding (?:debt|balance))\b`,
		`\byou (?:have )?won\b`,
		`\b(?:prize|lottery|inheritance)\b`,
	),
	core.SignalGenericGreeting: compileAll(
		`\bdear (?:customer|user|client|member|account holder|sir or madam)\b`,
		`\bvalued customer\b`,
	),
	core.SignalThreatLanguage: compileAll(
		`\baccount (?:suspended|blocked|locked|closed|compromised)\b`,
		`\b(?:suspicious|unusual) activity\b`,
		`\bunauthorized (?:access|attempt|transaction)\b`,
		`\blegal action\b`,
	),
}

var spanishVocabulary = vocabulary{
	core.SignalUrgency: compileAll(
		`\b(?:urgente|inmediat[oa]|r[aá]pido|ahora mismo|cuanto antes)\b`,
		`\b(?:caduca|expira|vence|suspender|cancelar)\b`,
		`\b(?:[uú]ltimas? \d+ horas?|dentro de \d+ d[ií]as?)\b`,
		`\bacci[oó]n (?:requerida|inmediata)\b`,
	),
	core.SignalCredentialRequest: compileAll(
		`\b(?:contraseñ?a|clave|pin|c[oó]digo de seguridad|credenciales)\b`,
		`\b(?:verificar|confirmar|actualizar|validar) (?:su )?(?:cuenta|identidad|datos|informaci[oó]n)\b`,
		`\b(?:ingres[ae]|introdu(?:zca|cir)|proporcion[ae]) sus? (?:datos|credenciales)\b`,
		`\bhaga? clic (?:aqu[ií]|abajo|en el enlace)\b`,
	),
	core.SignalFinancialBait: compileAll(
		`\b(?:tarjeta de cr[eé]dito|n[uú]mero de tarjeta|datos bancarios|cuenta bancaria)\b`,
		`\b(?:transferencia|pago|factura|reembolso|multa|deuda)\b`,
		`\bha ganado\b`,
		`\b(?:premio|loter[ií]a|herencia)\b`,
	),
	core.SignalGenericGreeting: compileAll(
		`\bestimad[oa] (?:cliente|usuari[oa]|señor(?:a)?)\b`,
		`\bapreciad[oa] cliente\b`,
	),
	core.SignalThreatLanguage: compileAll(
		`\bcuenta (?:suspendida|bloqueada|cerrada|comprometida)\b`,
		`\bactividad (?:sospechosa|inusual)\b`,
		`\b(?:acceso|intento) no autorizado\b`,
		`\bacciones legales\b`,
	),
}

// sharedVocabulary applies regardless of locale: misspelled brand
// imitations read the same in any language.
var sharedVocabulary = vocabulary{
	core.SignalMismatchedBranding: compileAll(
		`\b(?:payp4l|paypa1|payp al|amaz0n|amazom|micr0soft|microsft|g00gle|googie|faceb00k|f4cebook|netfl1x|n3tflix|app1e|appl3)\b`,
	),
}

func compileAll(patterns ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		res[i] = regexp.MustCompile(p)
	}
	return res
}
