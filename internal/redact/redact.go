// Package redact masks personally identifiable substrings before text
// crosses the process boundary (logging sink or external classifier).
// Redaction is pure, total and idempotent: applying it twice yields the
// same output as applying it once.
package redact

import (
	"strings"
)

var emailLocalChars = "._%+-"

// Redactor applies the masking rules. It holds no state; the type exists
// so it can be injected like the other pipeline collaborators.
type Redactor struct{}

// NewRedactor creates a new Redactor.
func NewRedactor() *Redactor {
	return &Redactor{}
}

// Redact masks email addresses, phone-like digit sequences and long
// account/card digit sequences in text. Never fails; unmatched text is
// returned unchanged.
func (r *Redactor) Redact(text string) string {
	return maskDigitRuns(maskEmails(text))
}

// RedactHeaders masks PII in raw header text and additionally blanks
// client-address header values while preserving routing structure.
func (r *Redactor) RedactHeaders(rawHeaders string) string {
	redacted := r.Redact(rawHeaders)

	lines := strings.Split(redacted, "\n")
	for i, line := range lines {
		lower := strings.ToLower(line)
		for _, h := range []string{"x-forwarded-for:", "x-real-ip:", "x-client-ip:"} {
			if strings.HasPrefix(lower, h) {
				name := line[:strings.Index(line, ":")]
				lines[i] = name + ": [redacted]"
				break
			}
		}
	}
	return strings.Join(lines, "\n")
}

// maskEmails rewrites local@domain as first-char + "***" + "@domain".
// A masked local part contains '*' which the scanner does not accept, so
// a second pass leaves it alone.
func maskEmails(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	i := 0
	for i < len(text) {
		at := strings.IndexByte(text[i:], '@')
		if at < 0 {
			b.WriteString(text[i:])
			break
		}
		at += i

		start := localPartStart(text, at)
		domEnd := domainEnd(text, at)
		if start < 0 || domEnd < 0 {
			b.WriteString(text[i : at+1])
			i = at + 1
			continue
		}

		b.WriteString(text[i:start])
		b.WriteByte(text[start])
		b.WriteString("***")
		b.WriteString(text[at:domEnd])
		i = domEnd
	}
	return b.String()
}

// localPartStart walks backwards from the '@' over valid local-part bytes.
// Returns -1 when there is no plausible local part.
func localPartStart(text string, at int) int {
	start := at
	for start > 0 && isLocalByte(text[start-1]) {
		start--
	}
	if start == at {
		return -1
	}
	// Must begin with an alphanumeric; masked locals begin fine but are
	// followed by '*', which isLocalByte rejects, keeping this idempotent.
	if !isAlnum(text[start]) {
		return -1
	}
	return start
}

// domainEnd returns the index just past a host.tld domain following '@',
// or -1 when the text after '@' is not a domain.
func domainEnd(text string, at int) int {
	end := at + 1
	for end < len(text) && (isAlnum(text[end]) || text[end] == '.' || text[end] == '-') {
		end++
	}
	domain := strings.TrimRight(text[at+1:end], ".-")
	end = at + 1 + len(domain)
	dot := strings.LastIndexByte(domain, '.')
	if dot <= 0 || dot == len(domain)-1 {
		return -1
	}
	// TLD must be at least two letters
	tld := domain[dot+1:]
	if len(tld) < 2 {
		return -1
	}
	for j := 0; j < len(tld); j++ {
		if !isAlpha(tld[j]) {
			return -1
		}
	}
	return end
}

// maskDigitRuns finds maximal spans of digits grouped by common
// separators and masks them by length: 10-19 digits keep the first and
// last four, 7-9 digits keep the first three and the trailing digits with
// the middle replaced by "***". Masked output carries '*' between digit
// groups, which is not a separator, so reapplication is a no-op.
func maskDigitRuns(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	i := 0
	for i < len(text) {
		if !isDigit(text[i]) {
			b.WriteByte(text[i])
			i++
			continue
		}

		end, digits := scanDigitSpan(text, i)
		n := len(digits)
		switch {
		case n >= 10 && n <= 19:
			b.WriteString(digits[:4])
			b.WriteString(strings.Repeat("*", n-8))
			b.WriteString(digits[n-4:])
		case n >= 7 && n <= 9:
			suffix := 4
			if n-3-suffix < 1 {
				suffix = n - 4
			}
			b.WriteString(digits[:3])
			b.WriteString("***")
			b.WriteString(digits[n-suffix:])
		default:
			b.WriteString(text[i:end])
		}
		i = end
	}
	return b.String()
}

// scanDigitSpan consumes a digit span starting at i, allowing single
// separator bytes between digit groups. Returns the index past the span
// and the concatenated digits.
func scanDigitSpan(text string, i int) (int, string) {
	var digits strings.Builder
	end := i
	j := i
	for j < len(text) {
		c := text[j]
		switch {
		case isDigit(c):
			digits.WriteByte(c)
			j++
			end = j
		case isSeparator(c) && j+1 < len(text) && (isDigit(text[j+1]) || isSeparator(text[j+1])):
			j++
		default:
			return end, digits.String()
		}
	}
	return end, digits.String()
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlnum(c byte) bool { return isAlpha(c) || isDigit(c) }

func isLocalByte(c byte) bool {
	return isAlnum(c) || strings.IndexByte(emailLocalChars, c) >= 0
}

func isSeparator(c byte) bool {
	switch c {
	case ' ', '-', '.', '(', ')':
		return true
	}
	return false
}
