package content

import (
	"reflect"
	"testing"

	"github.com/aruiz/llm-phish-triage/internal/core"
)

func TestAnalyzeEnglish(t *testing.T) {
	a := NewAnalyzer()

	tests := []struct {
		name string
		body string
		want []core.ContentSignal
	}{
		{
			name: "urgency",
			body: "Please act now, your subscription expires within 24 hours.",
			want: []core.ContentSignal{core.SignalUrgency},
		},
		{
			name: "credential request",
			body: "You must verify your account. Click here to continue.",
			want: []core.ContentSignal{core.SignalCredentialRequest},
		},
		{
			name: "financial bait",
			body: "Congratulations, you have won the lottery!",
			want: []core.ContentSignal{core.SignalFinancialBait},
		},
		{
			name: "generic greeting",
			body: "Dear customer, we noticed a problem.",
			want: []core.ContentSignal{core.SignalGenericGreeting},
		},
		{
			name: "threat language",
			body: "We detected suspicious activity and an unauthorized access attempt.",
			want: []core.ContentSignal{core.SignalThreatLanguage},
		},
		{
			name: "multiple signals in canonical order",
			body: "Dear customer, urgent: enter your password or face legal action.",
			want: []core.ContentSignal{
				core.SignalUrgency,
				core.SignalCredentialRequest,
				core.SignalGenericGreeting,
				core.SignalThreatLanguage,
			},
		},
		{
			name: "benign body",
			body: "Lunch is at noon on Thursday, see you there.",
			want: nil,
		},
		{
			name: "empty body",
			body: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Analyze(tt.body, "en")
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Analyze() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnalyzeSpanish(t *testing.T) {
	a := NewAnalyzer()

	got := a.Analyze("Urgente: su cuenta bloqueada. Debe verificar su cuenta.", "es")
	want := []core.ContentSignal{
		core.SignalUrgency,
		core.SignalCredentialRequest,
		core.SignalThreatLanguage,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Analyze() = %v, want %v", got, want)
	}

	// An English-only vocabulary would miss all of these.
	got = a.Analyze("Urgente: su cuenta bloqueada.", "en")
	if len(got) != 0 {
		t.Errorf("English vocabulary matched Spanish text: %v", got)
	}
}

func TestAnalyzeLocaleFallback(t *testing.T) {
	a := NewAnalyzer()

	for _, locale := range []string{"", "zz-not-a-tag", "fr"} {
		got := a.Analyze("Please act now to verify your account.", locale)
		want := []core.ContentSignal{core.SignalUrgency, core.SignalCredentialRequest}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("locale %q: Analyze() = %v, want %v", locale, got, want)
		}
	}
}

func TestSharedBrandingVocabulary(t *testing.T) {
	a := NewAnalyzer()

	for _, locale := range []string{"en", "es"} {
		got := a.Analyze("Your payp4l account needs attention", locale)
		want := []core.ContentSignal{core.SignalMismatchedBranding}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("locale %q: Analyze() = %v, want %v", locale, got, want)
		}
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize("  Hello&nbsp;World\n\tAgain  ")
	if got != "hello world again" {
		t.Errorf("Normalize() = %q", got)
	}
}

func TestStripHTML(t *testing.T) {
	a := NewAnalyzer()

	stripped := a.StripHTML(`<p>Verify your <b>account</b> now</p><script>evil()</script>`)
	got := a.Analyze(stripped, "en")
	want := []core.ContentSignal{core.SignalCredentialRequest}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Analyze(StripHTML()) = %v, want %v", got, want)
	}
}

func TestAnalyzeAttachments(t *testing.T) {
	tests := []struct {
		name string
		meta []core.AttachmentMeta
		want []core.ContentSignal
	}{
		{
			name: "executable extension",
			meta: []core.AttachmentMeta{{Filename: "invoice.pdf.exe", MimeType: "application/octet-stream", SizeBytes: 4096}},
			want: []core.ContentSignal{core.SignalDangerousAttachment},
		},
		{
			name: "script extension",
			meta: []core.AttachmentMeta{{Filename: "update.js", MimeType: "text/javascript", SizeBytes: 1024}},
			want: []core.ContentSignal{core.SignalDangerousAttachment},
		},
		{
			name: "executable mime type",
			meta: []core.AttachmentMeta{{Filename: "setup", MimeType: "application/x-executable", SizeBytes: 9000}},
			want: []core.ContentSignal{core.SignalDangerousAttachment},
		},
		{
			name: "zero byte named attachment",
			meta: []core.AttachmentMeta{{Filename: "report.docx", MimeType: "application/msword", SizeBytes: 0}},
			want: []core.ContentSignal{core.SignalDangerousAttachment},
		},
		{
			name: "benign document",
			meta: []core.AttachmentMeta{{Filename: "report.pdf", MimeType: "application/pdf", SizeBytes: 20480}},
			want: nil,
		},
		{
			name: "no attachments",
			meta: nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnalyzeAttachments(tt.meta)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("AnalyzeAttachments() = %v, want %v", got, tt.want)
			}
		})
	}
}
