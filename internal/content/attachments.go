package content

import (
	"strings"

	"github.com/aruiz/llm-phish-triage/internal/core"
)

// riskyExtensions are attachment suffixes that warrant a signal on their
// own.
var riskyExtensions = []string{
	".exe", ".scr", ".bat", ".cmd", ".com", ".pif", ".js", ".jse",
	".vbs", ".vbe", ".hta", ".jar", ".iso", ".img",
}

// AnalyzeAttachments inspects attachment metadata only, never bytes, and
// reports the dangerous_attachment signal when any entry looks executable
// or degenerate.
func AnalyzeAttachments(meta []core.AttachmentMeta) []core.ContentSignal {
	for _, att := range meta {
		if attachmentRisky(att) {
			return []core.ContentSignal{core.SignalDangerousAttachment}
		}
	}
	return nil
}

func attachmentRisky(att core.AttachmentMeta) bool {
	name := strings.ToLower(att.Filename)
	for _, ext := range riskyExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	mime := strings.ToLower(att.MimeType)
	if strings.Contains(mime, "executable") || strings.HasPrefix(mime, "application/x-ms") {
		return true
	}
	return att.SizeBytes == 0 && att.Filename != ""
}
