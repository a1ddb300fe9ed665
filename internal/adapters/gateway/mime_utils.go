package gateway

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"

	"github.com/aruiz/llm-phish-triage/internal/core"
)

// messageParts is the decomposed content of a MIME message
type messageParts struct {
	textBody    string
	htmlBody    string
	attachments []core.AttachmentMeta
}

// extractParts decomposes an email message into its text part, its HTML
// part and metadata for every attachment. Attachment bytes are hashed
// and discarded; only the metadata travels further.
func extractParts(msg *mail.Message) (*messageParts, error) {
	contentType := msg.Header.Get("Content-Type")

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return singlePart(msg.Body, mediaType)
	}

	boundary, ok := params["boundary"]
	if !ok {
		return singlePart(msg.Body, mediaType)
	}

	parts := &messageParts{}
	mr := multipart.NewReader(msg.Body, boundary)

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Keep whatever was already extracted
			return parts, nil
		}

		partType := strings.ToLower(part.Header.Get("Content-Type"))
		filename := part.FileName()

		switch {
		case filename != "":
			meta, err := attachmentMeta(part, filename)
			if err != nil {
				continue
			}
			parts.attachments = append(parts.attachments, meta)
		case strings.Contains(partType, "text/html"):
			partBytes, err := io.ReadAll(part)
			if err != nil {
				continue
			}
			parts.htmlBody += string(partBytes)
		case strings.Contains(partType, "text/plain"):
			partBytes, err := io.ReadAll(part)
			if err != nil {
				continue
			}
			parts.textBody += string(partBytes)
		case strings.Contains(partType, "multipart/"):
			// Nested multiparts are not recursed into
			continue
		}
	}

	return parts, nil
}

// singlePart treats the whole body as one part, classified by media type
func singlePart(body io.Reader, mediaType string) (*messageParts, error) {
	bodyBytes, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if strings.Contains(strings.ToLower(mediaType), "text/html") {
		return &messageParts{htmlBody: string(bodyBytes)}, nil
	}
	return &messageParts{textBody: string(bodyBytes)}, nil
}

// attachmentMeta reads an attachment part and reduces it to metadata
func attachmentMeta(part *multipart.Part, filename string) (core.AttachmentMeta, error) {
	data, err := io.ReadAll(part)
	if err != nil {
		return core.AttachmentMeta{}, err
	}
	sum := sha256.Sum256(data)
	return core.AttachmentMeta{
		Filename:    filename,
		MimeType:    part.Header.Get("Content-Type"),
		SizeBytes:   int64(len(data)),
		ContentHash: hex.EncodeToString(sum[:]),
	}, nil
}

// rawHeaderBlock renders the message headers back into wire format so
// the header analyzer sees exactly what arrived.
func rawHeaderBlock(msg *mail.Message) string {
	var b bytes.Buffer
	for key, values := range msg.Header {
		for _, value := range values {
			b.WriteString(key)
			b.WriteString(": ")
			b.WriteString(value)
			b.WriteString("\r\n")
		}
	}
	return b.String()
}
