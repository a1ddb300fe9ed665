package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/aruiz/llm-phish-triage/internal/core"
	"github.com/emersion/go-smtp"
	"go.uber.org/zap"
)

// SMTPGateway is a Postfix-style content filter: it accepts a message,
// classifies it, injects the verdict headers and relays the message to
// the downstream MTA.
type SMTPGateway struct {
	pipeline      *core.Pipeline
	logger        *zap.Logger
	listenAddr    string
	server        *smtp.Server
	blockPhishing bool
	classHeader   string
	scoreHeader   string
	reasonHeader  string
	relayAddr     string
	relayPort     int
	relayEnabled  bool
	accountCtx    core.AccountContext
}

// NewSMTPGateway creates a new SMTP gateway
func NewSMTPGateway(
	pipeline *core.Pipeline,
	logger *zap.Logger,
	listenAddr string,
	blockPhishing bool,
	classHeader string,
	scoreHeader string,
	reasonHeader string,
	relayAddr string,
	relayPort int,
	relayEnabled bool,
	accountCtx core.AccountContext,
) *SMTPGateway {
	return &SMTPGateway{
		pipeline:      pipeline,
		logger:        logger,
		listenAddr:    listenAddr,
		blockPhishing: blockPhishing,
		classHeader:   classHeader,
		scoreHeader:   scoreHeader,
		reasonHeader:  reasonHeader,
		relayAddr:     relayAddr,
		relayPort:     relayPort,
		relayEnabled:  relayEnabled,
		accountCtx:    accountCtx,
	}
}

// Start starts the SMTP gateway
func (g *SMTPGateway) Start() error {
	g.server = smtp.NewServer(&smtpBackend{gateway: g})

	g.server.Addr = g.listenAddr
	g.server.Domain = "localhost"
	g.server.ReadTimeout = 30 * time.Second
	g.server.WriteTimeout = 30 * time.Second
	g.server.MaxMessageBytes = 30 * 1024 * 1024 // 30MB
	g.server.MaxRecipients = 50
	g.server.AllowInsecureAuth = true

	g.logger.Info("SMTP gateway starting", zap.String("address", g.listenAddr))

	go func() {
		if err := g.server.ListenAndServe(); err != nil {
			if err != smtp.ErrServerClosed {
				g.logger.Error("SMTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop stops the SMTP gateway
func (g *SMTPGateway) Stop() error {
	if g.server != nil {
		return g.server.Close()
	}
	return nil
}

// relay sends the processed email to the downstream MTA using go-smtp
func (g *SMTPGateway) relay(sender string, recipients []string, emailData []byte) error {
	relayAddr := fmt.Sprintf("%s:%d", g.relayAddr, g.relayPort)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", relayAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
	}

	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			g.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient_domain", addressDomain(recipient)),
				zap.Error(err))
		} else {
			recipientOK = true
		}
	}
	if !recipientOK {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err = wc.Write(emailData); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		g.logger.Warn("QUIT command failed", zap.Error(err))
	}

	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	gateway *SMTPGateway
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{
		gateway:    b.gateway,
		recipients: make([]string, 0),
	}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	gateway    *SMTPGateway
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = make([]string, 0)
}

// AuthPlain handles PLAIN authentication (not needed for the gateway)
func (s *smtpSession) AuthPlain(_ []byte) error {
	return smtp.ErrAuthUnsupported
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data classifies the message, injects the verdict headers and relays it
func (s *smtpSession) Data(r io.Reader) error {
	rawData, err := io.ReadAll(r)
	if err != nil {
		s.gateway.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	msg, err := mail.ReadMessage(bytes.NewReader(rawData))
	if err != nil {
		s.gateway.logger.Error("Failed to parse email message", zap.Error(err))
		return err
	}

	parts, err := extractParts(msg)
	if err != nil {
		s.gateway.logger.Error("Failed to extract message parts", zap.Error(err))
		parts = &messageParts{}
	}

	input := &core.EmailInput{
		RawHeaders:      rawHeaderBlock(msg),
		TextBody:        parts.textBody,
		HTMLBody:        parts.htmlBody,
		AttachmentsMeta: parts.attachments,
		AccountContext:  s.gateway.accountCtx,
	}

	// Only the domain ever reaches the logging sink, never the full address.
	senderDomain := addressDomain(s.sender)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result := s.gateway.pipeline.Classify(ctx, input)

	if result.Classification == core.ClassificationPhishing && s.gateway.blockPhishing {
		s.gateway.logger.Info("Rejecting phishing email",
			zap.String("sender_domain", senderDomain),
			zap.Int("risk_score", result.RiskScore))
		return fmt.Errorf("550 Rejected as phishing (score: %d)", result.RiskScore)
	}

	modified := s.gateway.annotate(result, rawData)

	if s.gateway.relayEnabled {
		if err := s.gateway.relay(s.sender, s.recipients, modified); err != nil {
			s.gateway.logger.Error("Failed to relay email",
				zap.Error(err),
				zap.String("sender_domain", senderDomain))
			return err
		}
	} else {
		s.gateway.logger.Warn("Relay disabled, message accepted but not forwarded")
	}

	s.gateway.logger.Info("Processed email",
		zap.String("sender_domain", senderDomain),
		zap.String("classification", string(result.Classification)),
		zap.Int("risk_score", result.RiskScore))

	return nil
}

// Logout handles SMTP logout (not needed for the gateway)
func (s *smtpSession) Logout() error {
	return nil
}

// annotate prepends the verdict headers, leaving the original message untouched
func (g *SMTPGateway) annotate(result *core.ClassificationResult, rawData []byte) []byte {
	var modified bytes.Buffer
	fmt.Fprintf(&modified, "%s: %s\r\n", g.classHeader, result.Classification)
	fmt.Fprintf(&modified, "%s: %d\r\n", g.scoreHeader, result.RiskScore)
	if len(result.TopReasons) > 0 {
		fmt.Fprintf(&modified, "%s: %s\r\n", g.reasonHeader, result.TopReasons[0])
	}
	modified.Write(rawData)
	return modified.Bytes()
}

// addressDomain extracts the domain portion of an address for log fields
func addressDomain(addr string) string {
	if at := strings.LastIndexByte(addr, '@'); at >= 0 && at < len(addr)-1 {
		return addr[at+1:]
	}
	return "unknown"
}
