package gateway

import (
	"context"

	"github.com/aruiz/llm-phish-triage/internal/core"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HTTPGateway exposes the pipeline over HTTP. Authentication, CORS and
// rate limiting belong to the front door in front of this service.
type HTTPGateway struct {
	pipeline   *core.Pipeline
	logger     *zap.Logger
	listenAddr string
	app        *fiber.App
}

// classifyRequest is the wire shape of a classification request
type classifyRequest struct {
	RawHeaders      string                `json:"raw_headers"`
	HTMLBody        string                `json:"html_body"`
	TextBody        string                `json:"text_body"`
	AttachmentsMeta []core.AttachmentMeta `json:"attachments_meta"`
	AccountContext  core.AccountContext   `json:"account_context"`
}

// NewHTTPGateway creates a new HTTP gateway
func NewHTTPGateway(pipeline *core.Pipeline, logger *zap.Logger, listenAddr string) *HTTPGateway {
	g := &HTTPGateway{
		pipeline:   pipeline,
		logger:     logger,
		listenAddr: listenAddr,
	}

	app := fiber.New(fiber.Config{
		AppName:               "llm-phish-triage",
		DisableStartupMessage: true,
	})

	app.Get("/healthz", g.handleHealth)
	app.Post("/v1/classify", g.handleClassify)

	g.app = app
	return g
}

// Start starts the HTTP gateway
func (g *HTTPGateway) Start() error {
	g.logger.Info("HTTP gateway starting", zap.String("address", g.listenAddr))

	go func() {
		if err := g.app.Listen(g.listenAddr); err != nil {
			g.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the HTTP gateway
func (g *HTTPGateway) Stop() error {
	if g.app != nil {
		return g.app.Shutdown()
	}
	return nil
}

func (g *HTTPGateway) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (g *HTTPGateway) handleClassify(c *fiber.Ctx) error {
	requestID := c.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set("X-Request-ID", requestID)

	var req classifyRequest
	if err := c.BodyParser(&req); err != nil {
		g.logger.Warn("Rejecting unparsable request",
			zap.String("request_id", requestID),
			zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	input := &core.EmailInput{
		RawHeaders:      req.RawHeaders,
		HTMLBody:        req.HTMLBody,
		TextBody:        req.TextBody,
		AttachmentsMeta: req.AttachmentsMeta,
		AccountContext:  req.AccountContext,
	}

	result := g.pipeline.Classify(context.Background(), input)

	g.logger.Info("Classified request",
		zap.String("request_id", requestID),
		zap.String("classification", string(result.Classification)),
		zap.Int("risk_score", result.RiskScore),
		zap.Int64("latency_ms", result.LatencyMs))

	return c.JSON(result)
}
