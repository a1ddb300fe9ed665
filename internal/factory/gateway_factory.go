package factory

import (
	"fmt"

	"github.com/aruiz/llm-phish-triage/internal/adapters/gateway"
	"github.com/aruiz/llm-phish-triage/internal/config"
	"github.com/aruiz/llm-phish-triage/internal/core"
	"go.uber.org/zap"
)

// GatewayFactory creates intake gateways based on configuration
type GatewayFactory struct {
	cfg      *config.Config
	logger   *zap.Logger
	pipeline *core.Pipeline
}

// NewGatewayFactory creates a new gateway factory
func NewGatewayFactory(cfg *config.Config, logger *zap.Logger, pipeline *core.Pipeline) *GatewayFactory {
	return &GatewayFactory{
		cfg:      cfg,
		logger:   logger,
		pipeline: pipeline,
	}
}

// CreateGateway creates a gateway based on the configuration
func (f *GatewayFactory) CreateGateway() (core.Gateway, error) {
	gatewayType := f.cfg.GetString("server.gateway_type")

	switch gatewayType {
	case "http":
		return gateway.NewHTTPGateway(
			f.pipeline,
			f.logger,
			f.cfg.GetString("server.listen_address"),
		), nil
	case "smtp":
		return gateway.NewSMTPGateway(
			f.pipeline,
			f.logger,
			f.cfg.GetString("server.smtp_listen_address"),
			f.cfg.GetBool("server.block_phishing"),
			f.cfg.GetString("server.headers.class"),
			f.cfg.GetString("server.headers.score"),
			f.cfg.GetString("server.headers.reason"),
			f.cfg.GetString("server.relay.address"),
			f.cfg.GetInt("server.relay.port"),
			f.cfg.GetBool("server.relay.enabled"),
			f.AccountContext(),
		), nil
	case "cli":
		return gateway.NewCliGateway(
			f.pipeline,
			f.logger,
			f.cfg.GetBool("cli.verbose"),
			f.AccountContext(),
		)
	default:
		return nil, fmt.Errorf("unsupported gateway type: %s", gatewayType)
	}
}

// AccountContext builds the static trust context used by the SMTP and
// CLI gateways.
func (f *GatewayFactory) AccountContext() core.AccountContext {
	return core.AccountContext{
		UserLocale:     f.cfg.GetString("account.user_locale"),
		TrustedSenders: f.cfg.GetStringSlice("account.trusted_senders"),
		OwnedDomains:   f.cfg.GetStringSlice("account.owned_domains"),
	}
}
