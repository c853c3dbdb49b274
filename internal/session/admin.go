package session

import (
	"bank_manager/internal/config"
	"context"
	"errors"
	"log/slog"
)

var ErrAdminAuthenticationFailed = errors.New("incorrect admin password")

// AdminGate checks the administrator password taken from configuration.
type AdminGate struct {
	cfg    config.AdminConfig
	logger *slog.Logger
}

func NewAdminGate(cfg config.AdminConfig, logger *slog.Logger) *AdminGate {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminGate{cfg: cfg, logger: logger}
}

func (g *AdminGate) Authenticate(ctx context.Context, password string) error {
	if password != g.cfg.Password {
		g.logger.WarnContext(ctx, "Admin login failed")
		return ErrAdminAuthenticationFailed
	}
	return nil
}
