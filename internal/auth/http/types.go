package http

import (
	"go.uber.org/zap"

	"github.com/roshanmishra15/site-builder/internal/auth/service"
)

type Handler struct {
	profiles *service.ProfileService
	logger   *zap.Logger
}

func New(profiles *service.ProfileService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{profiles: profiles, logger: logger}
}
