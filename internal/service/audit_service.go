package service

import (
	"context"

	"workshop/internal/access"
	"workshop/internal/model"
)

type AuditService interface {
	GetAuditLogs(ctx context.Context, actor access.Actor, page, limit int) ([]model.AuditLog, int64, error)
}

type auditService struct {
	*Deps
}

// NewAuditService creates a new AuditService instance
func NewAuditService(deps *Deps) AuditService {
	return &auditService{Deps: deps}
}

// GetAuditLogs returns the trail newest first
func (s *auditService) GetAuditLogs(ctx context.Context, actor access.Actor, page, limit int) ([]model.AuditLog, int64, error) {
	if err := access.Authorize(actor, access.AuditRead); err != nil {
		return nil, 0, err
	}
	return s.Repos.Audit.List(ctx, page, limit)
}
