package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"loxodon/internal/models"
	"loxodon/internal/store"
)

// ErrActorNotFound is returned when an audit entry names a user that does not
// exist; the trail never references unprovisioned users.
var ErrActorNotFound = errors.New("audit actor not found")

type CreateAuditLogInput struct {
	TenantID    string
	UserID      string
	Action      string
	Description string
}

type AuditLogService struct {
	store store.Store
	lg    *zap.SugaredLogger
}

func NewAuditLogService(st store.Store, lg *zap.SugaredLogger) *AuditLogService {
	return &AuditLogService{store: st, lg: lg}
}

func (s *AuditLogService) List(ctx context.Context, f store.AuditLogFilter) ([]models.AuditLog, int64, error) {
	return s.store.ListAuditLogs(ctx, f)
}

func (s *AuditLogService) ByDateRange(ctx context.Context, f store.AuditLogFilter) ([]models.AuditLog, error) {
	return s.store.AuditLogsByDateRange(ctx, f)
}

func (s *AuditLogService) Get(ctx context.Context, id int64) (*models.AuditLog, error) {
	return s.store.GetAuditLog(ctx, id)
}

// Create appends an entry after confirming the referenced user still exists.
func (s *AuditLogService) Create(ctx context.Context, input CreateAuditLogInput) (*models.AuditLog, error) {
	if _, err := s.store.GetUser(ctx, input.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrActorNotFound
		}
		return nil, err
	}
	l := models.AuditLog{
		TenantID:    input.TenantID,
		UserID:      input.UserID,
		Action:      input.Action,
		Description: input.Description,
	}
	if err := s.store.CreateAuditLog(ctx, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// Record writes a trail entry for a privileged operation, best-effort: a
// missing actor or store failure is logged and swallowed.
func (s *AuditLogService) Record(ctx context.Context, tenantID, userID, action, description string) {
	if userID == "" {
		return
	}
	if _, err := s.Create(ctx, CreateAuditLogInput{
		TenantID:    tenantID,
		UserID:      userID,
		Action:      action,
		Description: description,
	}); err != nil {
		s.lg.Warnw("audit log write failed", "action", action, "tenantId", tenantID, "error", err)
	}
}
