package service

import (
	"context"
	"encoding/json"
	"fmt"

	"tenurix/internal/apperror"
	"tenurix/internal/auth"
	"tenurix/internal/model"
	"tenurix/internal/repository"
	"tenurix/pkg/pagination"
)

type AuditLogResponse struct {
	ID          string `json:"id"`
	ActorUserID *int64 `json:"actor_user_id"`
	Actor       string `json:"actor"`
	Action      string `json:"action"`
	EntityType  string `json:"entity_type"`
	EntityID    int64  `json:"entity_id"`
	Details     string `json:"details"`
	CreatedAt   string `json:"created_at"`
}

type AuditFilter struct {
	EntityType string
	EntityID   int64
	Page       int
	Limit      int
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, session auth.Session, filter AuditFilter) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// GetAuditLogs returns the trail for one entity when EntityType and EntityID
// are set, otherwise a page of the whole log.
func (s *auditService) GetAuditLogs(ctx context.Context, session auth.Session, filter AuditFilter) ([]AuditLogResponse, int64, error) {
	if !session.HasPermission(auth.PermManageUsersKey) {
		return nil, 0, apperror.Unauthorized("missing permission " + auth.PermManageUsersKey)
	}

	var (
		logs  []model.AuditLog
		total int64
		err   error
	)
	if filter.EntityType != "" && filter.EntityID > 0 {
		logs, err = s.repo.ListForEntity(ctx, filter.EntityType, filter.EntityID)
		total = int64(len(logs))
	} else {
		logs, total, err = s.repo.List(ctx, pagination.New(filter.Page, filter.Limit))
	}
	if err != nil {
		return nil, 0, apperror.Internal("failed to fetch audit logs", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		actor := "System"
		if l.ActorUserID != nil {
			actor = fmt.Sprintf("user:%d", *l.ActorUserID)
		}
		res = append(res, AuditLogResponse{
			ID:          l.ID.String(),
			ActorUserID: l.ActorUserID,
			Actor:       actor,
			Action:      l.Action,
			EntityType:  l.EntityType,
			EntityID:    l.EntityID,
			Details:     l.Details,
			CreatedAt:   l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return res, total, nil
}

// recordAudit writes one audit entry on the transaction carried by ctx.
// A nil actor means the system performed the action.
func recordAudit(ctx context.Context, repo repository.AuditRepository, actor *int64, action, entityType string, entityID int64, details map[string]interface{}) error {
	payload, _ := json.Marshal(details)
	entry := model.AuditLog{
		ActorUserID: actor,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Details:     string(payload),
	}
	if err := repo.Log(ctx, &entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
