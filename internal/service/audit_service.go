package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/weps89/lb-electronica/internal/model"
	"github.com/weps89/lb-electronica/internal/repository"
)

// AuditService appends human-readable action records. Writes are best-effort:
// a failed audit write is logged and swallowed so it never fails the
// operation that triggered it.
type AuditService struct {
	audits repository.AuditRepository
}

func NewAuditService(audits repository.AuditRepository) *AuditService {
	return &AuditService{audits: audits}
}

func (s *AuditService) LogAction(ctx context.Context, userID *uuid.UUID, action, entityName, entityID, details string) {
	entry := &model.AuditLog{
		UserID: userID,
		Action: action,
	}
	if entityName != "" {
		entry.EntityName = &entityName
	}
	if entityID != "" {
		entry.EntityID = &entityID
	}
	if details != "" {
		entry.Details = &details
	}
	if err := s.audits.Create(ctx, entry); err != nil {
		log.Warn().Err(err).Str("action", action).Msg("audit write failed")
	}
}
