package service

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/taskbridge-api/internal/models"
	"github.com/noah-isme/taskbridge-api/internal/repository"
)

// Actor identifies the authenticated caller of a service operation.
type Actor struct {
	ID   string
	Role string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// ActivityRecorder writes audit entries for notable actions. Recording is
// best effort; a failed write never fails the action that triggered it.
type ActivityRecorder interface {
	Record(ctx context.Context, actor Actor, action, entityType, entityID string, metadata map[string]any)
	List(ctx context.Context, limit int) ([]models.ActivityLog, error)
}

type activityService struct {
	logs   repository.ActivityLogRepository
	logger zerolog.Logger
}

// NewActivityService constructs the audit trail recorder.
func NewActivityService(logRepo repository.ActivityLogRepository, logger zerolog.Logger) ActivityRecorder {
	return &activityService{
		logs:   logRepo,
		logger: logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) Record(ctx context.Context, actor Actor, action, entityType, entityID string, metadata map[string]any) {
	entry := models.ActivityLog{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   datatypes.JSONMap(metadata),
	}

	if err := s.logs.Create(ctx, &entry); err != nil {
		s.logger.Warn().Err(err).
			Str("action", action).
			Str("entity_id", entityID).
			Msg("failed to record activity")
	}
}

func (s *activityService) List(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	return s.logs.List(ctx, limit)
}
