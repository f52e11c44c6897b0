package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/taskbridge-api/internal/dto"
	"github.com/noah-isme/taskbridge-api/internal/models"
	"github.com/noah-isme/taskbridge-api/internal/observability"
	"github.com/noah-isme/taskbridge-api/internal/repository"
)

// ErrAnnouncementNotFound indicates the announcement does not exist.
var ErrAnnouncementNotFound = errors.New("announcement not found")

const announcementCacheKey = "announcements:recent:v1"

// AnnouncementService exposes announcement publishing and listing.
type AnnouncementService interface {
	List(ctx context.Context) ([]dto.AnnouncementResponse, error)
	Create(ctx context.Context, actor Actor, req dto.AnnouncementCreateRequest) (dto.AnnouncementResponse, error)
	Delete(ctx context.Context, actor Actor, id string) error
}

type announcementService struct {
	repo     repository.AnnouncementRepository
	activity ActivityRecorder
	cache    *redis.Client
	ttl      time.Duration
	validate *validator.Validate
	logger   zerolog.Logger
	policy   *bluemonday.Policy
}

// NewAnnouncementService constructs the announcement service.
func NewAnnouncementService(repo repository.AnnouncementRepository, activity ActivityRecorder, cache *redis.Client, ttl time.Duration, validate *validator.Validate, logger zerolog.Logger) AnnouncementService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("p", "strong", "em", "a", "ul", "ol", "li", "br")
	policy.AllowAttrs("href", "title", "target").OnElements("a")

	return &announcementService{
		repo:     repo,
		activity: activity,
		cache:    cache,
		ttl:      ttl,
		validate: validate,
		logger:   logger.With().Str("component", "announcement_service").Logger(),
		policy:   policy,
	}
}

func (s *announcementService) List(ctx context.Context) ([]dto.AnnouncementResponse, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, announcementCacheKey).Result(); err == nil && cached != "" {
			var responses []dto.AnnouncementResponse
			if err := json.Unmarshal([]byte(cached), &responses); err == nil {
				observability.AnnouncementsRequests().WithLabelValues("hit").Inc()
				return responses, nil
			}
		}
	}

	items, err := s.repo.ListRecent(ctx, 0)
	if err != nil {
		observability.AnnouncementsRequests().WithLabelValues("error").Inc()
		return nil, err
	}
	observability.AnnouncementsRequests().WithLabelValues("miss").Inc()

	responses := dto.NewAnnouncementResponseSlice(items)

	if s.cache != nil {
		if payload, err := json.Marshal(responses); err == nil {
			if err := s.cache.Set(ctx, announcementCacheKey, payload, s.ttl).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to cache announcements")
			}
		}
	}

	return responses, nil
}

func (s *announcementService) Create(ctx context.Context, actor Actor, req dto.AnnouncementCreateRequest) (dto.AnnouncementResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.AnnouncementResponse{}, err
	}

	announcement := models.Announcement{
		Title:     strings.TrimSpace(req.Title),
		Content:   s.policy.Sanitize(req.Content),
		CreatedBy: actor.ID,
	}

	if err := s.repo.Create(ctx, &announcement); err != nil {
		return dto.AnnouncementResponse{}, err
	}

	s.invalidate(ctx)
	s.activity.Record(ctx, actor, "announcement.created", "announcement", announcement.ID, nil)

	return dto.NewAnnouncementResponse(announcement), nil
}

func (s *announcementService) Delete(ctx context.Context, actor Actor, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAnnouncementNotFound
		}
		return err
	}

	s.invalidate(ctx)
	s.activity.Record(ctx, actor, "announcement.deleted", "announcement", id, nil)

	return nil
}

func (s *announcementService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, announcementCacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate announcement cache")
	}
}
