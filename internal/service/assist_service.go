package service

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/taskbridge-api/internal/dto"
	"github.com/noah-isme/taskbridge-api/pkg/ai"
)

// Assist service sentinel errors.
var (
	ErrAssistantDisabled    = errors.New("ai assistant is not configured")
	ErrAssistantUnavailable = errors.New("ai assistant is unavailable")
	ErrNotAnImage           = errors.New("payload is not a supported image")
)

// AssistService fronts the AI assistant with validation and timeouts.
type AssistService interface {
	Ask(ctx context.Context, req dto.AskRequest) (dto.AskResponse, error)
	Critique(ctx context.Context, req dto.CritiqueRequest) (dto.CritiqueResponse, error)
}

type assistService struct {
	assistant ai.Assistant
	timeout   time.Duration
	validate  *validator.Validate
	logger    zerolog.Logger
}

// NewAssistService constructs the assistant facade. A nil assistant keeps the
// endpoints mounted but returns ErrAssistantDisabled.
func NewAssistService(assistant ai.Assistant, timeout time.Duration, validate *validator.Validate, logger zerolog.Logger) AssistService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &assistService{
		assistant: assistant,
		timeout:   timeout,
		validate:  validate,
		logger:    logger.With().Str("component", "assist_service").Logger(),
	}
}

func (s *assistService) Ask(ctx context.Context, req dto.AskRequest) (dto.AskResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.AskResponse{}, err
	}
	if s.assistant == nil {
		return dto.AskResponse{}, ErrAssistantDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	answer, err := s.assistant.Ask(ctx, req.Question)
	if err != nil {
		s.logger.Error().Err(err).Msg("assistant ask failed")
		return dto.AskResponse{}, ErrAssistantUnavailable
	}

	return dto.AskResponse{Answer: answer}, nil
}

func (s *assistService) Critique(ctx context.Context, req dto.CritiqueRequest) (dto.CritiqueResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.CritiqueResponse{}, err
	}
	if s.assistant == nil {
		return dto.CritiqueResponse{}, ErrAssistantDisabled
	}
	if err := validateImagePayload(req.ImageBase64); err != nil {
		return dto.CritiqueResponse{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	feedback, err := s.assistant.Critique(ctx, req.ImageBase64, req.Prompt)
	if err != nil {
		s.logger.Error().Err(err).Msg("assistant critique failed")
		return dto.CritiqueResponse{}, ErrAssistantUnavailable
	}

	return dto.CritiqueResponse{Feedback: feedback}, nil
}

// validateImagePayload sniffs the decoded payload so the assistant is only
// ever handed a real image. Detection needs the first bytes only.
func validateImagePayload(encoded string) error {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return ErrNotAnImage
	}

	kind := mimetype.Detect(decoded)
	if !strings.HasPrefix(kind.String(), "image/") {
		return ErrNotAnImage
	}

	return nil
}
