package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/taskbridge-api/internal/dto"
	"github.com/noah-isme/taskbridge-api/internal/models"
	"github.com/noah-isme/taskbridge-api/internal/repository"
)

// ErrUserNotFound indicates no account exists for the given id.
var ErrUserNotFound = errors.New("user not found")

// UserService exposes account lookups and admin provisioning.
type UserService interface {
	Me(ctx context.Context, userID string) (dto.UserResponse, error)
	ListStudents(ctx context.Context) ([]dto.UserResponse, error)
	CreateStudent(ctx context.Context, actor Actor, req dto.StudentCreateRequest) (dto.UserResponse, error)
}

type userService struct {
	users    repository.UserRepository
	progress repository.ProgressRepository
	activity ActivityRecorder
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewUserService constructs the user service.
func NewUserService(userRepo repository.UserRepository, progressRepo repository.ProgressRepository, activity ActivityRecorder, validate *validator.Validate, logger zerolog.Logger) UserService {
	return &userService{
		users:    userRepo,
		progress: progressRepo,
		activity: activity,
		validate: validate,
		logger:   logger.With().Str("component", "user_service").Logger(),
	}
}

func (s *userService) Me(ctx context.Context, userID string) (dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}

	return dto.NewUserResponse(user), nil
}

func (s *userService) ListStudents(ctx context.Context) ([]dto.UserResponse, error) {
	students, err := s.users.ListByRole(ctx, models.RoleStudent)
	if err != nil {
		return nil, err
	}

	return dto.NewUserResponseSlice(students), nil
}

// CreateStudent provisions a student account on behalf of an admin. The
// progress row is created up front so dashboards never 404.
func (s *userService) CreateStudent(ctx context.Context, actor Actor, req dto.StudentCreateRequest) (dto.UserResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.UserResponse{}, err
	}

	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return dto.UserResponse{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.UserResponse{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return dto.UserResponse{}, err
	}

	user := models.User{
		Email:          req.Email,
		Name:           req.Name,
		HashedPassword: string(hashed),
		Role:           models.RoleStudent,
	}

	if err := s.users.Create(ctx, &user); err != nil {
		return dto.UserResponse{}, err
	}

	if _, err := s.progress.Ensure(ctx, user.ID); err != nil {
		return dto.UserResponse{}, err
	}

	s.activity.Record(ctx, actor, "user.student_created", "user", user.ID, map[string]any{
		"email": user.Email,
	})

	s.logger.Info().
		Str("user_id", user.ID).
		Str("created_by", actor.ID).
		Msg("student account provisioned")

	return dto.NewUserResponse(user), nil
}
