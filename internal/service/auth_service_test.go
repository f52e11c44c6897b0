package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/taskbridge-api/internal/dto"
	"github.com/noah-isme/taskbridge-api/internal/models"
	"github.com/noah-isme/taskbridge-api/internal/repository"
	"github.com/noah-isme/taskbridge-api/internal/utils"
)

const testJWTSecret = "test-secret"

func newAuthService(t *testing.T, db *gorm.DB) AuthService {
	t.Helper()
	return NewAuthService(
		repository.NewUserRepository(db),
		repository.NewProgressRepository(db),
		newTestValidator(),
		testJWTSecret,
		time.Hour,
		zerolog.Nop(),
	)
}

func TestRegisterIssuesTokenAndProgressRow(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(t, db)
	ctx := context.Background()

	token, err := svc.Register(ctx, dto.RegisterRequest{
		Email:    "ana@example.com",
		Name:     "Ana",
		Password: "secret123",
	})
	require.NoError(t, err)
	require.Equal(t, "Bearer", token.TokenType)
	require.Equal(t, models.RoleStudent, token.User.Role, "role defaults to student")

	claims, err := utils.ParseToken(testJWTSecret, token.AccessToken)
	require.NoError(t, err)
	require.Equal(t, token.User.ID, claims.UserID)
	require.Equal(t, models.RoleStudent, claims.Role)

	var progress models.Progress
	require.NoError(t, db.Where("student_id = ?", token.User.ID).First(&progress).Error)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(t, db)
	ctx := context.Background()

	request := dto.RegisterRequest{Email: "ben@example.com", Name: "Ben", Password: "secret123"}
	_, err := svc.Register(ctx, request)
	require.NoError(t, err)

	_, err = svc.Register(ctx, request)
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginVerifiesCredentials(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(t, db)
	ctx := context.Background()

	_, err := svc.Register(ctx, dto.RegisterRequest{
		Email:    "cleo@example.com",
		Name:     "Cleo",
		Password: "secret123",
		Role:     models.RoleAdmin,
	})
	require.NoError(t, err)

	token, err := svc.Login(ctx, dto.LoginRequest{Email: "cleo@example.com", Password: "secret123"})
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, token.User.Role)

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "cleo@example.com", Password: "wrong-pass"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "nobody@example.com", Password: "secret123"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}
