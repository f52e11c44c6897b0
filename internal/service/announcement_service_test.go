package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/taskbridge-api/internal/dto"
	"github.com/noah-isme/taskbridge-api/internal/models"
	"github.com/noah-isme/taskbridge-api/internal/repository"
)

func TestAnnouncementCreateSanitizesContent(t *testing.T) {
	db := newTestDB(t)
	activity := NewActivityService(repository.NewActivityLogRepository(db), zerolog.Nop())
	svc := NewAnnouncementService(repository.NewAnnouncementRepository(db), activity, nil, time.Minute, newTestValidator(), zerolog.Nop())
	ctx := context.Background()

	admin := createTestUser(t, db, "Admin", "admin@example.com", models.RoleAdmin)

	created, err := svc.Create(ctx, Actor{ID: admin.ID, Role: models.RoleAdmin}, dto.AnnouncementCreateRequest{
		Title:   "  Weekly critique  ",
		Content: "<p>Join at 5pm</p><script>alert(1)</script>",
	})
	require.NoError(t, err)
	require.Equal(t, "Weekly critique", created.Title)
	require.Contains(t, created.Content, "<p>Join at 5pm</p>")
	require.NotContains(t, created.Content, "<script>")
}

func TestAnnouncementListUsesCacheUntilInvalidated(t *testing.T) {
	db := newTestDB(t)
	cache := newTestRedis(t)
	activity := NewActivityService(repository.NewActivityLogRepository(db), zerolog.Nop())
	svc := NewAnnouncementService(repository.NewAnnouncementRepository(db), activity, cache, time.Minute, newTestValidator(), zerolog.Nop())
	ctx := context.Background()

	admin := createTestUser(t, db, "Admin", "admin@example.com", models.RoleAdmin)
	actor := Actor{ID: admin.ID, Role: models.RoleAdmin}

	_, err := svc.Create(ctx, actor, dto.AnnouncementCreateRequest{Title: "First", Content: "one"})
	require.NoError(t, err)

	listed, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	// A direct write bypassing the service stays invisible while cached.
	require.NoError(t, db.Create(&models.Announcement{Title: "Hidden", Content: "x", CreatedBy: admin.ID}).Error)

	cached, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 1)

	// Creating through the service invalidates the cache.
	_, err = svc.Create(ctx, actor, dto.AnnouncementCreateRequest{Title: "Second", Content: "two"})
	require.NoError(t, err)

	fresh, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, fresh, 3)
}

func TestAnnouncementDelete(t *testing.T) {
	db := newTestDB(t)
	activity := NewActivityService(repository.NewActivityLogRepository(db), zerolog.Nop())
	svc := NewAnnouncementService(repository.NewAnnouncementRepository(db), activity, nil, time.Minute, newTestValidator(), zerolog.Nop())
	ctx := context.Background()

	admin := createTestUser(t, db, "Admin", "admin@example.com", models.RoleAdmin)
	actor := Actor{ID: admin.ID, Role: models.RoleAdmin}

	created, err := svc.Create(ctx, actor, dto.AnnouncementCreateRequest{Title: "Bye", Content: "soon gone"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, actor, created.ID))
	require.ErrorIs(t, svc.Delete(ctx, actor, created.ID), ErrAnnouncementNotFound)
}
