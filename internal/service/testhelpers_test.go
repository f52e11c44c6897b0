package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/taskbridge-api/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.TaskAssignment{},
		&models.Submission{},
		&models.Progress{},
		&models.ChatSession{},
		&models.ChatMessage{},
		&models.Announcement{},
		&models.ActivityLog{},
	))

	return db
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	return redis.NewClient(&redis.Options{Addr: mini.Addr()})
}

func newTestValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func createTestUser(t *testing.T, db *gorm.DB, name, email, role string) models.User {
	t.Helper()

	user := models.User{Name: name, Email: email, HashedPassword: "x", Role: role}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createTestTask(t *testing.T, db *gorm.DB, createdBy string, deadline time.Time, studentIDs ...string) models.Task {
	t.Helper()

	task := models.Task{
		Title:          "Sketch practice",
		Description:    "Daily warm-up",
		Difficulty:     "Easy",
		SubmissionType: "image",
		Deadline:       deadline,
		CreatedBy:      createdBy,
	}
	for _, studentID := range studentIDs {
		task.Assignments = append(task.Assignments, models.TaskAssignment{StudentID: studentID})
	}
	require.NoError(t, db.Create(&task).Error)
	return task
}

func day(offset int) time.Time {
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}
