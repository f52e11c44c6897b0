package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/noah-isme/taskbridge-api/internal/dto"
	"github.com/noah-isme/taskbridge-api/internal/models"
	"github.com/noah-isme/taskbridge-api/internal/observability"
	"github.com/noah-isme/taskbridge-api/internal/repository"
)

// Submission service sentinel errors.
var (
	ErrSubmissionNotFound  = errors.New("submission not found")
	ErrSubmissionForbidden = errors.New("submission belongs to another student")
	ErrDuplicateSubmission = errors.New("task already has a submission from this student")
	ErrInvalidStatus       = errors.New("invalid submission status")
)

// SubmissionService implements the hand-in and review workflow.
type SubmissionService interface {
	Create(ctx context.Context, studentID string, req dto.SubmissionCreateRequest) (dto.SubmissionResponse, error)
	List(ctx context.Context, actor Actor, status *string) ([]dto.SubmissionResponse, error)
	ListByTask(ctx context.Context, taskID string) ([]dto.SubmissionResponse, error)
	Get(ctx context.Context, actor Actor, id string) (dto.SubmissionResponse, error)
	Review(ctx context.Context, actor Actor, id string, req dto.SubmissionUpdateRequest) (dto.SubmissionResponse, error)
	Like(ctx context.Context, id string) (dto.SubmissionResponse, error)
	Delete(ctx context.Context, actor Actor, id string) error
}

type submissionService struct {
	submissions repository.SubmissionRepository
	tasks       repository.TaskRepository
	users       repository.UserRepository
	progress    ProgressService
	activity    ActivityRecorder
	validate    *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs the submission workflow service.
func NewSubmissionService(submissionRepo repository.SubmissionRepository, taskRepo repository.TaskRepository, userRepo repository.UserRepository, progress ProgressService, activity ActivityRecorder, validate *validator.Validate, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions: submissionRepo,
		tasks:       taskRepo,
		users:       userRepo,
		progress:    progress,
		activity:    activity,
		validate:    validate,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

// Create hands in work for a task. The caller must be assigned to the task
// and may submit at most once per task; lateness is fixed at creation time.
func (s *submissionService) Create(ctx context.Context, studentID string, req dto.SubmissionCreateRequest) (dto.SubmissionResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.SubmissionResponse{}, err
	}

	task, err := s.tasks.GetByID(ctx, req.TaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrTaskNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if !task.IsAssignedTo(studentID) {
		return dto.SubmissionResponse{}, ErrTaskAccessDenied
	}

	if _, err := s.submissions.GetByTaskAndStudent(ctx, req.TaskID, studentID); err == nil {
		return dto.SubmissionResponse{}, ErrDuplicateSubmission
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.SubmissionResponse{}, err
	}

	submissionType := req.SubmissionType
	if submissionType == "" {
		submissionType = task.SubmissionType
	}

	now := s.now().UTC()
	submission := models.Submission{
		TaskID:         req.TaskID,
		StudentID:      studentID,
		Content:        req.Content,
		SubmissionType: submissionType,
		Status:         models.SubmissionStatusPending,
		SubmittedAt:    now,
		IsLate:         task.IsPastDue(now),
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		// The unique index on (task_id, student_id) backstops the duplicate
		// check above when two creates race.
		if _, dupErr := s.submissions.GetByTaskAndStudent(ctx, req.TaskID, studentID); dupErr == nil {
			return dto.SubmissionResponse{}, ErrDuplicateSubmission
		}
		return dto.SubmissionResponse{}, err
	}

	observability.SubmissionsCreated().Inc()

	// Handing in work counts as the day's qualifying activity. The submission
	// is already durable, so a failed streak write is logged, not surfaced.
	if _, err := s.progress.RecordActivity(ctx, studentID, now); err != nil {
		s.logger.Error().Err(err).
			Str("student_id", studentID).
			Str("submission_id", submission.ID).
			Msg("failed to record streak activity")
	}

	s.logger.Info().
		Str("submission_id", submission.ID).
		Str("task_id", task.ID).
		Str("student_id", studentID).
		Bool("is_late", submission.IsLate).
		Msg("submission created")

	return dto.NewSubmissionResponse(submission), nil
}

// List returns submissions visible to the actor: admins see everything,
// students only their own. Status filters apply to both.
func (s *submissionService) List(ctx context.Context, actor Actor, status *string) ([]dto.SubmissionResponse, error) {
	if status != nil && !models.ValidSubmissionStatus(*status) {
		return nil, ErrInvalidStatus
	}

	filter := repository.SubmissionFilter{Status: status}
	if !actor.IsAdmin() {
		studentID := actor.ID
		filter.StudentID = &studentID
	}

	submissions, err := s.submissions.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

// ListByTask is the admin review queue for one task, enriched with student
// identities.
func (s *submissionService) ListByTask(ctx context.Context, taskID string) ([]dto.SubmissionResponse, error) {
	if _, err := s.tasks.GetByID(ctx, taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{TaskID: &taskID})
	if err != nil {
		return nil, err
	}

	students, err := s.users.ListByRole(ctx, models.RoleStudent)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.User, len(students))
	for _, student := range students {
		byID[student.ID] = student
	}

	responses := make([]dto.SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		response := dto.NewSubmissionResponse(submission)
		if student, ok := byID[submission.StudentID]; ok {
			response.StudentName = student.Name
			response.StudentEmail = student.Email
		}
		responses = append(responses, response)
	}

	return responses, nil
}

func (s *submissionService) Get(ctx context.Context, actor Actor, id string) (dto.SubmissionResponse, error) {
	submission, err := s.getSubmission(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if !actor.IsAdmin() && submission.StudentID != actor.ID {
		return dto.SubmissionResponse{}, ErrSubmissionForbidden
	}

	return dto.NewSubmissionResponse(submission), nil
}

// Review applies an admin's decision. A submission contributes to the
// student's completed task count exactly once, on its first transition into
// the approved state; later re-reviews change the status but never the count.
func (s *submissionService) Review(ctx context.Context, actor Actor, id string, req dto.SubmissionUpdateRequest) (dto.SubmissionResponse, error) {
	ctx, span := otel.Tracer("submission_service").Start(ctx, "submission.review")
	defer span.End()

	if err := s.validate.Struct(req); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.getSubmission(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	previousStatus := submission.Status

	if req.Status != nil {
		if !models.ValidSubmissionStatus(*req.Status) {
			return dto.SubmissionResponse{}, ErrInvalidStatus
		}
		submission.Status = *req.Status
	}
	if req.Feedback != nil {
		submission.Feedback = *req.Feedback
	}

	firstApproval := submission.IsApproved() && !submission.CompletionCounted
	if firstApproval {
		submission.CompletionCounted = true
	}

	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	span.SetAttributes(
		attribute.String("submission.id", submission.ID),
		attribute.String("submission.status", submission.Status),
		attribute.Bool("submission.first_approval", firstApproval),
	)

	if firstApproval {
		if _, err := s.progress.ApplyApproval(ctx, submission.StudentID, submission.IsOnTime()); err != nil {
			// The completion was never counted; release the latch so a
			// retried approval can count it.
			submission.CompletionCounted = false
			if revertErr := s.submissions.Update(ctx, &submission); revertErr != nil {
				s.logger.Error().Err(revertErr).
					Str("submission_id", submission.ID).
					Msg("failed to release completion latch after progress error")
			}
			return dto.SubmissionResponse{}, err
		}
		observability.SubmissionsApproved().Inc()
	}

	s.activity.Record(ctx, actor, "submission.reviewed", "submission", submission.ID, map[string]any{
		"from":    previousStatus,
		"to":      submission.Status,
		"student": submission.StudentID,
	})

	s.logger.Info().
		Str("submission_id", submission.ID).
		Str("reviewer_id", actor.ID).
		Str("from", previousStatus).
		Str("to", submission.Status).
		Msg("submission reviewed")

	return dto.NewSubmissionResponse(submission), nil
}

// Like bumps the appreciation counter atomically.
func (s *submissionService) Like(ctx context.Context, id string) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.IncrementLikes(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

// Delete removes a submission. Students may only delete their own; when the
// owner removes one that already counted as a completion, the completion is
// handed back. Admin deletes leave the student's counters untouched.
func (s *submissionService) Delete(ctx context.Context, actor Actor, id string) error {
	submission, err := s.getSubmission(ctx, id)
	if err != nil {
		return err
	}

	if !actor.IsAdmin() && submission.StudentID != actor.ID {
		return ErrSubmissionForbidden
	}

	if err := s.submissions.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}
		return err
	}

	if submission.CompletionCounted && actor.ID == submission.StudentID {
		if err := s.progress.RevertCompletion(ctx, submission.StudentID); err != nil {
			return err
		}
	}

	s.activity.Record(ctx, actor, "submission.deleted", "submission", id, map[string]any{
		"student": submission.StudentID,
		"status":  submission.Status,
	})

	return nil
}

func (s *submissionService) getSubmission(ctx context.Context, id string) (models.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, err
	}
	return submission, nil
}
