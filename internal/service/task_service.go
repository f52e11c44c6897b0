package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/taskbridge-api/internal/dto"
	"github.com/noah-isme/taskbridge-api/internal/models"
	"github.com/noah-isme/taskbridge-api/internal/repository"
)

// Task service sentinel errors.
var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrTaskAccessDenied = errors.New("task is not assigned to this student")
)

// TaskService exposes task management for admins and task views for students.
type TaskService interface {
	List(ctx context.Context, actor Actor) ([]dto.TaskResponse, error)
	Today(ctx context.Context, studentID string) ([]dto.TaskResponse, error)
	Get(ctx context.Context, actor Actor, id string) (dto.TaskResponse, error)
	Create(ctx context.Context, actor Actor, req dto.TaskCreateRequest) (dto.TaskResponse, error)
	Update(ctx context.Context, actor Actor, id string, req dto.TaskUpdateRequest) (dto.TaskResponse, error)
	Delete(ctx context.Context, actor Actor, id string) error
}

type taskService struct {
	tasks       repository.TaskRepository
	submissions repository.SubmissionRepository
	progress    repository.ProgressRepository
	activity    ActivityRecorder
	validate    *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewTaskService constructs the task service.
func NewTaskService(taskRepo repository.TaskRepository, submissionRepo repository.SubmissionRepository, progressRepo repository.ProgressRepository, activity ActivityRecorder, validate *validator.Validate, logger zerolog.Logger) TaskService {
	return &taskService{
		tasks:       taskRepo,
		submissions: submissionRepo,
		progress:    progressRepo,
		activity:    activity,
		validate:    validate,
		logger:      logger.With().Str("component", "task_service").Logger(),
		now:         time.Now,
	}
}

// List returns every task for admins, and only assigned tasks for students.
// Student listings carry the student's own submission on each task.
func (s *taskService) List(ctx context.Context, actor Actor) ([]dto.TaskResponse, error) {
	if actor.IsAdmin() {
		tasks, err := s.tasks.List(ctx)
		if err != nil {
			return nil, err
		}
		return dto.NewTaskResponseSlice(tasks), nil
	}

	tasks, err := s.tasks.ListAssignedTo(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	return s.attachSubmissions(ctx, actor.ID, tasks)
}

// Today lists the student's assigned tasks whose deadline falls on the
// current UTC calendar day.
func (s *taskService) Today(ctx context.Context, studentID string) ([]dto.TaskResponse, error) {
	now := s.now().UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	tasks, err := s.tasks.ListAssignedDueBetween(ctx, studentID, from, to)
	if err != nil {
		return nil, err
	}

	return s.attachSubmissions(ctx, studentID, tasks)
}

func (s *taskService) Get(ctx context.Context, actor Actor, id string) (dto.TaskResponse, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TaskResponse{}, ErrTaskNotFound
		}
		return dto.TaskResponse{}, err
	}

	if actor.IsAdmin() {
		return dto.NewTaskResponse(task), nil
	}

	if !task.IsAssignedTo(actor.ID) {
		return dto.TaskResponse{}, ErrTaskAccessDenied
	}

	response := dto.NewTaskResponse(task)
	if submission, err := s.submissions.GetByTaskAndStudent(ctx, task.ID, actor.ID); err == nil {
		converted := dto.NewSubmissionResponse(submission)
		response.Submission = &converted
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.TaskResponse{}, err
	}

	return response, nil
}

func (s *taskService) Create(ctx context.Context, actor Actor, req dto.TaskCreateRequest) (dto.TaskResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.TaskResponse{}, err
	}

	task := models.Task{
		Title:          req.Title,
		Description:    req.Description,
		Difficulty:     req.Difficulty,
		SubmissionType: req.SubmissionType,
		Deadline:       req.Deadline,
		CreatedBy:      actor.ID,
	}
	for _, studentID := range req.AssignedTo {
		task.Assignments = append(task.Assignments, models.TaskAssignment{StudentID: studentID})
	}

	if err := s.tasks.Create(ctx, &task); err != nil {
		return dto.TaskResponse{}, err
	}

	if err := s.ensureProgressRows(ctx, req.AssignedTo); err != nil {
		return dto.TaskResponse{}, err
	}
	if err := s.progress.AddTotalTasks(ctx, req.AssignedTo, 1); err != nil {
		return dto.TaskResponse{}, err
	}

	s.activity.Record(ctx, actor, "task.created", "task", task.ID, map[string]any{
		"title":    task.Title,
		"assigned": len(req.AssignedTo),
	})

	s.logger.Info().
		Str("task_id", task.ID).
		Int("assigned", len(req.AssignedTo)).
		Msg("task created")

	return dto.NewTaskResponse(task), nil
}

func (s *taskService) Update(ctx context.Context, actor Actor, id string, req dto.TaskUpdateRequest) (dto.TaskResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.TaskResponse{}, err
	}

	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TaskResponse{}, ErrTaskNotFound
		}
		return dto.TaskResponse{}, err
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Difficulty != nil {
		task.Difficulty = *req.Difficulty
	}
	if req.SubmissionType != nil {
		task.SubmissionType = *req.SubmissionType
	}
	if req.Deadline != nil {
		task.Deadline = *req.Deadline
	}

	if err := s.tasks.Update(ctx, &task); err != nil {
		return dto.TaskResponse{}, err
	}

	if req.AssignedTo != nil {
		if err := s.reassign(ctx, &task, req.AssignedTo); err != nil {
			return dto.TaskResponse{}, err
		}
	}

	s.activity.Record(ctx, actor, "task.updated", "task", task.ID, nil)

	return dto.NewTaskResponse(task), nil
}

func (s *taskService) Delete(ctx context.Context, actor Actor, id string) error {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return err
	}

	if err := s.tasks.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return err
	}

	if err := s.progress.AddTotalTasks(ctx, task.AssignedTo(), -1); err != nil {
		return err
	}

	s.activity.Record(ctx, actor, "task.deleted", "task", id, map[string]any{"title": task.Title})

	return nil
}

// reassign swaps the assignment set and keeps the denormalised total_tasks
// counters in step: newly assigned students gain one, removed students lose one.
func (s *taskService) reassign(ctx context.Context, task *models.Task, studentIDs []string) error {
	previous := make(map[string]struct{}, len(task.Assignments))
	for _, assignment := range task.Assignments {
		previous[assignment.StudentID] = struct{}{}
	}

	next := make(map[string]struct{}, len(studentIDs))
	var added []string
	for _, studentID := range studentIDs {
		next[studentID] = struct{}{}
		if _, had := previous[studentID]; !had {
			added = append(added, studentID)
		}
	}

	var removed []string
	for studentID := range previous {
		if _, kept := next[studentID]; !kept {
			removed = append(removed, studentID)
		}
	}

	if err := s.tasks.ReplaceAssignments(ctx, task.ID, studentIDs); err != nil {
		return err
	}

	if err := s.ensureProgressRows(ctx, added); err != nil {
		return err
	}
	if err := s.progress.AddTotalTasks(ctx, added, 1); err != nil {
		return err
	}
	if err := s.progress.AddTotalTasks(ctx, removed, -1); err != nil {
		return err
	}

	task.Assignments = task.Assignments[:0]
	for _, studentID := range studentIDs {
		task.Assignments = append(task.Assignments, models.TaskAssignment{TaskID: task.ID, StudentID: studentID})
	}

	return nil
}

// ensureProgressRows creates zero-valued progress records so counter updates
// have a row to land on.
func (s *taskService) ensureProgressRows(ctx context.Context, studentIDs []string) error {
	for _, studentID := range studentIDs {
		if _, err := s.progress.Ensure(ctx, studentID); err != nil {
			return err
		}
	}
	return nil
}

func (s *taskService) attachSubmissions(ctx context.Context, studentID string, tasks []models.Task) ([]dto.TaskResponse, error) {
	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{StudentID: &studentID})
	if err != nil {
		return nil, err
	}

	byTask := make(map[string]models.Submission, len(submissions))
	for _, submission := range submissions {
		byTask[submission.TaskID] = submission
	}

	responses := make([]dto.TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		response := dto.NewTaskResponse(task)
		if submission, ok := byTask[task.ID]; ok {
			converted := dto.NewSubmissionResponse(submission)
			response.Submission = &converted
		}
		responses = append(responses, response)
	}

	return responses, nil
}
