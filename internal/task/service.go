// Package task implements the owner-scoped task operations.
package task

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-task-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-task-go/internal/task/entity"
	taskrepo "github.com/ovaphlow/pitchfork/service-task-go/internal/task/repo"
)

const msgTaskNotFound = "Task not found"

func init() {
	// An empty due date passes here: create treats it as absent, update as
	// "clear".
	err := apperr.Validator().RegisterValidation("duedate", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true
		}
		_, ok := entity.ParseDueDate(s)
		return ok
	})
	if err != nil {
		panic(err)
	}
}

// CreateCommand is the create request body.
type CreateCommand struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=1000"`
	Status      string   `json:"status" validate:"omitempty,oneof=pending in-progress completed"`
	Priority    string   `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     *string  `json:"dueDate" validate:"omitempty,duedate"`
	Tags        []string `json:"tags" validate:"max=10"`
}

// UpdateCommand is the update request body; absent fields stay as stored.
type UpdateCommand struct {
	Title       *string   `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=1000"`
	Status      *string   `json:"status" validate:"omitempty,oneof=pending in-progress completed"`
	Priority    *string   `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     *string   `json:"dueDate" validate:"omitempty,duedate"`
	Tags        *[]string `json:"tags" validate:"omitempty,max=10"`
}

var createMessages = apperr.Messages{
	"title.required": "Title is required",
	"title":          "Title cannot exceed 200 characters",
	"description":    "Description cannot exceed 1000 characters",
	"status":         "Status must be pending, in-progress, or completed",
	"priority":       "Priority must be low, medium, or high",
	"dueDate":        "Due date must be a valid date",
	"tags":           "Cannot have more than 10 tags",
}

var updateMessages = apperr.Messages{
	"title.min":   "Title cannot be empty",
	"title":       "Title cannot exceed 200 characters",
	"description": "Description cannot exceed 1000 characters",
	"status":      "Status must be pending, in-progress, or completed",
	"priority":    "Priority must be low, medium, or high",
	"dueDate":     "Due date must be a valid date",
	"tags":        "Cannot have more than 10 tags",
}

// Service validates task input and enforces ownership on every operation.
type Service struct {
	repo   taskrepo.TaskRepository
	logger *zap.SugaredLogger
}

func NewService(r taskrepo.TaskRepository, logger *zap.SugaredLogger) *Service {
	return &Service{repo: r, logger: logger}
}

// List returns one page of userID's tasks. Parameters are validated before
// the store is touched.
func (s *Service) List(ctx context.Context, userID string, params ListParams) (*entity.TaskPage, error) {
	q, err := params.Query(userID)
	if err != nil {
		return nil, err
	}
	tasks, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &entity.TaskPage{Tasks: tasks, Pagination: entity.NewPagination(q.Page, q.Limit, total)}, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (*entity.Task, error) {
	t, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

func (s *Service) Create(ctx context.Context, userID string, cmd CreateCommand) (*entity.Task, error) {
	cmd.Title = strings.TrimSpace(cmd.Title)
	cmd.Description = strings.TrimSpace(cmd.Description)
	if cmd.DueDate != nil {
		trimmed := strings.TrimSpace(*cmd.DueDate)
		cmd.DueDate = &trimmed
	}
	// the tag limit counts every submitted entry, blank ones included
	if err := apperr.ValidateStruct(cmd, createMessages); err != nil {
		return nil, err
	}
	cmd.Tags = entity.NormalizeTags(cmd.Tags)

	t := &entity.Task{
		UserID:      userID,
		Title:       cmd.Title,
		Description: cmd.Description,
		Status:      entity.StatusPending,
		Priority:    entity.PriorityMedium,
		Tags:        cmd.Tags,
	}
	if cmd.Status != "" {
		t.Status = entity.Status(cmd.Status)
	}
	if cmd.Priority != "" {
		t.Priority = entity.Priority(cmd.Priority)
	}
	if cmd.DueDate != nil && *cmd.DueDate != "" {
		due, _ := entity.ParseDueDate(*cmd.DueDate)
		t.DueDate = &due
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Debugw("task created", "user_id", userID, "task_id", t.ID)
	return t, nil
}

// Update validates cmd, then applies it in one owner-scoped store update.
func (s *Service) Update(ctx context.Context, userID, id string, cmd UpdateCommand) (*entity.Task, error) {
	trimPtr(cmd.Title)
	trimPtr(cmd.Description)
	trimPtr(cmd.DueDate)
	if err := apperr.ValidateStruct(cmd, updateMessages); err != nil {
		return nil, err
	}
	if cmd.Tags != nil {
		tags := entity.NormalizeTags(*cmd.Tags)
		cmd.Tags = &tags
	}

	p := entity.Patch{Title: cmd.Title, Description: cmd.Description, Tags: cmd.Tags}
	if cmd.Status != nil {
		st := entity.Status(*cmd.Status)
		p.Status = &st
	}
	if cmd.Priority != nil {
		pr := entity.Priority(*cmd.Priority)
		p.Priority = &pr
	}
	if cmd.DueDate != nil {
		if *cmd.DueDate == "" {
			p.ClearDueDate = true
		} else {
			due, _ := entity.ParseDueDate(*cmd.DueDate)
			p.DueDate = &due
		}
	}

	t, err := s.repo.Update(ctx, userID, id, p)
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return notFound(err)
	}
	s.logger.Debugw("task deleted", "user_id", userID, "task_id", id)
	return nil
}

func notFound(err error) error {
	if errors.Is(err, taskrepo.ErrNotFound) {
		return apperr.NotFound(msgTaskNotFound)
	}
	return err
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
