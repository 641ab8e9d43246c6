package user

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-task-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-task-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-task-go/internal/user/repo"
)

const msgEmailInUse = "Email already in use"

// UpdateProfileCommand is the profile update body. Absent fields are left
// untouched; an empty avatar clears it.
type UpdateProfileCommand struct {
	Name   *string `json:"name" validate:"omitempty,min=2,max=50"`
	Email  *string `json:"email" validate:"omitempty,email"`
	Avatar *string `json:"avatar" validate:"omitempty,url"`
}

var profileMessages = apperr.Messages{
	"name":   "Name must be between 2 and 50 characters",
	"email":  "Please provide a valid email",
	"avatar": "Avatar must be a valid URL",
}

// ProfileService reads and edits the acting user's own record.
type ProfileService struct {
	repo   userrepo.UserRepository
	logger *zap.SugaredLogger
}

func NewProfileService(r userrepo.UserRepository, logger *zap.SugaredLogger) *ProfileService {
	return &ProfileService{repo: r, logger: logger}
}

// GetProfile returns the current stored view of u.
func (s *ProfileService) GetProfile(ctx context.Context, u *entity.User) (entity.PublicView, error) {
	fresh, err := s.repo.GetByID(ctx, u.ID)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return entity.PublicView{}, apperr.NotFound("User not found")
		}
		return entity.PublicView{}, err
	}
	return fresh.Profile(), nil
}

// UpdateProfile applies cmd to u. A new email must not belong to anyone else.
func (s *ProfileService) UpdateProfile(ctx context.Context, u *entity.User, cmd UpdateProfileCommand) (entity.PublicView, error) {
	trim(cmd.Name)
	trim(cmd.Email)
	trim(cmd.Avatar)
	// Pointer fields are validated whenever present, so a blank name or email
	// fails; a blank avatar means "clear" and skips the URL check.
	check := cmd
	if check.Avatar != nil && *check.Avatar == "" {
		check.Avatar = nil
	}
	if err := apperr.ValidateStruct(check, profileMessages); err != nil {
		return entity.PublicView{}, err
	}

	patch := entity.Patch{Name: cmd.Name, Avatar: cmd.Avatar}
	if cmd.Email != nil {
		email := entity.NormalizeEmail(*cmd.Email)
		if email != u.Email {
			other, err := s.repo.GetByEmail(ctx, email)
			switch {
			case err == nil && other.ID != u.ID:
				return entity.PublicView{}, apperr.Conflict(msgEmailInUse)
			case err != nil && !errors.Is(err, userrepo.ErrNotFound):
				return entity.PublicView{}, err
			}
			patch.Email = &email
		}
	}
	if patch.Empty() {
		return s.GetProfile(ctx, u)
	}

	updated, err := s.repo.Update(ctx, u.ID, patch)
	if err != nil {
		switch {
		case errors.Is(err, userrepo.ErrDuplicateEmail):
			return entity.PublicView{}, apperr.Conflict(msgEmailInUse).WithCause(err)
		case errors.Is(err, userrepo.ErrNotFound):
			return entity.PublicView{}, apperr.NotFound("User not found")
		}
		return entity.PublicView{}, err
	}
	s.logger.Infow("profile updated", "user_id", u.ID)
	return updated.Profile(), nil
}

func trim(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
