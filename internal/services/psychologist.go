package services

import (
	"context"
	"log/slog"

	"github.com/cbt-marketplace/apiserver/internal/events"
	"github.com/cbt-marketplace/apiserver/internal/policy"
	"github.com/cbt-marketplace/apiserver/internal/validation"
	"github.com/cbt-marketplace/apiserver/types"
)

// PsychologistRepository defines persistence operations for psychologists.
type PsychologistRepository interface {
	Get(ctx context.Context, id string) (types.Psychologist, error)
	List(ctx context.Context, filter types.PsychologistFilter, offset, limit int) ([]types.Psychologist, int, error)
	Create(ctx context.Context, p types.Psychologist) (types.Psychologist, error)
	Update(ctx context.Context, p types.Psychologist) (types.Psychologist, error)
}

// PsychologistService encapsulates psychologist use-cases.
type PsychologistService struct {
	repo   PsychologistRepository
	users  UserRepository
	policy *policy.Policy
	events events.Publisher
	logger *slog.Logger
}

func NewPsychologistService(repo PsychologistRepository, users UserRepository, pol *policy.Policy, publisher events.Publisher, logger *slog.Logger) *PsychologistService {
	return &PsychologistService{repo: repo, users: users, policy: pol, events: publisher, logger: logger}
}

func (s *PsychologistService) List(ctx context.Context, filter types.PsychologistFilter, offset, limit int) ([]types.Psychologist, int, error) {
	offset, limit = page(offset, limit)
	return s.repo.List(ctx, filter, offset, limit)
}

func (s *PsychologistService) Get(ctx context.Context, id string) (types.Psychologist, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a psychologist profile. Rating and reviews are only
// accepted from administrators.
func (s *PsychologistService) Create(ctx context.Context, actor types.User, p types.Psychologist) (types.Psychologist, error) {
	if err := s.policy.Authorize(actor, policy.ActionCreate, policy.ResourcePsychologist, nil); err != nil {
		return types.Psychologist{}, err
	}
	userID, err := profileOwner(s.policy, actor, p.UserID)
	if err != nil {
		return types.Psychologist{}, err
	}
	p.UserID = userID
	if !s.policy.Unrestricted(actor.Role) {
		p.Rating = 0
		p.ReviewsCount = 0
	}
	if err := validatePsychologist(p); err != nil {
		return types.Psychologist{}, err
	}

	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return types.Psychologist{}, err
	}
	if created.InstitutionID != nil {
		s.emitChanged(ctx, actor, created.ID, "", *created.InstitutionID)
	}
	return created, nil
}

func (s *PsychologistService) Update(ctx context.Context, actor types.User, id string, changes types.PsychologistChanges) (types.Psychologist, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Psychologist{}, err
	}
	if err := s.policy.Authorize(actor, policy.ActionUpdate, policy.ResourcePsychologist, p); err != nil {
		return types.Psychologist{}, err
	}

	oldInstitution := deref(p.InstitutionID)
	changes.Apply(&p)
	if err := validatePsychologist(p); err != nil {
		return types.Psychologist{}, err
	}

	updated, err := s.repo.Update(ctx, p)
	if err != nil {
		return types.Psychologist{}, err
	}
	if newInstitution := deref(updated.InstitutionID); newInstitution != oldInstitution {
		s.emitChanged(ctx, actor, updated.ID, oldInstitution, newInstitution)
	}
	return updated, nil
}

// Verify marks the account behind a psychologist profile as verified and
// returns that account.
func (s *PsychologistService) Verify(ctx context.Context, actor types.User, id string) (types.User, error) {
	if !s.policy.Can(actor.Role, policy.ActionVerify, policy.ResourcePsychologist) {
		return types.User{}, policy.ErrForbidden
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	if err := s.policy.Authorize(actor, policy.ActionVerify, policy.ResourcePsychologist, p); err != nil {
		return types.User{}, err
	}

	user, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return types.User{}, err
	}
	user.IsVerified = true
	updated, err := s.users.Update(ctx, user)
	if err != nil {
		return types.User{}, err
	}
	events.Emit(ctx, s.events, s.logger, events.New(events.PsychologistVerified, p.ID, actor.ID, map[string]string{
		"user_id": user.ID,
	}))
	return updated, nil
}

func (s *PsychologistService) emitChanged(ctx context.Context, actor types.User, id, oldInstitution, newInstitution string) {
	events.Emit(ctx, s.events, s.logger, events.New(events.PsychologistChanged, id, actor.ID, map[string]string{
		events.DataOldInstitutionID: oldInstitution,
		events.DataNewInstitutionID: newInstitution,
	}))
}

func validatePsychologist(p types.Psychologist) error {
	v := validation.Violations{}
	validation.NonNegative("experience", p.Experience, v)
	validation.RangeFloat("rating", p.Rating, 0, 5, v)
	validation.NonNegative("reviews_count", p.ReviewsCount, v)
	return invalid(v)
}

func deref(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}
