package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cbt-marketplace/apiserver/internal/events"
	"github.com/cbt-marketplace/apiserver/internal/policy"
	"github.com/cbt-marketplace/apiserver/internal/validation"
	"github.com/cbt-marketplace/apiserver/types"
)

// InstitutionRepository defines persistence operations for institutions.
type InstitutionRepository interface {
	Get(ctx context.Context, id string) (types.Institution, error)
	List(ctx context.Context, filter types.InstitutionFilter, offset, limit int) ([]types.Institution, int, error)
	Create(ctx context.Context, inst types.Institution) (types.Institution, error)
	Update(ctx context.Context, inst types.Institution) (types.Institution, error)
}

// InstitutionService encapsulates institution use-cases.
type InstitutionService struct {
	repo   InstitutionRepository
	policy *policy.Policy
	events events.Publisher
	logger *slog.Logger
}

func NewInstitutionService(repo InstitutionRepository, pol *policy.Policy, publisher events.Publisher, logger *slog.Logger) *InstitutionService {
	return &InstitutionService{repo: repo, policy: pol, events: publisher, logger: logger}
}

func (s *InstitutionService) List(ctx context.Context, filter types.InstitutionFilter, offset, limit int) ([]types.Institution, int, error) {
	offset, limit = page(offset, limit)
	return s.repo.List(ctx, filter, offset, limit)
}

func (s *InstitutionService) Get(ctx context.Context, id string) (types.Institution, error) {
	return s.repo.Get(ctx, id)
}

// Create registers the actor's institution profile. Administrators may
// create it on behalf of another user by setting UserID.
func (s *InstitutionService) Create(ctx context.Context, actor types.User, inst types.Institution) (types.Institution, error) {
	if err := s.policy.Authorize(actor, policy.ActionCreate, policy.ResourceInstitution, nil); err != nil {
		return types.Institution{}, err
	}

	v := validation.Violations{}
	validation.Required("name", inst.Name, v)
	if err := invalid(v); err != nil {
		return types.Institution{}, err
	}

	userID, err := profileOwner(s.policy, actor, inst.UserID)
	if err != nil {
		return types.Institution{}, err
	}
	inst.UserID = userID
	inst.IsVerified = false
	inst.PsychologistsCount = 0
	return s.repo.Create(ctx, inst)
}

func (s *InstitutionService) Update(ctx context.Context, actor types.User, id string, changes types.InstitutionChanges) (types.Institution, error) {
	inst, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Institution{}, err
	}
	if err := s.policy.Authorize(actor, policy.ActionUpdate, policy.ResourceInstitution, inst); err != nil {
		return types.Institution{}, err
	}
	if changes.Name != nil && strings.TrimSpace(*changes.Name) == "" {
		return types.Institution{}, invalidField("name", "required")
	}

	changes.Apply(&inst)
	return s.repo.Update(ctx, inst)
}

// Verify marks an institution as checked by an administrator.
func (s *InstitutionService) Verify(ctx context.Context, actor types.User, id string) (types.Institution, error) {
	if !s.policy.Can(actor.Role, policy.ActionVerify, policy.ResourceInstitution) {
		return types.Institution{}, policy.ErrForbidden
	}
	inst, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Institution{}, err
	}
	if err := s.policy.Authorize(actor, policy.ActionVerify, policy.ResourceInstitution, inst); err != nil {
		return types.Institution{}, err
	}

	inst.IsVerified = true
	updated, err := s.repo.Update(ctx, inst)
	if err != nil {
		return types.Institution{}, err
	}
	events.Emit(ctx, s.events, s.logger, events.New(events.InstitutionVerified, updated.ID, actor.ID, nil))
	return updated, nil
}
