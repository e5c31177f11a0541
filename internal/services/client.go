package services

import (
	"context"

	"github.com/cbt-marketplace/apiserver/internal/policy"
	"github.com/cbt-marketplace/apiserver/types"
)

// ClientRepository defines persistence operations for client profiles.
type ClientRepository interface {
	GetByUserID(ctx context.Context, userID string) (types.Client, error)
	Update(ctx context.Context, client types.Client) (types.Client, error)
}

// ClientService exposes a client's own profile.
type ClientService struct {
	repo   ClientRepository
	policy *policy.Policy
}

func NewClientService(repo ClientRepository, pol *policy.Policy) *ClientService {
	return &ClientService{repo: repo, policy: pol}
}

// Me returns the actor's client profile. Only client accounts have one.
func (s *ClientService) Me(ctx context.Context, actor types.User) (types.Client, error) {
	if !s.policy.Can(actor.Role, policy.ActionView, policy.ResourceClient) {
		return types.Client{}, policy.ErrForbidden
	}
	client, err := s.repo.GetByUserID(ctx, actor.ID)
	if err != nil {
		return types.Client{}, err
	}
	if err := s.policy.Authorize(actor, policy.ActionView, policy.ResourceClient, client); err != nil {
		return types.Client{}, err
	}
	return client, nil
}

// UpdateMe patches the actor's client profile.
func (s *ClientService) UpdateMe(ctx context.Context, actor types.User, changes types.ClientChanges) (types.Client, error) {
	if !s.policy.Can(actor.Role, policy.ActionUpdate, policy.ResourceClient) {
		return types.Client{}, policy.ErrForbidden
	}
	if changes.Preferences != nil {
		if err := changes.Preferences.Validate(); err != nil {
			return types.Client{}, invalidField("preferences", err.Error())
		}
	}

	client, err := s.repo.GetByUserID(ctx, actor.ID)
	if err != nil {
		return types.Client{}, err
	}
	if err := s.policy.Authorize(actor, policy.ActionUpdate, policy.ResourceClient, client); err != nil {
		return types.Client{}, err
	}

	changes.Apply(&client)
	return s.repo.Update(ctx, client)
}
