package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/cbt-marketplace/apiserver/internal/events"
	"github.com/cbt-marketplace/apiserver/internal/policy"
	"github.com/cbt-marketplace/apiserver/internal/validation"
	"github.com/cbt-marketplace/apiserver/types"
)

// ArticleRepository defines persistence operations for articles.
type ArticleRepository interface {
	Get(ctx context.Context, id string) (types.Article, error)
	List(ctx context.Context, filter types.ArticleFilter, offset, limit int) ([]types.Article, int, error)
	Create(ctx context.Context, article types.Article) (types.Article, error)
	Update(ctx context.Context, article types.Article) (types.Article, error)
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) (int, error)
}

// ArticleService runs the article lifecycle: drafts are published, then
// archived. Status only changes through Publish and Archive, which accept
// articles in any state.
type ArticleService struct {
	repo   ArticleRepository
	policy *policy.Policy
	events events.Publisher
	logger *slog.Logger
	now    func() time.Time
}

func NewArticleService(repo ArticleRepository, pol *policy.Policy, publisher events.Publisher, logger *slog.Logger) *ArticleService {
	return &ArticleService{
		repo:   repo,
		policy: pol,
		events: publisher,
		logger: logger,
		now:    time.Now,
	}
}

// List returns articles matching filter. Without a status filter only
// published articles are listed; ArticleStatusAny lists every state.
func (s *ArticleService) List(ctx context.Context, filter types.ArticleFilter, offset, limit int) ([]types.Article, int, error) {
	switch {
	case filter.Status == "":
		filter.Status = types.ArticleStatusPublished
	case filter.Status == types.ArticleStatusAny:
	case !filter.Status.Valid():
		return nil, 0, invalidField("status", "invalid")
	}
	offset, limit = page(offset, limit)
	return s.repo.List(ctx, filter, offset, limit)
}

// View returns an article and counts the read.
func (s *ArticleService) View(ctx context.Context, id string) (types.Article, error) {
	article, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Article{}, err
	}
	views, err := s.repo.IncrementViews(ctx, id)
	if err != nil {
		return types.Article{}, err
	}
	article.Views = views
	return article, nil
}

// Create stores a new article authored by the actor. Status defaults to
// draft; creating an article as published stamps PublishedAt.
func (s *ArticleService) Create(ctx context.Context, actor types.User, article types.Article) (types.Article, error) {
	if err := s.policy.Authorize(actor, policy.ActionCreate, policy.ResourceArticle, nil); err != nil {
		return types.Article{}, err
	}

	v := validation.Violations{}
	validation.Required("title", article.Title, v)
	validation.Required("content", article.Content, v)
	if article.Status == "" {
		article.Status = types.ArticleStatusDraft
	} else if !article.Status.Valid() {
		v.Add("status", "invalid")
	}
	if err := invalid(v); err != nil {
		return types.Article{}, err
	}

	authorID, err := profileOwner(s.policy, actor, article.AuthorID)
	if err != nil {
		return types.Article{}, err
	}
	article.AuthorID = authorID
	article.Views = 0
	article.InstitutionID = normalizeID(article.InstitutionID)
	article.PsychologistID = normalizeID(article.PsychologistID)
	now := s.now()
	article.CreatedAt = now
	article.UpdatedAt = now
	article.PublishedAt = nil
	if article.Status == types.ArticleStatusPublished {
		article.PublishedAt = &now
	}

	created, err := s.repo.Create(ctx, article)
	if err != nil {
		return types.Article{}, err
	}
	if created.Status == types.ArticleStatusPublished {
		s.emit(ctx, events.ArticlePublished, actor, created)
	}
	return created, nil
}

// Update patches the content fields of an article.
func (s *ArticleService) Update(ctx context.Context, actor types.User, id string, changes types.ArticleChanges) (types.Article, error) {
	article, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Article{}, err
	}
	if err := s.policy.Authorize(actor, policy.ActionUpdate, policy.ResourceArticle, article); err != nil {
		return types.Article{}, err
	}

	v := validation.Violations{}
	if changes.Status != nil {
		v.Add("status", "read_only")
	}
	if changes.Title != nil {
		validation.Required("title", *changes.Title, v)
	}
	if changes.Content != nil {
		validation.Required("content", *changes.Content, v)
	}
	if err := invalid(v); err != nil {
		return types.Article{}, err
	}

	changes.Apply(&article)
	return s.repo.Update(ctx, article)
}

// Publish moves an article to published and stamps PublishedAt.
func (s *ArticleService) Publish(ctx context.Context, actor types.User, id string) (types.Article, error) {
	return s.transition(ctx, actor, id, policy.ActionPublish, func(article *types.Article) {
		now := s.now()
		article.Status = types.ArticleStatusPublished
		article.PublishedAt = &now
	}, events.ArticlePublished)
}

// Archive moves an article to archived. PublishedAt is kept.
func (s *ArticleService) Archive(ctx context.Context, actor types.User, id string) (types.Article, error) {
	return s.transition(ctx, actor, id, policy.ActionArchive, func(article *types.Article) {
		article.Status = types.ArticleStatusArchived
	}, events.ArticleArchived)
}

func (s *ArticleService) transition(ctx context.Context, actor types.User, id string, action policy.Action, apply func(*types.Article), eventType events.Type) (types.Article, error) {
	article, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Article{}, err
	}
	if err := s.policy.Authorize(actor, action, policy.ResourceArticle, article); err != nil {
		return types.Article{}, err
	}

	apply(&article)
	updated, err := s.repo.Update(ctx, article)
	if err != nil {
		return types.Article{}, err
	}
	s.emit(ctx, eventType, actor, updated)
	return updated, nil
}

func (s *ArticleService) Delete(ctx context.Context, actor types.User, id string) error {
	article, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.Authorize(actor, policy.ActionDelete, policy.ResourceArticle, article); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *ArticleService) emit(ctx context.Context, eventType events.Type, actor types.User, article types.Article) {
	events.Emit(ctx, s.events, s.logger, events.New(eventType, article.ID, actor.ID, map[string]string{
		"author_id": article.AuthorID,
		"status":    string(article.Status),
	}))
}

func normalizeID(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
