package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cbt-marketplace/apiserver/internal/events"
	"github.com/cbt-marketplace/apiserver/internal/policy"
	"github.com/cbt-marketplace/apiserver/internal/store"
	"github.com/cbt-marketplace/apiserver/types"
)

func newArticle(title string) types.Article {
	return types.Article{Title: title, Content: "body of " + title, Tags: []string{"cbt"}}
}

func TestCreateArticleDefaultsToDraft(t *testing.T) {
	f := newFixture(t)
	author := f.register(t, "psy@example.com", types.RolePsychologist)

	article, err := f.articles.Create(context.Background(), author, newArticle("Sleep"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if article.Status != types.ArticleStatusDraft {
		t.Fatalf("status = %s, want draft", article.Status)
	}
	if article.PublishedAt != nil {
		t.Fatal("draft must not have published_at")
	}
	if article.AuthorID != author.ID {
		t.Fatalf("author = %s, want %s", article.AuthorID, author.ID)
	}
}

func TestClientCannotCreateArticle(t *testing.T) {
	f := newFixture(t)
	client := f.register(t, "client@example.com", types.RoleClient)

	_, err := f.articles.Create(context.Background(), client, newArticle("Nope"))
	if !errors.Is(err, policy.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestCreateArticleValidation(t *testing.T) {
	f := newFixture(t)
	author := f.register(t, "psy@example.com", types.RolePsychologist)

	_, err := f.articles.Create(context.Background(), author, types.Article{Status: "pending"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	for _, field := range []string{"title", "content", "status"} {
		if _, ok := verr.Violations[field]; !ok {
			t.Errorf("missing violation for %s", field)
		}
	}
}

func TestCreatePublishedArticleStampsPublishedAt(t *testing.T) {
	f := newFixture(t)
	author := f.register(t, "inst@example.com", types.RoleInstitution)

	in := newArticle("Launch")
	in.Status = types.ArticleStatusPublished
	article, err := f.articles.Create(context.Background(), author, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if article.PublishedAt == nil {
		t.Fatal("published_at not set")
	}
	if article.PublishedAt.Before(article.CreatedAt) {
		t.Fatalf("published_at %v before created_at %v", article.PublishedAt, article.CreatedAt)
	}
	if got := f.events.ofType(events.ArticlePublished); len(got) != 1 {
		t.Fatalf("published events = %d, want 1", len(got))
	}
}

func TestCreatePublishedArticleSharesTimestamp(t *testing.T) {
	f := newFixture(t)
	author := f.register(t, "clock@example.com", types.RolePsychologist)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f.articles.now = func() time.Time { return fixed }

	in := newArticle("Clocked")
	in.Status = types.ArticleStatusPublished
	article, err := f.articles.Create(context.Background(), author, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !article.CreatedAt.Equal(fixed) {
		t.Fatalf("created_at = %v, want %v", article.CreatedAt, fixed)
	}
	if article.PublishedAt == nil || !article.PublishedAt.Equal(article.CreatedAt) {
		t.Fatalf("published_at = %v, want %v", article.PublishedAt, article.CreatedAt)
	}
}

func TestPublishSetsStatusAndTimestamp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.register(t, "psy@example.com", types.RolePsychologist)
	draft, err := f.articles.Create(ctx, author, newArticle("Anxiety"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	published, err := f.articles.Publish(ctx, author, draft.ID)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if published.Status != types.ArticleStatusPublished {
		t.Fatalf("status = %s, want published", published.Status)
	}
	if published.PublishedAt == nil || published.PublishedAt.Before(draft.CreatedAt) {
		t.Fatalf("published_at = %v, created_at = %v", published.PublishedAt, draft.CreatedAt)
	}
	if got := f.events.ofType(events.ArticlePublished); len(got) != 1 || got[0].ResourceID != draft.ID {
		t.Fatalf("events = %+v", got)
	}
}

func TestArchiveFromAnyStateKeepsPublishedAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.register(t, "psy@example.com", types.RolePsychologist)

	draft, _ := f.articles.Create(ctx, author, newArticle("Draft"))
	archivedDraft, err := f.articles.Archive(ctx, author, draft.ID)
	if err != nil {
		t.Fatalf("Archive draft: %v", err)
	}
	if archivedDraft.Status != types.ArticleStatusArchived || archivedDraft.PublishedAt != nil {
		t.Fatalf("archived draft = %+v", archivedDraft)
	}

	other, _ := f.articles.Create(ctx, author, newArticle("Published"))
	published, err := f.articles.Publish(ctx, author, other.ID)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	f.articles.now = func() time.Time { return published.PublishedAt.Add(time.Hour) }
	archived, err := f.articles.Archive(ctx, author, other.ID)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if archived.Status != types.ArticleStatusArchived {
		t.Fatalf("status = %s, want archived", archived.Status)
	}
	if !archived.PublishedAt.Equal(*published.PublishedAt) {
		t.Fatalf("published_at changed: %v -> %v", published.PublishedAt, archived.PublishedAt)
	}

	republished, err := f.articles.Publish(ctx, author, other.ID)
	if err != nil {
		t.Fatalf("republish archived: %v", err)
	}
	if !republished.PublishedAt.After(*published.PublishedAt) {
		t.Fatal("republishing should restamp published_at")
	}
}

func TestTransitionsRequireOwnerOrAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.register(t, "psy@example.com", types.RolePsychologist)
	stranger := f.register(t, "other@example.com", types.RolePsychologist)
	admin := f.register(t, "admin@example.com", types.RoleAdmin)
	article, _ := f.articles.Create(ctx, author, newArticle("Mine"))

	if _, err := f.articles.Publish(ctx, stranger, article.ID); !errors.Is(err, policy.ErrForbidden) {
		t.Fatalf("stranger publish: err = %v, want ErrForbidden", err)
	}
	if _, err := f.articles.Archive(ctx, stranger, article.ID); !errors.Is(err, policy.ErrForbidden) {
		t.Fatalf("stranger archive: err = %v, want ErrForbidden", err)
	}
	if _, err := f.articles.Publish(ctx, admin, article.ID); err != nil {
		t.Fatalf("admin publish: %v", err)
	}
}

func TestMissingArticleIsNotFoundBeforeForbidden(t *testing.T) {
	f := newFixture(t)
	client := f.register(t, "client@example.com", types.RoleClient)

	if _, err := f.articles.Publish(context.Background(), client, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListDefaultsToPublished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.register(t, "psy@example.com", types.RolePsychologist)

	draft, _ := f.articles.Create(ctx, author, newArticle("Draft"))
	first, _ := f.articles.Create(ctx, author, newArticle("First"))
	second, _ := f.articles.Create(ctx, author, newArticle("Second"))
	if _, err := f.articles.Publish(ctx, author, first.ID); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	f.articles.now = func() time.Time { return time.Now().Add(time.Minute) }
	if _, err := f.articles.Publish(ctx, author, second.ID); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	listed, total, err := f.articles.List(ctx, types.ArticleFilter{}, 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(listed) != 2 {
		t.Fatalf("listed %d of %d, want 2", len(listed), total)
	}
	if listed[0].ID != second.ID || listed[1].ID != first.ID {
		t.Fatalf("order = %s, %s; want newest first", listed[0].Title, listed[1].Title)
	}

	drafts, _, err := f.articles.List(ctx, types.ArticleFilter{Status: types.ArticleStatusDraft}, 0, 0)
	if err != nil {
		t.Fatalf("List drafts: %v", err)
	}
	if len(drafts) != 1 || drafts[0].ID != draft.ID {
		t.Fatalf("drafts = %+v", drafts)
	}

	all, _, err := f.articles.List(ctx, types.ArticleFilter{Status: types.ArticleStatusAny}, 0, 0)
	if err != nil {
		t.Fatalf("List any: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("any = %d, want 3", len(all))
	}

	if _, _, err := f.articles.List(ctx, types.ArticleFilter{Status: "deleted"}, 0, 0); err == nil {
		t.Fatal("expected validation error for unknown status")
	}
}

func TestListFiltersByTag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.register(t, "psy@example.com", types.RolePsychologist)

	sleep := newArticle("Sleep")
	sleep.Tags = []string{"sleep", "cbt"}
	sleep.Status = types.ArticleStatusPublished
	stress := newArticle("Stress")
	stress.Tags = []string{"stress"}
	stress.Status = types.ArticleStatusPublished
	for _, a := range []types.Article{sleep, stress} {
		if _, err := f.articles.Create(ctx, author, a); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	listed, _, err := f.articles.List(ctx, types.ArticleFilter{Tag: "sleep"}, 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 1 || listed[0].Title != "Sleep" {
		t.Fatalf("listed = %+v", listed)
	}
}

func TestUpdateRejectsStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.register(t, "psy@example.com", types.RolePsychologist)
	article, _ := f.articles.Create(ctx, author, newArticle("Title"))

	status := types.ArticleStatusPublished
	_, err := f.articles.Update(ctx, author, article.ID, types.ArticleChanges{Status: &status})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Violations["status"] == "" {
		t.Fatalf("err = %v, want status violation", err)
	}

	title := "New title"
	updated, err := f.articles.Update(ctx, author, article.ID, types.ArticleChanges{Title: &title})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != title || updated.Status != types.ArticleStatusDraft {
		t.Fatalf("updated = %+v", updated)
	}
}

func TestViewIncrementsViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.register(t, "psy@example.com", types.RolePsychologist)
	article, _ := f.articles.Create(ctx, author, newArticle("Counted"))

	for want := 1; want <= 2; want++ {
		viewed, err := f.articles.View(ctx, article.ID)
		if err != nil {
			t.Fatalf("View: %v", err)
		}
		if viewed.Views != want {
			t.Fatalf("views = %d, want %d", viewed.Views, want)
		}
	}
}

func TestDeleteArticle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.register(t, "psy@example.com", types.RolePsychologist)
	stranger := f.register(t, "inst@example.com", types.RoleInstitution)
	article, _ := f.articles.Create(ctx, author, newArticle("Gone"))

	if err := f.articles.Delete(ctx, stranger, article.ID); !errors.Is(err, policy.ErrForbidden) {
		t.Fatalf("stranger delete: err = %v, want ErrForbidden", err)
	}
	if err := f.articles.Delete(ctx, author, article.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.articles.View(ctx, article.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAdminAuthorsOnBehalf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "admin@example.com", types.RoleAdmin)
	author := f.register(t, "psy@example.com", types.RolePsychologist)
	other := f.register(t, "inst@example.com", types.RoleInstitution)

	in := newArticle("Ghost")
	in.AuthorID = author.ID
	article, err := f.articles.Create(ctx, admin, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if article.AuthorID != author.ID {
		t.Fatalf("author = %s, want %s", article.AuthorID, author.ID)
	}

	in.AuthorID = author.ID
	if _, err := f.articles.Create(ctx, other, in); !errors.Is(err, policy.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}
