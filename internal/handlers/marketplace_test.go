package handlers

import (
	"net/http"
	"testing"

	"github.com/cbt-marketplace/apiserver/types"
)

func TestInstitutionAndPsychologistProfiles(t *testing.T) {
	a := newAPI(t, nil)
	instToken := a.signup("clinic@example.com", "institution")
	psyToken := a.signup("psy@example.com", "psychologist")
	clientToken := a.signup("ann@example.com", "client")

	expectStatus(t, a.do(http.MethodPost, "/institutions", clientToken, map[string]string{"name": "Nope"}), http.StatusForbidden)
	expectStatus(t, a.do(http.MethodPost, "/institutions", instToken, map[string]string{"name": " "}), http.StatusBadRequest)

	rec := a.do(http.MethodPost, "/institutions", instToken, map[string]any{
		"name": "Calm Clinic", "address": "1 Main St, Springfield", "is_verified": true,
	})
	expectStatus(t, rec, http.StatusCreated)
	var inst types.Institution
	decode(t, rec, &inst)
	if inst.IsVerified || inst.PsychologistsCount != 0 {
		t.Fatalf("institution = %+v", inst)
	}

	rec = a.do(http.MethodPost, "/psychologists", psyToken, map[string]any{
		"description": "CBT for anxiety", "experience": 7, "rating": 5,
		"specializations": []string{"anxiety"}, "institution_id": inst.ID,
		"location": map[string]string{"city": "Springfield"},
	})
	expectStatus(t, rec, http.StatusCreated)
	var psy types.Psychologist
	decode(t, rec, &psy)
	if psy.Rating != 0 {
		t.Fatalf("self-created rating = %v", psy.Rating)
	}

	rec = a.do(http.MethodGet, "/institutions/"+inst.ID, "", nil)
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &inst)
	if inst.PsychologistsCount != 1 {
		t.Fatalf("psychologists_count = %d", inst.PsychologistsCount)
	}

	rec = a.do(http.MethodGet, "/psychologists?specialization=anxiety&city=springfield&institution_id="+inst.ID, "", nil)
	expectStatus(t, rec, http.StatusOK)
	var list ListResponse[types.Psychologist]
	decode(t, rec, &list)
	if list.Total != 1 || len(list.Items) != 1 || list.Items[0].ID != psy.ID {
		t.Fatalf("list = %+v", list)
	}

	expectStatus(t, a.do(http.MethodGet, "/psychologists?min_rating=abc", "", nil), http.StatusBadRequest)
	expectStatus(t, a.do(http.MethodGet, "/institutions?verified=maybe", "", nil), http.StatusBadRequest)

	other := a.signup("other@example.com", "psychologist")
	expectStatus(t, a.do(http.MethodPut, "/psychologists/"+psy.ID, other, map[string]any{"experience": 1}), http.StatusForbidden)

	rec = a.do(http.MethodPut, "/psychologists/"+psy.ID, psyToken, map[string]any{"institution_id": ""})
	expectStatus(t, rec, http.StatusOK)
	rec = a.do(http.MethodGet, "/institutions/"+inst.ID, "", nil)
	decode(t, rec, &inst)
	if inst.PsychologistsCount != 0 {
		t.Fatalf("psychologists_count after detach = %d", inst.PsychologistsCount)
	}
}

func TestClientProfile(t *testing.T) {
	a := newAPI(t, nil)
	clientToken := a.signup("ann@example.com", "client")
	psyToken := a.signup("psy@example.com", "psychologist")

	rec := a.do(http.MethodGet, "/clients/me", clientToken, nil)
	expectStatus(t, rec, http.StatusOK)

	rec = a.do(http.MethodPut, "/clients/me", clientToken, map[string]any{
		"preferences": map[string]string{"language": "en"},
	})
	expectStatus(t, rec, http.StatusOK)
	var client types.Client
	decode(t, rec, &client)
	if client.Preferences["language"] != "en" {
		t.Fatalf("preferences = %v", client.Preferences)
	}

	expectStatus(t, a.do(http.MethodGet, "/clients/me", psyToken, nil), http.StatusForbidden)
}

func TestArticleLifecycle(t *testing.T) {
	a := newAPI(t, nil)
	author := a.signup("psy@example.com", "psychologist")
	stranger := a.signup("other@example.com", "psychologist")
	client := a.signup("ann@example.com", "client")

	expectStatus(t, a.do(http.MethodPost, "/articles", client, map[string]string{"title": "x"}), http.StatusForbidden)

	rec := a.do(http.MethodPost, "/articles", author, map[string]any{
		"title": "Reframing thoughts", "content": "...", "tags": []string{"cbt"},
	})
	expectStatus(t, rec, http.StatusCreated)
	var article types.Article
	decode(t, rec, &article)
	if article.Status != types.ArticleStatusDraft || article.PublishedAt != nil {
		t.Fatalf("created = %+v", article)
	}

	var list ListResponse[types.Article]
	decode(t, a.do(http.MethodGet, "/articles", "", nil), &list)
	if list.Total != 0 {
		t.Fatalf("drafts listed publicly: %+v", list)
	}

	expectStatus(t, a.do(http.MethodPost, "/articles/"+article.ID+"/publish", stranger, nil), http.StatusForbidden)
	rec = a.do(http.MethodPost, "/articles/"+article.ID+"/publish", author, nil)
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &article)
	if article.Status != types.ArticleStatusPublished || article.PublishedAt == nil {
		t.Fatalf("published = %+v", article)
	}

	decode(t, a.do(http.MethodGet, "/articles?tag=cbt", "", nil), &list)
	if list.Total != 1 {
		t.Fatalf("published list = %+v", list)
	}

	for i := 1; i <= 2; i++ {
		rec = a.do(http.MethodGet, "/articles/"+article.ID, "", nil)
		expectStatus(t, rec, http.StatusOK)
		decode(t, rec, &article)
		if article.Views != i {
			t.Fatalf("views = %d, want %d", article.Views, i)
		}
	}

	rec = a.do(http.MethodPut, "/articles/"+article.ID, author, map[string]any{"status": "draft"})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = a.do(http.MethodPut, "/articles/"+article.ID, author, map[string]any{"title": "Reframing"})
	expectStatus(t, rec, http.StatusOK)

	rec = a.do(http.MethodPost, "/articles/"+article.ID+"/archive", author, nil)
	expectStatus(t, rec, http.StatusOK)
	decode(t, a.do(http.MethodGet, "/articles?status=archived", "", nil), &list)
	if list.Total != 1 || list.Items[0].Title != "Reframing" {
		t.Fatalf("archived list = %+v", list)
	}
	decode(t, a.do(http.MethodGet, "/articles?status=%20Archived%20", "", nil), &list)
	if list.Total != 1 {
		t.Fatalf("mixed-case archived list = %+v", list)
	}
	decode(t, a.do(http.MethodGet, "/articles?status=ANY", "", nil), &list)
	if list.Total != 1 {
		t.Fatalf("any list = %+v", list)
	}
	rec = a.do(http.MethodGet, "/articles?status=bogus", "", nil)
	expectStatus(t, rec, http.StatusBadRequest)
	var queryErr ErrorResponse
	decode(t, rec, &queryErr)
	if queryErr.Details["status"] == "" {
		t.Fatalf("error details = %+v", queryErr.Details)
	}

	expectStatus(t, a.do(http.MethodDelete, "/articles/"+article.ID, stranger, nil), http.StatusForbidden)
	expectStatus(t, a.do(http.MethodDelete, "/articles/"+article.ID, author, nil), http.StatusNoContent)
	expectStatus(t, a.do(http.MethodGet, "/articles/"+article.ID, "", nil), http.StatusNotFound)
}

func TestAdminEndpoints(t *testing.T) {
	a := newAPI(t, nil)
	admin := a.signup("root@example.com", "admin")
	psyToken := a.signup("psy@example.com", "psychologist")
	instToken := a.signup("clinic@example.com", "institution")

	var psy types.Psychologist
	decode(t, a.do(http.MethodPost, "/psychologists", psyToken, map[string]any{"description": "hi"}), &psy)
	var inst types.Institution
	decode(t, a.do(http.MethodPost, "/institutions", instToken, map[string]any{"name": "Clinic"}), &inst)

	expectStatus(t, a.do(http.MethodGet, "/admin/users", psyToken, nil), http.StatusForbidden)
	expectStatus(t, a.do(http.MethodPost, "/admin/verify-psychologist/"+psy.ID, psyToken, nil), http.StatusForbidden)
	expectStatus(t, a.do(http.MethodPost, "/admin/verify-psychologist/missing", admin, nil), http.StatusNotFound)
	expectStatus(t, a.do(http.MethodPost, "/admin/verify-psychologist/missing", psyToken, nil), http.StatusForbidden)
	expectStatus(t, a.do(http.MethodPost, "/admin/verify-institution/missing", instToken, nil), http.StatusForbidden)

	rec := a.do(http.MethodPost, "/admin/verify-psychologist/"+psy.ID, admin, nil)
	expectStatus(t, rec, http.StatusOK)
	var user types.User
	decode(t, rec, &user)
	if !user.IsVerified || user.Email != "psy@example.com" {
		t.Fatalf("verified user = %+v", user)
	}

	rec = a.do(http.MethodPost, "/admin/verify-institution/"+inst.ID, admin, nil)
	expectStatus(t, rec, http.StatusOK)
	decode(t, rec, &inst)
	if !inst.IsVerified {
		t.Fatalf("institution not verified")
	}

	var list ListResponse[types.User]
	decode(t, a.do(http.MethodGet, "/admin/users?role=psychologist", admin, nil), &list)
	if list.Total != 1 || list.Items[0].Role != types.RolePsychologist {
		t.Fatalf("users = %+v", list)
	}
	expectStatus(t, a.do(http.MethodGet, "/users?role=wizard", admin, nil), http.StatusBadRequest)
	expectStatus(t, a.do(http.MethodGet, "/users?limit=0", admin, nil), http.StatusBadRequest)
}
