package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cbt-marketplace/apiserver/config"
	"github.com/cbt-marketplace/apiserver/internal/auth"
	"github.com/cbt-marketplace/apiserver/internal/events"
	"github.com/cbt-marketplace/apiserver/internal/policy"
	"github.com/cbt-marketplace/apiserver/internal/services"
	"github.com/cbt-marketplace/apiserver/internal/testutil"
	"github.com/go-chi/chi/v5"
)

type api struct {
	t       *testing.T
	router  *chi.Mux
	store   *testutil.Store
	objects *testutil.Objects
	users   *services.UserService
}

// newAPI mounts every route over in-memory repositories. A nil objects
// store leaves media disabled.
func newAPI(t *testing.T, objects *testutil.Objects) *api {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := testutil.NewStore()
	pol := policy.New(nil)
	publisher := events.NewInlinePublisher(events.NewConsumer(st.Institutions(), logger))

	tokens, err := auth.NewTokenIssuer(config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	var store services.ObjectStore
	if objects != nil {
		store = objects
	}

	users := services.NewUserService(st.Users(), pol, publisher, logger)
	router := chi.NewRouter()
	Mount(router, Services{
		Users:         users,
		Clients:       services.NewClientService(st.Clients(), pol),
		Institutions:  services.NewInstitutionService(st.Institutions(), pol, publisher, logger),
		Psychologists: services.NewPsychologistService(st.Psychologists(), st.Users(), pol, publisher, logger),
		Articles:      services.NewArticleService(st.Articles(), pol, publisher, logger),
		Media:         services.NewMediaService(store, st.Articles(), st.Users(), pol, "/media", logger),
	}, tokens, logger)

	return &api{t: t, router: router, store: st, objects: objects, users: users}
}

func (a *api) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			a.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *api) upload(path, token string, data []byte) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(formFieldFile, "upload.bin")
	if err != nil {
		a.t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = part.Write(data)
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPut, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// signup registers a user over HTTP and returns a token for them. Admins
// are created directly since they cannot register.
func (a *api) signup(email, role string) string {
	a.t.Helper()
	if role == "admin" {
		if _, err := a.users.CreateAdmin(context.Background(), email, "Admin", "password"); err != nil {
			a.t.Fatalf("CreateAdmin: %v", err)
		}
	} else {
		rec := a.do(http.MethodPost, "/users", "", map[string]string{
			"email": email, "name": "Test", "password": "password", "role": role,
		})
		expectStatus(a.t, rec, http.StatusCreated)
	}
	return a.login(email, "password")
}

func (a *api) login(email, password string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/auth/token", "", map[string]string{"email": email, "password": password})
	expectStatus(a.t, rec, http.StatusOK)
	var resp TokenResponse
	decode(a.t, rec, &resp)
	return resp.AccessToken
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, want, rec.Body.String())
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
}
