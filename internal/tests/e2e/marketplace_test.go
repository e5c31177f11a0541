//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cbt-marketplace/apiserver/config"
	"github.com/cbt-marketplace/apiserver/internal/db"
	"github.com/cbt-marketplace/apiserver/internal/events"
	"github.com/cbt-marketplace/apiserver/internal/policy"
	"github.com/cbt-marketplace/apiserver/internal/server"
	"github.com/cbt-marketplace/apiserver/internal/services"
	"github.com/cbt-marketplace/apiserver/internal/store"
	"github.com/cbt-marketplace/apiserver/internal/testutil"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

const (
	serverPort    = 18080
	adminPassword = "admin-pass-123"
)

var (
	baseURL    = fmt.Sprintf("http://localhost:%d", serverPort)
	adminEmail = fmt.Sprintf("admin_%d@example.com", time.Now().UnixNano())
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	configureEnv()
	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}
	teardown := func() { _ = dockerCompose(context.Background(), root, "down") }

	cfg := config.LoadConfig()
	if err := waitForPostgres(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		teardown()
		os.Exit(1)
	}

	if err := runMigrations(root, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		teardown()
		os.Exit(1)
	}

	if err := createAdmin(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create admin: %v\n", err)
		teardown()
		os.Exit(1)
	}

	srv, err := server.New(ctx, cfg, slog.Default())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		teardown()
		os.Exit(1)
	}
	go func() {
		_ = srv.Start()
	}()
	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}

	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		shutdown()
		teardown()
		os.Exit(1)
	}

	code := m.Run()

	shutdown()
	teardown()
	os.Exit(code)
}

func TestMarketplaceLifecycle(t *testing.T) {
	suffix := time.Now().UnixNano()
	adminToken := login(t, adminEmail, adminPassword)
	clinicToken := register(t, fmt.Sprintf("clinic_%d@example.com", suffix), "institution")
	psyToken := register(t, fmt.Sprintf("psy_%d@example.com", suffix), "psychologist")
	clientToken := register(t, fmt.Sprintf("client_%d@example.com", suffix), "client")

	var inst struct {
		ID                 string `json:"id"`
		PsychologistsCount int    `json:"psychologists_count"`
		IsVerified         bool   `json:"is_verified"`
	}
	call(t, http.MethodPost, "/institutions", clinicToken, map[string]any{
		"name": "Calm Clinic", "address": "1 Main St, Springfield",
	}, http.StatusCreated, &inst)

	var psy struct {
		ID string `json:"id"`
	}
	call(t, http.MethodPost, "/psychologists", psyToken, map[string]any{
		"description": "CBT for anxiety", "experience": 5,
		"specializations": []string{"anxiety"}, "institution_id": inst.ID,
	}, http.StatusCreated, &psy)

	call(t, http.MethodGet, "/institutions/"+inst.ID, "", nil, http.StatusOK, &inst)
	if inst.PsychologistsCount != 1 {
		t.Fatalf("psychologists_count = %d, want 1", inst.PsychologistsCount)
	}

	call(t, http.MethodPost, "/admin/verify-institution/"+inst.ID, clientToken, nil, http.StatusForbidden, nil)
	call(t, http.MethodPost, "/admin/verify-institution/"+inst.ID, adminToken, nil, http.StatusOK, &inst)
	if !inst.IsVerified {
		t.Fatalf("institution not verified")
	}
	var verified struct {
		IsVerified bool `json:"is_verified"`
	}
	call(t, http.MethodPost, "/admin/verify-psychologist/"+psy.ID, adminToken, nil, http.StatusOK, &verified)
	if !verified.IsVerified {
		t.Fatalf("psychologist user not verified")
	}

	var article struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Views  int    `json:"views"`
		Image  string `json:"image"`
	}
	call(t, http.MethodPost, "/articles", psyToken, map[string]any{
		"title": "Reframing thoughts", "content": "...", "tags": []string{"cbt"},
		"psychologist_id": psy.ID,
	}, http.StatusCreated, &article)
	call(t, http.MethodPost, "/articles/"+article.ID+"/publish", clientToken, nil, http.StatusForbidden, nil)
	call(t, http.MethodPost, "/articles/"+article.ID+"/publish", psyToken, nil, http.StatusOK, &article)
	if article.Status != "published" {
		t.Fatalf("status = %q", article.Status)
	}
	call(t, http.MethodGet, "/articles/"+article.ID, "", nil, http.StatusOK, &article)
	if article.Views != 1 {
		t.Fatalf("views = %d", article.Views)
	}

	uploadImage(t, "/articles/"+article.ID+"/image", psyToken, &article)
	if article.Image == "" {
		t.Fatalf("image not set")
	}
	resp, err := http.Get(baseURL + article.Image)
	if err != nil {
		t.Fatalf("fetch image: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !bytes.Equal(data, testutil.PNG) {
		t.Fatalf("image fetch status %d, %d bytes", resp.StatusCode, len(data))
	}

	call(t, http.MethodDelete, "/articles/"+article.ID, psyToken, nil, http.StatusNoContent, nil)
	call(t, http.MethodGet, "/articles/"+article.ID, "", nil, http.StatusNotFound, nil)
}

func register(t *testing.T, email, role string) string {
	t.Helper()
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	call(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": email, "name": "Test", "password": "password123", "role": role,
	}, http.StatusCreated, &resp)
	if resp.AccessToken == "" {
		t.Fatalf("missing token in register response")
	}
	return resp.AccessToken
}

func login(t *testing.T, email, password string) string {
	t.Helper()
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	call(t, http.MethodPost, "/auth/token", "", map[string]string{"email": email, "password": password}, http.StatusOK, &resp)
	return resp.AccessToken
}

func call(t *testing.T, method, path, token string, body any, wantStatus int, dst any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	do(t, req, wantStatus, dst)
}

func uploadImage(t *testing.T, path, token string, dst any) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "cover.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write(testutil.PNG)
	_ = writer.Close()

	req, err := http.NewRequest(http.MethodPut, baseURL+path, &body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	do(t, req, http.StatusOK, dst)
}

func do(t *testing.T, req *http.Request, wantStatus int, dst any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s status %d, want %d: %s", req.Method, req.URL.Path, resp.StatusCode, wantStatus, strings.TrimSpace(string(msg)))
	}
	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			t.Fatalf("decode %s: %v", req.URL.Path, err)
		}
	}
}

func configureEnv() {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "cbtm")
	_ = os.Setenv("DB_PASSWORD", "password")
	_ = os.Setenv("DB_NAME", "cbtm_db")
	_ = os.Setenv("DB_USE_SSL", "false")
	_ = os.Setenv("STORAGE_BACKEND", "minio")
	_ = os.Setenv("MINIO_ACCESS_KEY", "minioadmin")
	_ = os.Setenv("MINIO_SECRET_KEY", "minioadmin")
	_ = os.Setenv("MINIO_BUCKET", "cbtm-e2e")
	_ = os.Setenv("MEDIA_PUBLIC_BASE_URL", "/media")
}

func createAdmin(ctx context.Context, cfg config.Config) error {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	users := services.NewUserService(
		store.NewUserRepository(dbConn),
		policy.New(nil),
		events.Discard{},
		slog.Default(),
	)
	_, err = users.CreateAdmin(ctx, adminEmail, "Admin", adminPassword)
	return err
}

func waitForPostgres(ctx context.Context, cfg config.Config) error {
	conn, err := sql.Open("postgres", db.URL(cfg.Database))
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string, cfg config.Config) error {
	migrationsURL := "file://" + filepath.Join(root, "internal", "db", "migrations")

	migrator, err := migrate.New(migrationsURL, db.URL(cfg.Database))
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
