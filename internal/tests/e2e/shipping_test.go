//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/coaltrack/apiserver/config"
	"github.com/coaltrack/apiserver/internal/db"
	"github.com/coaltrack/apiserver/internal/logging"
	"github.com/coaltrack/apiserver/internal/server"
	"github.com/coaltrack/apiserver/internal/services"
	"github.com/coaltrack/apiserver/internal/store"
	_ "github.com/lib/pq"
)

const (
	serverPort    = 18080
	adminEmail    = "admin@local.test"
	adminPassword = "admin123"
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	cfg := testConfig()
	if err := waitForPostgres(ctx, cfg.Database); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := db.MigrateUp(cfg.Database); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := seedAdmin(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed admin: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv := server.New(cfg, logging.Discard())
	go func() {
		_ = srv.Start()
	}()

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown(context.Background())
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown(context.Background())
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestShipmentLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)

	sid := login(t, baseURL)

	status, _ := doJSON(t, http.MethodGet, baseURL+"/api/shipping", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", status)
	}

	var list []map[string]any
	status, body := doJSON(t, http.MethodGet, baseURL+"/api/shipping", sid, nil)
	if status != http.StatusOK {
		t.Fatalf("list status %d: %s", status, body)
	}
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("list response is not an array: %v", err)
	}

	create := map[string]any{
		"tug_barge_name": "TB-1",
		"brand":          "X",
		"tonnage":        5000,
		"buyer":          "Y",
		"pod":            "Z",
		"jetty":          "Enim",
		"status":         "Loading",
	}
	status, body = doJSON(t, http.MethodPost, baseURL+"/api/shipping", sid, create)
	if status != http.StatusCreated {
		t.Fatalf("create status %d: %s", status, body)
	}
	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil || created.ID == 0 {
		t.Fatalf("unexpected create response %s: %v", body, err)
	}

	itemURL := fmt.Sprintf("%s/api/shipping/%d", baseURL, created.ID)
	record := getRecord(t, itemURL, sid)
	if record["jetty"] != "Enim" {
		t.Fatalf("unexpected jetty: %v", record["jetty"])
	}
	for _, optional := range []string{"est_commenced_loading", "est_completed_loading", "rata_rata_muat", "si_spk"} {
		if record[optional] != nil {
			t.Fatalf("expected %s to be null, got %v", optional, record[optional])
		}
	}

	update := map[string]any{
		"brand":                 "X2",
		"est_commenced_loading": "2024-03-01T08:30",
		"rata_rata_muat":        "04:15:00",
	}
	status, body = doJSON(t, http.MethodPut, itemURL, sid, update)
	if status != http.StatusOK {
		t.Fatalf("update status %d: %s", status, body)
	}
	record = getRecord(t, itemURL, sid)
	if record["brand"] != "X2" || record["tug_barge_name"] != "TB-1" || record["rata_rata_muat"] != "04:15:00" {
		t.Fatalf("unexpected record after update: %v", record)
	}

	status, body = doJSON(t, http.MethodPut, itemURL, sid, map[string]any{"rata_rata_muat": nil})
	if status != http.StatusOK {
		t.Fatalf("clear status %d: %s", status, body)
	}
	if record = getRecord(t, itemURL, sid); record["rata_rata_muat"] != nil {
		t.Fatalf("expected rata_rata_muat to be cleared, got %v", record["rata_rata_muat"])
	}

	status, _ = doJSON(t, http.MethodPut, baseURL+"/api/shipping/999999", sid, map[string]any{"brand": "X"})
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for missing shipment, got %d", status)
	}

	status, body = doJSON(t, http.MethodDelete, itemURL, sid, nil)
	if status != http.StatusOK {
		t.Fatalf("delete status %d: %s", status, body)
	}
	status, _ = doJSON(t, http.MethodGet, itemURL, sid, nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected deleted shipment to be missing, got %d", status)
	}
}

func login(t *testing.T, baseURL string) string {
	t.Helper()

	status, body := doJSON(t, http.MethodPost, baseURL+"/api/auth/login", "", map[string]string{
		"username": adminEmail,
		"password": adminPassword,
	})
	if status != http.StatusOK {
		t.Fatalf("login status %d: %s", status, body)
	}

	var parsed struct {
		SID  string `json:"sid"`
		User struct {
			Role string `json:"role"`
		} `json:"user"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if parsed.SID == "" || parsed.User.Role != "admin" {
		t.Fatalf("unexpected login response: %s", body)
	}
	return parsed.SID
}

func getRecord(t *testing.T, url, sid string) map[string]any {
	t.Helper()

	status, body := doJSON(t, http.MethodGet, url, sid, nil)
	if status != http.StatusOK {
		t.Fatalf("get status %d: %s", status, body)
	}
	var record map[string]any
	if err := json.Unmarshal(body, &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	return record
}

func doJSON(t *testing.T, method, url, sid string, payload any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encode payload: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if sid != "" {
		req.Header.Set("Authorization", "Bearer "+sid)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, bytes.TrimSpace(body)
}

func testConfig() config.Config {
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "coaltrack")
	_ = os.Setenv("DB_PASSWORD", "coaltrack")
	_ = os.Setenv("DB_NAME", "coaltrack")
	_ = os.Setenv("DB_USE_SSL", "false")
	_ = os.Setenv("ADMIN_EMAIL", adminEmail)
	_ = os.Setenv("ADMIN_PASSWORD", adminPassword)
	return config.LoadConfig()
}

func seedAdmin(ctx context.Context, cfg config.Config) error {
	pool := db.NewManager(cfg.Database, logging.Discard())
	defer pool.Close()

	_, _, err := services.NewUserService(store.NewUserRepository(pool)).SeedAdmin(ctx, cfg.Admin)
	return err
}

func waitForPostgres(ctx context.Context, cfg config.DatabaseConfig) error {
	conn, err := sql.Open("postgres", db.BuildPostgresURL(cfg))
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

