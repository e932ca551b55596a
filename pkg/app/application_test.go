package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"motobooking/internal/bookings/handler"
	"motobooking/internal/bookings/repository"
	"motobooking/internal/bookings/service"
	"motobooking/pkg/client"
	"motobooking/pkg/config"
	"motobooking/pkg/logger"
)

const (
	testUser = "admin"
	testPass = "password"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:            "0",
		StorageBackend:  config.StorageFile,
		DataFile:        filepath.Join(t.TempDir(), "data.json"),
		AuthUsername:    testUser,
		AuthPassword:    testPass,
		AuthRealm:       config.DefaultAuthRealm,
		RateLimitWindow: time.Minute,
		RequestTimeout:  5 * time.Second,
		IdempotencyTTL:  time.Hour,
		MaxRequestSize:  config.DefaultMaxRequestSize,
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		IdleTimeout:     time.Second,
		ShutdownTimeout: time.Second,
		Log:             logger.Discard(),
	}
}

func startServer(t *testing.T, cfg *config.Config, hooks ...ShutdownHook) (*Application, *httptest.Server) {
	t.Helper()

	repo := repository.NewFileBookingRepository(cfg.DataFile)
	svc := service.NewBookingService(repo, nil, cfg.Log)

	application := NewApplication(cfg)
	application.SetApp(
		handler.NewBookingHandler(svc, cfg.Log),
		handler.NewHealthHandler(repo, cfg.Log),
		hooks...,
	)

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		srv.Close()
		application.stopWorkers()
	})
	return application, srv
}

func TestApplication_BookingLifecycle(t *testing.T) {
	_, srv := startServer(t, testConfig(t))
	bookings := client.NewBookingClient(srv.URL, testUser, testPass)

	if err := bookings.WaitForHealthy(); err != nil {
		t.Fatalf("server not healthy: %v", err)
	}

	resp, err := bookings.Create(json.RawMessage(`{"pickup":"A","dropoff":"B"}`))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if resp.StatusCode != http.StatusCreated || string(resp.Body) != "{\"pickup\":\"A\",\"dropoff\":\"B\",\"id\":1}\n" {
		t.Fatalf("create = %d %s", resp.StatusCode, resp.Body)
	}

	resp, err = bookings.Patch(1, json.RawMessage(`{"status":"confirmed"}`))
	if err != nil {
		t.Fatalf("patch failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK || string(resp.Body) != "{\"pickup\":\"A\",\"dropoff\":\"B\",\"id\":1,\"status\":\"confirmed\"}\n" {
		t.Fatalf("patch = %d %s", resp.StatusCode, resp.Body)
	}

	resp, err = bookings.Replace(1, json.RawMessage(`{"pickup":"C"}`))
	if err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK || string(resp.Body) != "{\"pickup\":\"C\",\"id\":1}\n" {
		t.Fatalf("replace = %d %s", resp.StatusCode, resp.Body)
	}

	resp, err = bookings.Delete(1)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK || client.GetErrorMessage(resp) != "Booking 1 deleted" {
		t.Fatalf("delete = %d %s", resp.StatusCode, resp.Body)
	}

	resp, err = bookings.GetByID(1)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound || client.GetErrorMessage(resp) != "Booking not found" {
		t.Fatalf("get = %d %s", resp.StatusCode, resp.Body)
	}

	resp, err = bookings.GetAll()
	if err != nil {
		t.Fatalf("get all failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK || string(resp.Body) != "[]\n" {
		t.Fatalf("get all = %d %s", resp.StatusCode, resp.Body)
	}
}

func TestApplication_HealthIsPublic(t *testing.T) {
	_, srv := startServer(t, testConfig(t))
	anonymous := client.NewHttpClient(srv.URL)

	for _, path := range []string{"/health", "/ready"} {
		resp, err := anonymous.GET(path)
		if err != nil {
			t.Fatalf("%s failed: %v", path, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s = %d, want 200", path, resp.StatusCode)
		}
	}

	resp, err := anonymous.GET("/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("GET / without credentials = %d, want 401", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected request id on rejected request")
	}
}

func TestApplication_WrongCredentials(t *testing.T) {
	_, srv := startServer(t, testConfig(t))
	bookings := client.NewBookingClient(srv.URL, testUser, "wrong")

	resp, err := bookings.Create(json.RawMessage(`{"pickup":"A"}`))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestApplication_MalformedCreate(t *testing.T) {
	_, srv := startServer(t, testConfig(t))
	bookings := client.NewBookingClient(srv.URL, testUser, testPass)

	resp, err := bookings.CreateRaw([]byte(`{"pickup":`))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if got := strings.TrimSpace(string(resp.Body)); got != `{"error":"Invalid request body"}` {
		t.Errorf("body = %s", got)
	}

	resp, err = bookings.GetAll()
	if err != nil {
		t.Fatalf("get all failed: %v", err)
	}
	if got := strings.TrimSpace(string(resp.Body)); got != `[]` {
		t.Errorf("store changed by a malformed create: %s", got)
	}
}

func TestApplication_IdempotentCreate(t *testing.T) {
	_, srv := startServer(t, testConfig(t))
	bookings := client.NewBookingClient(srv.URL, testUser, testPass)

	first, err := bookings.CreateWithIdempotencyKey(json.RawMessage(`{"pickup":"A"}`), "key-1")
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	second, err := bookings.CreateWithIdempotencyKey(json.RawMessage(`{"pickup":"A"}`), "key-1")
	if err != nil {
		t.Fatalf("second create failed: %v", err)
	}

	if string(first.Body) != string(second.Body) {
		t.Errorf("replayed body differs: %s vs %s", first.Body, second.Body)
	}
	if second.Header.Get("Idempotent-Replayed") != "true" {
		t.Error("expected replay marker on second response")
	}

	resp, err := bookings.GetAll()
	if err != nil {
		t.Fatalf("get all failed: %v", err)
	}
	var all []map[string]any
	if err := resp.DecodeJSON(&all); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected a single stored booking, got %d", len(all))
	}
}

func TestApplication_RateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimitRequests = 2
	_, srv := startServer(t, cfg)
	bookings := client.NewBookingClient(srv.URL, testUser, testPass)

	for i := 0; i < 2; i++ {
		resp, err := bookings.GetAll()
		if err != nil || resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: %v %v", i, resp, err)
		}
	}

	resp, err := bookings.GetAll()
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", resp.StatusCode)
	}
}

func TestApplication_RunHooks(t *testing.T) {
	var closed []string
	failing := errors.New("close failed")

	application, _ := startServer(t, testConfig(t),
		ShutdownHook{Name: "publisher", Close: func(context.Context) error {
			closed = append(closed, "publisher")
			return failing
		}},
		ShutdownHook{Name: "store", Close: func(context.Context) error {
			closed = append(closed, "store")
			return nil
		}},
	)

	application.runHooks(context.Background())

	if len(closed) != 2 || closed[0] != "publisher" || closed[1] != "store" {
		t.Errorf("hooks ran as %v", closed)
	}
}
