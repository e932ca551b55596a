package handler

import (
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	bookingserrors "motobooking/internal/bookings/errors"
	"motobooking/internal/bookings/repository"
	"motobooking/internal/bookings/service"
	"motobooking/pkg/logger"
	"motobooking/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

const (
	testUser = "admin"
	testPass = "password"
)

type testServer struct {
	handler  http.Handler
	dataFile string
}

func newTestServer(t *testing.T, seed string) *testServer {
	t.Helper()

	dataFile := filepath.Join(t.TempDir(), "data.json")
	if seed != "" {
		if err := os.WriteFile(dataFile, []byte(seed), 0o644); err != nil {
			t.Fatalf("seed data file: %v", err)
		}
	}

	log := logger.Discard()
	repo := repository.NewFileBookingRepository(dataFile)
	svc := service.NewBookingService(repo, nil, log)

	router := httprouter.New()
	NewBookingHandler(svc, log).RegisterRoutes(router)

	var h http.Handler = router
	h = middleware.MaxRequestSize(1024)(h)
	h = middleware.BasicAuth(middleware.Credentials{Username: testUser, Password: testPass}, "Moto Booking Server", log)(h)

	return &testServer{handler: h, dataFile: dataFile}
}

func (s *testServer) do(t *testing.T, method, target, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if authed {
		req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(testUser+":"+testPass)))
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) stored(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(s.dataFile)
	if err != nil {
		t.Fatalf("read data file: %v", err)
	}
	return string(data)
}

func assertResponse(t *testing.T, rec *httptest.ResponseRecorder, status int, body string) {
	t.Helper()
	if rec.Code != status {
		t.Errorf("status = %d, want %d (body %s)", rec.Code, status, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != body {
		t.Errorf("body = %s, want %s", got, body)
	}
}

func TestCreate_OnEmptyStore(t *testing.T) {
	srv := newTestServer(t, "")

	rec := srv.do(t, http.MethodPost, "/", `{"pickup":"A","dropoff":"B"}`, true)
	assertResponse(t, rec, http.StatusCreated, `{"pickup":"A","dropoff":"B","id":1}`)

	want := "[\n    {\n        \"pickup\": \"A\",\n        \"dropoff\": \"B\",\n        \"id\": 1\n    }\n]"
	if got := srv.stored(t); got != want {
		t.Errorf("data file =\n%s\nwant\n%s", got, want)
	}
}

func TestCreateThenFetch(t *testing.T) {
	srv := newTestServer(t, `[{"id":4,"pickup":"X"}]`)

	rec := srv.do(t, http.MethodPost, "/", `{"pickup":"A","passengers":2}`, true)
	assertResponse(t, rec, http.StatusCreated, `{"pickup":"A","passengers":2,"id":5}`)

	rec = srv.do(t, http.MethodGet, "/?id=5", "", true)
	assertResponse(t, rec, http.StatusOK, `{"pickup":"A","passengers":2,"id":5}`)

	rec = srv.do(t, http.MethodGet, "/", "", true)
	assertResponse(t, rec, http.StatusOK, `[{"id":4,"pickup":"X"},{"pickup":"A","passengers":2,"id":5}]`)
}

func TestGet_EmptyCollection(t *testing.T) {
	srv := newTestServer(t, "")

	rec := srv.do(t, http.MethodGet, "/", "", true)
	assertResponse(t, rec, http.StatusOK, `[]`)

	rec = srv.do(t, http.MethodGet, "/?id=", "", true)
	assertResponse(t, rec, http.StatusOK, `[]`)
}

func TestRequiresAuthentication(t *testing.T) {
	srv := newTestServer(t, `[{"id":1}]`)

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		rec := srv.do(t, method, "/?id=1", `{"a":1}`, false)
		assertResponse(t, rec, http.StatusUnauthorized, `{"error":"Unauthorized"}`)
		if rec.Header().Get("WWW-Authenticate") != `Basic realm="Moto Booking Server"` {
			t.Errorf("%s: missing challenge header", method)
		}
	}

	if got := srv.stored(t); got != `[{"id":1}]` {
		t.Errorf("unauthenticated requests changed the store: %s", got)
	}
}

func TestInvalidAndMissingID(t *testing.T) {
	srv := newTestServer(t, `[{"id":1}]`)

	tests := []struct {
		method string
		target string
		body   string
		want   string
	}{
		{http.MethodGet, "/?id=abc", "", `{"error":"Invalid id parameter"}`},
		{http.MethodPut, "/?id=1.5", `{}`, `{"error":"Invalid id parameter"}`},
		{http.MethodPatch, "/?id=x", `{}`, `{"error":"Invalid id parameter"}`},
		{http.MethodDelete, "/?id=", "", `{"error":"Missing id parameter"}`},
		{http.MethodPut, "/", `{}`, `{"error":"Missing id parameter"}`},
		{http.MethodPatch, "/", `{}`, `{"error":"Missing id parameter"}`},
		{http.MethodDelete, "/", "", `{"error":"Missing id parameter"}`},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rec := srv.do(t, tt.method, tt.target, tt.body, true)
			assertResponse(t, rec, http.StatusBadRequest, tt.want)
		})
	}
}

func TestNotFound(t *testing.T) {
	srv := newTestServer(t, `[{"id":1}]`)

	notFound := `{"error":"Booking not found"}`
	assertResponse(t, srv.do(t, http.MethodGet, "/?id=2", "", true), http.StatusNotFound, notFound)
	assertResponse(t, srv.do(t, http.MethodPut, "/?id=2", `{"a":1}`, true), http.StatusNotFound, notFound)
	assertResponse(t, srv.do(t, http.MethodPatch, "/?id=2", `{"a":1}`, true), http.StatusNotFound, notFound)
	assertResponse(t, srv.do(t, http.MethodDelete, "/?id=999", "", true), http.StatusNotFound, notFound)

	if got := srv.stored(t); got != `[{"id":1}]` {
		t.Errorf("failed requests changed the store: %s", got)
	}
}

func TestReplace(t *testing.T) {
	srv := newTestServer(t, `[{"id":1,"pickup":"A","status":"new"},{"id":2}]`)

	for i := 0; i < 2; i++ {
		rec := srv.do(t, http.MethodPut, "/?id=1", `{"dropoff":"Z","id":77}`, true)
		assertResponse(t, rec, http.StatusOK, `{"dropoff":"Z","id":1}`)
	}

	rec := srv.do(t, http.MethodGet, "/", "", true)
	assertResponse(t, rec, http.StatusOK, `[{"dropoff":"Z","id":1},{"id":2}]`)
}

func TestPatch(t *testing.T) {
	srv := newTestServer(t, `[{"id":1,"pickup":"A"}]`)

	rec := srv.do(t, http.MethodPatch, "/?id=1", `{"status":"confirmed"}`, true)
	assertResponse(t, rec, http.StatusOK, `{"id":1,"pickup":"A","status":"confirmed"}`)

	rec = srv.do(t, http.MethodPatch, "/?id=1", `{"pickup":"B","id":5}`, true)
	assertResponse(t, rec, http.StatusOK, `{"id":1,"pickup":"B","status":"confirmed"}`)
}

func TestDelete(t *testing.T) {
	srv := newTestServer(t, `[{"id":1},{"id":2}]`)

	rec := srv.do(t, http.MethodDelete, "/?id=2", "", true)
	assertResponse(t, rec, http.StatusOK, `{"message":"Booking 2 deleted"}`)

	rec = srv.do(t, http.MethodGet, "/?id=2", "", true)
	assertResponse(t, rec, http.StatusNotFound, `{"error":"Booking not found"}`)

	rec = srv.do(t, http.MethodPost, "/", `{}`, true)
	assertResponse(t, rec, http.StatusCreated, `{"id":2}`)
}

func TestMalformedBody(t *testing.T) {
	srv := newTestServer(t, `[{"id":1}]`)

	for _, body := range []string{"", "null", `[1,2]`, `"text"`, `{"pickup":`, `pickup=A`} {
		rec := srv.do(t, http.MethodPost, "/", body, true)
		assertResponse(t, rec, http.StatusBadRequest, `{"error":"Invalid request body"}`)

		rec = srv.do(t, http.MethodPatch, "/?id=1", body, true)
		assertResponse(t, rec, http.StatusBadRequest, `{"error":"Invalid request body"}`)
	}

	if got := srv.stored(t); got != `[{"id":1}]` {
		t.Errorf("malformed requests changed the store: %s", got)
	}
}

func TestBodyTooLarge(t *testing.T) {
	srv := newTestServer(t, "")

	body := `{"note":"` + strings.Repeat("x", 2048) + `"}`
	rec := srv.do(t, http.MethodPost, "/", body, true)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestCorruptStore(t *testing.T) {
	srv := newTestServer(t, `{not json`)

	rec := srv.do(t, http.MethodGet, "/", "", true)
	assertResponse(t, rec, http.StatusInternalServerError, `{"error":"Internal server error"}`)

	rec = srv.do(t, http.MethodPost, "/", `{"a":1}`, true)
	assertResponse(t, rec, http.StatusInternalServerError, `{"error":"Internal server error"}`)
}

func TestUnknownPathAndMethod(t *testing.T) {
	srv := newTestServer(t, "")

	assertResponse(t, srv.do(t, http.MethodGet, "/bookings", "", true), http.StatusNotFound, `{"error":"Not found"}`)
	assertResponse(t, srv.do(t, "TRACE", "/", "", true), http.StatusMethodNotAllowed, `{"error":"Method not allowed"}`)

	assertResponse(t, srv.do(t, http.MethodGet, "/bookings", "", false), http.StatusUnauthorized, `{"error":"Unauthorized"}`)
}

func TestCreateThenFetch_KeepsNumbersVerbatim(t *testing.T) {
	srv := newTestServer(t, "")

	rec := srv.do(t, http.MethodPost, "/", `{"phone":12345678901234567,"fare":1.0,"big":1e21}`, true)
	assertResponse(t, rec, http.StatusCreated, `{"phone":12345678901234567,"fare":1.0,"big":1e21,"id":1}`)

	rec = srv.do(t, http.MethodGet, "/?id=1", "", true)
	assertResponse(t, rec, http.StatusOK, `{"phone":12345678901234567,"fare":1.0,"big":1e21,"id":1}`)

	if stored := srv.stored(t); !strings.Contains(stored, `"phone": 12345678901234567`) || !strings.Contains(stored, `"fare": 1.0`) {
		t.Errorf("data file rewrote numbers:\n%s", stored)
	}

	rec = srv.do(t, http.MethodPatch, "/?id=1", `{"fare":2.50}`, true)
	assertResponse(t, rec, http.StatusOK, `{"phone":12345678901234567,"fare":2.50,"big":1e21,"id":1}`)
}

func TestOutOfRangeIDIsNotFound(t *testing.T) {
	srv := newTestServer(t, `[{"id":1}]`)

	notFound := `{"error":"Booking not found"}`
	assertResponse(t, srv.do(t, http.MethodGet, "/?id=99999999999999999999", "", true), http.StatusNotFound, notFound)
	assertResponse(t, srv.do(t, http.MethodPut, "/?id=99999999999999999999", `{"a":1}`, true), http.StatusNotFound, notFound)
	assertResponse(t, srv.do(t, http.MethodPatch, "/?id=-99999999999999999999", `{"a":1}`, true), http.StatusNotFound, notFound)
	assertResponse(t, srv.do(t, http.MethodDelete, "/?id=99999999999999999999", "", true), http.StatusNotFound, notFound)

	if got := srv.stored(t); got != `[{"id":1}]` {
		t.Errorf("failed requests changed the store: %s", got)
	}
}

func TestReadBooking_MalformedPayload(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`[1,2]`))

	_, err := readBooking(r)
	if !errors.Is(err, bookingserrors.ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}
