package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pgup-sistemas/Titanium-clinic/internal/audit"
	"github.com/pgup-sistemas/Titanium-clinic/internal/auth"
	"github.com/pgup-sistemas/Titanium-clinic/internal/consent"
	"github.com/pgup-sistemas/Titanium-clinic/internal/dispatch"
	"github.com/pgup-sistemas/Titanium-clinic/internal/model"
	"github.com/pgup-sistemas/Titanium-clinic/internal/outreach"
	"github.com/pgup-sistemas/Titanium-clinic/internal/repo"
	"github.com/pgup-sistemas/Titanium-clinic/internal/report"
	"github.com/pgup-sistemas/Titanium-clinic/internal/scheduler"
	"github.com/pgup-sistemas/Titanium-clinic/internal/storage"
)

type testServer struct {
	mux  http.Handler
	auth *auth.Service
}

// newTestServer wires the full stack over a temporary database. The
// clinic is flipped to 24h so requests pass the hours gate no matter
// when the test runs.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := storage.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := storage.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	patients := repo.NewSQLitePatientRepo(db)
	templates := repo.NewSQLiteTemplateRepo(db)
	ledger := repo.NewSQLiteLedgerRepo(db)
	history := repo.NewSQLiteHistoryRepo(db)
	settings := repo.NewSQLiteSettingsRepo(db)
	users := repo.NewSQLiteUserRepo(db)

	ctx := context.Background()
	if err := settings.SetConfig(ctx, repo.ConfigOpen24h, "true"); err != nil {
		t.Fatalf("set open_24h: %v", err)
	}
	if _, err := templates.Create(ctx, model.Template{
		Type: model.TypeFirstContact, Text: "Olá {name}!", Active: true,
	}); err != nil {
		t.Fatalf("seed template: %v", err)
	}

	auditLog := audit.New(db)
	consentSvc := consent.NewService(patients, settings, auditLog)
	authSvc := auth.NewService(users)

	selector := outreach.NewSelector(templates, patients, outreach.NewTracker())
	limits := outreach.NewLimitsController(ledger, settings)
	hours := outreach.NewHoursGate(settings)
	dispatcher := dispatch.NewWhatsAppWeb().WithOpener(func(string) error { return nil })

	engine := outreach.NewEngine(patients, history, selector, limits, hours, consentSvc, dispatcher, auditLog)

	// Long interval so only the immediate tick happens (noop anyway).
	sched, err := scheduler.New("test", time.Hour, func(context.Context) {})
	if err != nil {
		t.Fatalf("failed to create scheduler: %v", err)
	}
	t.Cleanup(func() { sched.Stop() })

	reports := report.NewService(db, patients, ledger)

	h := NewHandler(engine, patients, history, consentSvc, reports, authSvc, sched)
	return &testServer{mux: Router(h), auth: authSvc}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	ts.mux.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var m map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &m); err != nil {
		t.Fatalf("failed to decode json: %v body=%q", err, rr.Body.String())
	}
	return m
}

func createPatient(t *testing.T, ts *testServer, name, phone string) int64 {
	t.Helper()

	rr := ts.do(t, http.MethodPost, "/v1/patients",
		`{"name":"`+name+`","phone":"`+phone+`","appointmentDate":"2026-03-12","appointmentTime":"14:30"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create patient: expected 201, got %d body=%q", rr.Code, rr.Body.String())
	}
	id, ok := decodeJSON(t, rr)["id"].(float64)
	if !ok {
		t.Fatalf("create patient: missing id in %q", rr.Body.String())
	}
	return int64(id)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodGet, "/v1/health", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%q", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("expected Content-Type application/json, got %q", ct)
	}

	body := decodeJSON(t, rr)
	if v, ok := body["ok"].(bool); !ok || !v {
		t.Fatalf("expected {ok:true}, got %v", body)
	}
}

func TestRouterRoot(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodGet, "/", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%q", rr.Code, rr.Body.String())
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "titanium-clinic" {
		t.Fatalf("expected body %q, got %q", "titanium-clinic", got)
	}
}

func TestSchedulerEndpoints(t *testing.T) {
	ts := newTestServer(t)

	// Initially should be false.
	rr := ts.do(t, http.MethodGet, "/v1/scheduler/status", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%q", rr.Code, rr.Body.String())
	}
	if running, ok := decodeJSON(t, rr)["running"].(bool); !ok || running {
		t.Fatalf("expected running=false, got %q", rr.Body.String())
	}

	rr = ts.do(t, http.MethodPost, "/v1/scheduler/start", "")
	if running, ok := decodeJSON(t, rr)["running"].(bool); !ok || !running {
		t.Fatalf("expected running=true after start, got %q", rr.Body.String())
	}

	rr = ts.do(t, http.MethodPost, "/v1/scheduler/stop", "")
	if running, ok := decodeJSON(t, rr)["running"].(bool); !ok || running {
		t.Fatalf("expected running=false after stop, got %q", rr.Body.String())
	}
}

func TestCreateAndGetPatient(t *testing.T) {
	ts := newTestServer(t)

	id := createPatient(t, ts, "Maria Souza", "+5569999990000")

	rr := ts.do(t, http.MethodGet, "/v1/patients/1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%q", rr.Code, rr.Body.String())
	}
	body := decodeJSON(t, rr)
	if body["name"] != "Maria Souza" || body["status"] != "pending" {
		t.Fatalf("unexpected patient view: %v", body)
	}
	if int64(body["id"].(float64)) != id {
		t.Fatalf("id = %v, want %d", body["id"], id)
	}

	rr = ts.do(t, http.MethodGet, "/v1/patients", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%q", rr.Code, rr.Body.String())
	}
	items, ok := decodeJSON(t, rr)["items"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("expected 1 item, got %v", items)
	}
}

func TestCreatePatient_Validation(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodPost, "/v1/patients", `{"name":"sem telefone"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%q", rr.Code, rr.Body.String())
	}
}

func TestGetPatient_NotFound(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodGet, "/v1/patients/999", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%q", rr.Code, rr.Body.String())
	}
	if kind := decodeJSON(t, rr)["kind"]; kind != "not_found" {
		t.Fatalf("kind = %v, want not_found", kind)
	}
}

func TestPrepareAndSendFlow(t *testing.T) {
	ts := newTestServer(t)
	createPatient(t, ts, "Maria Souza", "+5569999990000")

	rr := ts.do(t, http.MethodPost, "/v1/patients/1/prepare", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("prepare: expected 200, got %d body=%q", rr.Code, rr.Body.String())
	}
	if msg := decodeJSON(t, rr)["message"]; msg != "Olá Maria!" {
		t.Fatalf("message = %v, want %q", msg, "Olá Maria!")
	}

	// No consent on record: the send is refused until the operator
	// confirms how consent was obtained.
	rr = ts.do(t, http.MethodPost, "/v1/patients/1/send", "{}")
	if rr.Code != http.StatusConflict {
		t.Fatalf("send without consent: expected 409, got %d body=%q", rr.Code, rr.Body.String())
	}
	if kind := decodeJSON(t, rr)["kind"]; kind != "consent_missing" {
		t.Fatalf("kind = %v, want consent_missing", kind)
	}

	rr = ts.do(t, http.MethodPost, "/v1/patients/1/send", `{"consentOverride":"verbal"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("send with override: expected 200, got %d body=%q", rr.Code, rr.Body.String())
	}

	rr = ts.do(t, http.MethodGet, "/v1/patients/1", "")
	body := decodeJSON(t, rr)
	if body["status"] != "message_sent" {
		t.Fatalf("status = %v, want message_sent", body["status"])
	}
	if body["consent"] != true {
		t.Fatalf("consent = %v, want true after override", body["consent"])
	}

	rr = ts.do(t, http.MethodGet, "/v1/patients/1/history", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("history: expected 200, got %d body=%q", rr.Code, rr.Body.String())
	}
	items, ok := decodeJSON(t, rr)["items"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("expected 1 history entry, got %v", items)
	}
}

func TestSend_WithoutPreparedMessage(t *testing.T) {
	ts := newTestServer(t)
	createPatient(t, ts, "João", "+5569999990001")

	rr := ts.do(t, http.MethodPost, "/v1/patients/1/consent", `{"form":"verbal"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("consent: expected 200, got %d body=%q", rr.Code, rr.Body.String())
	}

	rr = ts.do(t, http.MethodPost, "/v1/patients/1/send", "{}")
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%q", rr.Code, rr.Body.String())
	}
	if kind := decodeJSON(t, rr)["kind"]; kind != "not_prepared" {
		t.Fatalf("kind = %v, want not_prepared", kind)
	}
}

func TestSend_MinIntervalReturns429(t *testing.T) {
	ts := newTestServer(t)
	createPatient(t, ts, "Maria", "+5569999990000")

	if rr := ts.do(t, http.MethodPost, "/v1/patients/1/consent", `{"form":"verbal"}`); rr.Code != http.StatusOK {
		t.Fatalf("consent: got %d", rr.Code)
	}
	if rr := ts.do(t, http.MethodPost, "/v1/patients/1/prepare", ""); rr.Code != http.StatusOK {
		t.Fatalf("prepare: got %d", rr.Code)
	}
	if rr := ts.do(t, http.MethodPost, "/v1/patients/1/send", "{}"); rr.Code != http.StatusOK {
		t.Fatalf("first send: got %d body=%q", rr.Code, rr.Body.String())
	}

	// Preparing again is fine, but an immediate second send hits the
	// per-number minimum interval.
	if rr := ts.do(t, http.MethodPost, "/v1/patients/1/prepare", ""); rr.Code != http.StatusOK {
		t.Fatalf("second prepare: got %d", rr.Code)
	}
	rr := ts.do(t, http.MethodPost, "/v1/patients/1/send", "{}")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d body=%q", rr.Code, rr.Body.String())
	}
	if kind := decodeJSON(t, rr)["kind"]; kind != "limit_exceeded" {
		t.Fatalf("kind = %v, want limit_exceeded", kind)
	}
}

func TestStatusTransitions(t *testing.T) {
	ts := newTestServer(t)
	createPatient(t, ts, "Maria", "+5569999990000")

	if rr := ts.do(t, http.MethodPost, "/v1/patients/1/confirm", ""); rr.Code != http.StatusOK {
		t.Fatalf("confirm: got %d body=%q", rr.Code, rr.Body.String())
	}

	rr := ts.do(t, http.MethodPost, "/v1/patients/1/reschedule", `{"date":"2026-03-20","time":"09:00"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("reschedule: got %d body=%q", rr.Code, rr.Body.String())
	}

	rr = ts.do(t, http.MethodGet, "/v1/patients/1", "")
	body := decodeJSON(t, rr)
	if body["status"] != "rescheduled" || body["appointmentDate"] != "2026-03-20" {
		t.Fatalf("unexpected patient after reschedule: %v", body)
	}

	if rr := ts.do(t, http.MethodPost, "/v1/patients/1/revert", ""); rr.Code != http.StatusOK {
		t.Fatalf("revert: got %d", rr.Code)
	}
	if rr := ts.do(t, http.MethodPost, "/v1/patients/1/no-response", ""); rr.Code != http.StatusOK {
		t.Fatalf("no-response: got %d", rr.Code)
	}

	rr = ts.do(t, http.MethodPost, "/v1/patients/1/status", `{"status":"canceled"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%q", rr.Code, rr.Body.String())
	}

	rr = ts.do(t, http.MethodPost, "/v1/patients/1/status", `{"status":"bogus"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid status: expected 400, got %d", rr.Code)
	}
}

func TestConsentEndpoints(t *testing.T) {
	ts := newTestServer(t)
	createPatient(t, ts, "Maria", "+5569999990000")

	if rr := ts.do(t, http.MethodPost, "/v1/patients/1/consent", `{"form":"written"}`); rr.Code != http.StatusOK {
		t.Fatalf("consent: got %d body=%q", rr.Code, rr.Body.String())
	}

	rr := ts.do(t, http.MethodGet, "/v1/patients/1", "")
	if body := decodeJSON(t, rr); body["consent"] != true {
		t.Fatalf("expected consent=true, got %v", body["consent"])
	}

	if rr := ts.do(t, http.MethodPost, "/v1/patients/1/consent/revoke", ""); rr.Code != http.StatusOK {
		t.Fatalf("revoke: got %d", rr.Code)
	}

	rr = ts.do(t, http.MethodGet, "/v1/patients/1", "")
	if body := decodeJSON(t, rr); body["consent"] != false {
		t.Fatalf("expected consent=false after revoke, got %v", body["consent"])
	}
}

func TestDailyReport(t *testing.T) {
	ts := newTestServer(t)
	createPatient(t, ts, "Maria", "+5569999990000")

	if rr := ts.do(t, http.MethodPost, "/v1/patients/1/confirm", ""); rr.Code != http.StatusOK {
		t.Fatalf("confirm: got %d", rr.Code)
	}

	rr := ts.do(t, http.MethodGet, "/v1/reports/daily?date=2026-03-12", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%q", rr.Code, rr.Body.String())
	}
	body := decodeJSON(t, rr)
	if body["totalPatients"].(float64) != 1 || body["confirmed"].(float64) != 1 {
		t.Fatalf("unexpected report: %v", body)
	}
}

func TestLoginAndLogout(t *testing.T) {
	ts := newTestServer(t)

	if _, err := ts.auth.CreateUser(context.Background(), "ana", "s3cret", "Ana Lima", nil, model.RoleAttendant); err != nil {
		t.Fatalf("create user: %v", err)
	}

	rr := ts.do(t, http.MethodPost, "/v1/login", `{"username":"ana","password":"s3cret"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d body=%q", rr.Code, rr.Body.String())
	}
	token, ok := decodeJSON(t, rr)["token"].(string)
	if !ok || token == "" {
		t.Fatalf("expected a token, got %q", rr.Body.String())
	}

	rr = ts.do(t, http.MethodPost, "/v1/login", `{"username":"ana","password":"wrong"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: expected 401, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/logout", nil)
	req.Header.Set("X-Session-Token", token)
	out := httptest.NewRecorder()
	ts.mux.ServeHTTP(out, req)
	if out.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d body=%q", out.Code, out.Body.String())
	}
}
