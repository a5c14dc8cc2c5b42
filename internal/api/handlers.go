package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/pgup-sistemas/Titanium-clinic/internal/auth"
	"github.com/pgup-sistemas/Titanium-clinic/internal/consent"
	"github.com/pgup-sistemas/Titanium-clinic/internal/model"
	"github.com/pgup-sistemas/Titanium-clinic/internal/outreach"
	"github.com/pgup-sistemas/Titanium-clinic/internal/repo"
	"github.com/pgup-sistemas/Titanium-clinic/internal/report"
	"github.com/pgup-sistemas/Titanium-clinic/internal/scheduler"
)

type Handler struct {
	engine   *outreach.Engine
	patients repo.PatientRepository
	history  repo.HistoryRepository
	consent  *consent.Service
	reports  *report.Service
	auth     *auth.Service
	sched    *scheduler.Scheduler
}

func NewHandler(
	engine *outreach.Engine,
	patients repo.PatientRepository,
	history repo.HistoryRepository,
	consentSvc *consent.Service,
	reports *report.Service,
	authSvc *auth.Service,
	sched *scheduler.Scheduler,
) *Handler {
	return &Handler{
		engine:   engine,
		patients: patients,
		history:  history,
		consent:  consentSvc,
		reports:  reports,
		auth:     authSvc,
		sched:    sched,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}

	u, token, err := h.auth.Login(r.Context(), body.Username, body.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrUserInactive) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": err.Error()})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user": map[string]any{
			"id":       u.ID,
			"username": u.Username,
			"fullName": u.FullName,
			"role":     string(u.Role),
		},
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Session-Token")
	if token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "missing session token"})
		return
	}
	if err := h.auth.Logout(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 100)
	offset := parseInt(r.URL.Query().Get("offset"), 0)

	items, err := h.patients.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": patientViews(items)})
}

func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.patients.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, patientView(p))
}

func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name            string `json:"name"`
		Phone           string `json:"phone"`
		Email           string `json:"email"`
		AppointmentDate string `json:"appointmentDate"`
		AppointmentTime string `json:"appointmentTime"`
		ConsultType     string `json:"consultType"`
		Provider        string `json:"provider"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	if body.Name == "" || body.Phone == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "name and phone are required"})
		return
	}

	p := model.Patient{
		Name:            body.Name,
		Phone:           body.Phone,
		AppointmentDate: body.AppointmentDate,
		AppointmentTime: body.AppointmentTime,
		ConsultType:     body.ConsultType,
		Provider:        body.Provider,
		Status:          model.StatusPending,
	}
	if body.Email != "" {
		p.Email = &body.Email
	}

	id, err := h.patients.Create(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (h *Handler) PatientHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	limit := parseInt(r.URL.Query().Get("limit"), 50)

	items, err := h.history.ListByPatient(r.Context(), id, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) Prepare(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	text, err := h.engine.Prepare(r.Context(), id, operatorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": text})
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var body struct {
		ConsentOverride string `json:"consentOverride"`
	}
	// The override is optional; an empty body is fine.
	_ = json.NewDecoder(r.Body).Decode(&body)

	req := outreach.SendRequest{
		PatientID:  id,
		OperatorID: operatorID(r),
	}
	if body.ConsentOverride != "" {
		form := model.ConsentForm(body.ConsentOverride)
		req.ConsentOverride = &form
	}

	if err := h.engine.Send(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sent": true})
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.engine.Confirm)
}

func (h *Handler) MarkNoResponse(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.engine.MarkNoResponse)
}

func (h *Handler) Revert(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.engine.Revert)
}

func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var body struct {
		Date string `json:"date"`
		Time string `json:"time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Date == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "date is required"})
		return
	}

	if err := h.engine.Reschedule(r.Context(), id, body.Date, body.Time, operatorID(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	status := model.Status(body.Status)
	if !status.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid status"})
		return
	}

	if err := h.engine.SetStatus(r.Context(), id, status, operatorID(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) RecordConsent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var body struct {
		Form string `json:"form"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Form == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "form is required"})
		return
	}

	if err := h.consent.RecordConsent(r.Context(), id, model.ConsentForm(body.Form), operatorID(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) RevokeConsent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.consent.RevokeConsent(r.Context(), id, operatorID(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) DailyReport(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	d, err := h.reports.GenerateDaily(r.Context(), date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) LedgerStats(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	stats, err := h.reports.LedgerStats(r.Context(), date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "items": stats})
}

func (h *Handler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

func (h *Handler) SchedulerStart(w http.ResponseWriter, r *http.Request) {
	h.sched.Start()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

func (h *Handler) SchedulerStop(w http.ResponseWriter, r *http.Request) {
	h.sched.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64, int64) error) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := fn(r.Context(), id, operatorID(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// operatorID reads the opaque operator id sent with every mutating call.
func operatorID(r *http.Request) int64 {
	v, err := strconv.ParseInt(r.Header.Get("X-Operator-Id"), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// writeError maps engine errors to HTTP statuses. Gate denials are
// expected outcomes, not server failures.
func writeError(w http.ResponseWriter, err error) {
	var limitErr *outreach.LimitError
	var hoursErr *outreach.HoursError

	switch {
	case errors.Is(err, repo.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "não encontrado", "kind": "not_found"})
	case errors.Is(err, outreach.ErrConsentMissing):
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error(), "kind": "consent_missing"})
	case errors.Is(err, outreach.ErrNotPrepared):
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error(), "kind": "not_prepared"})
	case errors.As(err, &limitErr):
		writeJSON(w, http.StatusTooManyRequests, map[string]any{"error": limitErr.Reason, "kind": "limit_exceeded", "scope": limitErr.Scope})
	case errors.As(err, &hoursErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": hoursErr.Reason, "kind": "outside_hours"})
	case errors.Is(err, outreach.ErrStoreBusy):
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": err.Error(), "kind": "store_busy"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
	}
}

func patientView(p model.Patient) map[string]any {
	v := map[string]any{
		"id":              p.ID,
		"name":            p.Name,
		"phone":           p.Phone,
		"appointmentDate": p.AppointmentDate,
		"appointmentTime": p.AppointmentTime,
		"consultType":     p.ConsultType,
		"provider":        p.Provider,
		"status":          string(p.Status),
		"phase":           string(p.ConversationPhase),
		"consent":         p.Consent,
		"contactAttempts": p.ContactAttempts,
	}
	if p.PreparedMessage != nil {
		v["preparedMessage"] = *p.PreparedMessage
	}
	return v
}

func patientViews(ps []model.Patient) []map[string]any {
	out := make([]map[string]any, 0, len(ps))
	for _, p := range ps {
		out = append(out, patientView(p))
	}
	return out
}

func parseInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
