package api

import "net/http"

func Router(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", h.Health)

	mux.HandleFunc("POST /v1/login", h.Login)
	mux.HandleFunc("POST /v1/logout", h.Logout)

	mux.HandleFunc("GET /v1/patients", h.ListPatients)
	mux.HandleFunc("POST /v1/patients", h.CreatePatient)
	mux.HandleFunc("GET /v1/patients/{id}", h.GetPatient)
	mux.HandleFunc("GET /v1/patients/{id}/history", h.PatientHistory)

	mux.HandleFunc("POST /v1/patients/{id}/prepare", h.Prepare)
	mux.HandleFunc("POST /v1/patients/{id}/send", h.Send)
	mux.HandleFunc("POST /v1/patients/{id}/confirm", h.Confirm)
	mux.HandleFunc("POST /v1/patients/{id}/no-response", h.MarkNoResponse)
	mux.HandleFunc("POST /v1/patients/{id}/reschedule", h.Reschedule)
	mux.HandleFunc("POST /v1/patients/{id}/revert", h.Revert)
	mux.HandleFunc("POST /v1/patients/{id}/status", h.SetStatus)

	mux.HandleFunc("POST /v1/patients/{id}/consent", h.RecordConsent)
	mux.HandleFunc("POST /v1/patients/{id}/consent/revoke", h.RevokeConsent)

	mux.HandleFunc("GET /v1/reports/daily", h.DailyReport)
	mux.HandleFunc("GET /v1/reports/ledger", h.LedgerStats)

	mux.HandleFunc("GET /v1/scheduler/status", h.SchedulerStatus)
	mux.HandleFunc("POST /v1/scheduler/start", h.SchedulerStart)
	mux.HandleFunc("POST /v1/scheduler/stop", h.SchedulerStop)

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("titanium-clinic"))
	})

	return mux
}
