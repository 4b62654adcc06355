package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/draftea/saga-system/orchestrator-service/application"
	"github.com/draftea/saga-system/orchestrator-service/domain"
	"github.com/draftea/saga-system/shared/models"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

// StartSagaRequest is the body of POST /sagas
type StartSagaRequest struct {
	Type string         `json:"type"`
	Data models.Payload `json:"data"`
}

// CompleteStepRequest is the body of the step completion callback
type CompleteStepRequest struct {
	Result models.Payload `json:"result"`
}

// FailStepRequest is the body of the step failure callback
type FailStepRequest struct {
	Error string `json:"error"`
}

// CancelSagaRequest is the body of POST /sagas/{id}/cancel
type CancelSagaRequest struct {
	Reason string `json:"reason"`
}

// SagaHandlers contains saga HTTP handlers
type SagaHandlers struct {
	orchestrator    *application.Orchestrator
	getSagaStatus   *application.GetSagaStatus
	getSagaHistory  *application.GetSagaHistory
	getSagaJournal  *application.GetSagaJournal
	cleanupOldSagas *application.CleanupOldSagas
}

// NewSagaHandlers creates new saga handlers
func NewSagaHandlers(
	orchestrator *application.Orchestrator,
	getSagaStatus *application.GetSagaStatus,
	getSagaHistory *application.GetSagaHistory,
	getSagaJournal *application.GetSagaJournal,
	cleanupOldSagas *application.CleanupOldSagas,
) *SagaHandlers {
	return &SagaHandlers{
		orchestrator:    orchestrator,
		getSagaStatus:   getSagaStatus,
		getSagaHistory:  getSagaHistory,
		getSagaJournal:  getSagaJournal,
		cleanupOldSagas: cleanupOldSagas,
	}
}

// StartSaga handles saga creation requests
func (h *SagaHandlers) StartSaga(w http.ResponseWriter, r *http.Request) {
	var req StartSagaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	handle, err := h.orchestrator.StartSaga(r.Context(), req.Type, req.Data)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, handle)
}

// GetSaga handles saga status requests
func (h *SagaHandlers) GetSaga(w http.ResponseWriter, r *http.Request) {
	response, err := h.getSagaStatus.Execute(r.Context(), &application.GetSagaStatusQuery{
		SagaID: chi.URLParam(r, "id"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// ListSagas handles saga history requests
func (h *SagaHandlers) ListSagas(w http.ResponseWriter, r *http.Request) {
	query := &application.GetSagaHistoryQuery{}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		query.Limit = limit
	}

	response, err := h.getSagaHistory.Execute(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// GetSagaEvents handles saga journal requests
func (h *SagaHandlers) GetSagaEvents(w http.ResponseWriter, r *http.Request) {
	response, err := h.getSagaJournal.Execute(r.Context(), &application.GetSagaJournalQuery{
		SagaID: chi.URLParam(r, "id"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// ListJournal handles journal queries by event type across sagas
func (h *SagaHandlers) ListJournal(w http.ResponseWriter, r *http.Request) {
	query := &application.ListJournalByTypeQuery{EventType: r.URL.Query().Get("type")}
	for param, target := range map[string]*int{"offset": &query.Offset, "limit": &query.Limit} {
		raw := r.URL.Query().Get(param)
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "Invalid "+param, http.StatusBadRequest)
			return
		}
		*target = value
	}

	response, err := h.getSagaJournal.ListByType(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// CompleteStep handles step completion callbacks
func (h *SagaHandlers) CompleteStep(w http.ResponseWriter, r *http.Request) {
	sagaID, stepID, ok := pathIDs(w, r)
	if !ok {
		return
	}

	var req CompleteStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	outcome, err := h.orchestrator.CompleteStep(r.Context(), sagaID, stepID, req.Result)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

// FailStep handles step failure callbacks
func (h *SagaHandlers) FailStep(w http.ResponseWriter, r *http.Request) {
	sagaID, stepID, ok := pathIDs(w, r)
	if !ok {
		return
	}

	var req FailStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Error == "" {
		http.Error(w, "Failure reason is required", http.StatusBadRequest)
		return
	}

	outcome, err := h.orchestrator.FailStep(r.Context(), sagaID, stepID, req.Error)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

// CancelSaga handles saga cancellation requests. An empty body cancels with the default reason.
func (h *SagaHandlers) CancelSaga(w http.ResponseWriter, r *http.Request) {
	sagaID, err := models.NewID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid saga ID", http.StatusBadRequest)
		return
	}

	var req CancelSagaRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	outcome, err := h.orchestrator.CancelSaga(r.Context(), sagaID, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

// CleanupSagas handles retention cleanup requests
func (h *SagaHandlers) CleanupSagas(w http.ResponseWriter, r *http.Request) {
	days, err := strconv.Atoi(r.URL.Query().Get("older_than_days"))
	if err != nil {
		http.Error(w, "older_than_days is required", http.StatusBadRequest)
		return
	}

	response, err := h.cleanupOldSagas.Execute(r.Context(), &application.CleanupOldSagasCommand{OlderThanDays: days})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// RegisterRoutes registers saga routes
func (h *SagaHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/sagas", func(r chi.Router) {
		r.Post("/", h.StartSaga)
		r.Get("/", h.ListSagas)
		r.Delete("/", h.CleanupSagas)
		r.Get("/events", h.ListJournal)
		r.Get("/{id}", h.GetSaga)
		r.Get("/{id}/events", h.GetSagaEvents)
		r.Post("/{id}/cancel", h.CancelSaga)
		r.Post("/{id}/steps/{stepId}/complete", h.CompleteStep)
		r.Post("/{id}/steps/{stepId}/fail", h.FailStep)
	})
}

func pathIDs(w http.ResponseWriter, r *http.Request) (models.ID, models.ID, bool) {
	sagaID, err := models.NewID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid saga ID", http.StatusBadRequest)
		return "", "", false
	}
	stepID, err := models.NewID(chi.URLParam(r, "stepId"))
	if err != nil {
		http.Error(w, "Invalid step ID", http.StatusBadRequest)
		return "", "", false
	}
	return sagaID, stepID, true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSagaNotFound), errors.Is(err, domain.ErrStepNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrUnknownSagaType), errors.Is(err, domain.ErrInvalidPayload):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrConcurrentModification):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
