// Package handler exposes the waste-movement record store over HTTP. Routes
// mirror the upstream receipt API: single and bulk receive, partial section
// updates, and the manual audit retry.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"wastetrack/internal/movement/models"
	"wastetrack/internal/movement/service"
	"wastetrack/internal/platform/middleware"
	"wastetrack/pkg/platform/audit"
	"wastetrack/pkg/requestcontext"
	dErrors "wastetrack/pkg/domain-errors"
)

// Service defines the movement operations the transport layer depends on.
type Service interface {
	Create(ctx context.Context, req service.CreateRequest) (*service.CreateResult, error)
	Update(ctx context.Context, req service.UpdateRequest) (*service.UpdateResult, error)
	BulkCreate(ctx context.Context, req service.BulkCreateRequest) (*service.BulkCreateResult, error)
	BulkUpdate(ctx context.Context, req service.BulkUpdateRequest) (*service.BulkUpdateResult, error)
	RetryAudit(ctx context.Context, req service.RetryAuditRequest) (*audit.Event, error)
}

type Handler struct {
	logger    *slog.Logger
	movements Service

	basicAuthUser string
	basicAuthHash string
	timeout       time.Duration
}

type Option func(*Handler)

// WithBasicAuth protects every route with an HTTP basic-auth gate. An empty
// user leaves the gate open.
func WithBasicAuth(user, passwordHash string) Option {
	return func(h *Handler) {
		h.basicAuthUser = user
		h.basicAuthHash = passwordHash
	}
}

func WithTimeout(d time.Duration) Option {
	return func(h *Handler) { h.timeout = d }
}

func New(movements Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		logger:    logger,
		movements: movements,
		timeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the movement routes on the router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.TraceID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(h.timeout))
	router.Use(middleware.ContentTypeJSON)
	if h.basicAuthUser != "" {
		router.Use(middleware.BasicAuth(h.basicAuthUser, h.basicAuthHash))
	}

	router.Post("/movements/{wasteTrackingId}/receive", h.handleReceive)
	router.Put("/movements/{wasteTrackingId}/receive", h.handleUpdateReceipt)
	router.Put("/movements/{wasteTrackingId}/receive/hazardous", h.sectionHandler(models.SectionHazardous))
	router.Put("/movements/{wasteTrackingId}/receive/pops", h.sectionHandler(models.SectionPops))
	router.Post("/bulk/{bulkId}/movements/receive", h.handleBulkReceive)
	router.Put("/bulk/{bulkId}/movements/receive", h.handleBulkUpdate)
	router.Post("/movements/retry-audit-log", h.handleRetryAudit)
	router.Get("/health", h.handleHealth)

	r.Mount("/", router)
}

// movementBody is the single-record submission shape. The movement payload is
// opaque apart from its apiCode, which drives caller resolution and is
// stripped before persistence when a submitting organisation is given.
type movementBody struct {
	SubmittingOrganisation *models.SubmittingOrganisation `json:"submittingOrganisation,omitempty"`
	Movement               map[string]json.RawMessage     `json:"movement"`
}

func (b *movementBody) apiCode() string {
	var code string
	if raw, ok := b.Movement["apiCode"]; ok {
		_ = json.Unmarshal(raw, &code)
	}
	return code
}

// receipt renders the persisted payload. The apiCode is a credential, not
// movement data; it is dropped whenever the submission names its organisation
// explicitly.
func (b *movementBody) receipt() (json.RawMessage, error) {
	if b.SubmittingOrganisation != nil {
		delete(b.Movement, "apiCode")
	}
	return json.Marshal(map[string]any{"movement": b.Movement})
}

func (h *Handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trackingID := chi.URLParam(r, "wasteTrackingId")

	var body movementBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Movement == nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	apiCode := body.apiCode()
	receipt, err := body.receipt()
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid movement payload"))
		return
	}

	_, err = h.movements.Create(ctx, service.CreateRequest{
		TrackingID:             trackingID,
		APICode:                apiCode,
		TraceID:                requestcontext.TraceID(ctx),
		Receipt:                receipt,
		SubmittingOrganisation: body.SubmittingOrganisation,
	})
	if err != nil {
		h.logError(ctx, "failed to create waste input", trackingID, err)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpdateReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trackingID := chi.URLParam(r, "wasteTrackingId")

	var body movementBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Movement == nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	apiCode := body.apiCode()
	payload, err := body.receipt()
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid movement payload"))
		return
	}

	h.update(w, r, service.UpdateRequest{
		TrackingID: trackingID,
		APICode:    apiCode,
		TraceID:    requestcontext.TraceID(ctx),
		Section:    models.SectionReceipt,
		Payload:    payload,
	})
}

// sectionBody carries a partial receipt update. Only the named section of the
// receipt object is applied.
type sectionBody struct {
	APICode string                     `json:"apiCode"`
	Receipt map[string]json.RawMessage `json:"receipt"`
}

func (h *Handler) sectionHandler(section models.Section) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		trackingID := chi.URLParam(r, "wasteTrackingId")

		var body sectionBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
		payload, ok := body.Receipt[string(section)]
		if !ok {
			writeError(w, dErrors.Newf(dErrors.CodeBadRequest, "receipt.%s is required", string(section)))
			return
		}

		h.update(w, r, service.UpdateRequest{
			TrackingID: trackingID,
			APICode:    body.APICode,
			TraceID:    requestcontext.TraceID(ctx),
			Section:    section,
			Payload:    payload,
		})
	}
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, req service.UpdateRequest) {
	ctx := r.Context()
	res, err := h.movements.Update(ctx, req)
	if err != nil {
		h.logError(ctx, "failed to update waste input", req.TrackingID, err)
		writeError(w, err)
		return
	}
	if !res.Found {
		writeError(w, dErrors.New(dErrors.CodeNotFound, models.ReasonNotFound))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"wasteTrackingId": req.TrackingID,
		"revision":        res.Revision,
	})
}

type bulkCreateBody struct {
	Movements []struct {
		OrgID    string                     `json:"orgId"`
		Movement map[string]json.RawMessage `json:"movement"`
	} `json:"movements"`
}

func (h *Handler) handleBulkReceive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bulkID := chi.URLParam(r, "bulkId")

	var body bulkCreateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	items := make([]service.BulkCreateItem, 0, len(body.Movements))
	for _, m := range body.Movements {
		receipt, err := json.Marshal(map[string]any{"movement": m.Movement})
		if err != nil {
			writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid movement payload"))
			return
		}
		items = append(items, service.BulkCreateItem{OrgID: m.OrgID, Receipt: receipt})
	}

	res, err := h.movements.BulkCreate(ctx, service.BulkCreateRequest{
		BulkID:  bulkID,
		TraceID: requestcontext.TraceID(ctx),
		Items:   items,
	})
	if err != nil {
		h.logError(ctx, "failed to bulk create waste inputs", bulkID, err)
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if res.AlreadyApplied {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{"wasteTrackingIds": res.TrackingIDs})
}

type bulkUpdateBody struct {
	Movements []struct {
		TrackingID string                     `json:"wasteTrackingId"`
		Movement   map[string]json.RawMessage `json:"movement"`
	} `json:"movements"`
}

const (
	bulkStatusUpdated   = "Movements updated"
	bulkStatusUnchanged = "No movements updated"
)

func (h *Handler) handleBulkUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bulkID := chi.URLParam(r, "bulkId")

	var body bulkUpdateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	items := make([]service.BulkUpdateItem, 0, len(body.Movements))
	for _, m := range body.Movements {
		payload, err := json.Marshal(map[string]any{"movement": m.Movement})
		if err != nil {
			writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid movement payload"))
			return
		}
		items = append(items, service.BulkUpdateItem{TrackingID: m.TrackingID, Payload: payload})
	}

	res, err := h.movements.BulkUpdate(ctx, service.BulkUpdateRequest{
		BulkID:  bulkID,
		TraceID: requestcontext.TraceID(ctx),
		Items:   items,
	})
	if err != nil {
		h.logError(ctx, "failed to bulk update waste inputs", bulkID, err)
		writeError(w, err)
		return
	}

	status := bulkStatusUpdated
	if !res.Updated {
		status = bulkStatusUnchanged
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"statusCode": http.StatusOK,
		"status":     status,
	})
}

type retryAuditBody struct {
	TraceID    string `json:"traceId"`
	TrackingID string `json:"wasteTrackingId"`
	Revision   int    `json:"revision"`
}

func (h *Handler) handleRetryAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body retryAuditBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	event, err := h.movements.RetryAudit(ctx, service.RetryAuditRequest{
		TraceID:    body.TraceID,
		TrackingID: body.TrackingID,
		Revision:   body.Revision,
	})
	if err != nil {
		h.logError(ctx, "failed to retry audit event", body.TraceID, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"type":    string(event.Type),
		"traceId": event.TraceID,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) logError(ctx context.Context, msg, subject string, err error) {
	level := slog.LevelError
	if code := dErrors.CodeOf(err); code != dErrors.CodeInternal {
		level = slog.LevelWarn
	}
	h.logger.Log(ctx, level, msg,
		"subject", subject,
		"trace_id", requestcontext.TraceID(ctx),
		"error", err.Error(),
	)
}
