// Package handler exposes the enrollment lifecycle over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pramaan/internal/enrollment/models"
	"pramaan/internal/platform/middleware"
	"pramaan/internal/proofbackend"
	id "pramaan/pkg/domain"
	dErrors "pramaan/pkg/domain-errors"
	"pramaan/pkg/platform/httputil"
)

// Service defines the enrollment operations the handler fronts.
type Service interface {
	Enroll(ctx context.Context, identityID id.IdentityID, orgID id.OrganizationID, modality id.Modality, sample proofbackend.Sample) (*models.CommitmentHandle, error)
	ReEnroll(ctx context.Context, identityID id.IdentityID, orgID id.OrganizationID, modality id.Modality, sample proofbackend.Sample) (*models.CommitmentHandle, error)
	Revoke(ctx context.Context, identityID id.IdentityID, modality id.Modality, reason string) error
	Status(ctx context.Context, identityID id.IdentityID) ([]*models.CommitmentHandle, error)
}

// Handler handles enrollment endpoints.
type Handler struct {
	service    Service
	logger     *slog.Logger
	adminToken string
}

// New creates an enrollment Handler. adminToken gates the revocation
// endpoint.
func New(service Service, logger *slog.Logger, adminToken string) *Handler {
	return &Handler{service: service, logger: logger, adminToken: adminToken}
}

// Register registers enrollment routes on the router. The parent router
// owns the common middleware chain.
func (h *Handler) Register(r chi.Router) {
	r.Post("/enrollments", h.handleEnroll)
	r.Post("/enrollments/reenroll", h.handleReEnroll)
	r.Get("/enrollments/{identityID}", h.handleStatus)

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.AdminToken(h.adminToken, h.logger))
		admin.Post("/enrollments/revoke", h.handleRevoke)
	})
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	h.enroll(w, r, h.service.Enroll)
}

func (h *Handler) handleReEnroll(w http.ResponseWriter, r *http.Request) {
	h.enroll(w, r, h.service.ReEnroll)
}

type enrollFunc func(ctx context.Context, identityID id.IdentityID, orgID id.OrganizationID, modality id.Modality, sample proofbackend.Sample) (*models.CommitmentHandle, error)

func (h *Handler) enroll(w http.ResponseWriter, r *http.Request, fn enrollFunc) {
	ctx := r.Context()

	var req EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	input, err := req.Validate()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	handle, err := fn(ctx, input.identityID, input.orgID, input.modality, input.sample)
	if err != nil {
		h.logFailure(ctx, "enrollment failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, handle)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RevokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	input, err := req.Validate()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Revoke(ctx, input.identityID, input.modality, input.reason); err != nil {
		h.logFailure(ctx, "revocation failed", err)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identityID, err := id.ParseIdentityID(chi.URLParam(r, "identityID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "identity id must be a valid UUID"))
		return
	}

	handles, err := h.service.Status(ctx, identityID)
	if err != nil {
		h.logFailure(ctx, "enrollment status failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"enrollments": handles})
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	attrs := []any{
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	}
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, attrs...)
		return
	}
	h.logger.WarnContext(ctx, msg, attrs...)
}
