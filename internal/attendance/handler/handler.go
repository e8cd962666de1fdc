// Package handler exposes attendance issuance and verification over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pramaan/internal/attendance/models"
	"pramaan/internal/attendance/service"
	"pramaan/internal/platform/middleware"
	"pramaan/internal/proofbackend"
	id "pramaan/pkg/domain"
	dErrors "pramaan/pkg/domain-errors"
	"pramaan/pkg/platform/httputil"
	"pramaan/pkg/requestcontext"
)

// Issuer defines the issuance operations the handler fronts.
type Issuer interface {
	Issue(ctx context.Context, identityID id.IdentityID, orgID id.OrganizationID, typ id.AttendanceType, sample proofbackend.Sample, date id.AttendanceDate, location *models.Location) (*service.IssuedProof, error)
}

// Verifier defines the verification operations the handler fronts.
type Verifier interface {
	Verify(ctx context.Context, token string, orgID id.OrganizationID, adminID id.AdminID) (*service.VerificationResult, error)
	Summary(ctx context.Context, identityID id.IdentityID, date id.AttendanceDate) (*models.Summary, error)
}

// Handler handles attendance endpoints.
type Handler struct {
	issuer     Issuer
	verifier   Verifier
	logger     *slog.Logger
	adminToken string
}

// New creates an attendance Handler. adminToken gates the verification
// endpoint.
func New(issuer Issuer, verifier Verifier, logger *slog.Logger, adminToken string) *Handler {
	return &Handler{issuer: issuer, verifier: verifier, logger: logger, adminToken: adminToken}
}

// Register registers attendance routes on the router. The parent router
// owns the common middleware chain.
func (h *Handler) Register(r chi.Router) {
	r.Post("/attendance/proofs", h.handleIssue)
	r.Get("/attendance/summary/{identityID}", h.handleSummary)

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.AdminToken(h.adminToken, h.logger))
		admin.Post("/attendance/verify", h.handleVerify)
	})
}

// issueResponse returns the token and its envelope, never the payload.
type issueResponse struct {
	ProofID   id.ProofID        `json:"proof_id"`
	Token     string            `json:"token"`
	Type      id.AttendanceType `json:"type"`
	Date      id.AttendanceDate `json:"date"`
	ExpiresAt time.Time         `json:"expires_at"`
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	input, err := req.Validate()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	issued, err := h.issuer.Issue(ctx, input.identityID, input.orgID, input.typ, input.sample, input.date, input.location)
	if err != nil {
		h.logFailure(ctx, "proof issuance failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, issueResponse{
		ProofID:   issued.Proof.ProofID,
		Token:     issued.Token,
		Type:      issued.Proof.Type,
		Date:      issued.Proof.Date,
		ExpiresAt: issued.Proof.ExpiresAt,
	})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	input, err := req.Validate()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	adminID := requestcontext.AdminID(ctx)
	if adminID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "X-Admin-ID header is required"))
		return
	}

	result, err := h.verifier.Verify(ctx, input.token, input.orgID, adminID)
	if err != nil {
		h.logFailure(ctx, "proof verification failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identityID, err := id.ParseIdentityID(chi.URLParam(r, "identityID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "identity id must be a valid UUID"))
		return
	}

	var date id.AttendanceDate
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err = id.ParseAttendanceDate(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "date must be YYYY-MM-DD"))
			return
		}
	}

	summary, err := h.verifier.Summary(ctx, identityID, date)
	if err != nil {
		h.logFailure(ctx, "attendance summary failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, summary)
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
