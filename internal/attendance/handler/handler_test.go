package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pramaan/internal/attendance/service"
	"pramaan/internal/attendance/store/proof"
	enrollmodels "pramaan/internal/enrollment/models"
	"pramaan/internal/enrollment/store/commitment"
	"pramaan/internal/proofbackend"
	"pramaan/internal/prooftoken"
	id "pramaan/pkg/domain"
)

const adminToken = "secret-token"

type routerFixture struct {
	router      chi.Router
	commitments *commitment.InMemory
	backend     proofbackend.Backend
}

func newAttendanceRouter(t *testing.T) *routerFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	proofs := proof.NewInMemory()
	commitments := commitment.NewInMemory()
	backend := proofbackend.NewLocal()
	codec := prooftoken.NewCodec("handler-test-key", "pramaan")

	issuer := service.NewIssuer(proofs, commitments, backend, codec, 5*time.Minute)
	verifier := service.NewVerifier(proofs, proof.NewInMemoryNullifiers(), commitments, backend, codec)
	h := New(issuer, verifier, logger, adminToken)

	r := chi.NewRouter()
	h.Register(r)
	return &routerFixture{router: r, commitments: commitments, backend: backend}
}

// enroll seeds an active commitment directly in the store.
func (f *routerFixture) enroll(t *testing.T, identityID, orgID, sample string) {
	t.Helper()

	parsedIdentity, err := uuid.Parse(identityID)
	require.NoError(t, err)
	parsedOrg, err := uuid.Parse(orgID)
	require.NoError(t, err)

	salt, err := proofbackend.NewSalt()
	require.NoError(t, err)
	bound, err := f.backend.Bind(proofbackend.Sample(sample), salt)
	require.NoError(t, err)

	record, err := enrollmodels.NewBiometricCommitment(
		id.IdentityID(parsedIdentity),
		id.OrganizationID(parsedOrg),
		id.ModalityFingerprint,
		bound,
		salt,
		time.Now().UTC(),
	)
	require.NoError(t, err)
	require.NoError(t, f.commitments.CreateIfUnique(context.Background(), record))
}

func (f *routerFixture) issueToken(t *testing.T, identityID, orgID, typ, sample string) (proofID, token string) {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/attendance/proofs", issueBody(t, identityID, orgID, typ, sample), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ProofID string `json:"proof_id"`
		Token   string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.ProofID, resp.Token
}

func (f *routerFixture) do(t *testing.T, method, path string, body *bytes.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, body)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func issueBody(t *testing.T, identityID, orgID, typ, sample string) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(IssueRequest{
		IdentityID:     identityID,
		OrganizationID: orgID,
		Type:           typ,
		Sample:         base64.StdEncoding.EncodeToString([]byte(sample)),
	})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func verifyBody(t *testing.T, token, orgID string) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(VerifyRequest{Token: token, OrganizationID: orgID})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func adminHeaders(adminID string) map[string]string {
	return map[string]string{
		"X-Admin-Token": adminToken,
		"X-Admin-ID":    adminID,
	}
}

func TestIssueEndpoint(t *testing.T) {
	f := newAttendanceRouter(t)
	identityID := uuid.NewString()
	orgID := uuid.NewString()
	f.enroll(t, identityID, orgID, "sample-a")

	rec := f.do(t, http.MethodPost, "/attendance/proofs", issueBody(t, identityID, orgID, "checkIn", "sample-a"), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		ProofID   string    `json:"proof_id"`
		Token     string    `json:"token"`
		Type      string    `json:"type"`
		Date      string    `json:"date"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.ProofID)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "checkIn", resp.Type)
	assert.NotEmpty(t, resp.Date)
	assert.False(t, resp.ExpiresAt.IsZero())

	// The token envelope must never carry the proof payload.
	assert.NotContains(t, rec.Body.String(), "pi_a")
	assert.NotContains(t, rec.Body.String(), "nullifier")
}

func TestIssueEndpointRejections(t *testing.T) {
	f := newAttendanceRouter(t)
	identityID := uuid.NewString()
	orgID := uuid.NewString()

	t.Run("unenrolled identity gets 404", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/attendance/proofs", issueBody(t, identityID, orgID, "checkIn", "sample-a"), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	f.enroll(t, identityID, orgID, "sample-a")

	t.Run("wrong sample gets 400", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/attendance/proofs", issueBody(t, identityID, orgID, "checkIn", "wrong"), nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var errResp struct {
			Reason string `json:"reason"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
		assert.Equal(t, service.ReasonSampleMismatch, errResp.Reason)
	})

	t.Run("duplicate slot gets 409", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/attendance/proofs", issueBody(t, identityID, orgID, "checkIn", "sample-a"), nil)
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = f.do(t, http.MethodPost, "/attendance/proofs", issueBody(t, identityID, orgID, "checkIn", "sample-a"), nil)
		assert.Equal(t, http.StatusConflict, rec.Code)

		var errResp struct {
			Reason string `json:"reason"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
		assert.Equal(t, service.ReasonDuplicateAttendance, errResp.Reason)
	})

	t.Run("check-out before verified check-in gets 409", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/attendance/proofs", issueBody(t, identityID, orgID, "checkOut", "sample-a"), nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestIssueEndpointValidation(t *testing.T) {
	f := newAttendanceRouter(t)

	cases := []struct {
		name string
		body IssueRequest
	}{
		{"missing identity", IssueRequest{OrganizationID: uuid.NewString(), Type: "checkIn", Sample: "c2FtcGxl"}},
		{"bad type", IssueRequest{IdentityID: uuid.NewString(), OrganizationID: uuid.NewString(), Type: "lunch", Sample: "c2FtcGxl"}},
		{"missing sample", IssueRequest{IdentityID: uuid.NewString(), OrganizationID: uuid.NewString(), Type: "checkIn"}},
		{"bad date", IssueRequest{IdentityID: uuid.NewString(), OrganizationID: uuid.NewString(), Type: "checkIn", Sample: "c2FtcGxl", Date: "03/02/2026"}},
		{"bad latitude", IssueRequest{IdentityID: uuid.NewString(), OrganizationID: uuid.NewString(), Type: "checkIn", Sample: "c2FtcGxl", Location: &LocationRequest{Latitude: 120}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, err := json.Marshal(tc.body)
			require.NoError(t, err)

			rec := f.do(t, http.MethodPost, "/attendance/proofs", bytes.NewReader(body), nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestVerifyEndpoint(t *testing.T) {
	f := newAttendanceRouter(t)
	identityID := uuid.NewString()
	orgID := uuid.NewString()
	adminID := uuid.NewString()
	f.enroll(t, identityID, orgID, "sample-a")
	proofID, token := f.issueToken(t, identityID, orgID, "checkIn", "sample-a")

	rec := f.do(t, http.MethodPost, "/attendance/verify", verifyBody(t, token, orgID), adminHeaders(adminID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		ProofID    string    `json:"proof_id"`
		IdentityID string    `json:"identity_id"`
		Type       string    `json:"type"`
		VerifiedAt time.Time `json:"verified_at"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, proofID, resp.ProofID)
	assert.Equal(t, identityID, resp.IdentityID)
	assert.Equal(t, "checkIn", resp.Type)
	assert.False(t, resp.VerifiedAt.IsZero())
}

func TestVerifyEndpointGating(t *testing.T) {
	f := newAttendanceRouter(t)
	identityID := uuid.NewString()
	orgID := uuid.NewString()
	f.enroll(t, identityID, orgID, "sample-a")
	_, token := f.issueToken(t, identityID, orgID, "checkIn", "sample-a")

	t.Run("missing admin token gets 403", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/attendance/verify", verifyBody(t, token, orgID), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing admin id gets 400", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/attendance/verify", verifyBody(t, token, orgID),
			map[string]string{"X-Admin-Token": adminToken})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestVerifyEndpointFailureMapping(t *testing.T) {
	f := newAttendanceRouter(t)
	identityID := uuid.NewString()
	orgID := uuid.NewString()
	adminID := uuid.NewString()
	f.enroll(t, identityID, orgID, "sample-a")
	_, token := f.issueToken(t, identityID, orgID, "checkIn", "sample-a")

	t.Run("garbage token gets 401", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/attendance/verify", verifyBody(t, "garbage", orgID), adminHeaders(adminID))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("foreign organization gets 403", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/attendance/verify", verifyBody(t, token, uuid.NewString()), adminHeaders(adminID))
		assert.Equal(t, http.StatusForbidden, rec.Code)

		var errResp struct {
			Reason string `json:"reason"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
		assert.Equal(t, service.ReasonOrganizationMismatch, errResp.Reason)
	})

	t.Run("second scan gets 409", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/attendance/verify", verifyBody(t, token, orgID), adminHeaders(adminID))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(t, http.MethodPost, "/attendance/verify", verifyBody(t, token, orgID), adminHeaders(adminID))
		assert.Equal(t, http.StatusConflict, rec.Code)

		var errResp struct {
			Reason string `json:"reason"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
		assert.Equal(t, service.ReasonAlreadyVerified, errResp.Reason)
	})
}

func TestSummaryEndpoint(t *testing.T) {
	f := newAttendanceRouter(t)
	identityID := uuid.NewString()
	orgID := uuid.NewString()
	adminID := uuid.NewString()
	f.enroll(t, identityID, orgID, "sample-a")
	_, token := f.issueToken(t, identityID, orgID, "checkIn", "sample-a")

	rec := f.do(t, http.MethodPost, "/attendance/verify", verifyBody(t, token, orgID), adminHeaders(adminID))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/attendance/summary/"+identityID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		IdentityID string `json:"identity_id"`
		CheckIn    *struct {
			Verified bool `json:"verified"`
		} `json:"check_in"`
		CheckOut *json.RawMessage `json:"check_out"`
		Complete bool             `json:"complete"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, identityID, resp.IdentityID)
	require.NotNil(t, resp.CheckIn)
	assert.True(t, resp.CheckIn.Verified)
	assert.Nil(t, resp.CheckOut)
	assert.False(t, resp.Complete)
}

func TestSummaryEndpointValidation(t *testing.T) {
	f := newAttendanceRouter(t)

	rec := f.do(t, http.MethodGet, "/attendance/summary/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/attendance/summary/"+uuid.NewString()+"?date=yesterday", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
