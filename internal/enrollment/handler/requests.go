package handler

import (
	"encoding/base64"

	"pramaan/internal/proofbackend"
	id "pramaan/pkg/domain"
	dErrors "pramaan/pkg/domain-errors"
)

// Raw samples arrive base64-encoded; cap the decoded size to keep binding
// work bounded.
const maxSampleBytes = 1 << 20

// EnrollRequest is the body for POST /enrollments and
// POST /enrollments/reenroll.
type EnrollRequest struct {
	IdentityID     string `json:"identity_id"`
	OrganizationID string `json:"organization_id"`
	Modality       string `json:"modality"`
	Sample         string `json:"sample"`
}

type enrollInput struct {
	identityID id.IdentityID
	orgID      id.OrganizationID
	modality   id.Modality
	sample     proofbackend.Sample
}

// Validate parses and validates the request at the trust boundary.
func (r *EnrollRequest) Validate() (*enrollInput, error) {
	identityID, err := id.ParseIdentityID(r.IdentityID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "identity_id must be a valid UUID")
	}
	orgID, err := id.ParseOrganizationID(r.OrganizationID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "organization_id must be a valid UUID")
	}
	modality, err := id.ParseModality(r.Modality)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "modality must be one of: fingerprint, face")
	}
	sample, err := decodeSample(r.Sample)
	if err != nil {
		return nil, err
	}
	return &enrollInput{
		identityID: identityID,
		orgID:      orgID,
		modality:   modality,
		sample:     sample,
	}, nil
}

// RevokeRequest is the body for POST /enrollments/revoke.
type RevokeRequest struct {
	IdentityID string `json:"identity_id"`
	Modality   string `json:"modality"`
	Reason     string `json:"reason"`
}

type revokeInput struct {
	identityID id.IdentityID
	modality   id.Modality
	reason     string
}

func (r *RevokeRequest) Validate() (*revokeInput, error) {
	identityID, err := id.ParseIdentityID(r.IdentityID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "identity_id must be a valid UUID")
	}
	modality, err := id.ParseModality(r.Modality)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "modality must be one of: fingerprint, face")
	}
	if r.Reason == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "reason is required")
	}
	return &revokeInput{identityID: identityID, modality: modality, reason: r.Reason}, nil
}

func decodeSample(encoded string) (proofbackend.Sample, error) {
	if encoded == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "sample is required")
	}
	sample, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "sample must be base64 encoded")
	}
	if len(sample) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "sample is required")
	}
	if len(sample) > maxSampleBytes {
		return nil, dErrors.New(dErrors.CodeBadRequest, "sample exceeds maximum size")
	}
	return sample, nil
}
