package handler

import (
	"encoding/base64"

	"pramaan/internal/attendance/models"
	"pramaan/internal/proofbackend"
	id "pramaan/pkg/domain"
	dErrors "pramaan/pkg/domain-errors"
)

const maxSampleBytes = 1 << 20

// IssueRequest is the body for POST /attendance/proofs. Date is optional
// and defaults to the current UTC day.
type IssueRequest struct {
	IdentityID     string           `json:"identity_id"`
	OrganizationID string           `json:"organization_id"`
	Type           string           `json:"type"`
	Sample         string           `json:"sample"`
	Date           string           `json:"date,omitempty"`
	Location       *LocationRequest `json:"location,omitempty"`
}

// LocationRequest is the optional capture location on an issue request.
type LocationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

type issueInput struct {
	identityID id.IdentityID
	orgID      id.OrganizationID
	typ        id.AttendanceType
	sample     proofbackend.Sample
	date       id.AttendanceDate
	location   *models.Location
}

// Validate parses and validates the request at the trust boundary.
func (r *IssueRequest) Validate() (*issueInput, error) {
	identityID, err := id.ParseIdentityID(r.IdentityID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "identity_id must be a valid UUID")
	}
	orgID, err := id.ParseOrganizationID(r.OrganizationID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "organization_id must be a valid UUID")
	}
	typ, err := id.ParseAttendanceType(r.Type)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "type must be one of: checkIn, checkOut")
	}
	sample, err := decodeSample(r.Sample)
	if err != nil {
		return nil, err
	}

	var date id.AttendanceDate
	if r.Date != "" {
		date, err = id.ParseAttendanceDate(r.Date)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeBadRequest, "date must be YYYY-MM-DD")
		}
	}

	var location *models.Location
	if r.Location != nil {
		if r.Location.Latitude < -90 || r.Location.Latitude > 90 {
			return nil, dErrors.New(dErrors.CodeBadRequest, "latitude out of range")
		}
		if r.Location.Longitude < -180 || r.Location.Longitude > 180 {
			return nil, dErrors.New(dErrors.CodeBadRequest, "longitude out of range")
		}
		location = &models.Location{
			Latitude:  r.Location.Latitude,
			Longitude: r.Location.Longitude,
			Accuracy:  r.Location.Accuracy,
		}
	}

	return &issueInput{
		identityID: identityID,
		orgID:      orgID,
		typ:        typ,
		sample:     sample,
		date:       date,
		location:   location,
	}, nil
}

// VerifyRequest is the body for POST /attendance/verify. The acting admin
// arrives via headers, not the body.
type VerifyRequest struct {
	Token          string `json:"token"`
	OrganizationID string `json:"organization_id"`
}

type verifyInput struct {
	token string
	orgID id.OrganizationID
}

func (r *VerifyRequest) Validate() (*verifyInput, error) {
	if r.Token == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "token is required")
	}
	orgID, err := id.ParseOrganizationID(r.OrganizationID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "organization_id must be a valid UUID")
	}
	return &verifyInput{token: r.Token, orgID: orgID}, nil
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
