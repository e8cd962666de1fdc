package domain

import (
	"github.com/google/uuid"

	dErrors "pramaan/pkg/domain-errors"
)

// Typed UUID identifiers. Distinct types prevent cross-assignment at compile
// time (an IdentityID can never stand in for an OrganizationID).
//
// Construct via the Parse* functions at trust boundaries; direct casting
// bypasses validation and is reserved for internal code that already holds a
// valid uuid.UUID.
type (
	// IdentityID identifies an enrolled person.
	IdentityID uuid.UUID
	// OrganizationID identifies the organization an identity belongs to.
	OrganizationID uuid.UUID
	// ProofID identifies a single attendance proof.
	ProofID uuid.UUID
	// AdminID identifies the administrator performing a verification or
	// revocation.
	AdminID uuid.UUID
)

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}

// ParseIdentityID validates and returns an IdentityID.
func ParseIdentityID(s string) (IdentityID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return IdentityID{}, err
	}
	return IdentityID(u), nil
}

// ParseOrganizationID validates and returns an OrganizationID.
func ParseOrganizationID(s string) (OrganizationID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return OrganizationID{}, err
	}
	return OrganizationID(u), nil
}

// ParseProofID validates and returns a ProofID.
func ParseProofID(s string) (ProofID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ProofID{}, err
	}
	return ProofID(u), nil
}

// ParseAdminID validates and returns an AdminID.
func ParseAdminID(s string) (AdminID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return AdminID{}, err
	}
	return AdminID(u), nil
}

// NewProofID returns a fresh random ProofID.
func NewProofID() ProofID { return ProofID(uuid.New()) }

func (id IdentityID) String() string     { return uuid.UUID(id).String() }
func (id OrganizationID) String() string { return uuid.UUID(id).String() }
func (id ProofID) String() string        { return uuid.UUID(id).String() }
func (id AdminID) String() string        { return uuid.UUID(id).String() }

func (id IdentityID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id OrganizationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ProofID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id AdminID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }

// Text marshaling renders IDs as canonical UUID strings in JSON and
// unmarshals through the validating Parse* functions.

func (id IdentityID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id OrganizationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id ProofID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id AdminID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }

func (id *IdentityID) UnmarshalText(b []byte) error {
	parsed, err := ParseIdentityID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *OrganizationID) UnmarshalText(b []byte) error {
	parsed, err := ParseOrganizationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ProofID) UnmarshalText(b []byte) error {
	parsed, err := ParseProofID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *AdminID) UnmarshalText(b []byte) error {
	parsed, err := ParseAdminID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
