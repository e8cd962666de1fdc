// Package proofbackend provides the commitment and proof-of-knowledge
// capability behind enrollment and attendance issuance.
//
// The Backend seam exists so the deterministic local scheme can be replaced
// by a real zk circuit (the payload already carries the groth16/bn128 wire
// shape) without touching the enrollment, issuer, or verifier contracts.
package proofbackend

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/sha3"

	id "pramaan/pkg/domain"
)

// Sample is a canonical, feature-extracted biometric sample. Fuzzy matching
// and feature extraction happen upstream; by the time bytes reach this
// package they are deterministic for the same trait.
type Sample []byte

// Salt is a modality-specific random value generated once at enrollment,
// hex-encoded. Never rotated without re-enrollment.
type Salt string

// Commitment binds (sample, salt) such that the sample cannot be recovered
// from the commitment alone. Hex-encoded.
type Commitment string

// Nullifier is the deterministic replay-detection value derived from a
// commitment and an attendance context.
type Nullifier string

// PublicInputs is the context a proof payload asserts over.
type PublicInputs struct {
	Commitment     Commitment
	OrganizationID id.OrganizationID
	Date           id.AttendanceDate
	Type           id.AttendanceType
	IssuedAt       time.Time
}

// Payload is the cryptographic assertion, opaque to the transport layer.
// The shape matches a groth16/bn128 proof so a circuit-backed Backend can
// slot in without changing stored records.
type Payload struct {
	Protocol      string      `json:"protocol"`
	Curve         string      `json:"curve"`
	PiA           []string    `json:"pi_a"`
	PiB           [][2]string `json:"pi_b"`
	PiC           []string    `json:"pi_c"`
	PublicSignals []string    `json:"publicSignals"`
}

// Backend is the pluggable commitment/proof scheme.
type Backend interface {
	// Bind derives the commitment for a sample under a salt. Deterministic.
	Bind(sample Sample, salt Salt) (Commitment, error)
	// Prove produces a payload asserting the holder of a sample binding to
	// pub.Commitment authorized the attendance context. Fails with
	// ErrSampleMismatch when the sample does not bind to the commitment.
	Prove(sample Sample, salt Salt, pub PublicInputs) (*Payload, error)
	// Verify structurally validates a payload against the public inputs.
	// Fails with ErrMalformedPayload on any mismatch.
	Verify(payload *Payload, pub PublicInputs) error
}

// Backend outcome sentinels.
var (
	ErrSampleMismatch   = errors.New("sample does not bind to commitment")
	ErrMalformedPayload = errors.New("malformed proof payload")
)

// Config selects and parameterizes a Backend. Mode is explicit configuration,
// never ambient process state.
type Config struct {
	Mode string
}

// ModeLocal is the built-in deterministic backend.
const ModeLocal = "local"

// New constructs the configured Backend.
func New(cfg Config) (Backend, error) {
	switch cfg.Mode {
	case "", ModeLocal:
		return NewLocal(), nil
	default:
		return nil, fmt.Errorf("unknown proof backend mode %q", cfg.Mode)
	}
}

const saltBytes = 32

// NewSalt generates a fresh enrollment salt.
func NewSalt() (Salt, error) {
	buf := make([]byte, saltBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return Salt(hex.EncodeToString(buf)), nil
}

// LookupHash derives the uniqueness-lookup hash of a commitment. It is a
// plain digest of the commitment value, so it leaks no template structure
// beyond what the commitment itself already hides.
func LookupHash(c Commitment) string {
	sum := sha3.Sum256([]byte("pramaan/lookup:" + string(c)))
	return hex.EncodeToString(sum[:])
}

// DeriveNullifier derives the replay-detection value for one attendance
// action. Deterministic over (commitment, day, type): issuing the same
// action twice always collides on the nullifier.
func DeriveNullifier(c Commitment, date id.AttendanceDate, typ id.AttendanceType) Nullifier {
	h := sha3.New256()
	h.Write([]byte("pramaan/nullifier:"))
	h.Write([]byte(c))
	h.Write([]byte(":" + date.String()))
	h.Write([]byte(":" + typ.String()))
	return Nullifier(hex.EncodeToString(h.Sum(nil)))
}
