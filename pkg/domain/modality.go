package domain

import dErrors "pramaan/pkg/domain-errors"

// Modality is the biometric trait a commitment binds.
// Invariant: the value must be one of the supported modalities.
//
// Usage: construct via ParseModality at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type Modality string

// Supported biometric modalities.
const (
	ModalityFingerprint Modality = "fingerprint"
	ModalityFace        Modality = "face"
)

var validModalities = map[Modality]bool{
	ModalityFingerprint: true,
	ModalityFace:        true,
}

// ParseModality constructs a Modality from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseModality(s string) (Modality, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "modality cannot be empty")
	}
	m := Modality(s)
	if !m.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid modality")
	}
	return m, nil
}

// IsValid checks if the modality is one of the supported enum values.
func (m Modality) IsValid() bool {
	return validModalities[m]
}

func (m Modality) String() string { return string(m) }
