package proofbackend

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "pramaan/pkg/domain"
)

func testInputs(t *testing.T, c Commitment) PublicInputs {
	t.Helper()
	date, err := id.ParseAttendanceDate("2024-01-15")
	require.NoError(t, err)
	return PublicInputs{
		Commitment:     c,
		OrganizationID: id.OrganizationID(uuid.New()),
		Date:           date,
		Type:           id.AttendanceCheckIn,
		IssuedAt:       time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
	}
}

func TestBindDeterministic(t *testing.T) {
	backend := NewLocal()
	salt, err := NewSalt()
	require.NoError(t, err)

	c1, err := backend.Bind(Sample("fingerprint-template-1"), salt)
	require.NoError(t, err)
	c2, err := backend.Bind(Sample("fingerprint-template-1"), salt)
	require.NoError(t, err)
	assert.Equal(t, c1, c2, "same sample and salt must bind identically")

	c3, err := backend.Bind(Sample("fingerprint-template-2"), salt)
	require.NoError(t, err)
	assert.NotEqual(t, c1, c3, "different samples must not collide")

	otherSalt, err := NewSalt()
	require.NoError(t, err)
	c4, err := backend.Bind(Sample("fingerprint-template-1"), otherSalt)
	require.NoError(t, err)
	assert.NotEqual(t, c1, c4, "same sample under a fresh salt must differ")
}

func TestBindRejectsBadInput(t *testing.T) {
	backend := NewLocal()
	salt, err := NewSalt()
	require.NoError(t, err)

	_, err = backend.Bind(nil, salt)
	require.Error(t, err)

	_, err = backend.Bind(Sample("sample"), Salt("not-hex"))
	require.Error(t, err)
}

func TestProveRequiresBindingSample(t *testing.T) {
	backend := NewLocal()
	salt, err := NewSalt()
	require.NoError(t, err)
	commitment, err := backend.Bind(Sample("enrolled"), salt)
	require.NoError(t, err)

	_, err = backend.Prove(Sample("someone else"), salt, testInputs(t, commitment))
	require.ErrorIs(t, err, ErrSampleMismatch)

	payload, err := backend.Prove(Sample("enrolled"), salt, testInputs(t, commitment))
	require.NoError(t, err)
	assert.Equal(t, "groth16", payload.Protocol)
	assert.Equal(t, "bn128", payload.Curve)
	assert.Len(t, payload.PiA, 2)
	assert.Len(t, payload.PiB, 2)
	assert.Len(t, payload.PiC, 2)
}

func TestVerifyBindsContext(t *testing.T) {
	backend := NewLocal()
	salt, err := NewSalt()
	require.NoError(t, err)
	commitment, err := backend.Bind(Sample("enrolled"), salt)
	require.NoError(t, err)
	pub := testInputs(t, commitment)

	payload, err := backend.Prove(Sample("enrolled"), salt, pub)
	require.NoError(t, err)
	require.NoError(t, backend.Verify(payload, pub))

	t.Run("rejects wrong organization", func(t *testing.T) {
		other := pub
		other.OrganizationID = id.OrganizationID(uuid.New())
		assert.ErrorIs(t, backend.Verify(payload, other), ErrMalformedPayload)
	})

	t.Run("rejects wrong attendance type", func(t *testing.T) {
		other := pub
		other.Type = id.AttendanceCheckOut
		assert.ErrorIs(t, backend.Verify(payload, other), ErrMalformedPayload)
	})

	t.Run("rejects truncated payload", func(t *testing.T) {
		broken := *payload
		broken.PiC = broken.PiC[:1]
		assert.ErrorIs(t, backend.Verify(&broken, pub), ErrMalformedPayload)
	})

	t.Run("rejects non-hex group elements", func(t *testing.T) {
		broken := *payload
		broken.PiA = []string{"0xzz", payload.PiA[1]}
		assert.ErrorIs(t, backend.Verify(&broken, pub), ErrMalformedPayload)
	})

	t.Run("rejects nil payload", func(t *testing.T) {
		assert.ErrorIs(t, backend.Verify(nil, pub), ErrMalformedPayload)
	})
}

func TestDeriveNullifierStableAndContextual(t *testing.T) {
	date, err := id.ParseAttendanceDate("2024-01-15")
	require.NoError(t, err)
	nextDay, err := id.ParseAttendanceDate("2024-01-16")
	require.NoError(t, err)

	n1 := DeriveNullifier("c1", date, id.AttendanceCheckIn)
	n2 := DeriveNullifier("c1", date, id.AttendanceCheckIn)
	assert.Equal(t, n1, n2)

	assert.NotEqual(t, n1, DeriveNullifier("c1", date, id.AttendanceCheckOut))
	assert.NotEqual(t, n1, DeriveNullifier("c1", nextDay, id.AttendanceCheckIn))
	assert.NotEqual(t, n1, DeriveNullifier("c2", date, id.AttendanceCheckIn))
}

func TestLookupHashHidesCommitment(t *testing.T) {
	h := LookupHash("commitment-value")
	assert.Len(t, h, 64)
	assert.NotContains(t, h, "commitment")
	assert.Equal(t, h, LookupHash("commitment-value"))
	assert.NotEqual(t, h, LookupHash("other-value"))
}

func TestNewSelectsBackend(t *testing.T) {
	b, err := New(Config{Mode: ModeLocal})
	require.NoError(t, err)
	assert.IsType(t, &Local{}, b)

	b, err = New(Config{})
	require.NoError(t, err)
	assert.IsType(t, &Local{}, b)

	_, err = New(Config{Mode: "snark"})
	require.Error(t, err)
}
