package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "pramaan/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseIdentityID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseIdentityID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseIdentityID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseIdentityID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, IdentityID(validUUID), id)
	})
}

// TestTypeDistinction verifies the compiler enforces type safety.
// This is a compile-time check - if this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	identityID := IdentityID(uuid.New())
	orgID := OrganizationID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ IdentityID = orgID      // compile error
	// var _ OrganizationID = identityID  // compile error

	// Verify they're distinct at runtime too
	assert.NotEqual(t, uuid.UUID(identityID), uuid.UUID(orgID))
}

// TestParseID_SecurityInvariants validates security-critical parsing rules.
// Parsing must reject attack vectors at API entry points.
func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		// Attack vectors
		{"SQL injection attempt", "'; DROP TABLE identities;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Unicode zero-width space", "550e8400​-e29b-41d4-a716-446655440000", true},

		// Edge cases
		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},

		// Valid
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseIdentityID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestAllIDTypes_ConsistentBehavior ensures all ID types have identical
// parsing behavior. Inconsistent validation across ID types could create
// security holes.
func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()
	invalidInputs := []string{"", "invalid", uuid.Nil.String()}

	t.Run("all accept valid UUID", func(t *testing.T) {
		_, errIdentity := ParseIdentityID(validUUID)
		_, errOrg := ParseOrganizationID(validUUID)
		_, errProof := ParseProofID(validUUID)
		_, errAdmin := ParseAdminID(validUUID)

		require.NoError(t, errIdentity)
		require.NoError(t, errOrg)
		require.NoError(t, errProof)
		require.NoError(t, errAdmin)
	})

	for _, input := range invalidInputs {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errIdentity := ParseIdentityID(input)
			_, errOrg := ParseOrganizationID(input)
			_, errProof := ParseProofID(input)
			_, errAdmin := ParseAdminID(input)

			require.Error(t, errIdentity)
			require.Error(t, errOrg)
			require.Error(t, errProof)
			require.Error(t, errAdmin)
		})
	}
}

// TestIDJSONRoundTrip verifies IDs render as canonical UUID strings in
// JSON, not as raw byte arrays.
func TestIDJSONRoundTrip(t *testing.T) {
	original := IdentityID(uuid.New())

	encoded, err := json.Marshal(original)
	require.NoError(t, err)
	assert.JSONEq(t, `"`+original.String()+`"`, string(encoded))

	var decoded IdentityID
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, original, decoded)

	var rejected IdentityID
	assert.Error(t, json.Unmarshal([]byte(`"not-a-uuid"`), &rejected))
}
