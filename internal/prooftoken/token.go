// Package prooftoken encodes attendance proof references as signed compact
// tokens suitable for QR rendering. A token is a pointer to a stored proof,
// never the proof itself: it carries the proof ID, a truncated organization
// reference, a minute-coarse issue timestamp and the attendance type. The
// verifier re-reads everything that matters from storage.
package prooftoken

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "pramaan/pkg/domain"
	dErrors "pramaan/pkg/domain-errors"
)

// ReasonInvalidToken is the stable reason for any undecodable token.
const ReasonInvalidToken = "invalid_token"

// orgRefLen is how many hex characters of the organization UUID the token
// exposes. Enough for a consistency check, not enough to identify the
// organization from the token alone.
const orgRefLen = 8

// Reference is the decoded content of a token.
type Reference struct {
	ProofID  id.ProofID
	OrgRef   string
	IssuedAt time.Time
	Type     id.AttendanceType
}

// Matches reports whether an organization matches the token's truncated
// reference.
func (r Reference) Matches(orgID id.OrganizationID) bool {
	return OrgRef(orgID) == r.OrgRef
}

// OrgRef truncates an organization ID to the reference carried in tokens.
func OrgRef(orgID id.OrganizationID) string {
	return uuid.UUID(orgID).String()[:orgRefLen]
}

type claims struct {
	OrgRef string `json:"org"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

// Codec signs and parses proof tokens.
type Codec struct {
	signingKey []byte
	issuer     string
}

func NewCodec(signingKey, issuer string) *Codec {
	return &Codec{signingKey: []byte(signingKey), issuer: issuer}
}

// Encode produces a signed token referencing a proof. The issue timestamp
// is truncated to the minute so tokens do not leak sub-minute timing.
func (c *Codec) Encode(proofID id.ProofID, orgID id.OrganizationID, typ id.AttendanceType, issuedAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		OrgRef: OrgRef(orgID),
		Type:   typ.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  proofID.String(),
			IssuedAt: jwt.NewNumericDate(issuedAt.UTC().Truncate(time.Minute)),
			Issuer:   c.issuer,
		},
	})
	signed, err := token.SignedString(c.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign proof token")
	}
	return signed, nil
}

// Decode parses and validates a token. It is total: any malformed, forged
// or foreign token yields the invalid_token error, never a panic or a
// partial result. Expiry is not checked here; the verifier owns expiry
// against the stored proof record.
func (c *Codec) Decode(tokenString string) (*Reference, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return c.signingKey, nil
	}, jwt.WithIssuer(c.issuer))
	if err != nil || !parsed.Valid {
		return nil, invalidToken()
	}

	cl, ok := parsed.Claims.(*claims)
	if !ok {
		return nil, invalidToken()
	}

	proofID, err := id.ParseProofID(cl.Subject)
	if err != nil {
		return nil, invalidToken()
	}
	typ, err := id.ParseAttendanceType(cl.Type)
	if err != nil {
		return nil, invalidToken()
	}
	if len(cl.OrgRef) != orgRefLen {
		return nil, invalidToken()
	}
	if cl.IssuedAt == nil {
		return nil, invalidToken()
	}

	return &Reference{
		ProofID:  proofID,
		OrgRef:   cl.OrgRef,
		IssuedAt: cl.IssuedAt.Time.UTC(),
		Type:     typ,
	}, nil
}

func invalidToken() error {
	return dErrors.NewWithReason(dErrors.CodeUnauthorized, ReasonInvalidToken, "proof token is invalid")
}

// IsInvalidToken reports whether an error is the invalid token outcome.
func IsInvalidToken(err error) bool {
	return dErrors.Reason(err) == ReasonInvalidToken
}
