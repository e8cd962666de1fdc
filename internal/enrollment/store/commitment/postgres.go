package commitment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"pramaan/internal/enrollment/models"
	"pramaan/internal/proofbackend"
	id "pramaan/pkg/domain"
	"pramaan/pkg/platform/sentinel"
	txcontext "pramaan/pkg/platform/tx"
)

// Index names from the schema; CreateIfUnique maps constraint violations
// back to the matching store error.
const (
	idxIdentityModalityActive = "uq_commitments_identity_modality_active"
	idxModalityLookupActive   = "uq_commitments_modality_lookup_active"
)

// PostgresStore persists commitments in the biometric_commitments table.
// Uniqueness is enforced by partial unique indexes over active records, so
// concurrent creations race at the database and exactly one wins.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateIfUnique(ctx context.Context, c *models.BiometricCommitment) error {
	query := `
		INSERT INTO biometric_commitments (
			id, identity_id, organization_id, modality, commitment,
			lookup_hash, salt, is_active, enrolled_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		c.ID,
		c.IdentityID.String(),
		c.OrganizationID.String(),
		c.Modality.String(),
		string(c.Commitment),
		c.LookupHash,
		string(c.Salt),
		c.IsActive,
		c.EnrolledAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			switch pqErr.Constraint {
			case idxIdentityModalityActive:
				return ErrIdentityEnrolled
			case idxModalityLookupActive:
				return ErrBiometricTaken
			}
		}
		return fmt.Errorf("insert commitment: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindActive(ctx context.Context, identityID id.IdentityID, modality id.Modality) (*models.BiometricCommitment, error) {
	query := selectColumns + `
		WHERE identity_id = $1 AND modality = $2 AND is_active
	`
	row := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query, identityID.String(), modality.String())
	record, err := scanCommitment(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find active commitment: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) FindActiveByIdentity(ctx context.Context, identityID id.IdentityID) ([]*models.BiometricCommitment, error) {
	query := selectColumns + `
		WHERE identity_id = $1 AND is_active
		ORDER BY modality
	`
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query, identityID.String())
	if err != nil {
		return nil, fmt.Errorf("find active commitments: %w", err)
	}
	defer rows.Close()

	var out []*models.BiometricCommitment
	for rows.Next() {
		record, err := scanCommitment(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan commitment: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commitments: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DeactivateActive(ctx context.Context, identityID id.IdentityID, modality id.Modality, reason string, now time.Time) (*models.BiometricCommitment, error) {
	query := `
		UPDATE biometric_commitments
		SET is_active = FALSE, deactivated_at = $3, deactivation_reason = $4
		WHERE identity_id = $1 AND modality = $2 AND is_active
		RETURNING id, identity_id, organization_id, modality, commitment,
			lookup_hash, salt, is_active, enrolled_at, deactivated_at, deactivation_reason
	`
	row := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query,
		identityID.String(), modality.String(), now, reason)
	record, err := scanCommitment(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("deactivate commitment: %w", err)
	}
	return record, nil
}

const selectColumns = `
	SELECT id, identity_id, organization_id, modality, commitment,
		lookup_hash, salt, is_active, enrolled_at, deactivated_at, deactivation_reason
	FROM biometric_commitments
`

func scanCommitment(scan func(dest ...any) error) (*models.BiometricCommitment, error) {
	var (
		record        models.BiometricCommitment
		identityRaw   string
		orgRaw        string
		modalityRaw   string
		commitmentRaw string
		saltRaw       string
		deactivatedAt sql.NullTime
		reason        sql.NullString
	)
	err := scan(
		&record.ID,
		&identityRaw,
		&orgRaw,
		&modalityRaw,
		&commitmentRaw,
		&record.LookupHash,
		&saltRaw,
		&record.IsActive,
		&record.EnrolledAt,
		&deactivatedAt,
		&reason,
	)
	if err != nil {
		return nil, err
	}

	identityID, err := id.ParseIdentityID(identityRaw)
	if err != nil {
		return nil, fmt.Errorf("stored identity id: %w", err)
	}
	orgID, err := id.ParseOrganizationID(orgRaw)
	if err != nil {
		return nil, fmt.Errorf("stored organization id: %w", err)
	}
	modality, err := id.ParseModality(modalityRaw)
	if err != nil {
		return nil, fmt.Errorf("stored modality: %w", err)
	}

	record.IdentityID = identityID
	record.OrganizationID = orgID
	record.Modality = modality
	record.Commitment = proofbackend.Commitment(commitmentRaw)
	record.Salt = proofbackend.Salt(saltRaw)
	if deactivatedAt.Valid {
		t := deactivatedAt.Time
		record.DeactivatedAt = &t
	}
	record.DeactivationReason = reason.String
	return &record, nil
}
