package proof

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"pramaan/internal/attendance/models"
	"pramaan/internal/proofbackend"
	id "pramaan/pkg/domain"
	"pramaan/pkg/platform/sentinel"
	txcontext "pramaan/pkg/platform/tx"
)

// Constraint names from the schema; CreateIfSlotFree maps violations back
// to the matching store error.
const (
	constraintSlot      = "uq_proofs_slot"
	constraintNullifier = "uq_proofs_nullifier"
)

// PostgresStore persists proofs in the attendance_proofs table. Slot and
// nullifier uniqueness are table constraints; the verification transition
// is a conditional UPDATE so concurrent verifiers race at the database and
// at most one wins.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateIfSlotFree(ctx context.Context, p *models.AttendanceProof) error {
	payload, err := json.Marshal(p.Payload)
	if err != nil {
		return fmt.Errorf("marshal proof payload: %w", err)
	}

	var lat, lng, accuracy sql.NullFloat64
	if p.Location != nil {
		lat = sql.NullFloat64{Float64: p.Location.Latitude, Valid: true}
		lng = sql.NullFloat64{Float64: p.Location.Longitude, Valid: true}
		accuracy = sql.NullFloat64{Float64: p.Location.Accuracy, Valid: true}
	}

	query := `
		INSERT INTO attendance_proofs (
			proof_id, identity_id, organization_id, attendance_date, attendance_type,
			payload, nullifier, issued_at, expires_at, latitude, longitude, accuracy,
			is_verified
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, FALSE)
	`
	_, err = txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(p.ProofID),
		p.IdentityID.String(),
		p.OrganizationID.String(),
		p.Date.Time(),
		p.Type.String(),
		payload,
		string(p.Nullifier),
		p.IssuedAt,
		p.ExpiresAt,
		lat,
		lng,
		accuracy,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			switch pqErr.Constraint {
			case constraintSlot:
				return ErrSlotTaken
			case constraintNullifier:
				return ErrNullifierTaken
			}
		}
		return fmt.Errorf("insert proof: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, proofID id.ProofID) (*models.AttendanceProof, error) {
	query := selectColumns + `
		WHERE proof_id = $1
	`
	row := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(proofID))
	record, err := scanProof(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find proof: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) HasVerifiedCheckIn(ctx context.Context, identityID id.IdentityID, date id.AttendanceDate) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM attendance_proofs
			WHERE identity_id = $1 AND attendance_date = $2
			  AND attendance_type = $3 AND is_verified
		)
	`
	var exists bool
	err := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query,
		identityID.String(), date.Time(), id.AttendanceCheckIn.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check verified check-in: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) FindByIdentityAndDate(ctx context.Context, identityID id.IdentityID, date id.AttendanceDate) ([]*models.AttendanceProof, error) {
	query := selectColumns + `
		WHERE identity_id = $1 AND attendance_date = $2
		ORDER BY issued_at
	`
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query, identityID.String(), date.Time())
	if err != nil {
		return nil, fmt.Errorf("find proofs by date: %w", err)
	}
	defer rows.Close()

	var out []*models.AttendanceProof
	for rows.Next() {
		record, err := scanProof(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan proof: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate proofs: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) MarkVerified(ctx context.Context, proofID id.ProofID, adminID id.AdminID, now time.Time) (*models.AttendanceProof, error) {
	query := `
		UPDATE attendance_proofs
		SET is_verified = TRUE, verified_at = $2, verified_by = $3
		WHERE proof_id = $1 AND NOT is_verified
		RETURNING proof_id, identity_id, organization_id, attendance_date, attendance_type,
			payload, nullifier, issued_at, expires_at, latitude, longitude, accuracy,
			is_verified, verified_at, verified_by
	`
	var verifiedBy any
	if !adminID.IsNil() {
		verifiedBy = uuid.UUID(adminID)
	}
	row := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(proofID), now, verifiedBy)
	record, err := scanProof(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Either unknown or already verified; one more read tells
			// them apart.
			if _, findErr := s.FindByID(ctx, proofID); findErr != nil {
				return nil, findErr
			}
			return nil, ErrAlreadyVerified
		}
		return nil, fmt.Errorf("mark proof verified: %w", err)
	}
	return record, nil
}

const selectColumns = `
	SELECT proof_id, identity_id, organization_id, attendance_date, attendance_type,
		payload, nullifier, issued_at, expires_at, latitude, longitude, accuracy,
		is_verified, verified_at, verified_by
	FROM attendance_proofs
`

func scanProof(scan func(dest ...any) error) (*models.AttendanceProof, error) {
	var (
		record      models.AttendanceProof
		proofRaw    uuid.UUID
		identityRaw string
		orgRaw      string
		dateRaw     time.Time
		typeRaw     string
		payloadRaw  []byte
		nullifier   string
		lat         sql.NullFloat64
		lng         sql.NullFloat64
		accuracy    sql.NullFloat64
		verifiedAt  sql.NullTime
		verifiedBy  *uuid.UUID
	)
	err := scan(
		&proofRaw,
		&identityRaw,
		&orgRaw,
		&dateRaw,
		&typeRaw,
		&payloadRaw,
		&nullifier,
		&record.IssuedAt,
		&record.ExpiresAt,
		&lat,
		&lng,
		&accuracy,
		&record.IsVerified,
		&verifiedAt,
		&verifiedBy,
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
	typ, err := id.ParseAttendanceType(typeRaw)
	if err != nil {
		return nil, fmt.Errorf("stored attendance type: %w", err)
	}
	var payload proofbackend.Payload
	if err := json.Unmarshal(payloadRaw, &payload); err != nil {
		return nil, fmt.Errorf("stored proof payload: %w", err)
	}

	record.ProofID = id.ProofID(proofRaw)
	record.IdentityID = identityID
	record.OrganizationID = orgID
	record.Date = id.NewAttendanceDate(dateRaw)
	record.Type = typ
	record.Payload = &payload
	record.Nullifier = proofbackend.Nullifier(nullifier)
	if lat.Valid && lng.Valid {
		record.Location = &models.Location{
			Latitude:  lat.Float64,
			Longitude: lng.Float64,
			Accuracy:  accuracy.Float64,
		}
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		record.VerifiedAt = &t
	}
	if verifiedBy != nil {
		record.VerifiedBy = id.AdminID(*verifiedBy)
	}
	return &record, nil
}

// PostgresNullifiers records consumed nullifiers in consumed_nullifiers.
// Consumption joins the verification transaction via the context.
type PostgresNullifiers struct {
	db *sql.DB
}

func NewPostgresNullifiers(db *sql.DB) *PostgresNullifiers {
	return &PostgresNullifiers{db: db}
}

func (s *PostgresNullifiers) Consume(ctx context.Context, nullifier proofbackend.Nullifier, proofID id.ProofID, now time.Time) error {
	query := `
		INSERT INTO consumed_nullifiers (nullifier, proof_id, consumed_at)
		VALUES ($1, $2, $3)
	`
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query, string(nullifier), uuid.UUID(proofID), now)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("consume nullifier: %w", err)
	}
	return nil
}
