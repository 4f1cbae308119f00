// Package records is the data-access layer for patient chart summaries. It
// is the codec's consumer: classified fields are encrypted before every
// write and decrypted after every read, and each mutation is audited
// fail-closed through the same recorder the policy engine uses.
package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"carelock/internal/audit"
	"carelock/internal/domain"
	"carelock/internal/phi"
	"carelock/pkg/platform/sentinel"
	"carelock/pkg/requestcontext"
)

// Codec seals and digests classified fields. Satisfied by *phi.Codec.
type Codec interface {
	Encrypt(plaintext string) (phi.EncryptedValue, error)
	Decrypt(value phi.EncryptedValue) (string, error)
	Hash(identifier string) phi.HashedValue
}

// Recorder audits record mutations.
type Recorder interface {
	Record(ctx context.Context, event audit.Event) (domain.AuditEntry, error)
}

// Store persists patient records in postgres via pgx.
type Store struct {
	pool     *pgxpool.Pool
	codec    Codec
	recorder Recorder
}

func NewStore(pool *pgxpool.Pool, codec Codec, recorder Recorder) *Store {
	return &Store{pool: pool, codec: codec, recorder: recorder}
}

// Schema for the patient records table. Classified columns hold codec
// output, never plaintext.
const Schema = `
CREATE TABLE IF NOT EXISTS patient_records (
	id               UUID PRIMARY KEY,
	patient_id       TEXT NOT NULL,
	institution_id   TEXT NOT NULL,
	first_name_enc   TEXT NOT NULL,
	last_name_enc    TEXT NOT NULL,
	national_id_enc  TEXT NOT NULL,
	national_id_hash TEXT NOT NULL,
	diagnosis_enc    TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS patient_records_patient ON patient_records (patient_id);
CREATE UNIQUE INDEX IF NOT EXISTS patient_records_national_id_hash ON patient_records (national_id_hash);
`

// EnsureSchema creates the records table when it does not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure records schema: %w", err)
	}
	return nil
}

// sealed is the at-rest form of a record's classified fields.
type sealed struct {
	firstName  phi.EncryptedValue
	lastName   phi.EncryptedValue
	nationalID phi.EncryptedValue
	idHash     phi.HashedValue
	diagnosis  phi.EncryptedValue
}

// seal encrypts every classified field. Any codec failure aborts the write;
// a record must never be stored with a plaintext classified field.
func (s *Store) seal(record PatientRecord) (sealed, error) {
	var out sealed
	var err error
	if out.firstName, err = s.codec.Encrypt(record.FirstName); err != nil {
		return sealed{}, fmt.Errorf("seal first_name: %w", err)
	}
	if out.lastName, err = s.codec.Encrypt(record.LastName); err != nil {
		return sealed{}, fmt.Errorf("seal last_name: %w", err)
	}
	if out.nationalID, err = s.codec.Encrypt(record.NationalID); err != nil {
		return sealed{}, fmt.Errorf("seal national_id: %w", err)
	}
	if out.diagnosis, err = s.codec.Encrypt(record.Diagnosis); err != nil {
		return sealed{}, fmt.Errorf("seal diagnosis: %w", err)
	}
	out.idHash = s.codec.Hash(record.NationalID)
	return out, nil
}

// open decrypts the sealed columns back into the record. Failures propagate;
// ciphertext is never passed off as a field value.
func (s *Store) open(record *PatientRecord, stored sealed) error {
	var err error
	if record.FirstName, err = s.codec.Decrypt(stored.firstName); err != nil {
		return fmt.Errorf("open first_name: %w", err)
	}
	if record.LastName, err = s.codec.Decrypt(stored.lastName); err != nil {
		return fmt.Errorf("open last_name: %w", err)
	}
	if record.NationalID, err = s.codec.Decrypt(stored.nationalID); err != nil {
		return fmt.Errorf("open national_id: %w", err)
	}
	if record.Diagnosis, err = s.codec.Decrypt(stored.diagnosis); err != nil {
		return fmt.Errorf("open diagnosis: %w", err)
	}
	return nil
}

// Create inserts a new record and audits the creation. The audit write is
// fail-closed like every other mutation path.
func (s *Store) Create(ctx context.Context, actor domain.Actor, record PatientRecord) (PatientRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := requestcontext.Now(ctx)
	record.CreatedAt = now
	record.UpdatedAt = now

	stored, err := s.seal(record)
	if err != nil {
		return PatientRecord{}, err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO patient_records (
			id, patient_id, institution_id, first_name_enc, last_name_enc,
			national_id_enc, national_id_hash, diagnosis_enc, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		record.ID, record.PatientID, record.InstitutionID,
		stored.firstName, stored.lastName, stored.nationalID, stored.idHash,
		stored.diagnosis, record.CreatedAt, record.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return PatientRecord{}, fmt.Errorf("national id already registered: %w", sentinel.ErrConflict)
	}
	if err != nil {
		return PatientRecord{}, fmt.Errorf("insert patient record: %w", err)
	}

	if err := s.audit(ctx, actor, record, domain.EventRecordCreated, domain.ActionCreate); err != nil {
		return PatientRecord{}, err
	}
	return record, nil
}

// Get loads and decrypts one record.
func (s *Store) Get(ctx context.Context, id string) (PatientRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, patient_id, institution_id, first_name_enc, last_name_enc,
			national_id_enc, diagnosis_enc, created_at, updated_at
		FROM patient_records WHERE id = $1`, id)

	var record PatientRecord
	var stored sealed
	err := row.Scan(
		&record.ID, &record.PatientID, &record.InstitutionID,
		&stored.firstName, &stored.lastName, &stored.nationalID,
		&stored.diagnosis, &record.CreatedAt, &record.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return PatientRecord{}, sentinel.ErrNotFound
	}
	if err != nil {
		return PatientRecord{}, fmt.Errorf("select patient record: %w", err)
	}
	if err := s.open(&record, stored); err != nil {
		return PatientRecord{}, err
	}
	return record, nil
}

// Update replaces the classified fields wholesale and audits the change.
func (s *Store) Update(ctx context.Context, actor domain.Actor, record PatientRecord) (PatientRecord, error) {
	record.UpdatedAt = requestcontext.Now(ctx)

	stored, err := s.seal(record)
	if err != nil {
		return PatientRecord{}, err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE patient_records SET
			first_name_enc = $2, last_name_enc = $3, national_id_enc = $4,
			national_id_hash = $5, diagnosis_enc = $6, updated_at = $7
		WHERE id = $1`,
		record.ID, stored.firstName, stored.lastName, stored.nationalID,
		stored.idHash, stored.diagnosis, record.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return PatientRecord{}, fmt.Errorf("national id already registered: %w", sentinel.ErrConflict)
	}
	if err != nil {
		return PatientRecord{}, fmt.Errorf("update patient record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return PatientRecord{}, sentinel.ErrNotFound
	}

	if err := s.audit(ctx, actor, record, domain.EventRecordUpdated, domain.ActionUpdate); err != nil {
		return PatientRecord{}, err
	}
	return record, nil
}

// Delete removes the record. Its audit trail persists by design.
func (s *Store) Delete(ctx context.Context, actor domain.Actor, id string) error {
	record, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM patient_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete patient record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return s.audit(ctx, actor, record, domain.EventRecordDeleted, domain.ActionDelete)
}

// FindByNationalID resolves a record via the deterministic hash, so the
// lookup is an indexed equality match without ever storing the identifier
// in plaintext.
func (s *Store) FindByNationalID(ctx context.Context, nationalID string) (PatientRecord, error) {
	hash := s.codec.Hash(nationalID)
	row := s.pool.QueryRow(ctx, `
		SELECT id FROM patient_records WHERE national_id_hash = $1`, hash)

	var id string
	err := row.Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return PatientRecord{}, sentinel.ErrNotFound
	}
	if err != nil {
		return PatientRecord{}, fmt.Errorf("lookup by national id hash: %w", err)
	}
	return s.Get(ctx, id)
}

// SearchByLastName scans and decrypts every record in the institution to
// match on an encrypted field. There is no searchable encryption here: this
// is O(n) over the institution's records and priced accordingly.
func (s *Store) SearchByLastName(ctx context.Context, institutionID, lastName string) ([]PatientRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, patient_id, institution_id, first_name_enc, last_name_enc,
			national_id_enc, diagnosis_enc, created_at, updated_at
		FROM patient_records WHERE institution_id = $1`, institutionID)
	if err != nil {
		return nil, fmt.Errorf("scan institution records: %w", err)
	}
	defer rows.Close()

	var matched []PatientRecord
	for rows.Next() {
		var record PatientRecord
		var stored sealed
		err := rows.Scan(
			&record.ID, &record.PatientID, &record.InstitutionID,
			&stored.firstName, &stored.lastName, &stored.nationalID,
			&stored.diagnosis, &record.CreatedAt, &record.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan patient record: %w", err)
		}
		if err := s.open(&record, stored); err != nil {
			return nil, err
		}
		if record.LastName == lastName {
			matched = append(matched, record)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patient records: %w", err)
	}
	return matched, nil
}

// isUniqueViolation reports whether the error is postgres unique_violation,
// here always the national-id hash index.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *Store) audit(ctx context.Context, actor domain.Actor, record PatientRecord, event domain.EventType, action domain.Action) error {
	_, err := s.recorder.Record(ctx, audit.Event{
		EventType:       event,
		Actor:           actor,
		ResourceType:    "patient_record",
		ResourceID:      record.ID,
		Action:          action,
		Classifications: domain.Classifications{domain.ClassificationPHI, domain.ClassificationPII},
		Allowed:         true,
		Metadata:        map[string]string{"patient_id": record.PatientID},
		ClientIP:        requestcontext.ClientIP(ctx),
		UserAgent:       requestcontext.UserAgent(ctx),
	})
	if err != nil {
		return fmt.Errorf("records: audit %s: %w", event, err)
	}
	return nil
}
