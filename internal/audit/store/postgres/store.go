// Package postgres persists audit entries in an append-only table. Rows are
// single inserts with no update path, so concurrent writers interleave
// without coordination and the trail survives deletion of any resource it
// references.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"carelock/internal/audit"
	"carelock/internal/domain"
)

// Store implements audit.Store over database/sql with the pq driver.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Schema is the append-only audit table. Callers run it at startup or ship
// it through their migration tooling.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	id               UUID PRIMARY KEY,
	event_type       TEXT NOT NULL,
	actor_id         TEXT NOT NULL,
	institution_id   TEXT,
	resource_type    TEXT NOT NULL,
	resource_id      TEXT,
	action           TEXT NOT NULL,
	classifications  TEXT[] NOT NULL DEFAULT '{}',
	allowed          BOOLEAN NOT NULL,
	risk_level       TEXT NOT NULL,
	compliance_flags TEXT[] NOT NULL DEFAULT '{}',
	ts               TIMESTAMPTZ NOT NULL,
	metadata         JSONB NOT NULL DEFAULT '{}',
	client_ip        TEXT,
	user_agent       TEXT
);
CREATE INDEX IF NOT EXISTS audit_entries_actor_ts ON audit_entries (actor_id, ts DESC);
CREATE INDEX IF NOT EXISTS audit_entries_institution_ts ON audit_entries (institution_id, ts DESC);
`

// EnsureSchema creates the audit table when it does not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, entry domain.AuditEntry) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	flags := make([]string, len(entry.ComplianceFlags))
	for i, f := range entry.ComplianceFlags {
		flags[i] = string(f)
	}

	query := `
		INSERT INTO audit_entries (
			id, event_type, actor_id, institution_id, resource_type, resource_id,
			action, classifications, allowed, risk_level, compliance_flags,
			ts, metadata, client_ip, user_agent
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = s.db.ExecContext(ctx, query,
		entry.ID,
		entry.EventType,
		entry.ActorID,
		nullable(entry.InstitutionID),
		entry.ResourceType,
		nullable(entry.ResourceID),
		entry.Action,
		pq.Array(entry.Classifications.Strings()),
		entry.Allowed,
		entry.RiskLevel,
		pq.Array(flags),
		entry.Timestamp,
		metadata,
		nullable(entry.ClientIP),
		nullable(entry.UserAgent),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Search returns matching entries newest first.
func (s *Store) Search(ctx context.Context, filter audit.Filter) ([]domain.AuditEntry, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ActorID != "" {
		where = append(where, "actor_id = "+arg(filter.ActorID))
	}
	if filter.InstitutionID != "" {
		where = append(where, "institution_id = "+arg(filter.InstitutionID))
	}
	if filter.EventType != "" {
		where = append(where, "event_type = "+arg(string(filter.EventType)))
	}
	if filter.Classification != "" {
		where = append(where, arg(string(filter.Classification))+" = ANY(classifications)")
	}
	if filter.RiskLevel != "" {
		where = append(where, "risk_level = "+arg(string(filter.RiskLevel)))
	}
	if !filter.From.IsZero() {
		where = append(where, "ts >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "ts <= "+arg(filter.To))
	}

	query := `
		SELECT id, event_type, actor_id, COALESCE(institution_id, ''),
			resource_type, COALESCE(resource_id, ''), action, classifications,
			allowed, risk_level, compliance_flags, ts, metadata,
			COALESCE(client_ip, ''), COALESCE(user_agent, '')
		FROM audit_entries
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ts DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (domain.AuditEntry, error) {
	var (
		entry           domain.AuditEntry
		classifications pq.StringArray
		flags           pq.StringArray
		metadata        []byte
		ts              time.Time
	)
	err := rows.Scan(
		&entry.ID, &entry.EventType, &entry.ActorID, &entry.InstitutionID,
		&entry.ResourceType, &entry.ResourceID, &entry.Action, &classifications,
		&entry.Allowed, &entry.RiskLevel, &flags, &ts, &metadata,
		&entry.ClientIP, &entry.UserAgent,
	)
	if err != nil {
		return domain.AuditEntry{}, fmt.Errorf("scan audit entry: %w", err)
	}

	entry.Timestamp = ts
	entry.Classifications = make(domain.Classifications, len(classifications))
	for i, c := range classifications {
		entry.Classifications[i] = domain.Classification(c)
	}
	entry.ComplianceFlags = make([]domain.ComplianceFlag, len(flags))
	for i, f := range flags {
		entry.ComplianceFlags[i] = domain.ComplianceFlag(f)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
			return domain.AuditEntry{}, fmt.Errorf("unmarshal audit metadata: %w", err)
		}
	}
	return entry, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
