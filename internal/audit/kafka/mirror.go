// Package kafka mirrors audit entries onto a Kafka topic so downstream
// compliance consumers (SIEM, long-term archival) can tail the trail without
// querying the primary store.
//
// The mirror is intentionally not the durable sink: the postgres append is
// the fail-closed write, and mirroring is asynchronous and best-effort on
// top of it.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"carelock/internal/audit"
	"carelock/internal/domain"
)

// DefaultTopic carries the mirrored audit stream.
const DefaultTopic = "carelock.audit.entries"

// Mirror publishes audit entries to Kafka.
type Mirror struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// New builds a mirror over an existing franz-go client. An empty topic uses
// DefaultTopic.
func New(client *kgo.Client, topic string, logger *slog.Logger) *Mirror {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Mirror{client: client, topic: topic, logger: logger}
}

// EnsureTopic creates the audit topic when it does not exist. Call once at
// startup before producing.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32) error {
	if topic == "" {
		topic = DefaultTopic
	}
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, partitions, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create audit topic %s: %w", topic, resp.Err)
	}
	return nil
}

type entryPayload struct {
	ID              string            `json:"id"`
	EventType       string            `json:"event_type"`
	ActorID         string            `json:"actor_id"`
	InstitutionID   string            `json:"institution_id,omitempty"`
	ResourceType    string            `json:"resource_type"`
	ResourceID      string            `json:"resource_id,omitempty"`
	Action          string            `json:"action"`
	Classifications []string          `json:"classifications"`
	Allowed         bool              `json:"allowed"`
	RiskLevel       string            `json:"risk_level"`
	ComplianceFlags []string          `json:"compliance_flags"`
	Timestamp       string            `json:"timestamp"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	ClientIP        string            `json:"client_ip,omitempty"`
	UserAgent       string            `json:"user_agent,omitempty"`
}

// Publish produces the entry asynchronously, keyed by actor so one actor's
// trail stays ordered within a partition. Delivery failures are logged.
func (m *Mirror) Publish(ctx context.Context, entry domain.AuditEntry) {
	flags := make([]string, len(entry.ComplianceFlags))
	for i, f := range entry.ComplianceFlags {
		flags[i] = string(f)
	}
	value, err := json.Marshal(entryPayload{
		ID:              entry.ID,
		EventType:       string(entry.EventType),
		ActorID:         entry.ActorID,
		InstitutionID:   entry.InstitutionID,
		ResourceType:    entry.ResourceType,
		ResourceID:      entry.ResourceID,
		Action:          string(entry.Action),
		Classifications: entry.Classifications.Strings(),
		Allowed:         entry.Allowed,
		RiskLevel:       string(entry.RiskLevel),
		ComplianceFlags: flags,
		Timestamp:       entry.Timestamp.Format(time.RFC3339Nano),
		Metadata:        entry.Metadata,
		ClientIP:        entry.ClientIP,
		UserAgent:       entry.UserAgent,
	})
	if err != nil {
		m.logger.ErrorContext(ctx, "marshal audit mirror payload", "entry_id", entry.ID, "error", err)
		return
	}

	record := &kgo.Record{
		Topic: m.topic,
		Key:   []byte(entry.ActorID),
		Value: value,
	}
	m.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			m.logger.Error("audit mirror produce failed", "entry_id", entry.ID, "error", err)
		}
	})
}

// Close flushes outstanding produces and releases the client.
func (m *Mirror) Close(ctx context.Context) error {
	if err := m.client.Flush(ctx); err != nil {
		return fmt.Errorf("flush audit mirror: %w", err)
	}
	m.client.Close()
	return nil
}

// MirroringStore decorates a primary audit.Store: the durable append stays
// fail-closed, then the entry is mirrored to Kafka best-effort.
type MirroringStore struct {
	primary audit.Store
	mirror  *Mirror
}

func NewMirroringStore(primary audit.Store, mirror *Mirror) *MirroringStore {
	return &MirroringStore{primary: primary, mirror: mirror}
}

func (s *MirroringStore) Append(ctx context.Context, entry domain.AuditEntry) error {
	if err := s.primary.Append(ctx, entry); err != nil {
		return err
	}
	s.mirror.Publish(ctx, entry)
	return nil
}

func (s *MirroringStore) Search(ctx context.Context, filter audit.Filter) ([]domain.AuditEntry, error) {
	return s.primary.Search(ctx, filter)
}
