// Package audit records access decisions and domain events as immutable,
// risk-scored compliance entries.
//
// Recording is fail-closed: a failed append is a compliance violation and
// propagates to the caller, so no operation can complete without its audit
// trail. Escalation of critical entries is best-effort by contrast; only the
// durable write gates the caller.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"carelock/internal/domain"
	"carelock/pkg/platform/sentinel"
	"carelock/pkg/requestcontext"
)

// appendTimeout bounds the durable write so an unresponsive sink fails the
// call instead of hanging it.
const appendTimeout = 5 * time.Second

// Notifier is the escalation side-channel for critical entries.
type Notifier interface {
	Notify(ctx context.Context, entry domain.AuditEntry) error
}

// Recorder derives risk and compliance metadata for audit events and
// persists them. Construct once at startup; safe for concurrent use.
type Recorder struct {
	store    Store
	notifier Notifier
	logger   *slog.Logger
	metrics  *Metrics
}

// Option configures the Recorder.
type Option func(*Recorder)

// WithNotifier sets the escalation side-channel for critical entries.
func WithNotifier(n Notifier) Option {
	return func(r *Recorder) { r.notifier = n }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

// NewRecorder builds a recorder over the given append-only store.
func NewRecorder(store Store, logger *slog.Logger, opts ...Option) *Recorder {
	r := &Recorder{store: store, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Event carries the inputs of one audit-worthy occurrence. The recorder
// derives everything else (id, risk level, compliance flags).
type Event struct {
	EventType       domain.EventType
	Actor           domain.Actor
	ResourceType    string
	ResourceID      string
	Action          domain.Action
	Classifications domain.Classifications
	Allowed         bool
	Reason          string
	Metadata        map[string]string
	ClientIP        string
	UserAgent       string
}

// Record derives the immutable entry for the event and appends it durably.
// The returned error is fatal for the surrounding operation: a decision whose
// entry failed to persist must never be reported.
func (r *Recorder) Record(ctx context.Context, event Event) (domain.AuditEntry, error) {
	entry := domain.AuditEntry{
		ID:              uuid.NewString(),
		EventType:       event.EventType,
		ActorID:         event.Actor.ID,
		InstitutionID:   event.Actor.InstitutionID,
		ResourceType:    event.ResourceType,
		ResourceID:      event.ResourceID,
		Action:          event.Action,
		Classifications: event.Classifications,
		Allowed:         event.Allowed,
		Timestamp:       requestcontext.Now(ctx),
		Metadata:        event.Metadata,
		ClientIP:        event.ClientIP,
		UserAgent:       event.UserAgent,
	}
	if event.Reason != "" {
		if entry.Metadata == nil {
			entry.Metadata = make(map[string]string, 1)
		}
		entry.Metadata["reason"] = event.Reason
	}

	entry.RiskLevel = DeriveRiskLevel(entry)
	entry.ComplianceFlags = DeriveComplianceFlags(entry)

	appendCtx, cancel := context.WithTimeout(ctx, appendTimeout)
	defer cancel()
	if err := r.store.Append(appendCtx, entry); err != nil {
		r.metrics.IncAppendFailures()
		r.logger.ErrorContext(ctx, "CRITICAL: audit append failed",
			"event_type", entry.EventType,
			"actor_id", entry.ActorID,
			"error", err,
		)
		return domain.AuditEntry{}, fmt.Errorf("audit append: %w: %w", sentinel.ErrUnavailable, err)
	}
	r.metrics.IncRecorded(string(entry.RiskLevel))

	if entry.RiskLevel == domain.RiskCritical {
		r.escalate(ctx, entry)
	}
	return entry, nil
}

// escalate pushes the entry to the side-channel. Failures are logged, not
// propagated: the durable trail already exists.
func (r *Recorder) escalate(ctx context.Context, entry domain.AuditEntry) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(ctx, entry); err != nil {
		r.metrics.IncEscalationFailures()
		r.logger.ErrorContext(ctx, "escalation notify failed",
			"entry_id", entry.ID,
			"actor_id", entry.ActorID,
			"error", err,
		)
		return
	}
	r.metrics.IncEscalations()
}

// Search returns entries matching the filter, newest first.
func (r *Recorder) Search(ctx context.Context, filter Filter) ([]domain.AuditEntry, error) {
	return r.store.Search(ctx, filter)
}

