// Package notifier defines the escalation side-channel for critical audit
// entries and its default implementations.
package notifier

import (
	"context"

	"carelock/internal/domain"
)

// Notifier receives every audit entry whose derived risk is critical. The
// recorder calls it synchronously after the durable append succeeds; delivery
// is best-effort and a failure never rolls back the audited operation.
type Notifier interface {
	Notify(ctx context.Context, entry domain.AuditEntry) error
}

// Noop discards escalations. The default in environments without an
// alerting integration.
type Noop struct{}

func (Noop) Notify(context.Context, domain.AuditEntry) error { return nil }
