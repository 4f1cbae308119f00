package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"carelock/internal/domain"
)

// DefaultChannel is the pub/sub channel alerting consumers subscribe to.
const DefaultChannel = "carelock.audit.critical"

// Redis publishes critical entries to a pub/sub channel so an external
// pager/alerting process can subscribe without coupling to the audit store.
type Redis struct {
	client  *redis.Client
	channel string
}

// NewRedis builds a redis-backed notifier. An empty channel uses
// DefaultChannel.
func NewRedis(client *redis.Client, channel string) *Redis {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Redis{client: client, channel: channel}
}

type escalationPayload struct {
	ID            string   `json:"id"`
	EventType     string   `json:"event_type"`
	ActorID       string   `json:"actor_id"`
	InstitutionID string   `json:"institution_id,omitempty"`
	ResourceType  string   `json:"resource_type"`
	ResourceID    string   `json:"resource_id,omitempty"`
	Action        string   `json:"action"`
	RiskLevel     string   `json:"risk_level"`
	Flags         []string `json:"compliance_flags"`
	Timestamp     string   `json:"timestamp"`
}

func (n *Redis) Notify(ctx context.Context, entry domain.AuditEntry) error {
	flags := make([]string, len(entry.ComplianceFlags))
	for i, f := range entry.ComplianceFlags {
		flags[i] = string(f)
	}
	payload, err := json.Marshal(escalationPayload{
		ID:            entry.ID,
		EventType:     string(entry.EventType),
		ActorID:       entry.ActorID,
		InstitutionID: entry.InstitutionID,
		ResourceType:  entry.ResourceType,
		ResourceID:    entry.ResourceID,
		Action:        string(entry.Action),
		RiskLevel:     string(entry.RiskLevel),
		Flags:         flags,
		Timestamp:     entry.Timestamp.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal escalation: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish escalation: %w", err)
	}
	return nil
}
