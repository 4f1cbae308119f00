package audit_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"carelock/internal/audit"
	"carelock/internal/audit/mocks"
	"carelock/internal/domain"
	"carelock/pkg/platform/sentinel"
	"carelock/pkg/requestcontext"
)

// Mirrors of unexported test fixtures in the internal audit test package;
// kept identical so the expectations stay the same.
var daytime = time.Date(2025, time.March, 12, 14, 0, 0, 0, time.UTC)

const appendTimeout = 5 * time.Second

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func deniedPHIDelete() audit.Event {
	return audit.Event{
		EventType: domain.EventAccessDecision,
		Actor: domain.Actor{
			ID:     "actor-1",
			Roles:  []domain.Role{domain.RoleResearcher},
			Status: domain.ActorActive,
		},
		ResourceType:    "patient_record",
		Action:          domain.ActionDelete,
		Classifications: domain.Classifications{domain.ClassificationPHI},
		Allowed:         false,
		Reason:          "protected health data requires a clinical role",
	}
}

func TestRecordDerivesEntry(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)

	var appended domain.AuditEntry
	store.EXPECT().Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, entry domain.AuditEntry) error {
			appended = entry
			return nil
		})

	recorder := audit.NewRecorder(store, testLogger())
	ctx := requestcontext.WithTime(context.Background(), daytime)

	entry, err := recorder.Record(ctx, deniedPHIDelete())
	require.NoError(t, err)
	assert.Equal(t, appended, entry)

	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, daytime, entry.Timestamp)
	// denied +5, PHI +3, delete +3, no institution +2
	assert.Equal(t, domain.RiskCritical, entry.RiskLevel)
	assert.True(t, entry.HasFlag(domain.FlagUnauthorizedAccess))
	assert.True(t, entry.HasFlag(domain.FlagDataDeletionPHI))
	assert.Equal(t, "protected health data requires a clinical role", entry.Metadata["reason"])
}

func TestRecordFailsClosed(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("connection refused"))

	notifier := mocks.NewMockNotifier(ctrl)
	// No Notify expectation: a failed append must not escalate.

	recorder := audit.NewRecorder(store, testLogger(), audit.WithNotifier(notifier))

	_, err := recorder.Record(context.Background(), deniedPHIDelete())
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestRecordEscalatesCritical(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)

	notifier := mocks.NewMockNotifier(ctrl)
	notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, entry domain.AuditEntry) error {
			assert.Equal(t, domain.RiskCritical, entry.RiskLevel)
			return nil
		})

	recorder := audit.NewRecorder(store, testLogger(), audit.WithNotifier(notifier))
	ctx := requestcontext.WithTime(context.Background(), daytime)

	_, err := recorder.Record(ctx, deniedPHIDelete())
	require.NoError(t, err)
}

func TestRecordDoesNotEscalateBelowCritical(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)

	notifier := mocks.NewMockNotifier(ctrl)

	recorder := audit.NewRecorder(store, testLogger(), audit.WithNotifier(notifier))
	ctx := requestcontext.WithTime(context.Background(), daytime)

	_, err := recorder.Record(ctx, audit.Event{
		EventType: domain.EventAccessDecision,
		Actor: domain.Actor{
			ID:            "doc-1",
			Roles:         []domain.Role{domain.RoleDoctor},
			InstitutionID: "inst-a",
			Status:        domain.ActorActive,
		},
		ResourceType: "patient_record",
		Action:       domain.ActionRead,
		Allowed:      true,
	})
	require.NoError(t, err)
}

func TestRecordSurvivesNotifierFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)

	notifier := mocks.NewMockNotifier(ctrl)
	notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(errors.New("pager down"))

	recorder := audit.NewRecorder(store, testLogger(), audit.WithNotifier(notifier))
	ctx := requestcontext.WithTime(context.Background(), daytime)

	_, err := recorder.Record(ctx, deniedPHIDelete())
	require.NoError(t, err, "escalation is best-effort; only the durable append gates the caller")
}

func TestRecordBoundsAppendTime(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ domain.AuditEntry) error {
			deadline, ok := ctx.Deadline()
			assert.True(t, ok, "append must run under a deadline")
			assert.LessOrEqual(t, time.Until(deadline), appendTimeout)
			return nil
		})

	recorder := audit.NewRecorder(store, testLogger())
	_, err := recorder.Record(context.Background(), deniedPHIDelete())
	require.NoError(t, err)
}
