package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"carelock/internal/audit"
	"carelock/internal/audit/mocks"
	"carelock/internal/audit/store/memory"
	"carelock/internal/domain"
	"carelock/pkg/requestcontext"
)

// weekdayNoon is an arbitrary Wednesday inside every access window.
var weekdayNoon = time.Date(2025, time.March, 12, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *memory.InMemoryStore) {
	t.Helper()
	store := memory.NewInMemoryStore()
	recorder := audit.NewRecorder(store, testLogger())
	return NewEngine(recorder, nil), store
}

func testCtx(at time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), at)
}

func activeDoctor(institution string) domain.Actor {
	return domain.Actor{
		ID:            "doc-1",
		Roles:         []domain.Role{domain.RoleDoctor},
		InstitutionID: institution,
		Status:        domain.ActorActive,
	}
}

func phiResource(institution string) domain.ResourceContext {
	return domain.ResourceContext{
		ResourceType:    "patient_record",
		ResourceID:      "rec-1",
		InstitutionID:   institution,
		Classifications: domain.Classifications{domain.ClassificationPHI},
		Action:          domain.ActionRead,
	}
}

func TestEvaluateRuleLadder(t *testing.T) {
	tests := []struct {
		name       string
		actor      domain.Actor
		resource   domain.ResourceContext
		reqs       Requirements
		at         time.Time
		wantAllow  bool
		wantRisk   domain.RiskLevel
		wantReason string
	}{
		{
			name:      "doctor reads PHI in own institution",
			actor:     activeDoctor("inst-a"),
			resource:  phiResource("inst-a"),
			at:        weekdayNoon,
			wantAllow: true,
			wantRisk:  domain.RiskLow,
		},
		{
			name: "inactive actor denied regardless of role",
			actor: domain.Actor{
				ID:            "doc-2",
				Roles:         []domain.Role{domain.RoleDoctor, domain.RolePlatformAdmin},
				InstitutionID: "inst-a",
				Status:        domain.ActorSuspended,
			},
			resource:   phiResource("inst-a"),
			at:         weekdayNoon,
			wantAllow:  false,
			wantRisk:   domain.RiskHigh,
			wantReason: "actor account is not active",
		},
		{
			name:  "missing required role",
			actor: activeDoctor("inst-a"),
			resource: domain.ResourceContext{
				ResourceType: "audit_entry",
				Action:       domain.ActionRead,
			},
			reqs:       Requirements{RequiredRoles: []domain.Role{domain.RoleInstitutionAdmin}},
			at:         weekdayNoon,
			wantAllow:  false,
			wantRisk:   domain.RiskMedium,
			wantReason: "actor lacks a required role for this operation",
		},
		{
			name: "institution-scoped operation without affiliation",
			actor: domain.Actor{
				ID:     "doc-3",
				Roles:  []domain.Role{domain.RoleDoctor},
				Status: domain.ActorActive,
			},
			resource: domain.ResourceContext{
				ResourceType: "patient_record",
				Action:       domain.ActionUpdate,
			},
			reqs:       Requirements{InstitutionRequired: true},
			at:         weekdayNoon,
			wantAllow:  false,
			wantRisk:   domain.RiskHigh,
			wantReason: "operation requires an institution affiliation",
		},
		{
			name:       "cross-institution access denied",
			actor:      activeDoctor("inst-a"),
			resource:   phiResource("inst-b"),
			at:         weekdayNoon,
			wantAllow:  false,
			wantRisk:   domain.RiskCritical,
			wantReason: "cross-institution access to inst-b denied",
		},
		{
			name: "platform admin crosses institutions",
			actor: domain.Actor{
				ID:            "admin-1",
				Roles:         []domain.Role{domain.RolePlatformAdmin, domain.RoleDoctor},
				InstitutionID: "inst-a",
				Status:        domain.ActorActive,
			},
			resource:  phiResource("inst-b"),
			at:        weekdayNoon,
			wantAllow: true,
			wantRisk:  domain.RiskLow,
		},
		{
			name: "PHI without clinical role denied even in matching institution",
			actor: domain.Actor{
				ID:            "res-1",
				Roles:         []domain.Role{domain.RoleResearcher},
				InstitutionID: "inst-a",
				Status:        domain.ActorActive,
			},
			resource:   phiResource("inst-a"),
			at:         weekdayNoon,
			wantAllow:  false,
			wantRisk:   domain.RiskCritical,
			wantReason: "protected health data requires a clinical role",
		},
		{
			name: "researcher denied outside business hours",
			actor: domain.Actor{
				ID:            "res-2",
				Roles:         []domain.Role{domain.RoleResearcher},
				InstitutionID: "inst-a",
				Status:        domain.ActorActive,
			},
			resource: domain.ResourceContext{
				ResourceType:    "patient_record",
				InstitutionID:   "inst-a",
				Classifications: domain.Classifications{domain.ClassificationInternal},
				Action:          domain.ActionRead,
			},
			at:         time.Date(2025, time.March, 12, 23, 0, 0, 0, time.UTC),
			wantAllow:  false,
			wantRisk:   domain.RiskMedium,
			wantReason: "role is restricted to business hours",
		},
		{
			name: "researcher allowed inside business hours",
			actor: domain.Actor{
				ID:            "res-2",
				Roles:         []domain.Role{domain.RoleResearcher},
				InstitutionID: "inst-a",
				Status:        domain.ActorActive,
			},
			resource: domain.ResourceContext{
				ResourceType:    "patient_record",
				InstitutionID:   "inst-a",
				Classifications: domain.Classifications{domain.ClassificationInternal},
				Action:          domain.ActionRead,
			},
			at:        weekdayNoon,
			wantAllow: true,
			wantRisk:  domain.RiskLow,
		},
		{
			name: "researcher denied on weekend",
			actor: domain.Actor{
				ID:            "res-2",
				Roles:         []domain.Role{domain.RoleResearcher},
				InstitutionID: "inst-a",
				Status:        domain.ActorActive,
			},
			resource: domain.ResourceContext{
				ResourceType:    "patient_record",
				InstitutionID:   "inst-a",
				Classifications: domain.Classifications{domain.ClassificationInternal},
				Action:          domain.ActionRead,
			},
			at:         time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC), // Saturday
			wantAllow:  false,
			wantRisk:   domain.RiskMedium,
			wantReason: "role is restricted to business hours",
		},
		{
			name: "clinician after hours is allowed, not denied",
			actor: domain.Actor{
				ID:            "doc-4",
				Roles:         []domain.Role{domain.RoleNurse},
				InstitutionID: "inst-a",
				Status:        domain.ActorActive,
			},
			resource:  phiResource("inst-a"),
			at:        time.Date(2025, time.March, 12, 23, 30, 0, 0, time.UTC),
			wantAllow: true,
			wantRisk:  domain.RiskLow,
		},
		{
			name: "patient reads own record",
			actor: domain.Actor{
				ID:     "p1",
				Roles:  []domain.Role{domain.RolePatient},
				Status: domain.ActorActive,
			},
			resource: domain.ResourceContext{
				ResourceType:    "patient_record",
				PatientID:       "p1",
				Classifications: domain.Classifications{domain.ClassificationPII},
				Action:          domain.ActionRead,
			},
			at:        weekdayNoon,
			wantAllow: true,
			wantRisk:  domain.RiskLow,
		},
		{
			name: "patient denied another patient's record",
			actor: domain.Actor{
				ID:     "p1",
				Roles:  []domain.Role{domain.RolePatient},
				Status: domain.ActorActive,
			},
			resource: domain.ResourceContext{
				ResourceType:    "patient_record",
				PatientID:       "p2",
				Classifications: domain.Classifications{domain.ClassificationPII},
				Action:          domain.ActionRead,
			},
			at:         weekdayNoon,
			wantAllow:  false,
			wantRisk:   domain.RiskCritical,
			wantReason: "patients may only access their own records",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, store := newTestEngine(t)

			decision, err := engine.Evaluate(testCtx(tt.at), Request{
				Actor:        tt.actor,
				Resource:     tt.resource,
				Requirements: tt.reqs,
			})
			require.NoError(t, err)

			assert.Equal(t, tt.wantAllow, decision.Allowed)
			assert.Equal(t, tt.wantRisk, decision.RiskLevel)
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, decision.Reason)
			}

			entries := store.All()
			require.Len(t, entries, 1, "every evaluation emits exactly one audit entry")
			assert.Equal(t, domain.EventAccessDecision, entries[0].EventType)
			assert.Equal(t, tt.actor.ID, entries[0].ActorID)
			assert.Equal(t, tt.wantAllow, entries[0].Allowed)
		})
	}
}

func TestEvaluateOrdering(t *testing.T) {
	// An inactive cross-institution patient trips several rules at once; the
	// ladder's first rule must own the reason.
	engine, _ := newTestEngine(t)

	decision, err := engine.Evaluate(testCtx(weekdayNoon), Request{
		Actor: domain.Actor{
			ID:            "p9",
			Roles:         []domain.Role{domain.RolePatient},
			InstitutionID: "inst-a",
			Status:        domain.ActorInactive,
		},
		Resource: domain.ResourceContext{
			ResourceType:    "patient_record",
			PatientID:       "someone-else",
			InstitutionID:   "inst-b",
			Classifications: domain.Classifications{domain.ClassificationPHI},
			Action:          domain.ActionDelete,
		},
	})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "actor account is not active", decision.Reason)
	assert.Equal(t, domain.RiskHigh, decision.RiskLevel)
}

func TestEvaluateFailsWhenAuditFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("sink unavailable"))

	recorder := audit.NewRecorder(store, testLogger())
	engine := NewEngine(recorder, nil)

	decision, err := engine.Evaluate(testCtx(weekdayNoon), Request{
		Actor:    activeDoctor("inst-a"),
		Resource: phiResource("inst-a"),
	})
	require.Error(t, err, "no decision may be reported without its audit entry")
	assert.Equal(t, domain.PolicyDecision{}, decision)
}

func TestEvaluateAuditCarriesDeniedReason(t *testing.T) {
	engine, store := newTestEngine(t)

	_, err := engine.Evaluate(testCtx(weekdayNoon), Request{
		Actor:    activeDoctor("inst-a"),
		Resource: phiResource("inst-b"),
	})
	require.NoError(t, err)

	entries := store.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "cross-institution access to inst-b denied", entries[0].Metadata["reason"])
	assert.True(t, entries[0].HasFlag(domain.FlagUnauthorizedAccess))
}
