package audit

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"carelock/internal/domain"
)

// ComplianceReport summarizes one institution's audit activity over a window.
type ComplianceReport struct {
	InstitutionID string
	From          time.Time
	To            time.Time

	TotalEvents   int
	Violations    int // denied accesses
	PHIAccesses   int
	RiskHistogram map[domain.RiskLevel]int
	TopActors     []ActorActivity
}

// ActorActivity is one row of the top-actors ranking.
type ActorActivity struct {
	ActorID string
	Events  int
}

// topActorLimit caps the ranking size in a report.
const topActorLimit = 10

// Report aggregates the institution's entries for the window. The per-concern
// searches run in parallel under a shared context so one slow query does not
// serialize the rest.
func (r *Recorder) Report(ctx context.Context, institutionID string, from, to time.Time) (*ComplianceReport, error) {
	base := Filter{InstitutionID: institutionID, From: from, To: to}

	var (
		all    []domain.AuditEntry
		denied []domain.AuditEntry
		phi    []domain.AuditEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		entries, err := r.store.Search(gctx, base)
		all = entries
		return err
	})
	g.Go(func() error {
		f := base
		f.EventType = domain.EventAccessDecision
		entries, err := r.store.Search(gctx, f)
		for _, e := range entries {
			if !e.Allowed {
				denied = append(denied, e)
			}
		}
		return err
	})
	g.Go(func() error {
		f := base
		f.Classification = domain.ClassificationPHI
		entries, err := r.store.Search(gctx, f)
		phi = entries
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &ComplianceReport{
		InstitutionID: institutionID,
		From:          from,
		To:            to,
		TotalEvents:   len(all),
		Violations:    len(denied),
		PHIAccesses:   len(phi),
		RiskHistogram: make(map[domain.RiskLevel]int, 4),
	}

	byActor := make(map[string]int)
	for _, e := range all {
		report.RiskHistogram[e.RiskLevel]++
		byActor[e.ActorID]++
	}
	report.TopActors = rankActors(byActor, topActorLimit)
	return report, nil
}

func rankActors(byActor map[string]int, limit int) []ActorActivity {
	ranked := make([]ActorActivity, 0, len(byActor))
	for actorID, events := range byActor {
		ranked = append(ranked, ActorActivity{ActorID: actorID, Events: events})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Events != ranked[j].Events {
			return ranked[i].Events > ranked[j].Events
		}
		return ranked[i].ActorID < ranked[j].ActorID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
