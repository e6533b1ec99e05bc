package engine

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"example.com/researchdesk/internal/domain"
)

// Settings is the static configuration the pipeline runs against.
type Settings struct {
	Quarter  Quarter
	Quotas   *QuotaTable
	Location *time.Location
}

// Engine bundles Settings with the pipeline entry points. It holds no state
// between calls.
type Engine struct {
	settings Settings
}

// New validates settings and returns an Engine.
func New(settings Settings) (*Engine, error) {
	if err := settings.Quarter.Validate(); err != nil {
		return nil, err
	}
	if settings.Quotas == nil {
		return nil, fmt.Errorf("%w: quota table is required", ErrInvalidQuota)
	}
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	return &Engine{settings: settings}, nil
}

// Settings returns the configuration the engine was built with.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Today converts an instant to the team's calendar date.
func (e *Engine) Today(now time.Time) civil.Date {
	return DateIn(now, e.settings.Location)
}

// TeamSummary is the team-wide view of a dashboard.
type TeamSummary struct {
	Composite   int                       `json:"composite"`
	Standing    Standing                  `json:"standing"`
	Totals      map[domain.Category]Pair  `json:"totals"`
	ReportKinds map[domain.ReportKind]int `json:"report_kinds"`
}

// Dashboard is the full progress view for one snapshot and one day.
type Dashboard struct {
	AsOf      civil.Date        `json:"as_of"`
	Quarter   Quarter           `json:"quarter"`
	Pacing    int               `json:"pacing_baseline"`
	Composite []domain.Category `json:"composite_categories"`
	Members   []MemberProgress  `json:"members"`
	Team      TeamSummary       `json:"team"`
	Orphaned  int               `json:"orphaned_records"`
}

// Dashboard runs aggregation, composition, pacing and classification over
// records as of today.
func (e *Engine) Dashboard(records []domain.Record, today civil.Date) (Dashboard, error) {
	quotas := e.settings.Quotas
	tally := Aggregate(records, quotas.Roster(), e.settings.Quarter)

	members, err := quotas.Progress(tally)
	if err != nil {
		return Dashboard{}, err
	}

	baseline := PacingBaseline(e.settings.Quarter, today)
	ApplyStandings(members, baseline)
	FlagLowest(members)

	teamComposite, err := TeamComposite(members)
	if err != nil {
		return Dashboard{}, err
	}

	totals := make(map[domain.Category]Pair)
	kinds := map[domain.ReportKind]int{domain.ReportDeep: 0, domain.ReportTopic: 0}
	for _, m := range members {
		for c, p := range m.Categories {
			t := totals[c]
			t.Current += p.Current
			t.Target += p.Target
			totals[c] = t
		}
		for k, n := range m.Reports {
			kinds[k] += n
		}
	}

	return Dashboard{
		AsOf:      today,
		Quarter:   e.settings.Quarter,
		Pacing:    baseline,
		Composite: quotas.Composite(),
		Members:   members,
		Team: TeamSummary{
			Composite:   teamComposite,
			Standing:    Classify(teamComposite, baseline),
			Totals:      totals,
			ReportKinds: kinds,
		},
		Orphaned: tally.Orphaned,
	}, nil
}

// Weekly runs the windowed comparison for the roster.
func (e *Engine) Weekly(records []domain.Record, reference civil.Date) WeeklyComparison {
	return CompareWeeks(records, reference, e.settings.Quotas.Roster())
}
