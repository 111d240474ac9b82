package domain

import (
	"cmp"
	"slices"
	"time"
)

// Assessment is an equipment record plus the values derived from it at one
// instant. Assessments are rebuilt on every refresh and never written back.
type Assessment struct {
	Equipment
	AgeYears             float64   `json:"age_years"`
	DaysSinceMaintenance float64   `json:"days_since_maintenance"`
	RiskScore            float64   `json:"risk_score"`
	RiskLevel            RiskLevel `json:"risk_level"`
	ScoreDefaulted       bool      `json:"score_defaulted,omitempty"`
	AssessedAt           time.Time `json:"assessed_at"`

	// ScoreErr explains ScoreDefaulted. It is not serialized.
	ScoreErr error `json:"-"`
}

// Assess derives age, maintenance interval, risk score and level for e at now.
// A record that cannot be scored still produces an assessment, carrying
// DefaultRiskScore and ScoreDefaulted=true.
func Assess(e Equipment, now time.Time, weather *WeatherContext) Assessment {
	a := Assessment{Equipment: e, AssessedAt: now}

	f, err := e.Factors(now)
	if err == nil {
		a.AgeYears = f.AgeYears
		a.DaysSinceMaintenance = f.DaysSinceMaintenance
		a.RiskScore, err = ScoreWithError(f, weather)
	}
	if err != nil {
		a.RiskScore = DefaultRiskScore
		a.ScoreDefaulted = true
		a.ScoreErr = err
	}
	a.RiskLevel = LevelFor(a.RiskScore)
	return a
}

// Snapshot is one refresh of the whole fleet against one weather snapshot.
type Snapshot struct {
	ID          string          `json:"id"`
	TakenAt     time.Time       `json:"taken_at"`
	Weather     *WeatherContext `json:"weather,omitempty"`
	Assessments []Assessment    `json:"assessments"`
}

// Find returns the assessment for an equipment ID.
func (s *Snapshot) Find(id string) (Assessment, bool) {
	if s == nil {
		return Assessment{}, false
	}
	for i := range s.Assessments {
		if s.Assessments[i].ID == id {
			return s.Assessments[i], true
		}
	}
	return Assessment{}, false
}

// CountByLevel tallies assessments per risk level.
func (s *Snapshot) CountByLevel() map[RiskLevel]int {
	counts := map[RiskLevel]int{RiskLow: 0, RiskMedium: 0, RiskHigh: 0, RiskCritical: 0}
	if s == nil {
		return counts
	}
	for i := range s.Assessments {
		counts[s.Assessments[i].RiskLevel]++
	}
	return counts
}

// Prioritize orders assessments for maintenance: highest risk first, ties
// broken by customers served, then by ID for a stable answer. At most limit
// entries are returned; limit <= 0 returns them all. The input is not modified.
func Prioritize(assessments []Assessment, limit int) []Assessment {
	ranked := slices.Clone(assessments)
	slices.SortStableFunc(ranked, func(a, b Assessment) int {
		if c := cmp.Compare(b.RiskScore, a.RiskScore); c != 0 {
			return c
		}
		if c := cmp.Compare(b.CustomersServed, a.CustomersServed); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
