// Package domain models utility grid equipment and the risk and cost
// formulas the dashboard renders for each asset.
//
// # Equipment
//
// One record per physical asset (transformer, power pole, switch gear,
// circuit breaker). Records are immutable once loaded. Age and days since
// maintenance are never stored: they are derived from the caller's "now" on
// every read, so the same record yields different scores on different days.
//
//	age_years              = whole days(now - installed_at) / 365
//	days_since_maintenance = whole days(now - last_maintained_at)
//
// # Risk score
//
// A weighted sum of five normalized sub-scores, clamped to [0,1]:
//
//	age          min(age_years/20, 1)               0.25
//	maintenance  min(days_since_maintenance/365, 1)  0.20
//	weather      WeatherRisk(ctx) or local fallback  0.25
//	vegetation   1 if nearby else 0                  0.15
//	customers    min(customers_served/1000, 1)       0.15
//
// The local weather fallback, used when no forecast snapshot is supplied, is
// min((temperature-70)^2/1000 + precipitation/100, 1).
//
// Risk levels: <0.3 Low | <0.5 Medium | <0.7 High | ≥0.7 Critical.
//
// # Weather blend
//
//	temperature term  min(1, |t-70|/30)
//	condition term    storm/thunder/lightning 1.0, rain/snow/sleet 0.7,
//	                  cloudy/overcast 0.3, otherwise 0.0 (first tier wins)
//	blend             min(1, 0.4*temperature + 0.6*condition)
//
// # Failure policy
//
// Scoring and weather blending never fail: bad input yields DefaultRiskScore
// (0.5) and DefaultWeatherRisk (0.3) respectively. Cost estimation is the
// opposite and returns errors wrapping ErrInvalidCostInput so the caller can
// show a message. The two policies are deliberately different per component.
package domain
