package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	basePreventativeCost = 1000.0
	baseRepairCost       = 5000.0

	// outage assumptions for CustomerOutageCost
	costPerCustomerHour   = 10.0
	averageOutageDuration = 4.0
)

// ErrInvalidCostInput is wrapped by every cost estimation failure.
var ErrInvalidCostInput = errors.New("invalid cost input")

// CostBreakdown compares acting now against repairing after a failure.
// Savings is a projected differential, reported whether or not the
// preventative work has been scheduled.
type CostBreakdown struct {
	PreventativeCost float64 `json:"preventative_cost"`
	RepairCost       float64 `json:"repair_cost"`
	Savings          float64 `json:"savings"`
}

// EstimateCost prices preventative maintenance and post-failure repair.
// Age amplifies both costs up to 2x (at 20 years); every 1000 customers
// served adds another 1x to the repair cost.
func EstimateCost(ageYears float64, customersServed int) (CostBreakdown, error) {
	if math.IsNaN(ageYears) || math.IsInf(ageYears, 0) || ageYears < 0 {
		return CostBreakdown{}, fmt.Errorf("estimate cost: %w: age_years %v", ErrInvalidCostInput, ageYears)
	}
	if customersServed < 0 {
		return CostBreakdown{}, fmt.Errorf("estimate cost: %w: customers_served %d", ErrInvalidCostInput, customersServed)
	}

	ageFactor := math.Min(ageYears/10, 2)
	customerFactor := 1 + float64(customersServed)/1000

	preventative := basePreventativeCost * ageFactor
	repair := baseRepairCost * ageFactor * customerFactor

	return CostBreakdown{
		PreventativeCost: preventative,
		RepairCost:       repair,
		Savings:          repair - preventative,
	}, nil
}

// EstimateEquipmentCost derives the equipment's age at now and prices it.
func EstimateEquipmentCost(e Equipment, now time.Time) (CostBreakdown, error) {
	age, err := e.AgeYears(now)
	if err != nil {
		return CostBreakdown{}, fmt.Errorf("estimate cost: %w", errors.Join(ErrInvalidCostInput, err))
	}
	return EstimateCost(age, e.CustomersServed)
}

// CustomerOutageCost estimates the cost of an average outage for the given
// number of customers (10 per customer-hour over 4 hours).
func CustomerOutageCost(customers int) (float64, error) {
	if customers < 0 {
		return 0, fmt.Errorf("customer outage cost: %w: customers %d", ErrInvalidCostInput, customers)
	}
	return float64(customers) * costPerCustomerHour * averageOutageDuration, nil
}
