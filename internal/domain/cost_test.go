package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateCost_WorkedExample(t *testing.T) {
	got, err := EstimateCost(10, 500)
	require.NoError(t, err)

	want := CostBreakdown{PreventativeCost: 1000, RepairCost: 7500, Savings: 6500}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("cost mismatch (-want +got):\n%s", diff)
	}
}

func TestEstimateCost_AgeFactorCapsAtTwo(t *testing.T) {
	at20, err := EstimateCost(20, 0)
	require.NoError(t, err)
	at45, err := EstimateCost(45, 0)
	require.NoError(t, err)

	assert.Equal(t, 2000.0, at20.PreventativeCost)
	assert.Equal(t, 10000.0, at20.RepairCost)
	assert.Equal(t, at20, at45)
}

func TestEstimateCost_NewEquipmentCostsNothing(t *testing.T) {
	got, err := EstimateCost(0, 800)
	require.NoError(t, err)
	assert.Equal(t, CostBreakdown{}, got)
}

func TestEstimateCost_Monotonic(t *testing.T) {
	for customers := 0; customers <= 3000; customers += 250 {
		prev, err := EstimateCost(0, customers)
		require.NoError(t, err)
		for age := 0.5; age <= 30; age += 0.5 {
			cur, err := EstimateCost(age, customers)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, cur.PreventativeCost, prev.PreventativeCost)
			assert.GreaterOrEqual(t, cur.RepairCost, prev.RepairCost)
			prev = cur
		}
	}

	for age := 0.0; age <= 30; age += 2.5 {
		prev, err := EstimateCost(age, 0)
		require.NoError(t, err)
		for customers := 50; customers <= 5000; customers += 50 {
			cur, err := EstimateCost(age, customers)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, cur.RepairCost, prev.RepairCost)
			assert.Equal(t, prev.PreventativeCost, cur.PreventativeCost)
			prev = cur
		}
	}
}

func TestEstimateCost_SavingsIsExactDifference(t *testing.T) {
	for _, age := range []float64{0, 0.3, 1.7, 9.99, 10, 13.4, 20, 77} {
		for _, customers := range []int{0, 1, 73, 500, 999, 12345} {
			c, err := EstimateCost(age, customers)
			require.NoError(t, err)
			assert.Equal(t, c.RepairCost-c.PreventativeCost, c.Savings)
		}
	}
}

func TestEstimateCost_InvalidInputPropagates(t *testing.T) {
	tests := []struct {
		name      string
		age       float64
		customers int
		field     string
	}{
		{"negative age", -1, 100, "age_years"},
		{"NaN age", math.NaN(), 100, "age_years"},
		{"infinite age", math.Inf(1), 100, "age_years"},
		{"negative customers", 5, -1, "customers_served"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EstimateCost(tt.age, tt.customers)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidCostInput))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestEstimateEquipmentCost(t *testing.T) {
	eq := Equipment{
		ID:              "EQ007",
		InstalledAt:     testNow.AddDate(0, 0, -3650),
		CustomersServed: 500,
	}

	got, err := EstimateEquipmentCost(eq, testNow)
	require.NoError(t, err)
	assert.InDelta(t, 1000, got.PreventativeCost, 1e-9)
	assert.InDelta(t, 7500, got.RepairCost, 1e-9)

	t.Run("missing installation date", func(t *testing.T) {
		broken := eq
		broken.InstalledAt = time.Time{}

		_, err := EstimateEquipmentCost(broken, testNow)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidCostInput))
		assert.True(t, errors.Is(err, ErrMissingField))
	})

	t.Run("installed in the future", func(t *testing.T) {
		future := eq
		future.InstalledAt = testNow.AddDate(1, 0, 0)

		_, err := EstimateEquipmentCost(future, testNow)
		assert.ErrorIs(t, err, ErrInvalidCostInput)
	})
}

func TestCustomerOutageCost(t *testing.T) {
	cost, err := CustomerOutageCost(250)
	require.NoError(t, err)
	assert.Equal(t, 10000.0, cost)

	cost, err = CustomerOutageCost(0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cost)

	_, err = CustomerOutageCost(-3)
	assert.ErrorIs(t, err, ErrInvalidCostInput)
}
