package router_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Songjaeheon0923/Fin-Hub/internal/router"
)

func TestSelectInstancePrefersHighestWeight(t *testing.T) {
	candidates := []router.Candidate{
		{InstanceID: "a", Capacity: 10, InFlight: 8},
		{InstanceID: "b", Capacity: 10, InFlight: 2},
	}
	got, ok := router.SelectInstance(candidates)
	require.True(t, ok)
	assert.Equal(t, "b", got.InstanceID)
}

func TestSelectInstanceTieBreaksOnLowestInFlightThenID(t *testing.T) {
	candidates := []router.Candidate{
		{InstanceID: "z", Capacity: 10, InFlight: 5},
		{InstanceID: "a", Capacity: 5, InFlight: 0},
	}
	got, ok := router.SelectInstance(candidates)
	require.True(t, ok)
	assert.Equal(t, "a", got.InstanceID)
}

func TestSelectInstanceTieBreaksOnInstanceIDWhenWeightAndInFlightEqual(t *testing.T) {
	candidates := []router.Candidate{
		{InstanceID: "z", Capacity: 10, InFlight: 3},
		{InstanceID: "a", Capacity: 10, InFlight: 3},
	}
	got, ok := router.SelectInstance(candidates)
	require.True(t, ok)
	assert.Equal(t, "a", got.InstanceID)
}

func TestWeightFloorsAtOneWhenOverCapacity(t *testing.T) {
	candidates := []router.Candidate{
		{InstanceID: "overloaded", Capacity: 5, InFlight: 20},
	}
	got, ok := router.SelectInstance(candidates)
	require.True(t, ok)
	assert.Equal(t, "overloaded", got.InstanceID)
}

func TestSelectInstanceEmpty(t *testing.T) {
	_, ok := router.SelectInstance(nil)
	assert.False(t, ok)
}

func TestSortByPreferenceOrdersBestFirst(t *testing.T) {
	candidates := []router.Candidate{
		{InstanceID: "low", Capacity: 10, InFlight: 9},
		{InstanceID: "high", Capacity: 10, InFlight: 1},
		{InstanceID: "mid", Capacity: 10, InFlight: 5},
	}
	sorted := router.SortByPreference(candidates)
	assert.Equal(t, []string{"high", "mid", "low"}, []string{sorted[0].InstanceID, sorted[1].InstanceID, sorted[2].InstanceID})
}
