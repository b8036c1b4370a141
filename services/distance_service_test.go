package services

import (
	"math"
	"testing"
	"time"
)

type distanceResult struct {
	targetID string
	meters   float64
}

func collectDistances() (DistanceUpdate, chan distanceResult) {
	ch := make(chan distanceResult, 16)
	return func(targetID string, meters float64) {
		ch <- distanceResult{targetID: targetID, meters: meters}
	}, ch
}

func waitDistance(t *testing.T, ch chan distanceResult, timeout time.Duration) distanceResult {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(timeout):
		t.Fatal("no distance update delivered in time")
		return distanceResult{}
	}
}

func TestHaversine(t *testing.T) {
	if d := Haversine(48.8566, 2.3522, 48.8566, 2.3522); d != 0 {
		t.Errorf("distance to self should be 0, got %f", d)
	}

	// One degree of latitude is roughly 111.2 km.
	if d := Haversine(0, 0, 1, 0); math.Abs(d-111195) > 100 {
		t.Errorf("one degree of latitude should be ~111195m, got %f", d)
	}

	// Paris to London is roughly 344 km.
	if d := Haversine(48.8566, 2.3522, 51.5074, -0.1278); d < 330000 || d > 360000 {
		t.Errorf("Paris-London should be ~344km, got %f", d)
	}
}

func TestFreshTargetComputesImmediately(t *testing.T) {
	s := NewDistanceService(time.Hour) // ticker effectively never fires
	defer s.Close()

	onUpdate, results := collectDistances()
	s.RequestCalculation("finn", 0, 0, 1, 0, onUpdate)

	r := waitDistance(t, results, time.Second)
	if r.targetID != "finn" {
		t.Errorf("expected update for finn, got %q", r.targetID)
	}
	if math.Abs(r.meters-111195) > 100 {
		t.Errorf("unexpected distance %f", r.meters)
	}
}

func TestStartMonitoringUsesKnownObserver(t *testing.T) {
	s := NewDistanceService(time.Hour)
	defer s.Close()

	onUpdate, results := collectDistances()

	// First request establishes the observer position.
	s.RequestCalculation("finn", 10, 10, 10, 10, onUpdate)
	waitDistance(t, results, time.Second)

	// A newly monitored target computes right away against that observer.
	s.StartMonitoring("mia", 11, 10, onUpdate)
	r := waitDistance(t, results, time.Second)
	if r.targetID != "mia" {
		t.Errorf("expected update for mia, got %q", r.targetID)
	}
	if math.Abs(r.meters-111195) > 100 {
		t.Errorf("unexpected distance %f", r.meters)
	}
}

func TestDebounceCoalescesRequests(t *testing.T) {
	interval := 200 * time.Millisecond
	s := NewDistanceService(interval)
	defer s.Close()

	onUpdate, results := collectDistances()

	// Fresh target computes immediately and starts the debounce window.
	s.RequestCalculation("finn", 0, 0, 1, 0, onUpdate)
	first := waitDistance(t, results, time.Second)

	// Two requests inside the window are deferred; the tick computes once,
	// with the latest coordinates.
	s.RequestCalculation("finn", 0, 0, 2, 0, onUpdate)
	s.RequestCalculation("finn", 0, 0, 3, 0, onUpdate)

	second := waitDistance(t, results, time.Second)
	if second.meters <= first.meters*2 {
		t.Errorf("batched compute should use the latest coordinates, got %f after %f", second.meters, first.meters)
	}

	// The superseded middle request produces no extra update.
	select {
	case extra := <-results:
		t.Fatalf("unexpected extra update: %+v", extra)
	case <-time.After(3 * interval):
	}
}

func TestStopMonitoringDropsPending(t *testing.T) {
	interval := 200 * time.Millisecond
	s := NewDistanceService(interval)
	defer s.Close()

	onUpdate, results := collectDistances()

	s.RequestCalculation("finn", 0, 0, 1, 0, onUpdate)
	waitDistance(t, results, time.Second)

	// Defer a calculation, then deregister before the tick.
	s.RequestCalculation("finn", 0, 0, 2, 0, onUpdate)
	s.StopMonitoring("finn")

	select {
	case r := <-results:
		t.Fatalf("deregistered target should not receive updates, got %+v", r)
	case <-time.After(3 * interval):
	}
}

func TestDistanceServiceCloseIdempotent(t *testing.T) {
	s := NewDistanceService(time.Millisecond)
	s.Close()
	s.Close()
}
