package services

import (
	"log"
	"math"
	"sync"
	"time"
)

// DefaultDistanceDebounce is the minimum interval between global distance
// calculations.
const DefaultDistanceDebounce = 2 * time.Second

// DistanceUpdate receives a computed observer→target distance in meters.
type DistanceUpdate func(targetID string, meters float64)

type distanceTarget struct {
	targetID  string
	latitude  float64
	longitude float64
	onUpdate  DistanceUpdate
	fresh     bool // newly registered, next request computes immediately
	pending   bool
}

// DistanceService centralizes observer↔target distance computation so UI
// elements do not each run their own timer. Calls within the debounce window
// are coalesced into the next tick; the tick's batch runs concurrently with
// no ordering guarantee among targets.
type DistanceService struct {
	mu          sync.Mutex
	targets     map[string]*distanceTarget
	observerLat float64
	observerLng float64
	hasObserver bool
	lastCalc    time.Time
	interval    time.Duration

	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

// NewDistanceService starts the scheduler. A zero interval falls back to
// DefaultDistanceDebounce. Callers own the lifetime and must Close it.
func NewDistanceService(interval time.Duration) *DistanceService {
	if interval <= 0 {
		interval = DefaultDistanceDebounce
	}
	s := &DistanceService{
		targets:  make(map[string]*distanceTarget),
		interval: interval,
		ticker:   time.NewTicker(interval),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

// StartMonitoring registers a target and triggers one immediate calculation
// when an observer position is already known.
func (s *DistanceService) StartMonitoring(targetID string, lat, lng float64, onUpdate DistanceUpdate) {
	s.mu.Lock()
	s.targets[targetID] = &distanceTarget{
		targetID:  targetID,
		latitude:  lat,
		longitude: lng,
		onUpdate:  onUpdate,
		fresh:     true,
	}
	hasObserver := s.hasObserver
	obsLat, obsLng := s.observerLat, s.observerLng
	if hasObserver {
		s.targets[targetID].fresh = false
		s.lastCalc = time.Now()
	}
	s.mu.Unlock()

	if hasObserver {
		go s.compute(targetID, obsLat, obsLng, lat, lng, onUpdate)
	}
}

// StopMonitoring deregisters a target and drops any calculation still
// pending for it. A stale callback from an in-flight batch is silently
// discarded.
func (s *DistanceService) StopMonitoring(targetID string) {
	s.mu.Lock()
	delete(s.targets, targetID)
	s.mu.Unlock()
}

// RequestCalculation computes immediately when the target is newly
// registered or the debounce interval has elapsed since the last global
// calculation. Otherwise it stores the coordinates and defers the target to
// the next tick.
func (s *DistanceService) RequestCalculation(targetID string, observerLat, observerLng, targetLat, targetLng float64, onUpdate DistanceUpdate) {
	s.mu.Lock()
	s.observerLat = observerLat
	s.observerLng = observerLng
	s.hasObserver = true

	t, ok := s.targets[targetID]
	if !ok {
		t = &distanceTarget{targetID: targetID, fresh: true}
		s.targets[targetID] = t
	}
	t.latitude = targetLat
	t.longitude = targetLng
	t.onUpdate = onUpdate

	now := time.Now()
	immediate := t.fresh || now.Sub(s.lastCalc) >= s.interval
	if immediate {
		t.fresh = false
		t.pending = false
		s.lastCalc = now
	} else {
		t.pending = true
	}
	s.mu.Unlock()

	if immediate {
		go s.compute(targetID, observerLat, observerLng, targetLat, targetLng, onUpdate)
	}
}

// Close stops the ticker and the batch loop. Safe to call more than once.
func (s *DistanceService) Close() {
	s.once.Do(func() {
		s.ticker.Stop()
		close(s.done)
	})
}

func (s *DistanceService) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.ticker.C:
			s.flushPending()
		}
	}
}

// flushPending drains the pending set and computes all entries
// concurrently. The last-calculation time is recorded once the whole batch
// has completed.
func (s *DistanceService) flushPending() {
	s.mu.Lock()
	if !s.hasObserver {
		s.mu.Unlock()
		return
	}
	obsLat, obsLng := s.observerLat, s.observerLng

	var batch []*distanceTarget
	for _, t := range s.targets {
		if t.pending {
			t.pending = false
			batch = append(batch, &distanceTarget{
				targetID:  t.targetID,
				latitude:  t.latitude,
				longitude: t.longitude,
				onUpdate:  t.onUpdate,
			})
		}
	}
	s.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	log.Printf("📐 Computing distances for %d pending targets", len(batch))

	var wg sync.WaitGroup
	for _, t := range batch {
		wg.Add(1)
		go func(t *distanceTarget) {
			defer wg.Done()
			s.compute(t.targetID, obsLat, obsLng, t.latitude, t.longitude, t.onUpdate)
		}(t)
	}
	go func() {
		wg.Wait()
		s.mu.Lock()
		s.lastCalc = time.Now()
		s.mu.Unlock()
	}()
}

func (s *DistanceService) compute(targetID string, obsLat, obsLng, targetLat, targetLng float64, onUpdate DistanceUpdate) {
	meters := Haversine(obsLat, obsLng, targetLat, targetLng)

	// Target may have been deregistered while the calculation was in
	// flight; drop the result without error.
	s.mu.Lock()
	_, registered := s.targets[targetID]
	s.mu.Unlock()
	if !registered || onUpdate == nil {
		return
	}
	onUpdate(targetID, meters)
}

const earthRadiusMeters = 6371000.0

// Haversine returns the great-circle distance in meters between two
// latitude/longitude pairs.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}
