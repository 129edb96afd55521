package traffic

import (
	"sync"
	"time"

	"github.com/chrisdamba/stationflow/internal/models"
	"github.com/lucsky/cuid"
)

// Session holds the current filter and the loaded stations and trips.
// Source lists are only ever replaced as a whole.
type Session struct {
	mu         sync.RWMutex
	aggregator *Aggregator
	stations   []models.Station
	trips      []models.Trip
	filter     models.TimeFilter
	loaded     bool
	loadedAt   time.Time
	now        func() time.Time
}

func NewSession(aggregator *Aggregator) *Session {
	if aggregator == nil {
		aggregator = NewAggregator(models.DefaultWindowMinutes)
	}
	return &Session{
		aggregator: aggregator,
		filter:     models.AnyTime,
		now:        time.Now,
	}
}

// Replace installs new source lists. The slices are copied.
func (s *Session) Replace(stations []models.Station, trips []models.Trip) {
	st := append([]models.Station(nil), stations...)
	tr := append([]models.Trip(nil), trips...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stations = st
	s.trips = tr
	s.loaded = true
	s.loadedAt = s.now()
}

func (s *Session) SetFilter(filter models.TimeFilter) error {
	if err := filter.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.filter = filter
	s.mu.Unlock()
	return nil
}

func (s *Session) Filter() models.TimeFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// Ready reports whether both source lists have been loaded.
func (s *Session) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *Session) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Counts returns the number of loaded stations and trips.
func (s *Session) Counts() (stations, trips int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stations), len(s.trips)
}

// Recompute aggregates under the session's current filter.
func (s *Session) Recompute() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(s.filter)
}

// RecomputeAt aggregates under filter without changing the session's filter.
func (s *Session) RecomputeAt(filter models.TimeFilter) (models.Snapshot, error) {
	if err := filter.Validate(); err != nil {
		return models.Snapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(filter), nil
}

func (s *Session) snapshot(filter models.TimeFilter) models.Snapshot {
	result := s.aggregator.Aggregate(s.stations, s.trips, filter)
	return models.Snapshot{
		ID:          cuid.New(),
		GeneratedAt: s.now().UTC(),
		Filter:      filter,
		Stations:    result,
		MaxTraffic:  MaxTraffic(result),
	}
}
