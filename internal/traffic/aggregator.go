// Package traffic computes per-station departure and arrival counts for a
// time-of-day filter.
package traffic

import (
	"github.com/chrisdamba/stationflow/internal/models"
)

// Aggregator counts trips per station. Window is the half-width, in minutes,
// of the time-of-day window around a filter value.
type Aggregator struct {
	Window int
}

func NewAggregator(window int) *Aggregator {
	return &Aggregator{Window: window}
}

// Aggregate runs the default ±60 minute aggregation.
func Aggregate(stations []models.Station, trips []models.Trip, filter models.TimeFilter) []models.StationTraffic {
	return NewAggregator(models.DefaultWindowMinutes).Aggregate(stations, trips, filter)
}

// Aggregate returns one entry per station, in input order, with departures,
// arrivals and total traffic for the trips matching filter. The inputs are
// never modified. Windows do not wrap around midnight.
func (a *Aggregator) Aggregate(stations []models.Station, trips []models.Trip, filter models.TimeFilter) []models.StationTraffic {
	departures := make(map[string]int)
	arrivals := make(map[string]int)
	for i := range trips {
		if !a.Matches(trips[i], filter) {
			continue
		}
		departures[trips[i].StartStationID]++
		arrivals[trips[i].EndStationID]++
	}

	result := make([]models.StationTraffic, len(stations))
	for i, station := range stations {
		dep := departures[station.ShortName]
		arr := arrivals[station.ShortName]
		result[i] = models.StationTraffic{
			Station:      station,
			Departures:   dep,
			Arrivals:     arr,
			TotalTraffic: dep + arr,
		}
	}
	return result
}

// Matches reports whether trip counts toward filter: always for AnyTime,
// otherwise when its start or end minute-of-day lies within the window.
func (a *Aggregator) Matches(trip models.Trip, filter models.TimeFilter) bool {
	if filter.IsAny() {
		return true
	}
	return a.within(models.MinutesSinceMidnight(trip.StartedAt), filter) ||
		a.within(models.MinutesSinceMidnight(trip.EndedAt), filter)
}

func (a *Aggregator) within(minutes int, filter models.TimeFilter) bool {
	d := minutes - int(filter)
	if d < 0 {
		d = -d
	}
	return d <= a.Window
}

// Filter returns the trips matching filter, sharing the input's elements.
func (a *Aggregator) Filter(trips []models.Trip, filter models.TimeFilter) []models.Trip {
	if filter.IsAny() {
		return trips
	}
	out := make([]models.Trip, 0, len(trips))
	for _, t := range trips {
		if a.Matches(t, filter) {
			out = append(out, t)
		}
	}
	return out
}

// MaxTraffic is the largest TotalTraffic in result, 0 when empty.
func MaxTraffic(result []models.StationTraffic) int {
	max := 0
	for _, st := range result {
		if st.TotalTraffic > max {
			max = st.TotalTraffic
		}
	}
	return max
}

// ScaleMax is MaxTraffic with 1 substituted for 0, for use as a scale domain.
func ScaleMax(result []models.StationTraffic) int {
	if m := MaxTraffic(result); m > 0 {
		return m
	}
	return 1
}
