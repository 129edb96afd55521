package models

import "time"

type Trip struct {
	RideID         string    `json:"ride_id"`
	BikeType       string    `json:"bike_type,omitempty"`
	StartStationID string    `json:"start_station_id"`
	EndStationID   string    `json:"end_station_id"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
	IsMember       bool      `json:"is_member"`
}

// MinutesSinceMidnight returns hour*60+minute of t in its own location.
func MinutesSinceMidnight(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
