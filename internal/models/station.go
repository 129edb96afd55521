package models

// Station is a bike-share dock. ShortName is the identifier trips refer to.
type Station struct {
	ShortName string  `json:"short_name"`
	StationID string  `json:"station_id,omitempty"`
	Name      string  `json:"name"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Capacity  int     `json:"capacity,omitempty"`
}

// Location returns the station position.
func (s Station) Location() Location {
	return Location{Lat: s.Lat, Lon: s.Lon}
}

// StationTraffic is a station augmented with the counts of one filter pass.
type StationTraffic struct {
	Station
	Departures   int `json:"departures"`
	Arrivals     int `json:"arrivals"`
	TotalTraffic int `json:"total_traffic"`
}

// DepartureRatio is departures/total, or 0 for a station without traffic.
func (st StationTraffic) DepartureRatio() float64 {
	if st.TotalTraffic == 0 {
		return 0
	}
	return float64(st.Departures) / float64(st.TotalTraffic)
}
