// Package markers turns aggregated station traffic into circle marker
// attributes: radius, fill colour, flow bucket and tooltip.
package markers

import (
	"fmt"
	"math"
	"time"

	"github.com/chrisdamba/stationflow/internal/models"
	"github.com/chrisdamba/stationflow/internal/traffic"
)

var (
	// FlowColors maps departure ratio buckets: mostly arrivals, balanced, mostly departures.
	FlowColors  = []string{"darkorange", "purple", "steelblue"}
	FlowBuckets = []float64{0, 0.5, 1}
)

const (
	FillOpacity = 0.6
	StrokeColor = "white"
	StrokeWidth = 1
)

// RadiusRange is the output range of the radius scale.
type RadiusRange struct {
	Min float64
	Max float64
}

var (
	FilteredRadius   = RadiusRange{Min: 3, Max: 50}
	UnfilteredRadius = RadiusRange{Min: 0, Max: 25}
)

type Marker struct {
	ShortName      string  `json:"short_name"`
	Name           string  `json:"name"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	Departures     int     `json:"departures"`
	Arrivals       int     `json:"arrivals"`
	TotalTraffic   int     `json:"total_traffic"`
	Radius         float64 `json:"radius"`
	Fill           string  `json:"fill"`
	DepartureRatio float64 `json:"departure_ratio"`
	FlowBucket     float64 `json:"flow_bucket"`
	Tooltip        string  `json:"tooltip"`
}

// SqrtScale maps [0, DomainMax] onto Range by square root.
type SqrtScale struct {
	DomainMax float64
	Range     RadiusRange
}

// NewRadiusScale builds the radius scale for a result set. A zero maximum is
// replaced by 1 so the domain never collapses.
func NewRadiusScale(result []models.StationTraffic, filter models.TimeFilter) SqrtScale {
	r := FilteredRadius
	if filter.IsAny() {
		r = UnfilteredRadius
	}
	return SqrtScale{DomainMax: float64(traffic.ScaleMax(result)), Range: r}
}

func (s SqrtScale) Scale(v float64) float64 {
	if s.DomainMax <= 0 {
		return s.Range.Min
	}
	t := math.Sqrt(math.Max(v, 0)) / math.Sqrt(s.DomainMax)
	return s.Range.Min + t*(s.Range.Max-s.Range.Min)
}

// quantize maps v in [0, 1] onto one of n equal buckets.
func quantize(v float64, n int) int {
	i := int(math.Floor(v * float64(n)))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func FlowColor(ratio float64) string {
	return FlowColors[quantize(ratio, len(FlowColors))]
}

func FlowBucket(ratio float64) float64 {
	return FlowBuckets[quantize(ratio, len(FlowBuckets))]
}

func Tooltip(st models.StationTraffic) string {
	return fmt.Sprintf("%s\n%d trips (%d departures, %d arrivals)\nFlow ratio: %.1f%% departures",
		st.Name, st.TotalTraffic, st.Departures, st.Arrivals, st.DepartureRatio()*100)
}

// Build returns one marker per station, in input order.
func Build(result []models.StationTraffic, filter models.TimeFilter) []Marker {
	scale := NewRadiusScale(result, filter)
	out := make([]Marker, len(result))
	for i, st := range result {
		ratio := st.DepartureRatio()
		out[i] = Marker{
			ShortName:      st.ShortName,
			Name:           st.Name,
			Lat:            st.Lat,
			Lon:            st.Lon,
			Departures:     st.Departures,
			Arrivals:       st.Arrivals,
			TotalTraffic:   st.TotalTraffic,
			Radius:         scale.Scale(float64(st.TotalTraffic)),
			Fill:           FlowColor(ratio),
			DepartureRatio: ratio,
			FlowBucket:     FlowBucket(ratio),
			Tooltip:        Tooltip(st),
		}
	}
	return out
}

// FormatTime renders a filter as a short clock label such as "8:00 AM".
func FormatTime(filter models.TimeFilter) string {
	if filter.IsAny() {
		return "any time"
	}
	minutes := int(filter)
	t := time.Date(2000, time.January, 1, minutes/60, minutes%60, 0, 0, time.UTC)
	return t.Format("3:04 PM")
}
