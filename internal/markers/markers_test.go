package markers

import (
	"math"
	"testing"

	"github.com/chrisdamba/stationflow/internal/models"
)

func stationTraffic(name string, dep, arr int) models.StationTraffic {
	return models.StationTraffic{
		Station:      models.Station{ShortName: name, Name: name + " St"},
		Departures:   dep,
		Arrivals:     arr,
		TotalTraffic: dep + arr,
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRadiusScaleFiltered(t *testing.T) {
	result := []models.StationTraffic{stationTraffic("A", 50, 50), stationTraffic("B", 25, 0), stationTraffic("C", 0, 0)}
	scale := NewRadiusScale(result, 480)

	if !approx(scale.Scale(100), 50) {
		t.Errorf("max radius = %v, want 50", scale.Scale(100))
	}
	if !approx(scale.Scale(25), 3+0.5*47) {
		t.Errorf("radius(25) = %v, want %v", scale.Scale(25), 3+0.5*47)
	}
	if !approx(scale.Scale(0), 3) {
		t.Errorf("radius(0) = %v, want 3", scale.Scale(0))
	}
}

func TestRadiusScaleUnfilteredRange(t *testing.T) {
	result := []models.StationTraffic{stationTraffic("A", 4, 0)}
	scale := NewRadiusScale(result, models.AnyTime)
	if !approx(scale.Scale(4), 25) || !approx(scale.Scale(0), 0) {
		t.Errorf("unfiltered range = [%v, %v], want [0, 25]", scale.Scale(0), scale.Scale(4))
	}
}

func TestRadiusScaleAllZero(t *testing.T) {
	result := []models.StationTraffic{stationTraffic("A", 0, 0), stationTraffic("B", 0, 0)}
	scale := NewRadiusScale(result, 480)
	if scale.DomainMax != 1 {
		t.Errorf("DomainMax = %v, want 1", scale.DomainMax)
	}
	for _, m := range Build(result, 480) {
		if math.IsNaN(m.Radius) || !approx(m.Radius, 3) {
			t.Errorf("%s radius = %v, want 3", m.ShortName, m.Radius)
		}
	}
}

func TestFlowColor(t *testing.T) {
	cases := []struct {
		ratio float64
		want  string
	}{
		{0, "darkorange"},
		{0.2, "darkorange"},
		{0.34, "purple"},
		{0.5, "purple"},
		{0.67, "steelblue"},
		{1, "steelblue"},
	}
	for _, c := range cases {
		if got := FlowColor(c.ratio); got != c.want {
			t.Errorf("FlowColor(%v) = %s, want %s", c.ratio, got, c.want)
		}
	}
	if FlowBucket(0.1) != 0 || FlowBucket(0.5) != 0.5 || FlowBucket(0.9) != 1 {
		t.Errorf("unexpected flow buckets: %v %v %v", FlowBucket(0.1), FlowBucket(0.5), FlowBucket(0.9))
	}
}

func TestTooltip(t *testing.T) {
	got := Tooltip(stationTraffic("A", 3, 1))
	want := "A St\n4 trips (3 departures, 1 arrivals)\nFlow ratio: 75.0% departures"
	if got != want {
		t.Errorf("Tooltip = %q, want %q", got, want)
	}
	if got := Tooltip(stationTraffic("B", 0, 0)); got != "B St\n0 trips (0 departures, 0 arrivals)\nFlow ratio: 0.0% departures" {
		t.Errorf("zero-traffic tooltip = %q", got)
	}
}

func TestBuildKeepsOrder(t *testing.T) {
	result := []models.StationTraffic{stationTraffic("A", 1, 0), stationTraffic("B", 0, 1), stationTraffic("C", 0, 0)}
	got := Build(result, models.AnyTime)
	if len(got) != 3 {
		t.Fatalf("got %d markers, want 3", len(got))
	}
	for i, name := range []string{"A", "B", "C"} {
		if got[i].ShortName != name {
			t.Errorf("marker %d = %s, want %s", i, got[i].ShortName, name)
		}
	}
	if got[0].Fill != "steelblue" || got[1].Fill != "darkorange" {
		t.Errorf("fills = %s, %s", got[0].Fill, got[1].Fill)
	}
}

func TestFormatTime(t *testing.T) {
	cases := map[models.TimeFilter]string{
		models.AnyTime: "any time",
		0:              "12:00 AM",
		480:            "8:00 AM",
		750:            "12:30 PM",
		1439:           "11:59 PM",
	}
	for f, want := range cases {
		if got := FormatTime(f); got != want {
			t.Errorf("FormatTime(%d) = %q, want %q", f, got, want)
		}
	}
}
