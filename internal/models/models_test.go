package models

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestTimeFilterValidate(t *testing.T) {
	for _, f := range []TimeFilter{AnyTime, 0, 480, MaxTimeFilter} {
		if err := f.Validate(); err != nil {
			t.Errorf("Validate(%d) = %v", f, err)
		}
	}
	for _, f := range []TimeFilter{-2, 1440, 5000} {
		if err := f.Validate(); !errors.Is(err, ErrInvalidTimeFilter) {
			t.Errorf("Validate(%d) = %v, want ErrInvalidTimeFilter", f, err)
		}
	}
}

func TestTimeFilterPartitionKey(t *testing.T) {
	tests := map[TimeFilter]string{
		AnyTime: "time_filter=any",
		0:       "time_filter=0000",
		480:     "time_filter=0800",
		1439:    "time_filter=2359",
	}
	for f, want := range tests {
		if got := f.PartitionKey(); got != want {
			t.Errorf("PartitionKey(%d) = %q, want %q", f, got, want)
		}
	}
}

func TestMinutesSinceMidnight(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	ts := time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC).In(loc)
	if got := MinutesSinceMidnight(ts); got != 480 {
		t.Errorf("MinutesSinceMidnight = %d, want 480", got)
	}
}

func TestDepartureRatio(t *testing.T) {
	if got := (StationTraffic{}).DepartureRatio(); got != 0 {
		t.Errorf("ratio of idle station = %v", got)
	}
	st := StationTraffic{Departures: 1, Arrivals: 3, TotalTraffic: 4}
	if got := st.DepartureRatio(); got != 0.25 {
		t.Errorf("ratio = %v, want 0.25", got)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatalf("DefaultConfig: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
	if cfg.Filter() != AnyTime || cfg.WindowMinutes != 60 || cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Generator.Date.IsZero() || cfg.Server.Port != 8080 {
		t.Errorf("unexpected nested defaults %+v %+v", cfg.Generator, cfg.Server)
	}
}

func TestLoadConfigFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stationflow.yaml")
	data := []byte(`
stations_source: stations.json
trips_source: trips.csv
time_filter: 480
output_format: csv
output_path: out
server:
  port: 9090
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STATIONFLOW_WINDOW_MINUTES", "30")

	cfg, err := LoadConfigWith(viper.New(), path)
	if err != nil {
		t.Fatalf("LoadConfigWith: %v", err)
	}
	if cfg.StationsSource != "stations.json" || cfg.Filter() != 480 || cfg.OutputFormat != OutputFormatCSV {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.WindowMinutes != 30 {
		t.Errorf("env override not applied: window = %d", cfg.WindowMinutes)
	}
	if cfg.Server.Port != 9090 || cfg.TimeZone != "America/New_York" {
		t.Errorf("unexpected server/time zone: %+v %q", cfg.Server, cfg.TimeZone)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"filter":   "time_filter: 1440\n",
		"format":   "output_format: xml\n",
		"zone":     "time_zone: Mars/Olympus\n",
		"cloud":    "output_destination: cloud\n",
		"kafka":    "kafka_enabled: true\nkafka_broker_list: \"\"\n",
		"bad_port": "server:\n  port: 70000\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cfg.yaml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadConfigWith(viper.New(), path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	if _, err := LoadConfigWith(viper.New(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLocationWKT(t *testing.T) {
	st := Station{Lat: 42.3398, Lon: -71.0892}
	wkt := st.Location().WKT()
	if wkt != "POINT(-71.089200 42.339800)" {
		t.Fatalf("WKT = %q", wkt)
	}
	var loc Location
	if err := loc.Scan(wkt); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if loc != st.Location() {
		t.Errorf("Scan = %+v, want %+v", loc, st.Location())
	}
	if err := loc.Scan(42); err == nil {
		t.Error("expected error for unsupported type")
	}
}

// Parquet output goes through output.TrafficRecord; the domain types carry
// no columnar schema of their own.
func TestDomainTypesHaveNoParquetTags(t *testing.T) {
	for _, typ := range []reflect.Type{reflect.TypeOf(Station{}), reflect.TypeOf(Location{}), reflect.TypeOf(Trip{})} {
		for i := 0; i < typ.NumField(); i++ {
			f := typ.Field(i)
			if tag, ok := f.Tag.Lookup("parquet"); ok {
				t.Errorf("%s.%s has parquet tag %q", typ.Name(), f.Name, tag)
			}
		}
	}
}
