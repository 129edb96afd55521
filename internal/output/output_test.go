package output

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/chrisdamba/stationflow/internal/cloudwriter"
	"github.com/chrisdamba/stationflow/internal/models"
	"github.com/google/go-cmp/cmp"
)

func sampleSnapshot(filter models.TimeFilter) models.Snapshot {
	return models.Snapshot{
		ID:          "snap1",
		GeneratedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Filter:      filter,
		Stations: []models.StationTraffic{
			{Station: models.Station{ShortName: "A", Name: "Alpha", Lat: 42.1, Lon: -71.1}, Departures: 2, Arrivals: 1, TotalTraffic: 3},
			{Station: models.Station{ShortName: "B", Name: "Beta", Lat: 42.2, Lon: -71.2}, Departures: 0, Arrivals: 1, TotalTraffic: 1},
		},
		MaxTraffic: 3,
	}
}

func TestRecords(t *testing.T) {
	got := Records(sampleSnapshot(480))
	want := []TrafficRecord{
		{SnapshotID: "snap1", Timestamp: 1709294400, TimeFilter: 480, ShortName: "A", Name: "Alpha", Lat: 42.1, Lon: -71.1, Departures: 2, Arrivals: 1, TotalTraffic: 3},
		{SnapshotID: "snap1", Timestamp: 1709294400, TimeFilter: 480, ShortName: "B", Name: "Beta", Lat: 42.2, Lon: -71.2, Departures: 0, Arrivals: 1, TotalTraffic: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Records mismatch (-want +got):\n%s", diff)
	}
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	out := NewConsoleOutput(&buf)
	if err := Publish(context.Background(), out, "station_traffic", sampleSnapshot(models.AnyTime)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "[station_traffic] ") {
		t.Errorf("line %q lacks topic prefix", lines[0])
	}
	var rec TrafficRecord
	if err := json.Unmarshal([]byte(strings.TrimPrefix(lines[0], "[station_traffic] ")), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.ShortName != "A" || rec.TimeFilter != -1 || rec.TotalTraffic != 3 {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestPublishStopsOnCancelledContext(t *testing.T) {
	var buf bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Publish(ctx, NewConsoleOutput(&buf), "t", sampleSnapshot(0)); err == nil {
		t.Fatal("expected context error")
	}
	if buf.Len() != 0 {
		t.Errorf("wrote %q after cancellation", buf.String())
	}
}

func TestJSONOutputPartitionsByFilter(t *testing.T) {
	dir := t.TempDir()
	out := NewJSONOutput(dir, "traffic")
	ctx := context.Background()
	if err := Publish(ctx, out, "station_traffic", sampleSnapshot(models.AnyTime)); err != nil {
		t.Fatalf("Publish any: %v", err)
	}
	if err := Publish(ctx, out, "station_traffic", sampleSnapshot(480)); err != nil {
		t.Fatalf("Publish 480: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	for _, partition := range []string{"time_filter=any", "time_filter=0800"} {
		path := filepath.Join(dir, "traffic", "station_traffic", partition, "data.json")
		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("open %s: %v", path, err)
		}
		var names []string
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			var rec TrafficRecord
			if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
				t.Fatalf("decode %s: %v", path, err)
			}
			names = append(names, rec.ShortName)
		}
		f.Close()
		if diff := cmp.Diff([]string{"A", "B"}, names); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", partition, diff)
		}
	}
}

func TestCSVOutput(t *testing.T) {
	dir := t.TempDir()
	out := NewCSVOutput(dir, "traffic")
	if err := Publish(context.Background(), out, "station_traffic", sampleSnapshot(480)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "traffic", "station_traffic", "time_filter=0800", "data.csv"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	wantHeader := []string{"arrivals", "departures", "lat", "lon", "name", "short_name", "snapshot_id", "time_filter", "timestamp", "total_traffic"}
	if diff := cmp.Diff(wantHeader, rows[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	if rows[1][5] != "A" || rows[1][9] != "3" {
		t.Errorf("unexpected first row %v", rows[1])
	}
}

func TestCSVOutputKeepsIntegerColumns(t *testing.T) {
	dir := t.TempDir()
	out := NewCSVOutput(dir, "traffic")
	snap := sampleSnapshot(480)
	snap.GeneratedAt = time.Unix(1709269219, 0).UTC()
	snap.Stations = snap.Stations[:1]
	snap.Stations[0].Departures = 1234567
	snap.Stations[0].TotalTraffic = 1234568
	if err := Publish(context.Background(), out, "station_traffic", snap); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "traffic", "station_traffic", "time_filter=0800", "data.csv"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	row := map[string]string{}
	for i, h := range rows[0] {
		row[h] = rows[1][i]
	}
	want := map[string]string{
		"timestamp":     "1709269219",
		"departures":    "1234567",
		"total_traffic": "1234568",
		"lat":           "42.1",
	}
	for k, v := range want {
		if row[k] != v {
			t.Errorf("%s = %q, want %q", k, row[k], v)
		}
	}
}

func TestJSONOutputCloseClosesEveryFile(t *testing.T) {
	dir := t.TempDir()
	out := NewJSONOutput(dir, "traffic")
	ctx := context.Background()
	if err := Publish(ctx, out, "station_traffic", sampleSnapshot(models.AnyTime)); err != nil {
		t.Fatal(err)
	}
	if err := Publish(ctx, out, "station_traffic", sampleSnapshot(480)); err != nil {
		t.Fatal(err)
	}
	var files []*os.File
	for _, f := range out.files {
		files = append(files, f)
	}
	if len(files) != 2 {
		t.Fatalf("got %d open files, want 2", len(files))
	}
	// an already-closed file makes Close fail; the other must still be closed
	files[0].Close()

	if err := out.Close(); err == nil {
		t.Error("expected error from the already-closed file")
	}
	if _, err := files[1].Write([]byte("x")); err == nil {
		t.Error("second file left open after Close error")
	}
}

func TestProducerConfig(t *testing.T) {
	cfg := producerConfig()
	if cfg.Producer.RequiredAcks != sarama.WaitForAll || !cfg.Producer.Return.Successes {
		t.Errorf("unexpected producer settings %+v", cfg.Producer)
	}
	if cfg.Consumer.Group.Session.Timeout != sarama.NewConfig().Consumer.Group.Session.Timeout {
		t.Error("producer config should leave consumer settings at their defaults")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestParquetOutputLocal(t *testing.T) {
	dir := t.TempDir()
	out := NewParquetOutput(dir, "traffic", nil, "")
	if err := Publish(context.Background(), out, "station_traffic", sampleSnapshot(480)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "traffic", "station_traffic", "time_filter=0800", "data.parquet"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("PAR1")) || !bytes.HasSuffix(data, []byte("PAR1")) {
		t.Errorf("file is not parquet (%d bytes)", len(data))
	}
}

type memWriter struct {
	buf    *bytes.Buffer
	closed bool
}

func (m *memWriter) Write(p []byte) (int, error) { return m.buf.Write(p) }
func (m *memWriter) Close() error                { m.closed = true; return nil }

type memFactory struct {
	objects map[string]*memWriter
}

func (f *memFactory) NewWriter(bucket, objectPath string) (cloudwriter.CloudWriter, error) {
	w := &memWriter{buf: &bytes.Buffer{}}
	f.objects[bucket+"/"+objectPath] = w
	return w, nil
}

func TestParquetOutputCloud(t *testing.T) {
	factory := &memFactory{objects: make(map[string]*memWriter)}
	out := NewParquetOutput("", "traffic", factory, "bucket")
	if err := Publish(context.Background(), out, "station_traffic", sampleSnapshot(models.AnyTime)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	obj, ok := factory.objects["bucket/traffic/station_traffic/time_filter=any/data.parquet"]
	if !ok {
		t.Fatalf("object not written, have %v", factory.objects)
	}
	if !obj.closed {
		t.Error("cloud writer was not closed")
	}
	if !bytes.HasPrefix(obj.buf.Bytes(), []byte("PAR1")) {
		t.Errorf("object is not parquet (%d bytes)", obj.buf.Len())
	}
}

func TestKafkaOutputKeysByStation(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	var keys []string
	for i := 0; i < 2; i++ {
		producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
			key, err := msg.Key.Encode()
			if err != nil {
				return err
			}
			keys = append(keys, string(key))
			return nil
		})
	}

	out := NewKafkaOutputWithProducer(producer)
	if err := Publish(context.Background(), out, "station_traffic", sampleSnapshot(480)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if diff := cmp.Diff([]string{"A", "B"}, keys); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	if err := out.WriteMessage("t", []byte(`{}`)); err == nil {
		t.Error("expected error writing to a closed producer")
	}
}

func TestKafkaOutputPropagatesSendError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	out := NewKafkaOutputWithProducer(producer)
	defer out.Close()
	if err := Publish(context.Background(), out, "station_traffic", sampleSnapshot(480)); err == nil {
		t.Fatal("expected send error")
	}
}

type fakeTrafficRepo struct {
	saved []models.Snapshot
}

func (f *fakeTrafficRepo) SaveSnapshot(ctx context.Context, s models.Snapshot) error {
	f.saved = append(f.saved, s)
	return nil
}

func (f *fakeTrafficRepo) Latest(ctx context.Context, filter models.TimeFilter) (*models.Snapshot, error) {
	for i := len(f.saved) - 1; i >= 0; i-- {
		if f.saved[i].Filter == filter {
			return &f.saved[i], nil
		}
	}
	return nil, nil
}

func TestPostgresOutputWritesWholeSnapshot(t *testing.T) {
	repo := &fakeTrafficRepo{}
	closed := false
	out := NewPostgresOutput(repo, func() { closed = true })

	snap := sampleSnapshot(480)
	if err := Publish(context.Background(), out, "station_traffic", snap); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(repo.saved) != 1 {
		t.Fatalf("saved %d snapshots, want 1", len(repo.saved))
	}
	if diff := cmp.Diff(snap, repo.saved[0]); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	msg, _ := json.Marshal(Records(snap)[1])
	if err := out.WriteMessage("station_traffic", msg); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	single := repo.saved[1]
	if len(single.Stations) != 1 || single.Stations[0].ShortName != "B" || single.Filter != 480 {
		t.Errorf("unexpected single-station snapshot %+v", single)
	}

	if err := out.Close(); err != nil || !closed {
		t.Errorf("Close: err=%v closed=%v", err, closed)
	}
}

func TestNewDestinationSelection(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		cfg  models.Config
		want string
	}{
		{"console", models.Config{}, "*output.ConsoleOutput"},
		{"json", models.Config{OutputPath: dir, OutputFormat: models.OutputFormatJSON}, "*output.JSONOutput"},
		{"csv", models.Config{OutputPath: dir, OutputFormat: models.OutputFormatCSV}, "*output.CSVOutput"},
		{"parquet", models.Config{OutputPath: dir, OutputFormat: models.OutputFormatParquet}, "*output.ParquetOutput"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest, err := NewDestination(context.Background(), &tt.cfg)
			if err != nil {
				t.Fatalf("NewDestination: %v", err)
			}
			defer dest.Close()
			if got := typeName(dest); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}

	cfg := models.Config{OutputPath: dir, OutputFormat: "xml"}
	if _, err := NewDestination(context.Background(), &cfg); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func typeName(v interface{}) string {
	switch v.(type) {
	case *ConsoleOutput:
		return "*output.ConsoleOutput"
	case *JSONOutput:
		return "*output.JSONOutput"
	case *CSVOutput:
		return "*output.CSVOutput"
	case *ParquetOutput:
		return "*output.ParquetOutput"
	}
	return "unknown"
}
