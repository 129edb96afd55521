// Package output writes aggregated station traffic to the configured sink.
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/chrisdamba/stationflow/internal/models"
)

type OutputDestination interface {
	WriteMessage(topic string, msg []byte) error
	Close() error
}

// SnapshotWriter is implemented by sinks that store a snapshot as a unit
// rather than one message per station.
type SnapshotWriter interface {
	WriteSnapshot(ctx context.Context, snapshot models.Snapshot) error
}

// TrafficRecord is the flattened, per-station form of a snapshot.
type TrafficRecord struct {
	SnapshotID   string  `json:"snapshot_id" parquet:"name=snapshot_id,type=BYTE_ARRAY,convertedtype=UTF8"`
	Timestamp    int64   `json:"timestamp" parquet:"name=timestamp,type=INT64"`
	TimeFilter   int32   `json:"time_filter" parquet:"name=time_filter,type=INT32"`
	ShortName    string  `json:"short_name" parquet:"name=short_name,type=BYTE_ARRAY,convertedtype=UTF8"`
	Name         string  `json:"name" parquet:"name=name,type=BYTE_ARRAY,convertedtype=UTF8"`
	Lat          float64 `json:"lat" parquet:"name=lat,type=DOUBLE"`
	Lon          float64 `json:"lon" parquet:"name=lon,type=DOUBLE"`
	Departures   int32   `json:"departures" parquet:"name=departures,type=INT32"`
	Arrivals     int32   `json:"arrivals" parquet:"name=arrivals,type=INT32"`
	TotalTraffic int32   `json:"total_traffic" parquet:"name=total_traffic,type=INT32"`
}

// Records flattens a snapshot, one record per station.
func Records(snapshot models.Snapshot) []TrafficRecord {
	records := make([]TrafficRecord, len(snapshot.Stations))
	for i, st := range snapshot.Stations {
		records[i] = TrafficRecord{
			SnapshotID:   snapshot.ID,
			Timestamp:    snapshot.GeneratedAt.Unix(),
			TimeFilter:   int32(snapshot.Filter),
			ShortName:    st.ShortName,
			Name:         st.Name,
			Lat:          st.Lat,
			Lon:          st.Lon,
			Departures:   int32(st.Departures),
			Arrivals:     int32(st.Arrivals),
			TotalTraffic: int32(st.TotalTraffic),
		}
	}
	return records
}

// Publish writes snapshot to dest under topic.
func Publish(ctx context.Context, dest OutputDestination, topic string, snapshot models.Snapshot) error {
	if sw, ok := dest.(SnapshotWriter); ok {
		return sw.WriteSnapshot(ctx, snapshot)
	}
	for _, rec := range Records(snapshot) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode record for %s: %w", rec.ShortName, err)
		}
		if err := dest.WriteMessage(topic, msg); err != nil {
			return fmt.Errorf("failed to write record for %s: %w", rec.ShortName, err)
		}
	}
	return nil
}

func decodeRecord(msg []byte) (TrafficRecord, error) {
	var rec TrafficRecord
	if err := json.Unmarshal(msg, &rec); err != nil {
		return rec, fmt.Errorf("invalid traffic record: %w", err)
	}
	return rec, nil
}

func partitionPath(msg []byte) (string, error) {
	rec, err := decodeRecord(msg)
	if err != nil {
		return "", err
	}
	return models.TimeFilter(rec.TimeFilter).PartitionKey(), nil
}

type ConsoleOutput struct {
	w io.Writer
}

func NewConsoleOutput(w io.Writer) *ConsoleOutput {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleOutput{w: w}
}

func (c *ConsoleOutput) WriteMessage(topic string, msg []byte) error {
	if _, err := fmt.Fprintf(c.w, "[%s] %s\n", topic, msg); err != nil {
		return fmt.Errorf("failed to write to console: %w", err)
	}
	return nil
}

func (c *ConsoleOutput) Close() error {
	if f, ok := c.w.(*os.File); ok {
		// Try to sync, but don't return an error if it fails
		_ = f.Sync()
	}
	return nil
}
