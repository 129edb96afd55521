package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chrisdamba/stationflow/internal/models"
	"github.com/lucsky/cuid"
)

var requiredTripColumns = []string{"start_station_id", "end_station_id", "started_at", "ended_at"}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

const tripTimestampLayout = "2006-01-02 15:04:05.000"

// ParseTimestamp parses a trip timestamp. Values without an offset are read
// in loc; the result is always expressed in loc.
func ParseTimestamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
}

// ParseTrips reads a trips CSV with a header row. Columns are located by
// name; ride_id, bike_type and is_member are optional. Blank ride ids get
// a generated cuid.
func ParseTrips(r io.Reader, loc *time.Location) ([]models.Trip, error) {
	if loc == nil {
		loc = time.Local
	}
	reader := csv.NewReader(r)
	reader.ReuseRecord = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []models.Trip{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, name := range requiredTripColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	field := func(fields []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(fields) {
			return ""
		}
		return fields[i]
	}

	var trips []models.Trip
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)

		startedAt, err := ParseTimestamp(field(fields, "started_at"), loc)
		if err != nil {
			return nil, fmt.Errorf("line %d: started_at: %w", line, err)
		}
		endedAt, err := ParseTimestamp(field(fields, "ended_at"), loc)
		if err != nil {
			return nil, fmt.Errorf("line %d: ended_at: %w", line, err)
		}
		rideID := strings.TrimSpace(field(fields, "ride_id"))
		if rideID == "" {
			rideID = cuid.New()
		}
		trips = append(trips, models.Trip{
			RideID:         rideID,
			BikeType:       field(fields, "bike_type"),
			StartStationID: strings.TrimSpace(field(fields, "start_station_id")),
			EndStationID:   strings.TrimSpace(field(fields, "end_station_id")),
			StartedAt:      startedAt,
			EndedAt:        endedAt,
			IsMember:       parseBool(field(fields, "is_member")),
		})
	}
	if trips == nil {
		trips = []models.Trip{}
	}
	return trips, nil
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}

// WriteTrips encodes trips in the CSV layout ParseTrips reads.
func WriteTrips(w io.Writer, trips []models.Trip) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ride_id", "bike_type", "started_at", "ended_at", "start_station_id", "end_station_id", "is_member"}); err != nil {
		return err
	}
	for _, t := range trips {
		member := "0"
		if t.IsMember {
			member = "1"
		}
		err := cw.Write([]string{
			t.RideID,
			t.BikeType,
			t.StartedAt.Format(tripTimestampLayout),
			t.EndedAt.Format(tripTimestampLayout),
			t.StartStationID,
			t.EndStationID,
			member,
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
