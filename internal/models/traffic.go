package models

import (
	"fmt"
	"time"
)

// TimeFilter is a minute of the day in [0, 1439], or AnyTime.
type TimeFilter int

const (
	AnyTime       TimeFilter = -1
	MaxTimeFilter TimeFilter = 24*60 - 1
)

func (f TimeFilter) IsAny() bool {
	return f == AnyTime
}

// Validate rejects values outside [-1, 1439].
func (f TimeFilter) Validate() error {
	if f < AnyTime || f > MaxTimeFilter {
		return fmt.Errorf("%w: %d", ErrInvalidTimeFilter, int(f))
	}
	return nil
}

// PartitionKey names the on-disk partition for snapshots under this filter.
func (f TimeFilter) PartitionKey() string {
	if f.IsAny() {
		return "time_filter=any"
	}
	return fmt.Sprintf("time_filter=%02d%02d", int(f)/60, int(f)%60)
}

// Snapshot is the result of one aggregation pass.
type Snapshot struct {
	ID          string           `json:"id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Filter      TimeFilter       `json:"time_filter"`
	Stations    []StationTraffic `json:"stations"`
	MaxTraffic  int              `json:"max_traffic"`
}
