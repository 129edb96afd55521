package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strconv"

	"github.com/chrisdamba/stationflow/internal/models"
)

// flexFloat accepts both JSON numbers and numeric strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

type stationRecord struct {
	ShortName string    `json:"short_name"`
	StationID string    `json:"station_id"`
	Name      string    `json:"name"`
	Lat       flexFloat `json:"lat"`
	Lon       flexFloat `json:"lon"`
	Capacity  flexFloat `json:"capacity"`
}

type stationEnvelope struct {
	Data struct {
		Stations []stationRecord `json:"stations"`
	} `json:"data"`
}

// ParseStations decodes either a GBFS station_information document
// ({"data":{"stations":[...]}}) or a bare array of stations. Entries without
// a short name, and repeated short names, are dropped.
func ParseStations(r io.Reader) ([]models.Station, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []models.Station{}, nil
	}

	var records []stationRecord
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("failed to decode stations: %w", err)
		}
	} else {
		var env stationEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("failed to decode stations: %w", err)
		}
		records = env.Data.Stations
	}

	stations := make([]models.Station, 0, len(records))
	seen := make(map[string]bool, len(records))
	skipped := 0
	for _, rec := range records {
		if rec.ShortName == "" || seen[rec.ShortName] {
			skipped++
			continue
		}
		seen[rec.ShortName] = true
		stations = append(stations, models.Station{
			ShortName: rec.ShortName,
			StationID: rec.StationID,
			Name:      rec.Name,
			Lat:       float64(rec.Lat),
			Lon:       float64(rec.Lon),
			Capacity:  int(rec.Capacity),
		})
	}
	if skipped > 0 {
		log.Printf("Skipped %d stations with a missing or duplicate short_name", skipped)
	}
	return stations, nil
}

// WriteStations encodes stations as a GBFS-style document.
func WriteStations(w io.Writer, stations []models.Station) error {
	var env struct {
		Data struct {
			Stations []models.Station `json:"stations"`
		} `json:"data"`
	}
	env.Data.Stations = stations
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}
