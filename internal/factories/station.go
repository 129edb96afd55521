package factories

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"

	"github.com/chrisdamba/stationflow/internal/models"
	"github.com/jaswdr/faker"
)

type StationFactory struct {
	fake      faker.Faker
	rng       *rand.Rand
	nameCache sync.Map // to track used station names
}

// NewStationFactory returns a factory whose output depends only on seed.
func NewStationFactory(seed int64) *StationFactory {
	return &StationFactory{
		fake: faker.NewWithSeed(rand.NewSource(seed)),
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// CreateStation places a station uniformly within the configured urban
// radius around the city centre.
func (sf *StationFactory) CreateStation(config *models.GeneratorConfig, index int) models.Station {
	latRange := config.UrbanRadius / 111.0
	lonRange := latRange / math.Cos(config.CityLat*math.Pi/180.0)

	latOffset := (sf.rng.Float64()*2 - 1) * latRange
	lonOffset := (sf.rng.Float64()*2 - 1) * lonRange

	shortName := fmt.Sprintf("%c%d", 'A'+rune(index/1000%26), 32000+index%1000)

	return models.Station{
		ShortName: shortName,
		StationID: fmt.Sprintf("%d", 1000+index),
		Name:      sf.createUniqueName(),
		Lat:       round6(config.CityLat + latOffset),
		Lon:       round6(config.CityLon + lonOffset),
		Capacity:  sf.fake.IntBetween(11, 35),
	}
}

func (sf *StationFactory) CreateStations(config *models.GeneratorConfig) []models.Station {
	stations := make([]models.Station, config.Stations)
	for i := range stations {
		stations[i] = sf.CreateStation(config, i)
	}
	return stations
}

func (sf *StationFactory) createUniqueName() string {
	first := sf.fake.Address().StreetName()
	second := sf.fake.Address().StreetName()
	base := first
	if !strings.EqualFold(first, second) {
		base = fmt.Sprintf("%s at %s", first, second)
	}

	name := base
	counter := 2
	for {
		if _, exists := sf.nameCache.LoadOrStore(name, true); !exists {
			return name
		}
		name = fmt.Sprintf("%s (%d)", base, counter)
		counter++
	}
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
