package factories

import (
	"errors"
	"math/rand"
	"time"

	"github.com/chrisdamba/stationflow/internal/models"
	"github.com/jaswdr/faker"
	"github.com/lucsky/cuid"
)

var ErrTooFewStations = errors.New("at least two stations are needed to generate trips")

var bikeTypes = []string{"classic_bike", "electric_bike"}

// hourWeights biases start times towards the morning and evening commute.
var hourWeights = [24]int{
	1, 1, 1, 1, 1, 2, // 00-05
	5, 12, 14, 8, 5, 5, // 06-11
	6, 6, 5, 6, 10, 14, // 12-17
	11, 7, 5, 4, 3, 2, // 18-23
}

type TripFactory struct {
	fake        faker.Faker
	rng         *rand.Rand
	totalWeight int
}

func NewTripFactory(seed int64) *TripFactory {
	total := 0
	for _, w := range hourWeights {
		total += w
	}
	return &TripFactory{
		fake:        faker.NewWithSeed(rand.NewSource(seed)),
		rng:         rand.New(rand.NewSource(seed)),
		totalWeight: total,
	}
}

// CreateTrip generates a single ride on day between two distinct stations.
func (tf *TripFactory) CreateTrip(stations []models.Station, day time.Time) (models.Trip, error) {
	if len(stations) < 2 {
		return models.Trip{}, ErrTooFewStations
	}

	start := tf.rng.Intn(len(stations))
	end := tf.rng.Intn(len(stations) - 1)
	if end >= start {
		end++
	}

	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	startedAt := midnight.Add(time.Duration(tf.startHour())*time.Hour +
		time.Duration(tf.rng.Intn(3600))*time.Second)
	duration := time.Duration(tf.fake.IntBetween(3*60, 45*60)) * time.Second

	return models.Trip{
		RideID:         cuid.New(),
		BikeType:       tf.fake.RandomStringElement(bikeTypes),
		StartStationID: stations[start].ShortName,
		EndStationID:   stations[end].ShortName,
		StartedAt:      startedAt,
		EndedAt:        startedAt.Add(duration),
		IsMember:       tf.rng.Float64() < 0.75,
	}, nil
}

func (tf *TripFactory) CreateTrips(stations []models.Station, day time.Time, n int, progress func()) ([]models.Trip, error) {
	trips := make([]models.Trip, 0, n)
	for i := 0; i < n; i++ {
		trip, err := tf.CreateTrip(stations, day)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
		if progress != nil {
			progress()
		}
	}
	return trips, nil
}

func (tf *TripFactory) startHour() int {
	r := tf.rng.Intn(tf.totalWeight)
	for hour, w := range hourWeights {
		if r < w {
			return hour
		}
		r -= w
	}
	return len(hourWeights) - 1
}
