// Package loader fetches the station and trip datasets from local files,
// http(s) URLs, S3 objects or the Postgres store.
package loader

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/chrisdamba/stationflow/internal/models"
	"github.com/chrisdamba/stationflow/internal/repositories"
	"golang.org/x/sync/errgroup"
)

// GetObjectAPI is the part of the S3 client the loader needs.
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type Loader struct {
	HTTPClient *http.Client
	S3         GetObjectAPI
	Stations   repositories.StationRepository
	Trips      repositories.TripRepository
	Location   *time.Location
}

// Dataset is a matching pair of station and trip lists.
type Dataset struct {
	Stations []models.Station
	Trips    []models.Trip
}

func New(timeout time.Duration, loc *time.Location) *Loader {
	if loc == nil {
		loc = time.Local
	}
	return &Loader{
		HTTPClient: &http.Client{Timeout: timeout},
		Location:   loc,
	}
}

// Load fetches both datasets concurrently and returns only when both succeed.
func (l *Loader) Load(ctx context.Context, stationsSource, tripsSource string) (*Dataset, error) {
	var ds Dataset
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stations, err := l.LoadStations(ctx, stationsSource)
		if err != nil {
			return fmt.Errorf("stations: %w", err)
		}
		ds.Stations = stations
		return nil
	})
	g.Go(func() error {
		trips, err := l.LoadTrips(ctx, tripsSource)
		if err != nil {
			return fmt.Errorf("trips: %w", err)
		}
		ds.Trips = trips
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Printf("Loaded %d stations and %d trips", len(ds.Stations), len(ds.Trips))
	return &ds, nil
}

func (l *Loader) LoadStations(ctx context.Context, source string) ([]models.Station, error) {
	if source == models.SourcePostgres {
		if l.Stations == nil {
			return nil, fmt.Errorf("postgres source requested but no station repository is configured")
		}
		return l.Stations.GetAll(ctx)
	}
	rc, err := l.open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ParseStations(rc)
}

func (l *Loader) LoadTrips(ctx context.Context, source string) ([]models.Trip, error) {
	if source == models.SourcePostgres {
		if l.Trips == nil {
			return nil, fmt.Errorf("postgres source requested but no trip repository is configured")
		}
		trips, err := l.Trips.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		// timestamptz comes back in the session zone, not the city's
		for i := range trips {
			trips[i].StartedAt = trips[i].StartedAt.In(l.Location)
			trips[i].EndedAt = trips[i].EndedAt.In(l.Location)
		}
		return trips, nil
	}
	rc, err := l.open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ParseTrips(rc, l.Location)
}

func (l *Loader) open(ctx context.Context, source string) (io.ReadCloser, error) {
	switch {
	case source == "":
		return nil, fmt.Errorf("empty source")
	case strings.HasPrefix(source, "s3://"):
		return l.openS3(ctx, source)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return l.openHTTP(ctx, source)
	default:
		return os.Open(source)
	}
}

func (l *Loader) openHTTP(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	client := l.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}
	return resp.Body, nil
}

func (l *Loader) openS3(ctx context.Context, source string) (io.ReadCloser, error) {
	if l.S3 == nil {
		return nil, fmt.Errorf("s3 source %s requested but no S3 client is configured", source)
	}
	bucket, key, err := ParseS3URI(source)
	if err != nil {
		return nil, err
	}
	out, err := l.S3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", source, err)
	}
	return out.Body, nil
}

// ParseS3URI splits s3://bucket/key.
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 uri: %s", uri)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 uri must name a bucket and key: %s", uri)
	}
	return bucket, key, nil
}

// UsesS3 reports whether any of the sources is an S3 object.
func UsesS3(sources ...string) bool {
	for _, s := range sources {
		if strings.HasPrefix(s, "s3://") {
			return true
		}
	}
	return false
}

// UsesPostgres reports whether any of the sources is the Postgres store.
func UsesPostgres(sources ...string) bool {
	for _, s := range sources {
		if s == models.SourcePostgres {
			return true
		}
	}
	return false
}
