package models

import "errors"

const (
	OutputFormatJSON    = "json"
	OutputFormatCSV     = "csv"
	OutputFormatParquet = "parquet"

	OutputDestinationLocal = "local"
	OutputDestinationCloud = "cloud"

	SourcePostgres = "postgres"

	TopicStationTraffic = "station_traffic"

	DefaultWindowMinutes = 60
)

var (
	ErrInvalidTimeFilter = errors.New("time filter must be -1 or a minute of the day in [0, 1439]")
	ErrNoData            = errors.New("stations and trips have not been loaded")
)
