package models

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type CloudStorageConfig struct {
	Provider   string `mapstructure:"provider" yaml:"provider" validate:"omitempty,oneof=s3"`
	Region     string `mapstructure:"region" yaml:"region"`
	BucketName string `mapstructure:"bucket_name" yaml:"bucket_name"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	DBName   string `mapstructure:"dbname" yaml:"dbname"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
}

// ConnString renders the keyword/value DSN understood by pgx.
func (d DatabaseConfig) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

type ServerConfig struct {
	Port           int      `mapstructure:"port" yaml:"port" validate:"gt=0,lte=65535"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// GeneratorConfig drives the synthetic dataset factories.
type GeneratorConfig struct {
	Seed         int64     `mapstructure:"seed" yaml:"seed"`
	Stations     int       `mapstructure:"stations" yaml:"stations" validate:"gte=0"`
	Trips        int       `mapstructure:"trips" yaml:"trips" validate:"gte=0"`
	Date         time.Time `mapstructure:"date" yaml:"date"`
	CityLat      float64   `mapstructure:"city_latitude" yaml:"city_latitude" validate:"gte=-90,lte=90"`
	CityLon      float64   `mapstructure:"city_longitude" yaml:"city_longitude" validate:"gte=-180,lte=180"`
	UrbanRadius  float64   `mapstructure:"urban_radius" yaml:"urban_radius" validate:"gte=0"` // km
	StationsFile string    `mapstructure:"stations_file" yaml:"stations_file"`
	TripsFile    string    `mapstructure:"trips_file" yaml:"trips_file"`
}

type Config struct {
	StationsSource string        `mapstructure:"stations_source" yaml:"stations_source" validate:"required"`
	TripsSource    string        `mapstructure:"trips_source" yaml:"trips_source" validate:"required"`
	TimeZone       string        `mapstructure:"time_zone" yaml:"time_zone"`
	TimeFilter     int           `mapstructure:"time_filter" yaml:"time_filter" validate:"gte=-1,lte=1439"`
	WindowMinutes  int           `mapstructure:"window_minutes" yaml:"window_minutes" validate:"gte=0,lte=720"`
	HTTPTimeout    time.Duration `mapstructure:"http_timeout" yaml:"http_timeout"`

	OutputFormat      string             `mapstructure:"output_format" yaml:"output_format" validate:"omitempty,oneof=json csv parquet"`
	OutputPath        string             `mapstructure:"output_path" yaml:"output_path"`
	OutputFolder      string             `mapstructure:"output_folder" yaml:"output_folder"`
	OutputDestination string             `mapstructure:"output_destination" yaml:"output_destination" validate:"omitempty,oneof=local cloud"`
	CloudStorage      CloudStorageConfig `mapstructure:"cloud_storage" yaml:"cloud_storage"`

	KafkaEnabled    bool   `mapstructure:"kafka_enabled" yaml:"kafka_enabled"`
	KafkaBrokerList string `mapstructure:"kafka_broker_list" yaml:"kafka_broker_list"`
	KafkaTopic      string `mapstructure:"kafka_topic" yaml:"kafka_topic"`

	PostgresEnabled bool           `mapstructure:"postgres_enabled" yaml:"postgres_enabled"`
	Database        DatabaseConfig `mapstructure:"database" yaml:"database"`

	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Generator GeneratorConfig `mapstructure:"generator" yaml:"generator"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("stations_source", "https://dsc106.com/labs/lab07/data/bluebikes-stations.json")
	v.SetDefault("trips_source", "https://dsc106.com/labs/lab07/data/bluebikes-traffic-2024-03.csv")
	v.SetDefault("time_zone", "America/New_York")
	v.SetDefault("time_filter", int(AnyTime))
	v.SetDefault("window_minutes", DefaultWindowMinutes)
	v.SetDefault("http_timeout", "30s")
	v.SetDefault("output_format", OutputFormatJSON)
	v.SetDefault("output_folder", "station_traffic")
	v.SetDefault("output_destination", OutputDestinationLocal)
	v.SetDefault("kafka_broker_list", "localhost:9092")
	v.SetDefault("kafka_topic", TopicStationTraffic)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "stationflow")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("generator.seed", 42)
	v.SetDefault("generator.stations", 60)
	v.SetDefault("generator.trips", 5000)
	v.SetDefault("generator.date", "2024-03-01T00:00:00-05:00")
	v.SetDefault("generator.city_latitude", 42.3398)
	v.SetDefault("generator.city_longitude", -71.0892)
	v.SetDefault("generator.urban_radius", 4.0)
	v.SetDefault("generator.stations_file", "stations.json")
	v.SetDefault("generator.trips_file", "trips.csv")
}

// LoadConfig initializes and reads the configuration using the global Viper
// instance, so values bound to command-line flags take part.
func LoadConfig(cfgFile string) (*Config, error) {
	return LoadConfigWith(viper.GetViper(), cfgFile)
}

// LoadConfigWith reads cfgFile (if any) into v and decodes the result.
// A missing default config file is not an error; defaults and environment
// variables still apply.
func LoadConfigWith(v *viper.Viper, cfgFile string) (*Config, error) {
	SetDefaults(v)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("examples")
		v.SetConfigName("stationflow")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("STATIONFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns the configuration produced by defaults alone.
func DefaultConfig() (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	decoderConfigOption := viper.DecoderConfigOption(func(config *mapstructure.DecoderConfig) {
		config.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			config.DecodeHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		)
	})
	if err := v.Unmarshal(&config, decoderConfigOption); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	return &config, nil
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (cfg *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := cfg.Location(); err != nil {
		return fmt.Errorf("invalid config: time_zone %q: %w", cfg.TimeZone, err)
	}
	if cfg.OutputDestination == OutputDestinationCloud && cfg.CloudStorage.BucketName == "" {
		return fmt.Errorf("invalid config: cloud_storage.bucket_name is required for cloud output")
	}
	if cfg.KafkaEnabled && cfg.KafkaBrokerList == "" {
		return fmt.Errorf("invalid config: kafka_broker_list is required when kafka is enabled")
	}
	return nil
}

// Location resolves TimeZone; an empty zone means the local zone.
func (cfg *Config) Location() (*time.Location, error) {
	if cfg.TimeZone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(cfg.TimeZone)
}

// Filter returns the configured time filter.
func (cfg *Config) Filter() TimeFilter {
	return TimeFilter(cfg.TimeFilter)
}
