// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Solon         SolonConfig             `mapstructure:"solon"`
	Browser       BrowserConfig           `mapstructure:"browser"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	API           APIConfig               `mapstructure:"api"`
	Cache         CacheConfig             `mapstructure:"cache"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	LookupProcess  string `mapstructure:"lookup_process"`  // BPMN process id started per submitted job
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"` // case snapshot index name
}

// SolonConfig holds everything that is specific to the SOLON Track page:
// the URL and the ADF selectors the scraper drives. Selectors live in
// config because they break whenever the portal ships a new release.
type SolonConfig struct {
	TrackURL        string `mapstructure:"track_url"`
	CourtSelect     string `mapstructure:"court_select"`
	NumberInput     string `mapstructure:"number_input"`
	YearInput       string `mapstructure:"year_input"`
	SearchButton    string `mapstructure:"search_button"`
	Grid            string `mapstructure:"grid"`
	GridBody        string `mapstructure:"grid_body"`
	GridHeader      string `mapstructure:"grid_header"`
	GridSpinner     string `mapstructure:"grid_spinner"`
	NoDataText      string `mapstructure:"no_data_text"`
	ResultTimeout   int    `mapstructure:"result_timeout"`   // milliseconds
	DefaultTimeout  int    `mapstructure:"default_timeout"`  // milliseconds
	NavigateTimeout int    `mapstructure:"navigate_timeout"` // milliseconds
}

// ResultWait returns the grid-ready wait as a duration.
func (s SolonConfig) ResultWait() time.Duration {
	return time.Duration(s.ResultTimeout) * time.Millisecond
}

// BrowserConfig holds headless-Chrome launch settings.
type BrowserConfig struct {
	Headless  bool   `mapstructure:"headless"`
	NoSandbox bool   `mapstructure:"no_sandbox"`
	Locale    string `mapstructure:"locale"`
	Width     int    `mapstructure:"width"`
	Height    int    `mapstructure:"height"`
	// Human-pacing bounds between form interactions, milliseconds.
	PaceMin int `mapstructure:"pace_min"`
	PaceMax int `mapstructure:"pace_max"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// APIConfig holds the HTTP submit/poll surface settings.
type APIConfig struct {
	Listen string `mapstructure:"listen"`
}

// CacheConfig controls snapshot reuse: a lookup within SnapshotTTL of a
// previous successful scrape of the same docket key returns the cached
// snapshot instead of driving the portal again.
type CacheConfig struct {
	SnapshotTTL int `mapstructure:"snapshot_ttl"` // seconds
	DedupeLease int `mapstructure:"dedupe_lease"` // seconds a docket key scrape lease is held
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// NotificationConfig holds settings for lookup-completion emails.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}
