// Package config loads the veloxcrdb command configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/syssam/veloxcrdb/dialect"
	"github.com/syssam/veloxcrdb/retry"
)

// Drivers are the database/sql drivers a database may use.
var Drivers = []string{"pgx", "postgres"}

// Config is the content of the configuration file.
type Config struct {
	// Databases maps a name to a connection.
	Databases map[string]Database `yaml:"databases"`
	// Retry overrides the retry policy of CockroachDB flushes.
	Retry Retry `yaml:"retry,omitempty"`
	// Flush lists the tables flushed when none are given on the command line.
	Flush StringList `yaml:"flush,omitempty"`
}

// Database configures a connection.
type Database struct {
	// Dialect is "cockroach" (default) or "postgres".
	Dialect string `yaml:"dialect,omitempty"`
	// Driver is the database/sql driver, "pgx" (default) or "postgres".
	Driver string `yaml:"driver,omitempty"`
	DSN    string `yaml:"dsn"`
	// TimeZone is the IANA name of the connection time zone.
	TimeZone string `yaml:"time_zone,omitempty"`
	// StatementTimeout aborts statements running longer. Zero disables it.
	StatementTimeout time.Duration `yaml:"statement_timeout,omitempty"`
}

// Location returns the time zone of the connection, or nil if none is set.
func (d Database) Location() (*time.Location, error) {
	if d.TimeZone == "" {
		return nil, nil
	}
	loc, err := time.LoadLocation(d.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("config: time zone: %w", err)
	}
	return loc, nil
}

// Retry overrides fields of retry.DefaultPolicy. Zero fields keep the default.
type Retry struct {
	Attempts     int           `yaml:"attempts,omitempty"`
	InitialDelay time.Duration `yaml:"initial_delay,omitempty"`
	Multiplier   float64       `yaml:"multiplier,omitempty"`
	MaxDelay     time.Duration `yaml:"max_delay,omitempty"`
}

// Policy returns the retry policy.
func (r Retry) Policy() retry.Policy {
	p := retry.DefaultPolicy
	if r.Attempts != 0 {
		p.Attempts = r.Attempts
	}
	if r.InitialDelay != 0 {
		p.InitialDelay = r.InitialDelay
	}
	if r.Multiplier != 0 {
		p.Multiplier = r.Multiplier
	}
	if r.MaxDelay != 0 {
		p.MaxDelay = r.MaxDelay
	}
	return p
}

// StringList is a YAML value that is either a string or a list of strings.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = []string{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	default:
		return fmt.Errorf("expected string or list, got %v", node.Kind)
	}
}

// Load loads the configuration file at path. A .env file in the working
// directory, if any, is loaded first and ${VAR} references in the file are
// expanded from the environment.
func Load(path string) (*Config, error) {
	if err := loadEnvFile(".env"); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads the configuration from r, expands environment variables,
// applies defaults and validates the result.
func Parse(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	dec := yaml.NewDecoder(strings.NewReader(expandEnv(string(data))))
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	for name, db := range c.Databases {
		if db.Dialect == "" {
			db.Dialect = dialect.CockroachDB
		}
		if db.Driver == "" {
			db.Driver = "pgx"
		}
		c.Databases[name] = db
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if len(c.Databases) == 0 {
		return errors.New("config: no databases configured")
	}
	for _, name := range c.Names() {
		db := c.Databases[name]
		switch {
		case db.DSN == "":
			return fmt.Errorf("config: database %q: missing dsn", name)
		case !dialect.IsPostgresFamily(db.Dialect):
			return fmt.Errorf("config: database %q: unsupported dialect %q", name, db.Dialect)
		case !slices.Contains(Drivers, db.Driver):
			return fmt.Errorf("config: database %q: unsupported driver %q", name, db.Driver)
		case db.StatementTimeout < 0:
			return fmt.Errorf("config: database %q: negative statement_timeout %s", name, db.StatementTimeout)
		}
		if _, err := db.Location(); err != nil {
			return fmt.Errorf("config: database %q: %w", name, err)
		}
	}
	if err := c.Retry.Policy().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Names returns the sorted database names.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Databases))
	for name := range c.Databases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select returns the named databases, or all of them if names is empty.
func (c *Config) Select(names ...string) (map[string]Database, error) {
	if len(names) == 0 {
		return c.Databases, nil
	}
	dbs := make(map[string]Database, len(names))
	for _, name := range names {
		db, ok := c.Databases[name]
		if !ok {
			return nil, fmt.Errorf("config: unknown database %q", name)
		}
		dbs[name] = db
	}
	return dbs, nil
}

// loadEnvFile loads path into the environment if it exists. Variables that
// are already set are not overridden.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} references with the value of the environment
// variable. Unset variables expand to "".
func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(m string) string {
		return os.Getenv(m[2 : len(m)-1])
	})
}
