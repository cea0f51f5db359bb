// internal/config/model.go
//
// Typed configuration model for the builder service.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                           – dotenv values,
//   • `conf/global.yaml`                        – primary static file,
//   • `BUILDER_`-prefixed environment overrides – highest precedence.
//
// Secrets may be written as `vault:<mount>/<path>#<key>`; ResolveSecrets
// swaps them for plain strings before any connection is opened.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Zero values are replaced by applyDefaults before validation.

package config

import (
	"context"
	"fmt"
	"time"
)

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr      string        `koanf:"listen_addr"      validate:"required,hostname_port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	ForceHTTPS      bool          `koanf:"force_https"`

	// HostMapping resolves the tenant from the request host via the apps
	// table.  When false the X-App-Id header is trusted instead.
	HostMapping bool `koanf:"host_mapping"`
}

//
// Database section
//

// Database selects the single storage backend.  The DSN stays in YAML so
// operators can tweak host or flags; the password is usually a Vault ref.
type Database struct {
	Driver   string `koanf:"driver"   validate:"required,oneof=mysql pgx memory"`
	DSN      string `koanf:"dsn"      validate:"required_unless=Driver memory"`
	Password string `koanf:"password"`
	MaxOpen  int    `koanf:"max_open" validate:"gte=0"`
	MaxIdle  int    `koanf:"max_idle" validate:"gte=0"`
	Migrate  bool   `koanf:"migrate"`
}

//
// Redis section
//

// Redis carries the cache-tag revalidation channel.  An empty URL turns
// publishing off.
type Redis struct {
	URL     string `koanf:"url"     validate:"omitempty,url"`
	Channel string `koanf:"channel"`
}

//
// Log section
//

type Log struct {
	Dir   string `koanf:"dir"`
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Tee   bool   `koanf:"tee"`
}

//
// Pages section
//

// Pages tunes the page engine.
type Pages struct {
	LockTTL             time.Duration `koanf:"lock_ttl"              validate:"gte=0"`
	LanguageDeleteScope string        `koanf:"language_delete_scope" validate:"omitempty,oneof=family branch"`
	WriteConcurrency    int           `koanf:"write_concurrency"     validate:"gte=0,lte=64"`
}

type Vault struct {
	Enabled bool `koanf:"enabled"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // BUILDER_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Redis    Redis    `koanf:"redis"`
	Log      Log      `koanf:"log"`
	Pages    Pages    `koanf:"pages"`
	Vault    Vault    `koanf:"vault"`
	Paths    Paths    `koanf:"-"`
}

func (c *Config) applyDefaults() {
	def := func(d *time.Duration, v time.Duration) {
		if *d == 0 {
			*d = v
		}
	}
	def(&c.HTTP.ReadTimeout, 10*time.Second)
	def(&c.HTTP.WriteTimeout, 30*time.Second)
	def(&c.HTTP.IdleTimeout, 60*time.Second)
	def(&c.HTTP.ShutdownTimeout, 15*time.Second)
	def(&c.Pages.LockTTL, 5*time.Minute)

	if c.Database.MaxOpen == 0 {
		c.Database.MaxOpen = 15
	}
	if c.Database.MaxIdle == 0 {
		c.Database.MaxIdle = 5
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "builder:revalidate"
	}
	if c.Log.Dir == "" {
		c.Log.Dir = "logs"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Pages.LanguageDeleteScope == "" {
		c.Pages.LanguageDeleteScope = "family"
	}
	if c.Pages.WriteConcurrency == 0 {
		c.Pages.WriteConcurrency = 8
	}
}

// SecretResolver turns a possibly-referenced value into its plain form.
type SecretResolver interface {
	Resolve(ctx context.Context, v string) (string, error)
}

// ResolveSecrets replaces every secret-bearing field in place.
func (c *Config) ResolveSecrets(ctx context.Context, r SecretResolver) error {
	for name, field := range map[string]*string{
		"database.dsn":      &c.Database.DSN,
		"database.password": &c.Database.Password,
		"redis.url":         &c.Redis.URL,
	} {
		v, err := r.Resolve(ctx, *field)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", name, err)
		}
		*field = v
	}
	return nil
}
