// Package config loads the TOML configuration for the bourse server:
// listen address, scheduler intervals, and the fixed set of instruments
// and accounts provisioned at startup.
package config

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Duration is a time.Duration that unmarshals from TOML strings like
// "500ms" or "2s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Config ties together all sections of the configuration file.
type Config struct {
	Server      Server       `toml:"server"`
	Logging     Logging      `toml:"logging"`
	Metrics     Metrics      `toml:"metrics"`
	Bots        Bots         `toml:"bots"`
	Instruments []Instrument `toml:"instrument"`
	Accounts    []Account    `toml:"account"`
}

// Server configures the websocket transport and the scheduler.
type Server struct {
	ListenAddr    string   `toml:"listen_addr"`
	TickInterval  Duration `toml:"tick_interval"`
	AdminInterval Duration `toml:"admin_interval"`
	AuthGrace     Duration `toml:"auth_grace"`
}

// Logging configures the zap logger.
type Logging struct {
	Level    string `toml:"level"`
	Encoding string `toml:"encoding"`
}

// Metrics toggles the prometheus endpoint.
type Metrics struct {
	Enabled bool `toml:"enabled"`
}

// Bots configures the in-process liquidity bots. Bots trade through the
// accounts flagged with bot = true.
type Bots struct {
	Enabled       bool     `toml:"enabled"`
	OrderInterval Duration `toml:"order_interval"`
}

// Instrument declares one tradable ticker.
type Instrument struct {
	ID    uint64 `toml:"id"`
	Alias string `toml:"alias"`
}

// Account declares one trading account. An empty passphrase defaults to
// the alias.
type Account struct {
	ID         uint64 `toml:"id"`
	Alias      string `toml:"alias"`
	Passphrase string `toml:"passphrase"`
	Admin      bool   `toml:"admin"`
	Bot        bool   `toml:"bot"`
}

// Default returns the configuration used when a section is omitted.
func Default() Config {
	return Config{
		Server: Server{
			ListenAddr:    ":8080",
			TickInterval:  Duration{time.Second},
			AdminInterval: Duration{10 * time.Second},
			AuthGrace:     Duration{2 * time.Second},
		},
		Logging: Logging{Level: "info", Encoding: "console"},
		Metrics: Metrics{Enabled: true},
		Bots:    Bots{Enabled: false, OrderInterval: Duration{250 * time.Millisecond}},
	}
}

// Load reads, decodes and validates the file at path, applying defaults
// for omitted sections.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "load config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

// Validate checks cross-field constraints that the decoder cannot.
func (c Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return errors.New("server.listen_addr must be set")
	}
	if c.Server.TickInterval.Duration <= 0 {
		return errors.New("server.tick_interval must be positive")
	}
	if c.Server.AdminInterval.Duration < c.Server.TickInterval.Duration {
		return errors.New("server.admin_interval must not be shorter than the tick interval")
	}
	if len(c.Instruments) == 0 {
		return errors.New("at least one [[instrument]] is required")
	}
	if len(c.Accounts) == 0 {
		return errors.New("at least one [[account]] is required")
	}
	for _, inst := range c.Instruments {
		if inst.ID == 0 || inst.Alias == "" {
			return errors.Errorf("instrument %q: id and alias must be set", inst.Alias)
		}
	}
	for _, acct := range c.Accounts {
		if acct.ID == 0 || acct.Alias == "" {
			return errors.Errorf("account %q: id and alias must be set", acct.Alias)
		}
	}
	return nil
}

// Example is a complete configuration file, written by `bourse init`.
const Example = `[server]
listen_addr = ":8080"
tick_interval = "1s"
admin_interval = "10s"
auth_grace = "2s"

[logging]
level = "info"
encoding = "console"

[metrics]
enabled = true

[bots]
enabled = false
order_interval = "250ms"

[[instrument]]
id = 1
alias = "PHILIPS_A"

[[instrument]]
id = 2
alias = "PHILIPS_B"

[[account]]
id = 1
alias = "trading-a"
passphrase = "trading-a"

[[account]]
id = 2
alias = "trading-b"

[[account]]
id = 100
alias = "bot-00"
bot = true

[[account]]
id = 1000
alias = "terry"
admin = true
`
