package irc

import (
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config describes how Dial reaches the server.
type Config struct {
	Host           string        `yaml:"host" toml:"host"`
	Port           int           `yaml:"port" toml:"port"`
	BindAddress    string        `yaml:"bind_address" toml:"bind_address"`
	BindPort       int           `yaml:"bind_port" toml:"bind_port"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" toml:"connect_timeout"`
	KeepAlive      bool          `yaml:"keepalive" toml:"keepalive"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" toml:"idle_timeout"`
	Encoding       string        `yaml:"encoding" toml:"encoding"`
	Flood          FloodConfig   `yaml:"flood" toml:"flood"`
}

// DefaultConfig returns the settings used for fields a config file leaves out.
func DefaultConfig() Config {
	return Config{
		Port:           6667,
		ConnectTimeout: 180 * time.Second,
		KeepAlive:      true,
		Encoding:       "utf-8",
		Flood:          DefaultFloodConfig(),
	}
}

// Addr returns the host:port pair to dial.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks the fields Dial depends on.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return errors.New("config: host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("config: port %d out of range", c.Port)
	}
	if c.BindPort < 0 || c.BindPort > 65535 {
		return errors.Errorf("config: bind port %d out of range", c.BindPort)
	}
	if c.BindAddress != "" && net.ParseIP(c.BindAddress) == nil {
		return errors.Errorf("config: bind address %q is not an IP", c.BindAddress)
	}
	if c.ConnectTimeout < 0 {
		return errors.Errorf("config: negative connect timeout %s", c.ConnectTimeout)
	}
	if c.IdleTimeout < 0 {
		return errors.Errorf("config: negative idle timeout %s", c.IdleTimeout)
	}
	return nil
}

// LoadConfig reads a YAML (.yaml, .yml) or TOML (.toml) file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "load config")
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return LoadYAML(f)
	case ".toml":
		return LoadTOML(f)
	default:
		return Config{}, errors.Errorf("load config: unsupported file type %q", ext)
	}
}

// LoadYAML decodes a YAML document on top of DefaultConfig.
func LoadYAML(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "decode yaml config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadTOML decodes a TOML document on top of DefaultConfig.
func LoadTOML(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode toml config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
