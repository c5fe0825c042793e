// Package config assembles adapter configuration from command-line flags,
// with an optional YAML file supplying defaults for anything not passed
// explicitly on the command line.
package config

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every setting the adapter needs to start serving.
type Config struct {
	Line        string `yaml:"line"`
	Baud        int    `yaml:"baud"`
	Port        int    `yaml:"port"`
	ManifestDir string `yaml:"manifest_dir"`

	RedisAddr string `yaml:"redis_addr"`
	RedisPass string `yaml:"redis_pass"`
	RedisDB   int    `yaml:"redis_db"`
}

const (
	defaultBaud = 115200
	defaultPort = 8080
)

// Load parses args (typically os.Args[1:]) into a Config. When --config
// names a YAML file, its values seed the defaults; any flag explicitly
// passed on the command line always wins over the file.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("arduino-mcp-adapter", flag.ContinueOnError)

	var (
		line        = fs.String("line", "", "path to the serial device (e.g. /dev/ttyACM0)")
		baud        = fs.Int("baud", defaultBaud, "serial baud rate")
		port        = fs.Int("port", defaultPort, "HTTP port to listen on")
		manifestDir = fs.String("manifest-dir", "./manifests", "directory of per-device manifest files")
		configPath  = fs.String("config", "", "optional YAML file of configuration defaults")
		redisAddr   = fs.String("redis-addr", "", "optional redis address for telemetry publishing")
		redisPass   = fs.String("redis-pass", "", "redis password, if required")
		redisDB     = fs.Int("redis-db", 0, "redis database index")
	)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := &Config{
		Line:        *line,
		Baud:        *baud,
		Port:        *port,
		ManifestDir: *manifestDir,
		RedisAddr:   *redisAddr,
		RedisPass:   *redisPass,
		RedisDB:     *redisDB,
	}

	if *configPath != "" {
		fromFile, err := loadYAML(*configPath)
		if err != nil {
			return nil, err
		}
		explicit := make(map[string]bool)
		fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
		applyDefaults(cfg, fromFile, explicit)
	}

	if cfg.Line == "" {
		return nil, fmt.Errorf("config: --line (serial device path) is required")
	}

	return cfg, nil
}

func loadYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &c, nil
}

// applyDefaults fills any field in cfg whose corresponding flag was not
// explicitly set on the command line with the value from file, unless
// file's value is the zero value too.
func applyDefaults(cfg, file *Config, explicit map[string]bool) {
	if !explicit["line"] && file.Line != "" {
		cfg.Line = file.Line
	}
	if !explicit["baud"] && file.Baud != 0 {
		cfg.Baud = file.Baud
	}
	if !explicit["port"] && file.Port != 0 {
		cfg.Port = file.Port
	}
	if !explicit["manifest-dir"] && file.ManifestDir != "" {
		cfg.ManifestDir = file.ManifestDir
	}
	if !explicit["redis-addr"] && file.RedisAddr != "" {
		cfg.RedisAddr = file.RedisAddr
	}
	if !explicit["redis-pass"] && file.RedisPass != "" {
		cfg.RedisPass = file.RedisPass
	}
	if !explicit["redis-db"] && file.RedisDB != 0 {
		cfg.RedisDB = file.RedisDB
	}
}
