// Package config loads nbdoc settings from defaults, an optional YAML
// file and NBDOC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the working directory.
const FileName = "nbdoc.yaml"

// EnvPrefix prefixes environment overrides, e.g. NBDOC_INDEX_TITLE.
const EnvPrefix = "NBDOC"

// Config is the full nbdoc configuration.
type Config struct {
	LogLevel string         `mapstructure:"log_level"`
	Index    IndexConfig    `mapstructure:"index"`
	TOC      TOCConfig      `mapstructure:"toc"`
	Colab    ColabConfig    `mapstructure:"colab"`
	Sanitize SanitizeConfig `mapstructure:"sanitize"`
	Clean    CleanConfig    `mapstructure:"clean"`
}

type IndexConfig struct {
	Name       string `mapstructure:"name"`
	Title      string `mapstructure:"title"`
	Dictionary string `mapstructure:"dictionary"`
	MaxLevel   int    `mapstructure:"max_level"`
}

type TOCConfig struct {
	Name     string `mapstructure:"name"`
	Title    string `mapstructure:"title"`
	Preamble string `mapstructure:"preamble"`
	MaxLevel int    `mapstructure:"max_level"`
}

type ColabConfig struct {
	PublicDir string `mapstructure:"public_dir"`
	DestDir   string `mapstructure:"dest_dir"`
	URLBase   string `mapstructure:"url_base"`
}

type SanitizeConfig struct {
	DestDir string `mapstructure:"dest_dir"`
}

type CleanConfig struct {
	Preserved []string `mapstructure:"preserved"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("index.name", "index_of_terms")
	v.SetDefault("index.title", "索引")
	v.SetDefault("index.dictionary", "")
	v.SetDefault("index.max_level", 3)
	v.SetDefault("toc.name", "index")
	v.SetDefault("toc.title", "目次")
	v.SetDefault("toc.preamble", "")
	v.SetDefault("toc.max_level", 2)
	v.SetDefault("colab.public_dir", "docs")
	v.SetDefault("colab.dest_dir", "colab")
	v.SetDefault("colab.url_base", "https://username.github.io/reponame/")
	v.SetDefault("sanitize.dest_dir", ".")
	v.SetDefault("clean.preserved", []string{"tags", "nbsphinx"})
}

// Load builds the configuration. An empty path looks for FileName in the
// working directory and tolerates its absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if _, err := os.Stat(FileName); err == nil {
		v.SetConfigFile(FileName)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", FileName, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// Level parses the configured log level, defaulting to info.
func (c *Config) Level() slog.Level {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lv
}
