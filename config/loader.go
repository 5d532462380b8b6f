package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. CATALOG_MAX_PAGES.
const EnvPrefix = "CATALOG"

// Load reads configuration from defaults, an optional YAML file and the environment.
// Priority (highest to lowest): env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("catalog-export")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it during Unmarshal.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("base_url", cfg.BaseURL)
	v.SetDefault("listing_path_format", cfg.ListingPathFormat)
	v.SetDefault("page_separator", cfg.PageSeparator)
	v.SetDefault("item_url_prefix", cfg.ItemURLPrefix)
	v.SetDefault("thumbnail_id_separator", cfg.ThumbnailIDSeparator)
	v.SetDefault("max_pages", cfg.MaxPages)
	v.SetDefault("delay", cfg.Delay)
	v.SetDefault("timeout", cfg.Timeout)
	v.SetDefault("max_retries", cfg.MaxRetries)
	v.SetDefault("retry_backoff", cfg.RetryBackoff)
	v.SetDefault("retry_backoff_max", cfg.RetryBackoffMax)
	v.SetDefault("user_agent", cfg.UserAgent)
	v.SetDefault("detect_charset", cfg.DetectCharset)
	v.SetDefault("listen_addr", cfg.ListenAddr)
	v.SetDefault("export_filename", cfg.ExportFilename)
	v.SetDefault("output_file", cfg.OutputFile)
	v.SetDefault("archive_size", cfg.ArchiveSize)
	v.SetDefault("mongo_uri", cfg.MongoURI)
	v.SetDefault("mongo_database", cfg.MongoDatabase)
	v.SetDefault("mongo_collection", cfg.MongoCollection)
	v.SetDefault("verbose", cfg.Verbose)
}
