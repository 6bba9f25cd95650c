package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Options controls where settings are read from.
type Options struct {
	// Dir is searched for the settings files. Empty means the current directory.
	Dir string
	// Files replaces the default settings file list when set.
	Files []string
	// Environment selects a top-level section when the files use the
	// default/<environment> layout. Empty means OSIA_ENV or "development".
	Environment string
}

// Load reads and merges the settings files found in opts.Dir.
// Missing files are skipped; no files at all yields empty settings.
func Load(opts Options) (*Settings, error) {
	v := newViper()

	files := opts.Files
	if len(files) == 0 {
		files = settingsFiles
	}

	for _, name := range files {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(opts.Dir, name)
		}
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to stat settings file %s: %w", path, err)
		}

		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
		}
	}

	v, err := selectEnvironment(v, opts.Environment)
	if err != nil {
		return nil, err
	}

	return decode(v)
}

// LoadBytes decodes settings from a YAML document.
func LoadBytes(data []byte) (*Settings, error) {
	v := newViper()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// selectEnvironment flattens the default/<environment> layout. Files
// without a "default" section are returned unchanged.
func selectEnvironment(v *viper.Viper, env string) (*viper.Viper, error) {
	if !v.IsSet("default") {
		return v, nil
	}

	if env == "" {
		env = os.Getenv(EnvPrefix + "_ENV")
	}
	if env == "" {
		env = "development"
	}

	merged := newViper()
	if err := merged.MergeConfigMap(v.GetStringMap("default")); err != nil {
		return nil, fmt.Errorf("failed to merge default settings: %w", err)
	}
	if v.IsSet(env) {
		if err := merged.MergeConfigMap(v.GetStringMap(env)); err != nil {
			return nil, fmt.Errorf("failed to merge %s settings: %w", env, err)
		}
	}
	return merged, nil
}

func decode(v *viper.Viper) (*Settings, error) {
	decoderConfig := func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
		)
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings, decoderConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	return settings, nil
}
