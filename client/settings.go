package client

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/heetch/relay/wire"
)

// Settings holds the parts of a Config that usually live in a
// deployment's configuration file rather than in code.
type Settings struct {
	Topic         string   `mapstructure:"topic"`
	ApplicationID string   `mapstructure:"application_id"`
	InstanceID    string   `mapstructure:"instance_id"`
	Format        string   `mapstructure:"format"`
	Brokers       []string `mapstructure:"brokers"`
}

var settingsKeys = []string{"topic", "application_id", "instance_id", "format", "brokers"}

// LoadSettings reads Settings from a YAML, JSON or TOML file. Every key
// can be overridden by an environment variable named after it with a
// RELAY_ prefix, such as RELAY_TOPIC or RELAY_BROKERS (comma separated).
func LoadSettings(path string) (Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("relay")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range settingsKeys {
		if err := v.BindEnv(k); err != nil {
			return Settings{}, errors.Wrapf(err, "cannot bind %s", k)
		}
	}
	v.SetDefault("format", wire.FormatHeader.String())

	if err := v.ReadInConfig(); err != nil {
		return Settings{}, errors.Wrapf(err, "cannot read settings from %s", path)
	}
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, errors.Wrapf(err, "cannot decode settings from %s", path)
	}
	return s, nil
}

// ApplySettings copies the non-empty fields of s into config.
func ApplySettings[T any](s Settings, config *Config[T]) error {
	f, err := wire.ParseFormat(s.Format)
	if err != nil {
		return err
	}
	config.Format = f
	if s.Topic != "" {
		config.Topic = s.Topic
	}
	if s.ApplicationID != "" {
		if config.Producer.ClientID == config.ApplicationID {
			config.Producer.ClientID = s.ApplicationID
		}
		config.ApplicationID = s.ApplicationID
	}
	if s.InstanceID != "" {
		config.InstanceID = s.InstanceID
	}
	if len(s.Brokers) > 0 {
		config.Brokers = s.Brokers
	}
	return nil
}
