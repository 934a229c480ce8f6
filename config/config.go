package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/hogwarts-cloud/stackctl/pkg/utils"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "STACKCTL"

	DefaultCloud = "openstack"
	// CloudEnv is the variable OpenStack tooling uses to pick a clouds.yaml entry.
	CloudEnv = "OS_CLOUD"

	ConfigKey              = "config"
	SSHDirKey              = "ssh-dir"
	CloudKey               = "cloud"
	ServerReadyTimeoutKey  = "server-ready-timeout"
	ServerDeleteTimeoutKey = "server-delete-timeout"
	VerboseKey             = "verbose"
)

// Settings are the runtime knobs of a single invocation. They come from
// flags, STACKCTL_* environment variables and defaults, in that order.
type Settings struct {
	Config              string        `mapstructure:"config"`
	SSHDir              string        `mapstructure:"ssh-dir"`
	Cloud               string        `mapstructure:"cloud"`
	ServerReadyTimeout  time.Duration `mapstructure:"server-ready-timeout"`
	ServerDeleteTimeout time.Duration `mapstructure:"server-delete-timeout"`
	Verbose             bool          `mapstructure:"verbose"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault(ConfigKey, "config.yml")
	v.SetDefault(SSHDirKey, "~/.ssh")
	v.SetDefault(CloudKey, defaultCloud())
	v.SetDefault(ServerReadyTimeoutKey, 120*time.Second)
	v.SetDefault(ServerDeleteTimeoutKey, 300*time.Second)
	v.SetDefault(VerboseKey, false)
}

func defaultCloud() string {
	if cloud := os.Getenv(CloudEnv); cloud != "" {
		return cloud
	}
	return DefaultCloud
}

func Load(v *viper.Viper) (Settings, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	settings := Settings{}

	if err := v.Unmarshal(&settings, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			expandHomeHookFunc(),
		))); err != nil {
		return Settings{}, fmt.Errorf("failed to unmarshal settings: %w", err)
	}

	return settings, nil
}

func expandHomeHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.String {
			return data, nil
		}

		return utils.ExpandHome(data.(string))
	}
}
