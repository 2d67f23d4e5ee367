package config

import (
	"strings"

	"github.com/spf13/viper"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

// envKeys are bound explicitly so overrides apply even when the key is
// absent from the config file.
var envKeys = []string{
	"corpus.path",
	"matcher.scan_threshold",
	"matcher.accept_threshold",
	"matcher.distance",
	"matcher.location",
	"matcher.keyword_in_query",
	"fallback.seed",
	"typing.tick_ms",
	"storage.backend",
	"storage.path",
	"storage.sqlite_path",
	"storage.redis.addr",
	"storage.redis.password",
	"storage.redis.db",
	"storage.redis.prefix",
	"logging.level",
	"logging.file",
	"logging.console",
	"metrics.enabled",
	"metrics.addr",
	"ui.theme",
	"data_dir",
}

func bindEnv(v *viper.Viper) {
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
}
