package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/avolkov/tiergate/internal/flagx"
	"github.com/avolkov/tiergate/internal/timex"
)

// JsonConfig is the intermediate DTO for the optional JSON config file.
// Interval fields use timex.Duration so values can be written either as
// duration strings ("15m") or integer nanoseconds.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	ResetTokenValidityDuration   timex.Duration `json:"reset_token_validity_duration"`
	VersionCacheTTL              timex.Duration `json:"version_cache_ttl"`
}

// parseJson loads configuration from the JSON file named by -c/-config.
// When no flag is given nothing is loaded. An unreadable or invalid file
// panics: a wrong config is a deployment error, not a runtime condition.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityDuration.Duration)
	config.RefreshTokenValidityDuration = time.Duration(c.RefreshTokenValidityDuration.Duration)
	config.ResetTokenValidityDuration = time.Duration(c.ResetTokenValidityDuration.Duration)
	config.VersionCacheTTL = time.Duration(c.VersionCacheTTL.Duration)
}
