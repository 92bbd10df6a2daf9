package config

import (
	"flag"
	"os"
	"time"

	"github.com/avolkov/tiergate/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-r int      refresh token validity, hours
//	-p int      reset token validity, minutes
//	-v int      token-version cache TTL, seconds (0 disables the cache)
//
// Args are first filtered with flagx.FilterArgs so flags owned by other
// components do not break parsing.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-r", "-p", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessMinutes := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshHours := fs.Int("r", int(config.RefreshTokenValidityDuration.Hours()), "refresh token validity (in hours)")
	resetMinutes := fs.Int("p", int(config.ResetTokenValidityDuration.Minutes()), "reset token validity (in minutes)")
	cacheSeconds := fs.Int("v", int(config.VersionCacheTTL.Seconds()), "token-version cache TTL (in seconds, 0 disables)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessMinutes) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshHours) * time.Hour
	config.ResetTokenValidityDuration = time.Duration(*resetMinutes) * time.Minute
	config.VersionCacheTTL = time.Duration(*cacheSeconds) * time.Second
}
