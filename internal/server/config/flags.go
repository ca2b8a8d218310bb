package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/skillhub/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     gRPC bind address (e.g., ":50051")
//	-d string     PostgreSQL DSN
//	-s string     JWT HMAC secret key
//	-u string     S3 root user
//	-p string     S3 root password
//	-b string     S3 bucket name
//	-g string     S3 region
//	-e string     S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-l string     log level (debug, info, warn, error)
//	-f string     log format (json, text)
//	-w int        cleanup workers
//	-i duration   cleanup sweep interval (e.g., "10m")
//	-t duration   slug reservation TTL (e.g., "720h")
//	-m string     moderation rules file
//
// Only recognised flags are parsed; flagx.FilterArgs drops the rest so the
// config file flag and flags of other components do not collide.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-u", "-p", "-b", "-g", "-e", "-l", "-f", "-w", "-i", "-t", "-m"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "log format")
	fs.IntVar(&config.CleanupWorkers, "w", config.CleanupWorkers, "cleanup workers")
	fs.DurationVar(&config.CleanupSweepInterval, "i", config.CleanupSweepInterval, "cleanup sweep interval")
	fs.DurationVar(&config.ReservationTTL, "t", config.ReservationTTL, "slug reservation TTL")
	fs.StringVar(&config.ModerationRulesFile, "m", config.ModerationRulesFile, "moderation rules file")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
