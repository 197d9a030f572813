package config

import (
	"flag"
	"os"
	"time"

	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the ingest server (default from Config)
//	-t string   device bearer token
//	-d string   data directory for the queue database and blobs
//	-q int      local storage quota in bytes (0 = unlimited)
//	-i int      online check interval in seconds (default from Config)
//
// Note: The function filters os.Args to only include the flags it knows
// about, using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-d", "-q", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "base URL of the ingest server")
	fs.StringVar(&cfg.DeviceToken, "t", cfg.DeviceToken, "device bearer token")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory for the queue database and media blobs")
	fs.Int64Var(&cfg.QuotaBytes, "q", cfg.QuotaBytes, "local storage quota in bytes (0 = unlimited)")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
