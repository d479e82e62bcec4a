package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/workledger/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// Only the flags handled here are passed to the flag set (see
// flagx.FilterArgs), so -c/-config does not trip it.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-p", "-t", "-i", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "default relay base URL")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path of the local database")
	fs.IntVar(&cfg.PageSize, "p", cfg.PageSize, "pull page size")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "relay request timeout (in seconds)")
	interval := fs.Int("i", int(cfg.SyncInterval.Seconds()), "background sync interval (in seconds), 0 disables it")
	fs.StringVar(&cfg.LogFormat, "l", cfg.LogFormat, "log format: console or json")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	cfg.SyncInterval = time.Duration(*interval) * time.Second
}
