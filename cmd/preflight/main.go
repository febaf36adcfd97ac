// Preflight checks a deployment's configuration before the collector or
// agent starts. Exit code 1 means the setup would fail at runtime.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/netradar/netradar/internal/config"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg, err := config.Load("")
	if err != nil {
		fail(err.Error())
	}
	ok(fmt.Sprintf("config loaded (%d targets)", len(cfg.Targets)))

	if strings.TrimSpace(cfg.APIKey) == "" {
		fail("api_key is empty (ingest requests will be rejected).")
	}
	if strings.Contains(cfg.APIKey, " ") {
		warn("api_key contains spaces; check for copy-paste artifacts")
	}
	ok("api_key present")

	if cfg.DatabaseURL == "" && cfg.DBPath == "" {
		warn("no db_path or database_url — checks will be held in memory only.")
	} else if cfg.DatabaseURL != "" {
		ok("database_url present")
	} else {
		ok("db_path=" + cfg.DBPath)
	}

	if cfg.CollectorURL == "" {
		warn("collector_url empty — agent mode unavailable; collector standalone only.")
	} else {
		ok("collector_url=" + cfg.CollectorURL)
	}

	if len(cfg.Targets) == 0 {
		warn("no targets configured — nothing will be probed locally.")
	}

	ok("preflight passed")
}
