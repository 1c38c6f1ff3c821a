// Command migrate keeps the simulator's template tenant database's schema current.
package main

import (
	"log"
	"os"

	"github.com/cedarline/schema-propagation/internal/migrate"
)

func main() {
	cfg, err := migrate.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load migration config: %v", err)
	}

	manager, err := migrate.NewManager(cfg)
	if err != nil {
		log.Fatalf("failed to create migration manager: %v", err)
	}
	defer manager.Close()

	cli := migrate.NewCLI(manager, cfg.Logger)
	if err := cli.RootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
