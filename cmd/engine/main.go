// ====================================
// File: cmd/engine/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/streetsync/launchpad-engine/internal/app"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "path to configuration file")
	seed := flag.Bool("seed", false, "seed a demo curve on startup")
	flag.Parse()

	runner, err := app.NewRunner(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start: %v\n", err)
		os.Exit(1)
	}

	if *seed {
		if err := runner.SeedDemo(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "failed to seed demo state: %v\n", err)
			os.Exit(1)
		}
	}

	if err := runner.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "engine exited with error: %v\n", err)
		os.Exit(1)
	}
}
