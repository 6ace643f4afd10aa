package main

import (
	"flag"
	"fmt"
	"os"

	"StudentDrop/internal/di"
	"StudentDrop/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	port := flag.Int("port", 0, "listen port, overrides config and PORT")
	checkOnly := flag.Bool("check", false, "validate configuration and exit")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		fail("config load failed: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
		if err := cfg.Validate(); err != nil {
			fail("invalid -port: %v", err)
		}
	}

	if *checkOnly {
		fmt.Printf("config ok: env=%s listen=%s:%d train_delay=%s\n",
			cfg.Environment, cfg.Server.Host, cfg.Server.Port, cfg.ML.TrainDelay)
		return
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		fail("app initialization failed: %v", err)
	}

	// blocks until SIGINT/SIGTERM
	if err := app.Run(); err != nil {
		fail("app error: %v", err)
	}
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
