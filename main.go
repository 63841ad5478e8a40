package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Black-And-White-Club/award-rotation/app"
	"github.com/Black-And-White-Club/award-rotation/config"
	"github.com/urfave/cli/v2"
)

func main() {
	cliApp := &cli.App{
		Name:  "award-rotation",
		Usage: "multi-tenant MVP and winner award rotation service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "config.yaml",
				Usage:   "path to the YAML config file",
				EnvVars: []string{"CONFIG_PATH"},
			},
		},
		Action: run,
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	application := &app.App{}
	if err := application.Initialize(ctx, cfg); err != nil {
		_ = application.Close()
		return fmt.Errorf("failed to initialize app: %w", err)
	}

	runErr := application.Run(ctx)

	if err := application.Close(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	if runErr != nil {
		return fmt.Errorf("application stopped with error: %w", runErr)
	}
	log.Println("Application shut down gracefully.")
	return nil
}

