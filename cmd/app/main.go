package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/laguz/internal"
	pkgconfig "github.com/starford/laguz/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOrDefault(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "laguz",
		Usage:  "Local-first biomarker dashboard: lab history, health score, focus areas and plan goals",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
