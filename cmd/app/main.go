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
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
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

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "laguz",
		Usage:  "Local-first Jupyter notebook workspace with nbformat storage, full-text search, and live updates",
		Action: runServe,
		Flags:  []cli.Flag{configFlag()},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP API server (default)",
				Action: runServe,
				Flags:  []cli.Flag{configFlag()},
			},
			{
				Name:   "mcp",
				Usage:  "Start the MCP server on stdin/stdout for LLM integration",
				Action: runMCP,
				Flags:  []cli.Flag{configFlag()},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
