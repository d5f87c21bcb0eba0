package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/kinship/internal"
	pkgconfig "github.com/starford/kinship/pkg/config"
)

type entrypoint func(ctx context.Context, opts ...internal.Option) error

// action loads the configuration and hands it to one of the entry points.
// A missing config file is not an error; the defaults apply.
func action(run entrypoint) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		configPath := cmd.String("config")

		cfg := internal.NewDefaultConfig()
		if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
		if path := cmd.String("file"); path != "" {
			cfg.Family.Path = path
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
		}

		if err := run(ctx, opts...); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}
		return nil
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "kinship",
		Usage:  "Build and query a family relationship graph stored in a flat text file",
		Action: action(internal.RunMenu),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Family file path (overrides family.path)",
				Sources: cli.EnvVars("KINSHIP_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "menu",
				Usage:  "Run the interactive menu (default)",
				Action: action(internal.RunMenu),
			},
			{
				Name:   "serve",
				Usage:  "Serve the REST API and event stream",
				Action: action(internal.Serve),
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: action(internal.ServeMCP),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
