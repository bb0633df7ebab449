package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

var version = "dev"

func main() {
	cmd := &cli.Command{
		Name:    "jotter",
		Usage:   "Index a tree of markdown notes and bibliographies, resolve citations and render them",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Jotter root (default: nearest ancestor containing .jotter)",
				Sources: cli.EnvVars("JOTTER_ROOT"),
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to application config file",
				Sources: cli.EnvVars("JOTTER_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("JOTTER_LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			bibCommand(),
			keywordCommand(),
			ctagsCommand(),
			checkCommand(),
			htmlCommand(),
			searchCommand(),
			serveCommand(),
			mcpCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
