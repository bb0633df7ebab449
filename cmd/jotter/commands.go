package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/jotter/internal"
	"github.com/starford/jotter/internal/apperr"
	"github.com/starford/jotter/internal/noteservice"
	"github.com/starford/jotter/internal/root"
	pkgconfig "github.com/starford/jotter/pkg/config"
)

// env is the state shared by every subcommand.
type env struct {
	root   string
	rel    root.RelFunc
	config *internal.Config
	logger *slog.Logger
	out    io.Writer
}

func setup(cmd *cli.Command, handler func(io.Writer, *slog.HandlerOptions) slog.Handler, logOut io.Writer) (*env, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	dir, rel, err := root.Resolve(cmd.String("root"), cwd)
	if err != nil {
		return nil, err
	}

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		if err := cfg.App.LogLevel.UnmarshalText([]byte(lvl)); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}
	cfg.ResolvePaths(dir)

	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}
	return &env{
		root:   dir,
		rel:    rel,
		config: cfg,
		logger: slog.New(handler(logOut, &slog.HandlerOptions{Level: cfg.App.LogLevel})),
		out:    out,
	}, nil
}

func textHandler(w io.Writer, o *slog.HandlerOptions) slog.Handler { return slog.NewTextHandler(w, o) }

func jsonHandler(w io.Writer, o *slog.HandlerOptions) slog.Handler { return slog.NewJSONHandler(w, o) }

func (e *env) options() []internal.Option {
	return []internal.Option{
		internal.WithConfig(e.config),
		internal.WithRoot(e.root),
		internal.WithLogger(e.logger),
		internal.WithVersion(version),
	}
}

// withService runs fn against a note service for the resolved tree. CLI
// commands log text to stderr; stdout carries command output.
func withService(fn func(context.Context, *env, *noteservice.Service, *cli.Command) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		e, err := setup(cmd, textHandler, os.Stderr)
		if err != nil {
			return err
		}
		svc, closeFn, err := internal.NewService(e.options()...)
		if err != nil {
			return err
		}
		defer closeFn()
		return fn(ctx, e, svc, cmd)
	}
}

func bibCommand() *cli.Command {
	return &cli.Command{
		Name:      "bib",
		Usage:     "Print bibliography entries (all entries when no key is given)",
		ArgsUsage: "[KEY...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "deps", Aliases: []string{"d"}, Usage: "Also print crossref/xref dependencies"},
		},
		Action: withService(func(ctx context.Context, e *env, svc *noteservice.Service, cmd *cli.Command) error {
			entries, _, err := svc.Bibliography(ctx, cmd.Args().Slice(), cmd.Bool("deps"))
			if err != nil {
				return err
			}
			for _, entry := range entries {
				fmt.Fprintln(e.out, entry)
				fmt.Fprintln(e.out)
			}
			return nil
		}),
	}
}

func keywordCommand() *cli.Command {
	return &cli.Command{
		Name:      "keyword",
		Usage:     "Show all files associated with a keyword",
		ArgsUsage: "[KEYWORD]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "list", Aliases: []string{"l"}, Usage: "List all keywords used in this jotter"},
			&cli.BoolFlag{Name: "count", Aliases: []string{"c"}, Usage: "Show keyword counts (implies --list)"},
		},
		Action: withService(func(ctx context.Context, e *env, svc *noteservice.Service, cmd *cli.Command) error {
			if cmd.Bool("list") || cmd.Bool("count") {
				kws, err := svc.Keywords(ctx)
				if err != nil {
					return err
				}
				printKeywords(e.out, kws, cmd.Bool("count"))
				return nil
			}
			if cmd.Args().Len() == 0 {
				return cli.ShowSubcommandHelp(cmd)
			}
			kw := strings.Join(cmd.Args().Slice(), " ")
			docs, err := svc.KeywordDocuments(ctx, kw)
			if errors.Is(err, apperr.ErrNotFound) {
				return cli.Exit(fmt.Sprintf("No such keyword: %q", kw), 1)
			}
			if err != nil {
				return err
			}
			for _, d := range docs {
				fmt.Fprintln(e.out, e.rel(d.Path))
			}
			return nil
		}),
	}
}

// printKeywords writes one keyword per line, optionally preceded by its
// count right-aligned to the widest count.
func printKeywords(w io.Writer, kws []noteservice.KeywordCount, counts bool) {
	width := 0
	for _, kw := range kws {
		width = max(width, len(strconv.Itoa(kw.Count)))
	}
	for _, kw := range kws {
		if counts {
			fmt.Fprintf(w, "  %*d  ", width, kw.Count)
		}
		fmt.Fprintln(w, kw.Keyword)
	}
}

func ctagsCommand() *cli.Command {
	return &cli.Command{
		Name:  "ctags",
		Usage: "Create or update the tags file in the jotter root",
		Action: withService(func(ctx context.Context, e *env, svc *noteservice.Service, cmd *cli.Command) error {
			n, err := svc.WriteTags(ctx)
			if err != nil {
				return err
			}
			e.logger.Info("tags written", slog.Int("tags", n))
			return nil
		}),
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Report citations that resolve to neither a citekey nor a label",
		Action: withService(func(ctx context.Context, e *env, svc *noteservice.Service, cmd *cli.Command) error {
			findings, err := svc.Check(ctx)
			if err != nil {
				return err
			}
			for _, f := range findings {
				e.logger.Warn("check: unresolved citation",
					slog.String("path", e.rel(f.Path)),
					slog.Int("page", f.Page),
					slog.String("key", f.Key))
			}
			return nil
		}),
	}
}

func htmlCommand() *cli.Command {
	return &cli.Command{
		Name:  "html",
		Usage: "Generate the static site",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "clean", Aliases: []string{"c"}, Usage: "Empty the output directory first"},
		},
		Action: withService(func(ctx context.Context, e *env, svc *noteservice.Service, cmd *cli.Command) error {
			stats, err := svc.Generate(ctx, e.config.Site.OutputDir, cmd.Bool("clean"))
			if err != nil {
				return err
			}
			e.logger.Info("site generated",
				slog.String("output", e.config.Site.OutputDir),
				slog.Int("written", stats.Written),
				slog.Int("unchanged", stats.Unchanged),
				slog.Int("failed", stats.Failed))
			return nil
		}),
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Full-text search through the tree",
		ArgsUsage: "QUERY",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "Maximum number of results"},
		},
		Action: withService(func(ctx context.Context, e *env, svc *noteservice.Service, cmd *cli.Command) error {
			if cmd.Args().Len() == 0 {
				return cli.ShowSubcommandHelp(cmd)
			}
			hits, err := svc.Search(ctx, strings.Join(cmd.Args().Slice(), " "), int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			for _, h := range hits {
				fmt.Fprintf(e.out, "%s\t%s\n", e.rel(h.Path), h.Title)
			}
			return nil
		}),
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve rendered pages with live reload",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "HTTP port (overrides config)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(cmd, jsonHandler, os.Stdout)
			if err != nil {
				return err
			}
			if p := int(cmd.Int("port")); p != 0 {
				e.config.App.HTTP.Port = p
				if err := e.config.Validate(); err != nil {
					return err
				}
			}
			slog.SetDefault(e.logger)
			if err := internal.Run(ctx, e.options()...); err != nil {
				return fmt.Errorf("app run error: %w", err)
			}
			return nil
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve lookup tools over MCP stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(cmd, textHandler, os.Stderr)
			if err != nil {
				return err
			}
			return internal.RunMCP(ctx, e.options()...)
		},
	}
}
