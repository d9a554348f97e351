package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/promptforge/promptforge/internal/crawl"
	"github.com/promptforge/promptforge/internal/embed"
	"github.com/promptforge/promptforge/internal/generate"
	manifestcmd "github.com/promptforge/promptforge/internal/manifest"
	"github.com/promptforge/promptforge/internal/search"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "promptforge",
		Usage:   "ingest AI coding tool documentation and generate prompts in each tool's preferred format",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to YAML config file"},
			&cli.StringFlag{Name: "db", Usage: "override database path"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only log errors"},
		},
		Commands: []*cli.Command{
			{
				Name:   "crawl",
				Usage:  "crawl documentation sites into the chunk store",
				Action: crawl.CrawlAction,
				Flags: append(globalFlags(),
					&cli.StringFlag{Name: "tools", Usage: "comma-separated tool IDs from the config (default: all)"},
					&cli.StringFlag{Name: "tool-id", Usage: "ad-hoc tool ID for --urls"},
					&cli.StringFlag{Name: "tool-name", Usage: "display name for --tool-id"},
					&cli.StringFlag{Name: "urls", Usage: "comma-separated seed URLs (bypasses config tools)"},
					&cli.IntFlag{Name: "max-pages", Usage: "page ceiling per tool"},
					&cli.IntFlag{Name: "max-depth", Usage: "link depth ceiling"},
					&cli.BoolFlag{Name: "fresh", Usage: "delete the tool's stored chunks before crawling"},
					&cli.BoolFlag{Name: "ignore-robots", Usage: "skip robots.txt checks"},
					&cli.BoolFlag{Name: "keep-query-params", Usage: "keep query strings when normalizing URLs"},
				),
			},
			{
				Name:   "embed",
				Usage:  "vectorize stored chunks that have no embedding yet",
				Action: embed.EmbedAction,
				Flags: append(globalFlags(),
					&cli.StringFlag{Name: "tools", Usage: "comma-separated tool IDs (default: all configured)"},
				),
			},
			{
				Name:  "manifest",
				Usage: "build or inspect per-tool format manifests",
				Subcommands: []*cli.Command{
					{
						Name:   "build",
						Usage:  "detect formats and build manifests from stored chunks",
						Action: manifestcmd.BuildAction,
						Flags: append(globalFlags(),
							&cli.StringFlag{Name: "tools", Usage: "comma-separated tool IDs (default: all configured)"},
						),
					},
					{
						Name:      "show",
						Usage:     "print a stored manifest as YAML, or list tool IDs",
						ArgsUsage: "[tool-id]",
						Action:    manifestcmd.ShowAction,
						Flags:     globalFlags(),
					},
				},
			},
			{
				Name:   "generate",
				Usage:  "render a task into a tool's preferred prompt format",
				Action: generate.GenerateAction,
				Flags: append(globalFlags(),
					&cli.StringFlag{Name: "tool", Usage: "target tool ID", Required: true},
					&cli.StringFlag{Name: "task", Usage: "what the prompt should ask for", Required: true},
					&cli.StringFlag{Name: "language", Usage: "programming language hint"},
					&cli.StringSliceFlag{Name: "file", Usage: "context file to attach (repeatable)"},
					&cli.StringFlag{Name: "constraints", Usage: "JSON object of constraints"},
					&cli.BoolFlag{Name: "show-attempts", Usage: "print the format attempt log to stderr"},
				),
			},
			{
				Name:      "search",
				Usage:     "search stored documentation chunks",
				ArgsUsage: "<query>",
				Action:    search.SearchAction,
				Flags: append(globalFlags(),
					&cli.StringFlag{Name: "tool", Usage: "restrict to one tool ID"},
					&cli.IntFlag{Name: "top", Value: 5, Usage: "number of results"},
					&cli.BoolFlag{Name: "text-only", Usage: "skip embedding, use substring matching"},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags repeats the app-level flags on each command so they work in
// either position.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Usage: "path to YAML config file"},
		&cli.StringFlag{Name: "db", Usage: "override database path"},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only log errors"},
	}
}
