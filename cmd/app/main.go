package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"slices"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/lorehold/biblioplex/internal"
	"github.com/lorehold/biblioplex/internal/apperr"
	"github.com/lorehold/biblioplex/internal/catalog"
	"github.com/lorehold/biblioplex/internal/entryservice"
	"github.com/lorehold/biblioplex/internal/mcpserver"
	"github.com/lorehold/biblioplex/internal/scaffold"
	"github.com/lorehold/biblioplex/internal/storage"
	"github.com/lorehold/biblioplex/internal/validate"
	pkgconfig "github.com/lorehold/biblioplex/pkg/config"
)

// Exit codes: 0 clean, 1 validation failures, 2 anything else (bad
// usage, unreadable vault, database errors).
const (
	exitViolations = 1
	exitError      = 2
)

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

func rootFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "root",
		Usage: "Vault root directory (overrides config)",
	}
}

// loadConfig reads the config file named by --config. A missing file is
// only an error when the path was set explicitly; otherwise defaults
// apply and the second return is false.
func loadConfig(cmd *cli.Command) (*internal.Config, bool, error) {
	cfg := internal.NewDefaultConfig()
	err := pkgconfig.Load(cmd.String("config"), cfg)
	if err == nil {
		return cfg, true, nil
	}
	if cmd.IsSet("config") || !errors.Is(err, os.ErrNotExist) {
		return nil, false, fmt.Errorf("load config: %w", err)
	}
	return internal.NewDefaultConfig(), false, nil
}

// resolveRoot picks the vault root: explicit argument or flag first,
// then the loaded config, then the current directory.
func resolveRoot(override string, cfg *internal.Config, loaded bool) string {
	if override != "" {
		return override
	}
	if loaded && cfg.Vault.Path != "" {
		return cfg.Vault.Path
	}
	return "."
}

// openSyncedCatalog opens the vault and its SQLite catalog and brings
// the catalog up to date before any query runs.
func openSyncedCatalog(cfg *internal.Config, root string) (*catalog.DB, storage.Provider, error) {
	store, err := storage.NewFS(root)
	if err != nil {
		return nil, nil, err
	}
	db, err := catalog.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, err
	}
	if err := catalog.Sync(db, store, slog.Default()); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, store, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return cli.Exit(fmt.Sprintf("encode output: %v", err), exitError)
	}
	fmt.Println(string(out))
	return nil
}

func runValidate(ctx context.Context, cmd *cli.Command) error {
	cfg, loaded, err := loadConfig(cmd)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	root := resolveRoot(cmd.Args().First(), cfg, loaded)

	store, err := storage.NewFS(root)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	runner := validate.NewRunner(store,
		validate.WithContentDirs(cfg.Vault.ContentDirs),
		validate.WithSensitiveTags(cfg.Vault.EffectiveSensitiveTags()),
	)
	rep, err := runner.Run(ctx)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	warnAdvisory := cmd.Bool("warn-advisory")
	switch format := cmd.String("format"); format {
	case "json":
		if err := printJSON(rep); err != nil {
			return err
		}
	case "table":
		fmt.Print(renderReport(rep, warnAdvisory, shouldColorize(os.Stdout)))
	default:
		return cli.Exit(fmt.Sprintf("unknown format %q (want table or json)", format), exitError)
	}

	if !rep.Clean(warnAdvisory) {
		return cli.Exit("", exitViolations)
	}
	return nil
}

func runList(ctx context.Context, cmd *cli.Command) error {
	cfg, loaded, err := loadConfig(cmd)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	sortKey := cmd.String("sort")
	if !slices.Contains([]string{"", "path", "title", "updated"}, sortKey) {
		return cli.Exit(fmt.Sprintf("unknown sort %q (want path, title, or updated)", sortKey), exitError)
	}

	root := resolveRoot(cmd.String("root"), cfg, loaded)
	db, _, err := openSyncedCatalog(cfg, root)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	defer db.Close()

	filter := catalog.ListFilter{
		Type:    cmd.String("type"),
		College: cmd.String("college"),
		Status:  cmd.String("status"),
		Tag:     cmd.String("tag"),
		Limit:   int(cmd.Int("limit")),
		Offset:  int(cmd.Int("offset")),
		Sort:    sortKey,
	}
	if cmd.IsSet("canon") {
		canon := cmd.Bool("canon")
		filter.Canon = &canon
	}

	rows, total, err := db.ListEntries(filter)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	switch format := cmd.String("format"); format {
	case "json":
		return printJSON(struct {
			Entries []catalog.EntryRow `json:"entries"`
			Total   int                `json:"total"`
		}{rows, total})
	case "table":
		fmt.Print(renderList(rows, total))
		return nil
	default:
		return cli.Exit(fmt.Sprintf("unknown format %q (want table or json)", format), exitError)
	}
}

func runSearch(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if query == "" {
		return cli.Exit("search requires a query argument", exitError)
	}

	cfg, loaded, err := loadConfig(cmd)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	root := resolveRoot(cmd.String("root"), cfg, loaded)
	db, _, err := openSyncedCatalog(cfg, root)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	defer db.Close()

	results, err := db.Search(query, int(cmd.Int("limit")))
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	switch format := cmd.String("format"); format {
	case "json":
		return printJSON(results)
	case "table":
		fmt.Print(renderSearch(results, shouldColorize(os.Stdout)))
		return nil
	default:
		return cli.Exit(fmt.Sprintf("unknown format %q (want table or json)", format), exitError)
	}
}

func runGraph(ctx context.Context, cmd *cli.Command) error {
	cfg, loaded, err := loadConfig(cmd)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	root := resolveRoot(cmd.String("root"), cfg, loaded)
	db, _, err := openSyncedCatalog(cfg, root)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	defer db.Close()

	nodes, links, err := db.Graph()
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	switch format := cmd.String("format"); format {
	case "json":
		return printJSON(struct {
			Nodes []catalog.GraphNode `json:"nodes"`
			Links []catalog.GraphLink `json:"links"`
		}{nodes, links})
	case "dot":
		fmt.Print(renderGraphDOT(nodes, links))
		return nil
	default:
		return cli.Exit(fmt.Sprintf("unknown format %q (want json or dot)", format), exitError)
	}
}

func runNew(ctx context.Context, cmd *cli.Command) error {
	cfg, loaded, err := loadConfig(cmd)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	root := resolveRoot(cmd.String("root"), cfg, loaded)

	if err := os.MkdirAll(root, 0o755); err != nil {
		return cli.Exit(fmt.Sprintf("create vault dir: %v", err), exitError)
	}
	store, err := storage.NewFS(root)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	var tags []string
	if raw := cmd.String("tags"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}

	file, err := scaffold.Generate(scaffold.Options{
		Type:    cmd.String("type"),
		Title:   cmd.String("title"),
		Author:  cmd.String("author"),
		College: cmd.String("college"),
		Era:     cmd.String("era"),
		Slug:    cmd.String("slug"),
		Level:   cmd.String("level"),
		Players: cmd.String("players"),
		Tags:    tags,
		Now:     time.Now().UTC(),
	})
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	rel := file.Name
	if dir := cmd.String("dir"); dir != "" {
		rel = path.Join(dir, file.Name)
	}

	if _, err := store.Read(rel); err == nil {
		return cli.Exit(fmt.Sprintf("refusing to overwrite existing entry %s", rel), exitError)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return cli.Exit(err.Error(), exitError)
	}
	if err := store.Write(rel, []byte(file.Content)); err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	fmt.Println(rel)
	return nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return cli.Exit(fmt.Sprintf("server error: %v", err), exitError)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, loaded, err := loadConfig(cmd)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	root := resolveRoot(cmd.String("root"), cfg, loaded)

	if err := os.MkdirAll(root, 0o755); err != nil {
		return cli.Exit(fmt.Sprintf("create vault dir: %v", err), exitError)
	}
	store, err := storage.NewFS(root)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	db, err := catalog.Open(cfg.SQLite.Path)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	defer db.Close()
	if err := catalog.Sync(db, store, slog.Default()); err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	runner := validate.NewRunner(store,
		validate.WithContentDirs(cfg.Vault.ContentDirs),
		validate.WithSensitiveTags(cfg.Vault.EffectiveSensitiveTags()),
	)
	svc := entryservice.NewService(store, db, runner)

	// Stdout carries the MCP protocol; logging stays on stderr.
	if err := mcpserver.New(svc, store).ServeStdio(); err != nil {
		return cli.Exit(fmt.Sprintf("mcp server error: %v", err), exitError)
	}
	return nil
}

// setupCLILogger routes log output to stderr so stdout stays
// machine-parseable for --format json and the MCP transport.
func setupCLILogger() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))
}

func main() {
	setupCLILogger()

	cmd := &cli.Command{
		Name:  "biblioplex",
		Usage: "Campaign content vault: frontmatter validation, catalog queries, and a local server",
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "Check every vault entry against the frontmatter contract",
				ArgsUsage: "[vault-path]",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{Name: "format", Usage: "Output format: table or json", Value: "table"},
					&cli.BoolFlag{Name: "warn-advisory", Usage: "Demote advisory findings to warnings"},
				},
				Action: runValidate,
			},
			{
				Name:  "list",
				Usage: "List catalog entries",
				Flags: []cli.Flag{
					configFlag(),
					rootFlag(),
					&cli.StringFlag{Name: "format", Usage: "Output format: table or json", Value: "table"},
					&cli.StringFlag{Name: "type", Usage: "Filter by entry type"},
					&cli.StringFlag{Name: "college", Usage: "Filter by college"},
					&cli.StringFlag{Name: "status", Usage: "Filter by playtest status"},
					&cli.StringFlag{Name: "tag", Usage: "Filter by tag"},
					&cli.BoolFlag{Name: "canon", Usage: "Filter by canon flag"},
					&cli.StringFlag{Name: "sort", Usage: "Sort order: path, title, or updated"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum rows", Value: 50},
					&cli.IntFlag{Name: "offset", Usage: "Rows to skip"},
				},
				Action: runList,
			},
			{
				Name:      "search",
				Usage:     "Full-text search over titles, bodies, and tags",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					configFlag(),
					rootFlag(),
					&cli.StringFlag{Name: "format", Usage: "Output format: table or json", Value: "table"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum results", Value: 20},
				},
				Action: runSearch,
			},
			{
				Name:  "graph",
				Usage: "Export the entry reference graph",
				Flags: []cli.Flag{
					configFlag(),
					rootFlag(),
					&cli.StringFlag{Name: "format", Usage: "Output format: json or dot", Value: "json"},
				},
				Action: runGraph,
			},
			{
				Name:  "new",
				Usage: "Scaffold a new entry that passes validation as drafted",
				Flags: []cli.Flag{
					configFlag(),
					rootFlag(),
					&cli.StringFlag{Name: "type", Usage: "Entry type (required)"},
					&cli.StringFlag{Name: "title", Usage: "Entry title (required)"},
					&cli.StringFlag{Name: "author", Usage: "Author name", Sources: cli.EnvVars("USER")},
					&cli.StringFlag{Name: "college", Usage: "College, when the content is college-specific"},
					&cli.StringFlag{Name: "era", Usage: "Campaign era"},
					&cli.StringFlag{Name: "slug", Usage: "Slug override (derived from title when empty)"},
					&cli.StringFlag{Name: "level", Usage: "Level range", DefaultText: "1-4"},
					&cli.StringFlag{Name: "players", Usage: "Player count range", DefaultText: "3-5"},
					&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
					&cli.StringFlag{Name: "dir", Usage: "Vault subdirectory to write into"},
				},
				Action: runNew,
			},
			{
				Name:  "serve",
				Usage: "Run the HTTP API, live-reload stream, and vault watcher",
				Flags: []cli.Flag{
					configFlag(),
				},
				Action: runServe,
			},
			{
				Name:  "mcp",
				Usage: "Serve vault tools to model clients over stdio",
				Flags: []cli.Flag{
					configFlag(),
					rootFlag(),
				},
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		var coder cli.ExitCoder
		if errors.As(err, &coder) {
			if msg := coder.Error(); msg != "" {
				fmt.Fprintln(os.Stderr, msg)
			}
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
	}
}
