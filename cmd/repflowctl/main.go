// Command repflowctl talks to a running RepFlow server: it reads and
// writes storage keys, prints programs and statistics, uploads import
// files, and serves MCP over stdio backed by the REST API.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/claude/repflow/internal/mcp"
	"github.com/claude/repflow/internal/stats"
	"github.com/claude/repflow/internal/storage"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/pflag"
)

// Version is set at build time via -ldflags.
var Version = "dev"

type options struct {
	server string
	apiKey string
	period string
	date   string
	dryRun bool
	log    *slog.Logger
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "repflowctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var opts options
	flagSet := pflag.NewFlagSet("repflowctl", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.server, "server", "s", envOr("REPFLOW_URL", "http://localhost:8080"), "RepFlow server URL")
	flagSet.StringVar(&opts.apiKey, "api-key", os.Getenv("REPFLOW_API_KEY"), "API key for storage and import routes")
	flagSet.StringVarP(&opts.period, "period", "p", "week", "reporting period: week, month, year or all")
	flagSet.StringVar(&opts.date, "date", "", "date for weight samples (YYYY-MM-DD, default now)")
	flagSet.BoolVar(&opts.dryRun, "dry-run", false, "validate imports without writing")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help || flagSet.NArg() == 0 {
		printHelp(flagSet)
		return nil
	}

	opts.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	opts.server = strings.TrimRight(opts.server, "/")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cmd, rest := flagSet.Arg(0), flagSet.Args()[1:]
	switch cmd {
	case "version":
		fmt.Println("repflowctl", Version)
		return nil
	case "keys", "get", "set", "del":
		return runStorage(ctx, opts, cmd, rest)
	case "programs", "progress", "stats", "weights", "counts", "log", "session":
		return runQuery(ctx, opts, cmd)
	case "weight":
		return runWeight(ctx, opts, rest)
	case "import":
		return runImport(ctx, opts, rest)
	case "mcp":
		return mcpserver.ServeStdio(mcp.New(mcp.NewHTTPClient(opts.server), Version, opts.log))
	}
	return fmt.Errorf("unknown command %q (see --help)", cmd)
}

func runStorage(ctx context.Context, opts options, cmd string, args []string) error {
	store := storage.NewHTTPStore(opts.server, opts.apiKey)
	switch cmd {
	case "keys":
		prefix := ""
		if len(args) > 0 {
			prefix = args[0]
		}
		keys, err := store.Keys(ctx, prefix)
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Println(k)
		}
		return nil
	case "get":
		if len(args) != 1 {
			return errors.New("usage: get KEY")
		}
		v, ok, err := store.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s: not found", args[0])
		}
		fmt.Println(v)
		return nil
	case "set":
		if len(args) != 2 {
			return errors.New("usage: set KEY VALUE (use - to read VALUE from stdin)")
		}
		value := args[1]
		if value == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			value = string(data)
		}
		return store.Set(ctx, args[0], value)
	default:
		if len(args) != 1 {
			return errors.New("usage: del KEY")
		}
		return store.Set(ctx, args[0], "")
	}
}

func runQuery(ctx context.Context, opts options, cmd string) error {
	client := mcp.NewHTTPClient(opts.server)
	period, err := stats.ParsePeriod(opts.period)
	if err != nil {
		return err
	}

	var v any
	switch cmd {
	case "programs":
		v, err = client.ListPrograms(ctx)
	case "progress":
		v, err = client.ActiveProgress(ctx)
	case "stats":
		var totals any
		totals, err = client.Totals(ctx)
		if err == nil {
			var summary stats.PeriodSummary
			summary, err = client.Summary(ctx, period)
			v = map[string]any{"totals": totals, "period": summary}
		}
	case "weights":
		v, err = client.WeightHistory(ctx, period)
	case "counts":
		v, err = client.WorkoutCounts(ctx, period)
	case "log":
		v, err = client.WorkoutLog(ctx)
	case "session":
		v, err = client.Session(ctx)
	}
	if err != nil {
		return err
	}
	return printJSON(v)
}

func runWeight(ctx context.Context, opts options, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: weight KG [--date YYYY-MM-DD]")
	}
	kg, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("weight %q: %w", args[0], err)
	}
	var date time.Time
	if opts.date != "" {
		if date, err = time.Parse(time.DateOnly, opts.date); err != nil {
			return fmt.Errorf("date %q: %w", opts.date, err)
		}
	}
	return mcp.NewHTTPClient(opts.server).AddWeight(ctx, date, kg)
}

// runImport uploads one export file to the import API. Compressed files
// are sent as-is with a matching Content-Encoding.
func runImport(ctx context.Context, opts options, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: import catalog|weights|workouts FILE")
	}
	kind, path := args[0], args[1]
	switch kind {
	case "catalog", "weights", "workouts":
	default:
		return fmt.Errorf("unknown import kind %q", kind)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	u := opts.server + "/api/v1/import/" + kind
	if opts.dryRun {
		u += "?dry_run=true"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("X-API-Key", opts.apiKey)
	switch {
	case strings.HasSuffix(path, ".zst"):
		req.Header.Set("Content-Encoding", "zstd")
	case strings.HasSuffix(path, ".lz4"):
		req.Header.Set("Content-Encoding", "lz4")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("import %s returned %d: %s", kind, resp.StatusCode, bytes.TrimSpace(body))
	}
	os.Stdout.Write(body)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `repflowctl talks to a RepFlow server.

Usage:
  repflowctl [flags] COMMAND [ARGS]

Commands:
  keys [PREFIX]        list storage keys
  get KEY              print a stored value
  set KEY VALUE        store a value (VALUE - reads stdin)
  del KEY              delete a key
  programs             list the program catalog
  progress             show the active program
  stats                totals and the --period summary
  weights              weight history for --period
  counts               workouts per bucket for --period
  log                  the workout log
  session              the running session
  weight KG            record a body weight
  import KIND FILE     upload catalog, weights or workouts (.zst/.lz4 allowed)
  mcp                  serve MCP on stdio against the server
  version              print version

Flags:
`)
	flagSet.PrintDefaults()
}
