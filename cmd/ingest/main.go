// Command ingest loads salon spreadsheets into the configured store without
// starting the HTTP server.
//
//	ingest --services service.csv --clients data.xlsx --bookings bookings.csv
//	ingest export1.csv export2.xlsx   # tables detected from headers
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/JonMunkholm/salon/internal/config"
	"github.com/JonMunkholm/salon/internal/core"
	_ "github.com/JonMunkholm/salon/internal/core/tables" // Register all tables
	"github.com/JonMunkholm/salon/internal/logging"
	"github.com/JonMunkholm/salon/internal/source"
	"github.com/JonMunkholm/salon/internal/store"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "ingest:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(stderr)

	files := make(map[string]*string)
	for _, def := range core.All() {
		files[def.Info.Key] = fs.String(def.Info.Param, "", fmt.Sprintf("%s file (.csv or .xlsx)", def.Info.Label))
	}
	mappingFile := fs.String("mapping", "", "column mapping file (overrides MAPPING_FILE)")
	asJSON := fs.Bool("json", false, "print the report as JSON")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Unlike the server, keep variables already exported in the shell.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *mappingFile != "" {
		cfg.Import.MappingFile = *mappingFile
	}

	slog.SetDefault(logging.New(stderr, cfg.Logging.Level, cfg.Logging.Format))
	ctx := context.Background()
	source.MaxFileSize = cfg.Import.MaxFileSize

	mappings, err := config.LoadMappings(cfg.Import.MappingFile)
	if err != nil {
		return err
	}

	st, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	svc, err := core.NewService(st, cfg, mappings, nil)
	if err != nil {
		return err
	}

	batch, err := readBatch(svc, files, fs.Args())
	if err != nil {
		return err
	}

	report, err := svc.Ingest(ctx, batch)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printReport(stdout, report)
	}

	if report.Failed() {
		return errors.New("one or more tables failed to load")
	}
	return nil
}

// readBatch opens the flagged files, then assigns positional files to
// tables by their header.
func readBatch(svc *core.Service, flagged map[string]*string, positional []string) (core.Batch, error) {
	batch := make(core.Batch)
	for key, path := range flagged {
		if *path == "" {
			continue
		}
		t, err := source.Open(*path)
		if err != nil {
			return nil, err
		}
		batch[key] = t
	}

	for _, path := range positional {
		t, err := source.Open(path)
		if err != nil {
			return nil, err
		}
		info, ok := svc.DetectTable(t.Header)
		if !ok {
			return nil, fmt.Errorf("%s: %w", path, core.ErrUnrecognisedLayout)
		}
		if _, taken := batch[info.Key]; taken {
			return nil, fmt.Errorf("%s: table %s already has a file", path, info.Key)
		}
		batch[info.Key] = t
	}

	if len(batch) == 0 {
		return nil, core.ErrNoFiles
	}
	return batch, nil
}

func printReport(w io.Writer, report core.Report) {
	fmt.Fprintf(w, "run %s (%s)\n", report.RunID, report.Duration.Round(1e6))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tSOURCE\tREAD\tWRITTEN\tDEFAULTED\tSKIPPED\tREJECTED\tERROR")
	for _, t := range report.Tables {
		msg := ""
		if t.Error != nil {
			msg = t.Error.Code + " " + t.Error.Message
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			t.Table, t.Source, t.Read, t.Written, t.Defaulted, t.Skipped, t.Rejected, msg)
	}
	_ = tw.Flush()

	for _, t := range report.Tables {
		for _, r := range t.Rejects {
			fmt.Fprintf(w, "%s line %d: %s (client %q, service %q)\n", t.Table, r.Line, r.Reason, r.Client, r.Service)
		}
	}
	for _, msg := range report.Warnings {
		fmt.Fprintln(w, "warning:", msg)
	}
}
