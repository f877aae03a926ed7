// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/entity-linker/internal/spotlight"
	"github.com/pdiddy/entity-linker/internal/store"
	"github.com/pdiddy/entity-linker/pkg/types"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate [files...]",
	Short: "Link entities in text files through DBpedia Spotlight",
	Long: `Annotate reads documents from files (or stdin), sends each one to the
DBpedia Spotlight service, and prints the linked entities. By default each
file is one document; --lines makes every line a document and --jsonl reads
{"id","text","entities"} records whose entities are kept as existing
entities.

With --store the annotated documents are saved for lookup and export.`,
	RunE: runAnnotate,
}

func init() {
	addLinkerFlags(annotateCmd.Flags())
	bindLinkerFlags(annotateCmd.Flags())

	annotateCmd.Flags().Bool("lines", false, "treat each input line as a document")
	annotateCmd.Flags().Bool("jsonl", false, "read JSON Lines records with id, text, and entities")
	annotateCmd.Flags().Bool("json", false, "output annotated documents as JSON")
	annotateCmd.Flags().Bool("yaml", false, "output annotated documents as YAML")
	annotateCmd.Flags().String("metrics-file", "", "write Prometheus metrics to this textfile after the run")

	rootCmd.AddCommand(annotateCmd)
}

// annotateSummary holds counts from an annotation run.
type annotateSummary struct {
	Linked    int
	Unchanged int
	Entities  int
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	lines, _ := cmd.Flags().GetBool("lines")
	jsonl, _ := cmd.Flags().GetBool("jsonl")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	yamlOutput, _ := cmd.Flags().GetBool("yaml")
	metricsFile, _ := cmd.Flags().GetString("metrics-file")

	if lines && jsonl {
		return fmt.Errorf("--lines and --jsonl are mutually exclusive")
	}
	if jsonOutput && yamlOutput {
		return fmt.Errorf("--json and --yaml are mutually exclusive")
	}
	format := formatWhole
	switch {
	case lines:
		format = formatLines
	case jsonl:
		format = formatJSONL
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Linker.Debug)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	reg := prometheus.NewRegistry()
	metrics, err := spotlight.NewMetrics(reg)
	if err != nil {
		return err
	}

	linker, err := spotlight.New(cfg.Linker, spotlight.WithLogger(logger), spotlight.WithMetrics(metrics))
	if err != nil {
		return err
	}

	docs, err := readSources(args, format, os.Stderr)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "annotating %d document(s) via %s/%s\n", len(docs), linker.Endpoint(), cfg.Linker.Mode)

	var st *store.Store
	var run store.Run
	if cfg.Store.Dir != "" {
		st, err = store.Open(cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()
		if run, err = st.SaveRun(cmd.Context(), linker.Config()); err != nil {
			return err
		}
		logger.Debug("recording run", zap.String("run_id", run.ID), zap.String("store", st.Dir()))
	}

	annotated, summary, runErr := annotateAll(cmd.Context(), linker, docs, st, run.ID)

	if metricsFile != "" {
		if err := prometheus.WriteToTextfile(metricsFile, reg); err != nil {
			fmt.Fprintf(os.Stderr, "warning: metrics write failed: %v\n", err)
		}
	}

	switch {
	case jsonOutput:
		err = writeJSON(os.Stdout, annotated)
	case yamlOutput:
		err = writeYAML(os.Stdout, annotated)
	default:
		err = writeTable(os.Stdout, annotated)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\nlinked: %d, unchanged: %d, entities: %d\n",
		summary.Linked, summary.Unchanged, summary.Entities)
	if st != nil {
		fmt.Fprintf(os.Stderr, "stored run %s in %s\n", run.ID, st.Dir())
	}
	return runErr
}

// annotateAll pipes docs through the linker, saving each annotated document
// when st is non-nil. It returns the documents annotated before any error.
func annotateAll(ctx context.Context, linker *spotlight.Linker, docs []*types.Document, st *store.Store, runID string) ([]*types.Document, annotateSummary, error) {
	var (
		out     []*types.Document
		summary annotateSummary
	)
	for doc, err := range linker.PipeSlice(ctx, docs, 0) {
		if err != nil {
			return out, summary, err
		}
		if doc.RawResult != nil {
			summary.Linked++
		} else {
			summary.Unchanged++
		}
		summary.Entities += len(doc.Ents)

		if st != nil {
			if err := st.SaveDocument(ctx, runID, doc); err != nil {
				return out, summary, err
			}
		}
		out = append(out, doc)
	}
	return out, summary, nil
}

func writeJSON(w io.Writer, docs []*types.Document) error {
	entries := make([]store.ExportEntry, len(docs))
	for i, d := range docs {
		entries[i] = store.NewExportEntry(d)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

func writeYAML(w io.Writer, docs []*types.Document) error {
	entries := make([]store.ExportEntry, len(docs))
	for i, d := range docs {
		entries[i] = store.NewExportEntry(d)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(entries)
}

func writeTable(w io.Writer, docs []*types.Document) error {
	fmt.Fprintf(w, "%-20s  %-30s  %-6s  %-6s  %s\n", "Document", "Entity", "Start", "End", "URI")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, d := range docs {
		id := truncate(d.ID, 20)
		for _, s := range d.Ents {
			fmt.Fprintf(w, "%-20s  %-30s  %-6d  %-6d  %s\n",
				id, truncate(s.Text, 30), s.StartChar, s.EndChar, s.KBID)
		}
	}
	return nil
}

// truncate shortens s to at most n characters.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
