// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/entity-linker/internal/store"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup URI",
	Short: "Find stored documents that mention a DBpedia resource",
	Long: `Lookup lists every stored span linked to the given DBpedia URI, in the
documents' entities and in their span groups. Requires --store.`,
	Args: cobra.ExactArgs(1),
	RunE: runLookup,
}

func init() {
	lookupCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	hits, err := st.FindByKBID(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	runs, err := hitRuns(cmd.Context(), st, hits)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(lookupResult{Hits: hits, Runs: runs})
	}

	if len(hits) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-20s  %-20s  %-30s  %-6s  %s\n", "Document", "Group", "Text", "Start", "End")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 90))
	for _, h := range hits {
		group := h.Group
		if group == "" {
			group = "ents"
		}
		fmt.Fprintf(os.Stdout, "%-20s  %-20s  %-30s  %-6d  %d\n",
			truncate(h.DocID, 20), truncate(group, 20), truncate(h.Span.Text, 30), h.Span.StartChar, h.Span.EndChar)
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(hits))
	writeRuns(os.Stdout, runs)
	return nil
}

// lookupResult is the --json output of lookup.
type lookupResult struct {
	Hits []store.Hit `json:"hits"`
	Runs []store.Run `json:"runs,omitempty"`
}

// hitRuns loads the runs that produced hits, in first-seen order.
func hitRuns(ctx context.Context, st *store.Store, hits []store.Hit) ([]store.Run, error) {
	var runs []store.Run
	seen := make(map[string]bool)
	for _, h := range hits {
		if h.RunID == "" || seen[h.RunID] {
			continue
		}
		seen[h.RunID] = true
		run, err := st.LoadRun(ctx, h.RunID)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// writeRuns prints one line per run with the settings it linked with.
func writeRuns(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		return
	}
	fmt.Fprintln(w, "\nRuns:")
	for _, r := range runs {
		fmt.Fprintf(w, "  %s  %s  %s %s (%s)\n",
			r.ID, r.StartedAt.Format(time.RFC3339), r.Config.Mode, r.Config.Endpoint, r.Config.Language)
	}
}

// openStore opens the store named by --store or the store.dir setting.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Store.Dir == "" {
		return nil, fmt.Errorf("--store is required")
	}
	return store.Open(cfg.Store)
}
