package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/openaid/aidsync/pkg/importer"
	"github.com/openaid/aidsync/pkg/session"
)

var (
	importMode    string
	importTarget  int64
	importIndices []int
	importPaths   []string
)

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Apply a document to the store",
	Long: `Import writes activities from an IATI XML document to the store.

Modes:
  bulk    create every selected candidate (default: all parseable ones)
  create  create exactly one candidate (--candidate)
  update  write selected fields onto one stored activity
          (--candidate, --target, --select)`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importMode, "mode", "bulk", "import mode: bulk, create, or update")
	importCmd.Flags().Int64Var(&importTarget, "target", 0, "stored activity id for update mode")
	importCmd.Flags().IntSliceVar(&importIndices, "candidate", nil, "candidate indices to import (default all)")
	importCmd.Flags().StringSliceVar(&importPaths, "select", nil, "selected field names and row paths for update mode")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	sess, err := session.Open(f, st,
		session.WithPreferredLanguage(cfg.Language()),
		session.WithWorkers(cfg.Workers))
	if err != nil {
		return err
	}

	candidates, err := selectCandidates(ctx, sess)
	if err != nil {
		return err
	}

	var mode importer.Mode
	switch importMode {
	case "bulk":
		mode = importer.BulkCreate{}
	case "create":
		mode = importer.CreateNew{}
	case "update":
		if importTarget == 0 {
			return fmt.Errorf("update mode requires --target")
		}
		mode = importer.UpdateCurrent{TargetID: importTarget}
	default:
		return fmt.Errorf("unknown mode %q", importMode)
	}

	result, err := sess.Execute(ctx, candidates, mode)
	if err != nil {
		return err
	}
	printResult(cmd, result)
	if result.FailedCount() > 0 && result.CreatedCount == 0 && len(result.UpdatedFields) == 0 {
		return fmt.Errorf("import failed for all candidates")
	}
	return nil
}

// selectCandidates resolves --candidate flags, defaulting to every
// parseable candidate in the document.
func selectCandidates(ctx context.Context, sess *session.Session) ([]importer.Candidate, error) {
	if len(importIndices) > 0 {
		candidates := make([]importer.Candidate, 0, len(importIndices))
		for _, index := range importIndices {
			candidates = append(candidates, importer.Candidate{Index: index, Paths: importPaths})
		}
		return candidates, nil
	}

	preview, err := sess.Preview(ctx)
	if err != nil {
		return nil, err
	}
	candidates := make([]importer.Candidate, 0, len(preview))
	for _, c := range preview {
		if c.Parseable() {
			candidates = append(candidates, importer.Candidate{Index: c.Index, Paths: importPaths})
		}
	}
	return candidates, nil
}

func printResult(cmd *cobra.Command, result *importer.ImportResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "created: %d  updated fields: %d  failed: %d\n",
		result.CreatedCount, len(result.UpdatedFields), result.FailedCount())

	for _, field := range result.UpdatedFields {
		fmt.Fprintf(out, "  updated %s\n", field)
	}

	keys := make([]string, 0, len(result.Errors))
	for key := range result.Errors {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(out, "  failed %s: %v\n", key, result.Errors[key])
	}

	diagKeys := make([]string, 0, len(result.Diagnostics))
	for key := range result.Diagnostics {
		diagKeys = append(diagKeys, key)
	}
	sort.Strings(diagKeys)
	for _, key := range diagKeys {
		for _, d := range result.Diagnostics[key] {
			fmt.Fprintf(out, "  note %s: %s\n", key, d)
		}
	}
}
