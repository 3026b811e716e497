package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/openaid/aidsync/pkg/session"
)

var previewJSON bool

var previewCmd = &cobra.Command{
	Use:   "preview FILE",
	Short: "List a document's activities and their conflict status",
	Long: `Preview parses activity metadata from an IATI XML document and
annotates each candidate New or Existing against the store. Nothing is
written.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().BoolVar(&previewJSON, "json", false, "emit candidates as JSON")
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
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

	candidates, err := sess.Preview(ctx)
	if err != nil {
		return err
	}

	if previewJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(candidates)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tIDENTIFIER\tTITLE\tSTATUS\tTXNS\tSTATE")
	for _, c := range candidates {
		state := "new"
		switch {
		case !c.Parseable():
			state = "parse error"
		case c.Exists:
			state = fmt.Sprintf("existing (updated %s)", c.LastUpdated.Format("2006-01-02"))
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
			c.Index, c.IATIIdentifier, c.Title, c.Status, c.TransactionCount, state)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if sess.SingleActivity() {
		fmt.Fprintln(cmd.OutOrStdout(), "\nsingle-activity document: selection is skipped, import applies to this activity")
	}
	return nil
}
