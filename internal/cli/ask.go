package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var askRank bool

var askCmd = &cobra.Command{
	Use:   "ask <question...>",
	Short: "Answer a single question without touching history",
	Long: `Look up a single question against the corpus and print the answer.
When nothing matches well enough, a fallback reply is printed instead.
Use --rank to list every candidate entry with its score.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askRank, "rank", false, "list all candidate entries with scores")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, cleanup, err := bootstrap(cmd, appOptions(cmd))
	if err != nil {
		return err
	}
	defer cleanup()

	query := strings.TrimSpace(strings.Join(args, " "))
	out := cmd.OutOrStdout()

	if askRank {
		ranked := a.Matcher().Rank(query)
		if len(ranked) == 0 {
			fmt.Fprintln(out, "No candidates.")
			return nil
		}
		accept := a.Matcher().Options().AcceptThreshold
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ENTRY\tSCORE\tKEYWORD\tACCEPTED")
		for _, m := range ranked {
			fmt.Fprintf(tw, "%d\t%.3f\t%s\t%t\n", m.Index, m.Score, m.Keyword, m.Score < accept)
		}
		return tw.Flush()
	}

	if m, ok := a.Matcher().Lookup(query); ok {
		fmt.Fprintln(out, m.Answer)
		fmt.Fprintf(out, "(matched %q, score %.3f)\n", m.Keyword, m.Score)
		return nil
	}

	fmt.Fprintln(out, a.Fallback().Pick(query))
	fmt.Fprintln(out, "(fallback)")
	return nil
}
