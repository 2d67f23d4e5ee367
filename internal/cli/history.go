package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/harun/pasokh/pkg/history"
)

var historyJSON bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the saved conversation",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print the stored JSON form")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, cleanup, err := bootstrap(cmd, appOptions(cmd))
	if err != nil {
		return err
	}
	defer cleanup()

	msgs := a.Session().Messages()
	out := cmd.OutOrStdout()

	if historyJSON {
		data, err := history.Encode(msgs)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if len(msgs) == 0 {
		fmt.Fprintln(out, "No messages.")
		return nil
	}
	printMessages(out, msgs)
	return nil
}

func printMessages(out io.Writer, msgs []history.Message) {
	for _, m := range msgs {
		fmt.Fprintf(out, "%s: %s\n", speaker(m.Role), m.Text)
	}
}

func speaker(r history.Role) string {
	if r == history.RoleUser {
		return "you"
	}
	return "bot"
}
