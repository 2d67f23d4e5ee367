package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the saved conversation",
	Long: `Delete the saved conversation. Asks for confirmation unless --yes is given.
Dark mode and theme preferences are kept.`,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	a, cleanup, err := bootstrap(cmd, appOptions(cmd))
	if err != nil {
		return err
	}
	defer cleanup()

	out := cmd.OutOrStdout()
	n := len(a.Session().Messages())

	confirmed := clearYes
	if !confirmed {
		confirmed = confirm(bufio.NewScanner(cmd.InOrStdin()), out,
			fmt.Sprintf("Delete %d messages? [y/N] ", n))
	}

	if a.Session().Clear(cmd.Context(), confirmed) {
		fmt.Fprintln(out, "Conversation cleared.")
	} else {
		fmt.Fprintln(out, "Aborted.")
	}
	return nil
}

// confirm prints prompt and reads one line; only y or yes confirms
func confirm(in *bufio.Scanner, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	if !in.Scan() {
		fmt.Fprintln(out)
		return false
	}
	return isYes(in.Text())
}

func isYes(answer string) bool {
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
