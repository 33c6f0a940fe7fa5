package cli

import (
	"bufio"
	"strings"

	"github.com/spf13/cobra"

	"lecturetutor/internal/tui"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Ask questions in a plain line-based loop",
	Long:  `Reads one question per line. Type "exit" to quit.`,
	Args:  cobra.NoArgs,
	RunE:  runREPL,
}

func init() {
	rootCmd.AddCommand(replCmd)
}

func runREPL(cmd *cobra.Command, _ []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx := cmd.Context()
	if err := svc.Reload(ctx); err != nil {
		return err
	}
	if !svc.Ready() {
		cmd.Println(tui.NoMemoryMessage)
	}

	sc := bufio.NewScanner(cmd.InOrStdin())
	for {
		cmd.Print("\nQuestion> ")
		if !sc.Scan() {
			cmd.Println()
			return sc.Err()
		}
		q := strings.TrimSpace(sc.Text())
		switch {
		case q == "":
			continue
		case strings.EqualFold(q, "exit"):
			return nil
		}
		outputAnswer(cmd, svc.Ask(ctx, q))
	}
}
