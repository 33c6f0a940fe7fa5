package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lecturetutor/internal/llm/gemini"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the Gemini models available to the configured API key",
	Args:  cobra.NoArgs,
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, _ []string) error {
	models, err := gemini.ListModels(cmd.Context(), os.Getenv(appConfig.Gemini.APIKeyEnv))
	if err != nil {
		return err
	}
	if len(models) == 0 {
		cmd.Println("No models found.")
		return nil
	}
	for _, m := range models {
		cmd.Printf("%s\t%s\t%s\n", m.Name, m.DisplayName, strings.Join(m.Methods, ","))
	}
	return nil
}
