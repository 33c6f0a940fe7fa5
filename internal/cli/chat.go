package cli

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"lecturetutor/internal/logger"
	"lecturetutor/internal/pipeline"
	"lecturetutor/internal/tui"
)

var (
	chatFrom  string
	chatAudio string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Launch the interactive chat UI",
	Long: `Launch the interactive terminal chat over the processed lecture.

Controls:
  Enter  - Ask the typed question
  Ctrl+P - Process the lecture audio and reload
  Esc    - Quit

With --audio the recording is imported and processed on start.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatFrom, "from", string(pipeline.StageTranscribe), "first stage run by ctrl+p (transcribe, chunk, index)")
	chatCmd.Flags().StringVar(&chatAudio, "audio", "", "lecture recording to import and process on start (mp3, wav, m4a)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	from, err := pipeline.ParseStage(chatFrom)
	if err != nil {
		return err
	}
	// keep log lines off the alternate screen
	logPath := appConfig.Paths.Log
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	logger.Init(logLevel(appConfig), appConfig.Log.Format, f)

	svc, err := newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	model := tui.New(cmd.Context(), svc, from)
	if chatAudio != "" {
		if err := svc.ImportAudio(chatAudio); err != nil {
			return err
		}
		model = model.ProcessOnStart(pipeline.StageTranscribe)
	}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	_, err = p.Run()
	return err
}
