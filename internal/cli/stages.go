package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"lecturetutor/internal/pipeline"
)

var (
	processFrom  string
	processAudio string
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe",
	Short: "Transcribe the lecture audio",
	Args:  cobra.NoArgs,
	RunE:  runTranscribe,
}

var chunkCmd = &cobra.Command{
	Use:   "chunk",
	Short: "Split the transcript into overlapping chunks",
	Args:  cobra.NoArgs,
	RunE:  runChunk,
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed the chunks and build the vector index",
	Args:  cobra.NoArgs,
	RunE:  runIndex,
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run transcription, chunking and indexing in order",
	Long: `Runs the processing stages in order and stops at the first failure.
Artifacts written by earlier stages are kept, so a failed run can be resumed
with --from. --audio imports an mp3, wav or m4a recording first.`,
	Args: cobra.NoArgs,
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVar(&processFrom, "from", string(pipeline.StageTranscribe), "first stage to run (transcribe, chunk, index)")
	processCmd.Flags().StringVar(&processAudio, "audio", "", "lecture recording to import before processing (mp3, wav, m4a)")
	rootCmd.AddCommand(transcribeCmd, chunkCmd, indexCmd, processCmd)
}

func runTranscribe(cmd *cobra.Command, _ []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	tr, err := svc.Transcribe(cmd.Context())
	if err != nil {
		return err
	}
	cmd.Printf("Transcribed %d segments (language %q) to %s\n", len(tr.Segments), tr.Language, appConfig.Paths.Transcript)
	return nil
}

func runChunk(cmd *cobra.Command, _ []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	res, err := svc.Chunk(cmd.Context())
	if err != nil {
		return err
	}
	cmd.Printf("Wrote %d chunks (%d before filtering) to %s\n", len(res.Chunks), res.Raw, appConfig.Paths.Chunks)
	return nil
}

func runIndex(cmd *cobra.Command, _ []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	res, err := svc.Index(cmd.Context())
	if err != nil {
		return err
	}
	cmd.Printf("Indexed %d chunks (%d dropped, dimension %d) to %s\n", res.Chunks, res.Dropped, res.Dimension, appConfig.Paths.Index)
	return nil
}

func runProcess(cmd *cobra.Command, _ []string) error {
	from, err := pipeline.ParseStage(processFrom)
	if err != nil {
		return err
	}
	if processAudio != "" && from != pipeline.StageTranscribe {
		return fmt.Errorf("--audio requires --from %s", pipeline.StageTranscribe)
	}
	svc, err := newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	if processAudio != "" {
		if err := svc.ImportAudio(processAudio); err != nil {
			return err
		}
		cmd.Printf("Imported %s\n", processAudio)
	}
	err = svc.Process(cmd.Context(), from, func(st pipeline.Stage, done, total int) {
		if done < total {
			cmd.Printf("[%d/%d] %s\n", done+1, total, st)
		}
	})
	if err != nil {
		return err
	}
	cmd.Println("Lecture processed.")
	return nil
}
