package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Add documents to the index",
	Long: `Extracts text from each file, splits it into overlapping chunks and
adds them to the shared vector index. Supported formats are PDF, DOCX,
HTML, Markdown and plain text.

Failed files are reported and skipped; the remaining files are still
uploaded.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return notConfigured("ingest")
	}

	ctx, stop := interruptible(cmd)
	defer stop()

	failed := 0
	for _, path := range args {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		res, err := ingestService.UploadFile(ctx, path)
		if err != nil {
			failed++
			cmd.PrintErrf("Failed %s: %v\n", path, err)
			continue
		}
		if res.Chunks == 0 {
			cmd.Printf("Skipped %s: no text extracted\n", path)
			continue
		}
		cmd.Printf("Uploaded %s: %d characters, %d chunks\n", res.Filename, res.Characters, res.Chunks)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(args))
	}
	return nil
}
