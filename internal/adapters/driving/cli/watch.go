package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragchat/internal/adapters/driving/watch"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Upload documents dropped into a directory",
	Long: `Watches a directory and uploads every supported file that is created or
changed in it. A file is uploaded once it has stopped changing for the
debounce interval. Press Ctrl-C to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before a file is uploaded")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return notConfigured("ingest")
	}

	dir := args[0]
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cannot watch %s: not a directory", dir)
	}

	ctx, stop := interruptible(cmd)
	defer stop()

	w := watch.New(ingestService,
		watch.WithDebounce(watchDebounce),
		watch.WithNotify(func(r watch.Result) {
			switch {
			case r.Path == "":
				cmd.PrintErrf("Watch error: %v\n", r.Err)
			case r.Err != nil:
				cmd.PrintErrf("Failed %s: %v\n", r.Path, r.Err)
			default:
				cmd.Printf("Uploaded %s: %d characters, %d chunks\n", r.Path, r.Upload.Characters, r.Upload.Chunks)
			}
		}),
	)

	cmd.Printf("Watching %s (Ctrl-C to stop)\n", dir)
	return w.Run(ctx, dir)
}
