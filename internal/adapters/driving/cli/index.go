package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragchat/internal/core/domain"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the vector index",
	Long:  `Inspect or clear the shared vector index that grounds answers.`,
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runIndexStats,
}

var indexClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the index and the record of uploads",
	Long: `Deletes the on-disk vector index. Until a document is uploaded again,
questions are answered without document context. Session history is kept.`,
	Args: cobra.NoArgs,
	RunE: runIndexClear,
}

var indexDocumentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List uploaded documents",
	Args:  cobra.NoArgs,
	RunE:  runIndexDocuments,
}

func init() {
	indexCmd.AddCommand(indexStatsCmd)
	indexCmd.AddCommand(indexClearCmd)
	indexCmd.AddCommand(indexDocumentsCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexStats(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return notConfigured("ingest")
	}

	stats, err := ingestService.IndexStats(cmd.Context())
	if errors.Is(err, domain.ErrNoIndex) {
		cmd.Println("No index. Upload a document to create one.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}

	cmd.Printf("Path:       %s\n", stats.Path)
	cmd.Printf("Chunks:     %d\n", stats.Entries)
	cmd.Printf("Dimensions: %d\n", stats.Dimensions)
	if stats.Model != "" {
		cmd.Printf("Model:      %s\n", stats.Model)
	}
	if !stats.UpdatedAt.IsZero() {
		cmd.Printf("Updated:    %s\n", stats.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func runIndexClear(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return notConfigured("ingest")
	}
	if err := ingestService.ClearIndex(cmd.Context()); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}
	cmd.Println("Index cleared.")
	return nil
}

func runIndexDocuments(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return notConfigured("ingest")
	}

	docs, err := ingestService.Documents(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if len(docs) == 0 {
		cmd.Println("No documents uploaded.")
		return nil
	}

	for i := range docs {
		name := docs[i].Title
		if name == "" {
			name = docs[i].Filename
		}
		cmd.Printf("  %s  %s\n", docs[i].ID, name)
		cmd.Printf("      %s, %d characters, %d chunks, %s\n",
			docs[i].Filename, docs[i].Characters, docs[i].ChunkCount,
			docs[i].CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}
