package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexForce bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the knowledge index",
	Long:  `Chunk and embed the markdown files in the knowledge base directory. An existing index is kept unless --force is given.`,
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "Rebuild even if an index exists")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	retriever, err := a.retriever(ctx)
	if err != nil {
		return err
	}
	count, err := a.reindex(ctx, retriever, indexForce)
	if err != nil {
		return fmt.Errorf("failed to index knowledge base: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks from %s\n", count, a.cfg.KnowledgeBaseDir)
	return nil
}
