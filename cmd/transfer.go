package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/easel/internal/persist"
)

func init() {
	rootCmd.AddCommand(exportCmd, importCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <file.json>",
	Short: "Write the stored canvas to a JSON document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		w, err := openWorkspace(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = w.Close() }()

		dst := persist.OpenFileStore(args[0])
		if err := dst.Save(ctx, w.editor.Forest()); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d components to %s\n", w.editor.Forest().Len(), dst.Path())
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Replace the stored canvas with a JSON document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return edit(cmd, func(w *workspace) error {
			f, err := persist.OpenFileStore(args[0]).Load(ctx, w.catalog)
			if err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}
			w.editor.Load(f)
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d components\n", f.Len())
			return nil
		})
	},
}
