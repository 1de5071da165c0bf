package cmd

import (
	"github.com/spf13/cobra"

	"github.com/agentic-research/easel/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the canvas as MCP tools over stdio",
	Long: `Starts an MCP server on stdin/stdout. Agents can add, move and style
components, render the page and save it back to the configured store.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w, err := openWorkspace(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = w.Close() }()
		reg, err := w.sources()
		if err != nil {
			return err
		}
		s := mcpserver.New(mcpserver.Deps{
			Editor:      w.editor,
			Catalog:     w.catalog,
			Breakpoints: w.breakpoints,
			Sources:     reg,
			Store:       w.store,
		})
		return s.ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
