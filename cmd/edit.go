package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentic-research/easel/internal/breakpoint"
	"github.com/agentic-research/easel/internal/catalog"
	"github.com/agentic-research/easel/internal/config"
	"github.com/agentic-research/easel/internal/dnd"
	"github.com/agentic-research/easel/internal/graph"
	"github.com/agentic-research/easel/internal/persist"
)

func init() {
	addCmd.Flags().String("parent", "", "container to append to (default: top level)")
	copyCmd.Flags().String("into", "", "container to paste into (default: top level)")
	setCmd.Flags().Bool("override", false, "write to the active breakpoint instead of the base properties")

	rootCmd.AddCommand(newCmd, addCmd, moveCmd, deleteCmd, copyCmd, setCmd, resetCmd, treeCmd, componentsCmd)
}

// edit opens the workspace, applies fn and saves the result.
func edit(cmd *cobra.Command, fn func(w *workspace) error) error {
	ctx := cmd.Context()
	w, err := openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	if err := fn(w); err != nil {
		return err
	}
	return w.save(ctx)
}

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Start an empty canvas, replacing the stored one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return edit(cmd, func(w *workspace) error {
			w.editor.Load(graph.NewForest())
			return nil
		})
	},
}

var addCmd = &cobra.Command{
	Use:   "add <component>",
	Short: "Add a catalog component to the canvas",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parent, _ := cmd.Flags().GetString("parent")
		return edit(cmd, func(w *workspace) error {
			meta, ok := w.catalog.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown component %q", args[0])
			}
			id := w.editor.AddComponent(meta, catalog.LibraryBasic, parent)
			if id == "" {
				return fmt.Errorf("%q is not a container", parent)
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		})
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <id> <before|after|inside> <target>",
	Short: "Move a component relative to another",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		pos, ok := dnd.ParsePosition(args[1])
		if !ok {
			return fmt.Errorf("position must be before, after or inside, got %q", args[1])
		}
		return edit(cmd, func(w *workspace) error {
			if !w.editor.Reparent(args[0], args[2], pos) {
				return fmt.Errorf("cannot move %s %s %s", args[0], pos, args[2])
			}
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a component and everything inside it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return edit(cmd, func(w *workspace) error {
			if !w.editor.DeleteComponent(args[0]) {
				return fmt.Errorf("no component %s", args[0])
			}
			return nil
		})
	},
}

var copyCmd = &cobra.Command{
	Use:   "copy <id>",
	Short: "Duplicate a component with fresh ids",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		into, _ := cmd.Flags().GetString("into")
		return edit(cmd, func(w *workspace) error {
			if !w.editor.CopyComponent(args[0]) {
				return fmt.Errorf("no component %s", args[0])
			}
			id := w.editor.PasteComponent(into)
			if id == "" {
				return fmt.Errorf("cannot paste into %q", into)
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		})
	},
}

var setCmd = &cobra.Command{
	Use:   "set <id> key=value...",
	Short: "Set component properties",
	Long: `Values are parsed as JSON, so 12 is a number and true a boolean; anything
that is not valid JSON is stored as text. With --override the values go to
the active breakpoint's override layer.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		override, _ := cmd.Flags().GetBool("override")
		props, err := parseAssignments(args[1:])
		if err != nil {
			return err
		}
		return edit(cmd, func(w *workspace) error {
			id := args[0]
			if override {
				bp, err := w.breakpoint()
				if err != nil {
					return err
				}
				if !w.editor.SetProperties(id, bp, props) {
					return fmt.Errorf("no component %s", id)
				}
				return nil
			}
			if !w.editor.SetBaseProperties(id, props) {
				return fmt.Errorf("no component %s", id)
			}
			return nil
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset <id> [key...]",
	Short: "Drop the active breakpoint's overrides so base values apply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return edit(cmd, func(w *workspace) error {
			bp, err := w.breakpoint()
			if err != nil {
				return err
			}
			if !w.editor.ResetProperty(args[0], bp, args[1:]...) {
				return fmt.Errorf("%s has no matching overrides at %s", args[0], bp)
			}
			return nil
		})
	},
}

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the canvas outline",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w, err := openWorkspace(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = w.Close() }()
		bp, err := w.breakpoint()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		w.editor.Forest().Walk(func(n *graph.Node, depth int) bool {
			fmt.Fprintf(out, "%s%s %s", strings.Repeat("  ", depth), n.ID, n.Metadata)
			if keys := breakpoint.Overridden(n, bp); len(keys) > 0 {
				fmt.Fprintf(out, " [%s: %s]", bp, strings.Join(keys, ", "))
			}
			fmt.Fprintln(out)
			return true
		})
		return nil
	},
}

var componentsCmd = &cobra.Command{
	Use:   "components",
	Short: "List the components that can be added",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		cat, err := loadCatalog(cfg.Catalog)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, c := range cat.Categories() {
			fmt.Fprintf(out, "%s:\n", c)
			for _, m := range cat.List() {
				if m.Category == c {
					fmt.Fprintf(out, "  %-10s %-9s %s\n", m.Name, m.Kind, m.Description)
				}
			}
		}
		return nil
	},
}

// parseAssignments reads key=value pairs into properties.
func parseAssignments(args []string) (graph.Props, error) {
	props := graph.Props{}
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", a)
		}
		props[k] = persist.ParseValue(v)
	}
	return props, nil
}
