package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/agentic-research/easel/internal/binding"
	"github.com/agentic-research/easel/internal/datasource"
	"github.com/agentic-research/easel/internal/render"
	"github.com/agentic-research/easel/internal/watch"
)

func init() {
	for _, c := range []*cobra.Command{renderCmd, watchCmd} {
		c.Flags().Int("width", 0, "pick the breakpoint for this viewport width")
		c.Flags().String("format", "page", "output format: page, html or json")
		c.Flags().StringP("output", "o", "", "write to a file instead of stdout")
	}
	rootCmd.AddCommand(renderCmd, fetchCmd, watchCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the canvas at a breakpoint with data sources applied",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		w, err := openWorkspace(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = w.Close() }()
		reg, err := w.sources()
		if err != nil {
			return err
		}
		return renderTo(ctx, cmd, w, reg)
	},
}

// renderTo fetches the sources, then writes the resolved canvas.
func renderTo(ctx context.Context, cmd *cobra.Command, w *workspace, reg *datasource.Registry) error {
	var src binding.Source
	if reg != nil {
		if err := reg.RunAll(ctx); err != nil {
			// Failed sources render as absent.
			log.Printf("render: %v", err)
		}
		src = reg
	}

	bp, err := pickBreakpoint(cmd, w)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	r := render.New(w.catalog, src)
	f := w.editor.Forest()

	var out string
	switch format {
	case "page":
		meta, _ := w.breakpoints.Lookup(bp)
		out = r.Page(f, meta)
	case "html":
		out = r.HTML(f, bp) + "\n"
	case "json":
		data, err := json.MarshalIndent(r.Resolve(f, bp), "", "  ")
		if err != nil {
			return err
		}
		out = string(data) + "\n"
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		_, err = io.WriteString(cmd.OutOrStdout(), out)
		return err
	}
	return os.WriteFile(path, []byte(out), 0o644)
}

// pickBreakpoint prefers --width over the configured breakpoint.
func pickBreakpoint(cmd *cobra.Command, w *workspace) (string, error) {
	if width, _ := cmd.Flags().GetInt("width"); width > 0 {
		return w.breakpoints.Detect(width), nil
	}
	return w.breakpoint()
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch every active data source and print its result",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		w, err := openWorkspace(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = w.Close() }()
		reg, err := w.sources()
		if err != nil {
			return err
		}
		if reg == nil {
			return fmt.Errorf("no data sources configured (set --datasources)")
		}
		runErr := reg.RunAll(ctx)

		out := cmd.OutOrStdout()
		for _, d := range reg.Definitions() {
			st, _ := reg.State(d.Name)
			if st.Err != nil {
				fmt.Fprintf(out, "%s: %s: %v\n", d.Name, st.Status, st.Err)
				continue
			}
			v, ok := reg.Value(d.Name)
			if !ok {
				fmt.Fprintf(out, "%s: %s\n", d.Name, st.Status)
				continue
			}
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: %s %s\n", d.Name, st.Status, data)
		}
		return runErr
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-render whenever the document or data-source file changes",
	Long: `Watches the JSON document and the data-source file and renders again on
every change. With --db only the data-source file is watched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		w, err := openWorkspace(ctx)
		if err != nil {
			return err
		}
		var paths []string
		if w.cfg.DB == "" {
			paths = append(paths, w.cfg.Document)
		}
		if w.cfg.DataSources != "" {
			paths = append(paths, w.cfg.DataSources)
		}
		_ = w.Close()
		if len(paths) == 0 {
			return fmt.Errorf("nothing to watch")
		}

		rerender := func() {
			w, err := openWorkspace(ctx)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return
			}
			defer func() { _ = w.Close() }()
			reg, err := w.sources()
			if err == nil {
				err = renderTo(ctx, cmd, w, reg)
			}
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
			}
		}
		rerender()

		wt, err := watch.New(paths...)
		if err != nil {
			return err
		}
		if err := wt.Start(); err != nil {
			return err
		}
		defer wt.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case path, ok := <-wt.Changes:
				if !ok {
					return nil
				}
				log.Printf("watch: %s changed", path)
				rerender()
			}
		}
	},
}
