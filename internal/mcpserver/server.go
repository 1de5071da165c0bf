// Package mcpserver exposes a canvas Editor as MCP tools so agents can
// build and inspect pages.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/agentic-research/easel/internal/binding"
	"github.com/agentic-research/easel/internal/breakpoint"
	"github.com/agentic-research/easel/internal/canvas"
	"github.com/agentic-research/easel/internal/catalog"
	"github.com/agentic-research/easel/internal/datasource"
	"github.com/agentic-research/easel/internal/dnd"
	"github.com/agentic-research/easel/internal/graph"
	"github.com/agentic-research/easel/internal/persist"
	"github.com/agentic-research/easel/internal/render"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// Deps are the collaborators the tools operate on. Sources and Store may
// be nil, which disables run_sources and save respectively.
type Deps struct {
	Editor      *canvas.Editor
	Catalog     *catalog.Catalog
	Breakpoints *breakpoint.Catalog
	Sources     *datasource.Registry
	Store       persist.Store
}

// Server is the MCP front end of an Editor. It keeps one viewport for the
// session, so a width or breakpoint chosen once applies to later renders.
type Server struct {
	Deps
	mcp      *server.MCPServer
	viewport *breakpoint.Viewport
}

// defaultWidth is the viewport width a session starts with.
const defaultWidth = 1440

// New creates the server and registers its tools.
func New(d Deps) *Server {
	s := &Server{
		Deps:     d,
		mcp:      server.NewMCPServer("easel", Version, server.WithToolCapabilities(false)),
		viewport: breakpoint.NewViewport(d.Breakpoints),
	}
	s.viewport.Resize(defaultWidth)
	s.registerTreeTools()
	s.registerPropertyTools()
	s.registerViewTools()
	return s
}

// ServeStdio serves the tools over stdin/stdout until the client leaves.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTreeTools() {
	s.mcp.AddTool(mcp.NewTool("list_components",
		mcp.WithDescription("List the components that can be placed on the canvas"),
	), s.listComponents)

	s.mcp.AddTool(mcp.NewTool("add_component",
		mcp.WithDescription("Add a component at the end of the canvas or as the last child of a container"),
		mcp.WithString("component", mcp.Required(), mcp.Description("Catalog component name")),
		mcp.WithString("parent", mcp.Description("Container id; omit for the top level")),
	), s.addComponent)

	s.mcp.AddTool(mcp.NewTool("move_component",
		mcp.WithDescription("Move a component before, after or inside another"),
		mcp.WithString("id", mcp.Required()),
		mcp.WithString("target", mcp.Required()),
		mcp.WithString("position", mcp.Required(), mcp.Enum(string(dnd.Before), string(dnd.After), string(dnd.Inside))),
	), s.moveComponent)

	s.mcp.AddTool(mcp.NewTool("delete_component",
		mcp.WithDescription("Delete a component and everything inside it"),
		mcp.WithString("id", mcp.Required()),
	), s.deleteComponent)

	s.mcp.AddTool(mcp.NewTool("duplicate_component",
		mcp.WithDescription("Copy a component and paste it, optionally into a container"),
		mcp.WithString("id", mcp.Required()),
		mcp.WithString("into", mcp.Description("Container id to paste into; omit for the top level")),
	), s.duplicateComponent)

	s.mcp.AddTool(mcp.NewTool("get_tree",
		mcp.WithDescription("Return the canvas document as JSON"),
	), s.getTree)
}

func (s *Server) registerPropertyTools() {
	s.mcp.AddTool(mcp.NewTool("set_property",
		mcp.WithDescription("Set a property. With a breakpoint the edit applies to that breakpoint only"),
		mcp.WithString("id", mcp.Required()),
		mcp.WithString("key", mcp.Required()),
		mcp.WithString("value", mcp.Required(), mcp.Description("JSON value; bare text is taken as a string")),
		mcp.WithString("breakpoint", mcp.Description("Breakpoint id; omit to edit the base properties")),
	), s.setProperty)

	s.mcp.AddTool(mcp.NewTool("reset_property",
		mcp.WithDescription("Remove a breakpoint override so the base value applies again"),
		mcp.WithString("id", mcp.Required()),
		mcp.WithString("breakpoint", mcp.Required()),
		mcp.WithString("key", mcp.Description("Property to reset; omit to reset all")),
	), s.resetProperty)
}

func (s *Server) registerViewTools() {
	s.mcp.AddTool(mcp.NewTool("render",
		mcp.WithDescription("Resolve the canvas at a breakpoint, with overrides and data bindings applied"),
		mcp.WithString("breakpoint", mcp.Description("Breakpoint id for this render only; omit to use the viewport")),
		mcp.WithNumber("width", mcp.Description("Resize the viewport to this width before rendering")),
		mcp.WithBoolean("html", mcp.Description("Return HTML instead of JSON")),
	), s.render)

	s.mcp.AddTool(mcp.NewTool("set_viewport",
		mcp.WithDescription("Resize the session viewport or pin it to a breakpoint; returns the active breakpoint"),
		mcp.WithNumber("width", mcp.Description("Viewport width in pixels")),
		mcp.WithString("breakpoint", mcp.Description(`Breakpoint id to pin, or "auto" to follow the width again`)),
	), s.setViewport)

	s.mcp.AddTool(mcp.NewTool("run_sources",
		mcp.WithDescription("Fetch every active data source"),
	), s.runSources)

	s.mcp.AddTool(mcp.NewTool("save",
		mcp.WithDescription("Persist the canvas document"),
	), s.save)
}

func (s *Server) listComponents(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	for _, m := range s.Catalog.List() {
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\n", m.Name, m.Kind, m.Category, m.Description)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) addComponent(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("component")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	meta, ok := s.Catalog.Lookup(name)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown component %q", name)), nil
	}
	parent := req.GetString("parent", "")
	id := s.Editor.AddComponent(meta, catalog.LibraryBasic, parent)
	if id == "" {
		return mcp.NewToolResultError(fmt.Sprintf("%q is not a container", parent)), nil
	}
	return mcp.NewToolResultText(id), nil
}

func (s *Server) moveComponent(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pos, ok := dnd.ParsePosition(req.GetString("position", ""))
	if !ok {
		return mcp.NewToolResultError("position must be before, after or inside"), nil
	}
	if !s.Editor.Reparent(id, target, pos) {
		return mcp.NewToolResultError(fmt.Sprintf("cannot move %s %s %s", id, pos, target)), nil
	}
	return mcp.NewToolResultText("moved"), nil
}

func (s *Server) deleteComponent(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !s.Editor.DeleteComponent(id) {
		return mcp.NewToolResultError(fmt.Sprintf("no component %s", id)), nil
	}
	return mcp.NewToolResultText("deleted"), nil
}

func (s *Server) duplicateComponent(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !s.Editor.CopyComponent(id) {
		return mcp.NewToolResultError(fmt.Sprintf("no component %s", id)), nil
	}
	pasted := s.Editor.PasteComponent(req.GetString("into", ""))
	if pasted == "" {
		return mcp.NewToolResultError("paste failed"), nil
	}
	return mcp.NewToolResultText(pasted), nil
}

func (s *Server) getTree(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(persist.Serialize(s.Editor.Forest()), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) setProperty(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value := persist.ParseValue(raw)

	bp := req.GetString("breakpoint", "")
	var ok bool
	if bp != "" {
		ok = s.Editor.SetProperty(id, bp, key, value)
	} else {
		ok = s.Editor.SetBaseProperties(id, graph.Props{key: value})
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no component %s", id)), nil
	}
	return mcp.NewToolResultText("ok"), nil
}

func (s *Server) resetProperty(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bp, err := req.RequireString("breakpoint")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var keys []string
	if k := req.GetString("key", ""); k != "" {
		keys = append(keys, k)
	}
	if !s.Editor.ResetProperty(id, bp, keys...) {
		return mcp.NewToolResultError("nothing to reset"), nil
	}
	return mcp.NewToolResultText("ok"), nil
}

func (s *Server) render(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bp := req.GetString("breakpoint", "")
	if bp == "" {
		if width := int(req.GetFloat("width", 0)); width > 0 {
			s.viewport.Resize(width)
		}
		bp = s.viewport.Active()
	}
	if _, ok := s.Breakpoints.Lookup(bp); !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown breakpoint %q", bp)), nil
	}
	r := render.New(s.Catalog, sourceOrNil(s.Sources))
	f := s.Editor.Forest()
	if req.GetBool("html", false) {
		return mcp.NewToolResultText(r.HTML(f, bp)), nil
	}
	data, err := json.MarshalIndent(r.Resolve(f, bp), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) setViewport(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if width := int(req.GetFloat("width", 0)); width > 0 {
		s.viewport.Resize(width)
	}
	switch bp := req.GetString("breakpoint", ""); bp {
	case "":
	case "auto":
		s.viewport.Auto()
	default:
		if !s.viewport.Select(bp) {
			return mcp.NewToolResultError(fmt.Sprintf("unknown breakpoint %q", bp)), nil
		}
	}
	active := s.viewport.Active()
	if s.viewport.Manual() {
		active += " (pinned)"
	}
	return mcp.NewToolResultText(active), nil
}

func (s *Server) runSources(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.Sources == nil {
		return mcp.NewToolResultError("no data sources configured"), nil
	}
	err := s.Sources.RunAll(ctx)
	var b strings.Builder
	for _, d := range s.Sources.Definitions() {
		st, _ := s.Sources.State(d.Name)
		fmt.Fprintf(&b, "%s\t%s", d.Name, st.Status)
		if st.Err != nil {
			fmt.Fprintf(&b, "\t%v", st.Err)
		}
		b.WriteString("\n")
	}
	if err != nil {
		return mcp.NewToolResultError(b.String()), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) save(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.Store == nil {
		return mcp.NewToolResultError("no store configured"), nil
	}
	err := s.Store.Save(ctx, s.Editor.Forest())
	switch {
	case errors.Is(err, persist.ErrSummaryOnly):
		return mcp.NewToolResultError("saved summary only: the canvas holds values that cannot be stored"), nil
	case err != nil:
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("saved"), nil
}

// sourceOrNil avoids handing render a typed nil registry.
func sourceOrNil(r *datasource.Registry) binding.Source {
	if r == nil {
		return nil
	}
	return r
}
