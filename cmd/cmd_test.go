package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/easel/internal/graph"
)

// resetFlags restores every flag to its default; cobra keeps parsed values
// between Execute calls in one process.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, out)
	return out
}

func TestParseAssignments(t *testing.T) {
	props, err := parseAssignments([]string{"text=Hello world", "fontSize=12", "visible=false", "items=[\"a\",\"b\"]", "empty="})
	require.NoError(t, err)
	assert.Equal(t, graph.Props{
		"text":     "Hello world",
		"fontSize": float64(12),
		"visible":  false,
		"items":    []any{"a", "b"},
		"empty":    "",
	}, props)

	for _, bad := range []string{"novalue", "=12"} {
		_, err := parseAssignments([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestEditAndRender(t *testing.T) {
	doc := filepath.Join(t.TempDir(), "page.json")

	stack := strings.TrimSpace(mustRun(t, "add", "Stack", "-d", doc))
	label := strings.TrimSpace(mustRun(t, "add", "Text", "--parent", stack, "-d", doc))
	require.NotEqual(t, stack, label)

	mustRun(t, "set", label, "text=Hello", "fontSize=20", "-d", doc)
	mustRun(t, "set", label, "fontSize=12", "--override", "-b", "mobile", "-d", doc)

	tree := mustRun(t, "tree", "-b", "mobile", "-d", doc)
	assert.Equal(t, stack+" Stack\n  "+label+" Text [mobile: fontSize]\n", tree)

	html := mustRun(t, "render", "--format", "html", "-b", "mobile", "-d", doc)
	assert.Contains(t, html, "font-size:12px")
	assert.Contains(t, html, "Hello")

	html = mustRun(t, "render", "--format", "html", "--width", "1500", "-d", doc)
	assert.Contains(t, html, "font-size:20px")

	page := mustRun(t, "render", "-d", doc)
	assert.True(t, strings.HasPrefix(page, "<!doctype html>"))

	mustRun(t, "reset", label, "-b", "mobile", "-d", doc)
	tree = mustRun(t, "tree", "-b", "mobile", "-d", doc)
	assert.NotContains(t, tree, "[mobile")

	copied := strings.TrimSpace(mustRun(t, "copy", stack, "-d", doc))
	mustRun(t, "move", copied, "before", stack, "-d", doc)
	tree = mustRun(t, "tree", "-d", doc)
	assert.True(t, strings.HasPrefix(tree, copied+" Stack\n"), tree)

	mustRun(t, "delete", copied, "-d", doc)
	tree = mustRun(t, "tree", "-d", doc)
	assert.Equal(t, stack+" Stack\n  "+label+" Text\n", tree)
}

func TestEditErrorsLeaveDocumentAlone(t *testing.T) {
	doc := filepath.Join(t.TempDir(), "page.json")
	label := strings.TrimSpace(mustRun(t, "add", "Text", "-d", doc))
	before, err := os.ReadFile(doc)
	require.NoError(t, err)

	tests := [][]string{
		{"add", "Carousel"},
		{"add", "Text", "--parent", label},
		{"move", label, "above", label},
		{"move", label, "inside", label},
		{"delete", "ghost"},
		{"set", "ghost", "text=x"},
		{"set", label, "--override", "-b", "watch", "text=x"},
		{"render", "--format", "pdf"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			_, err := run(t, append(args, "-d", doc)...)
			assert.Error(t, err)
			after, err := os.ReadFile(doc)
			require.NoError(t, err)
			assert.Equal(t, string(before), string(after))
		})
	}
}

func TestRenderWithDataSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/user":
			_, _ = w.Write([]byte(`{"name":"Ada","admin":true}`))
		default:
			http.Error(w, "nope", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	doc := filepath.Join(dir, "page.json")
	sources := filepath.Join(dir, "sources.hcl")
	require.NoError(t, os.WriteFile(sources, []byte(`
source "user" {
  url = "`+srv.URL+`/user"
}

source "broken" {
  url = "`+srv.URL+`/broken"
}
`), 0o644))

	label := strings.TrimSpace(mustRun(t, "add", "Text", "-d", doc))
	mustRun(t, "set", label, "text=Hi {{user.name}}", "-d", doc)

	html := mustRun(t, "render", "--format", "html", "-d", doc, "--datasources", sources)
	assert.Contains(t, html, "Hi Ada")

	out, err := run(t, "fetch", "-d", doc, "--datasources", sources)
	assert.Error(t, err)
	assert.Contains(t, out, `user: ok {"admin":true,"name":"Ada"}`)
	assert.Contains(t, out, "broken: error")

	// without sources the binding resolves to nothing
	html = mustRun(t, "render", "--format", "html", "-d", doc)
	assert.NotContains(t, html, "Ada")
}

func TestImportExportSQLite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "page.json")
	db := filepath.Join(dir, "easel.db")

	button := strings.TrimSpace(mustRun(t, "add", "Button", "-d", src))
	mustRun(t, "set", button, "label=Buy", "-d", src)

	out := mustRun(t, "import", src, "--db", db, "-d", "home")
	assert.Contains(t, out, "imported 1 components")
	assert.Equal(t, button+" Button\n", mustRun(t, "tree", "--db", db, "-d", "home"))

	// other document names in the same database stay empty
	assert.Empty(t, mustRun(t, "tree", "--db", db, "-d", "about"))

	dst := filepath.Join(dir, "exported.json")
	mustRun(t, "export", dst, "--db", db, "-d", "home")
	html := mustRun(t, "render", "--format", "html", "-d", dst)
	assert.Contains(t, html, "Buy")
}

func TestAddUsesConfiguredIDGenerator(t *testing.T) {
	doc := filepath.Join(t.TempDir(), "page.json")

	id := strings.TrimSpace(mustRun(t, "add", "Text", "-d", doc, "--id-generator", "uuid7"))
	require.Len(t, id, 36, id)
	assert.Equal(t, byte('7'), id[14], "uuid version nibble")

	id = strings.TrimSpace(mustRun(t, "add", "Text", "-d", doc))
	assert.Equal(t, 1, strings.Count(id, "-"), "default stays composite: %s", id)

	_, err := run(t, "add", "Text", "-d", doc, "--id-generator", "snowflake")
	assert.Error(t, err)
}
