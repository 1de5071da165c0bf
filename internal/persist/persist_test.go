package persist

import (
	"context"
	"encoding/json"
	"math"
	"path/filepath"
	"testing"
	"time"
	"unsafe"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/easel/api"
	"github.com/agentic-research/easel/internal/canvas"
	"github.com/agentic-research/easel/internal/catalog"
	"github.com/agentic-research/easel/internal/graph"
	"github.com/agentic-research/easel/internal/idgen"
)

// sampleForest builds a Stack holding a Text and a Button, plus a root Text.
func sampleForest(t *testing.T) *graph.Forest {
	t.Helper()
	cat := catalog.Builtin()
	lookup := func(name string) api.ComponentMetadata {
		m, ok := cat.Lookup(name)
		require.True(t, ok)
		return m
	}
	e := canvas.NewEditor(canvas.WithIDGenerator(idgen.Sequence("c")))
	stack := e.AddComponent(lookup("Stack"), catalog.LibraryBasic, "")
	text := e.AddComponent(lookup("Text"), catalog.LibraryBasic, stack)
	e.AddComponent(lookup("Button"), catalog.LibraryBasic, stack)
	e.AddComponent(lookup("Text"), catalog.LibraryBasic, "")
	e.SetProperty(text, "mobile", "fontSize", float64(12))
	e.UpdateProperties(text, graph.Props{
		"text": "Hello {{user.name}}", "fontSize": float64(18), "color": "#333333", "align": "center", "visible": true,
	})
	return e.Forest()
}

func TestSerialize_NestsChildren(t *testing.T) {
	doc := Serialize(sampleForest(t))
	assert.Equal(t, api.DocumentVersion, doc.Version)
	require.Len(t, doc.Components, 2)

	stack := doc.Components[0]
	assert.Equal(t, api.MetadataRef{Name: "Stack", Kind: api.KindContainer}, stack.Metadata)
	require.Len(t, stack.Children, 2)
	assert.Equal(t, "c-1", stack.Children[0].ParentID)
	assert.Equal(t, map[string]any{"fontSize": float64(12)}, stack.Children[0].BreakpointOverrides["mobile"])
	assert.Nil(t, doc.Summary)
}

func TestMarshalUnmarshal_RoundTrip(t *testing.T) {
	f := sampleForest(t)
	data, err := Marshal(f, time.Now())
	require.NoError(t, err)

	got, err := Unmarshal(data, catalog.Builtin())
	require.NoError(t, err)
	assert.True(t, f.Equal(got))
}

func TestMarshal_OmitsEditorState(t *testing.T) {
	data, err := Marshal(sampleForest(t), time.Now())
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.ElementsMatch(t, []string{"version", "components"}, keys(raw))
}

func keys(m map[string]any) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestSerialize_DropsNonPlainValues(t *testing.T) {
	f := graph.NewForest().InsertAtRootEnd(graph.NewLeafSubtree(&graph.Node{
		ID: "x", Metadata: "Text", Kind: api.KindLeaf,
		Base: graph.Props{
			"text":    "ok",
			"onClick": func() {},
			"events":  make(chan int),
			"nested":  map[string]any{"keep": 1, "drop": func() {}},
		},
	}))
	doc := Serialize(f)
	props := doc.Components[0].Properties
	assert.Equal(t, "ok", props["text"])
	assert.NotContains(t, props, "onClick")
	assert.NotContains(t, props, "events")
	assert.Equal(t, map[string]any{"keep": int64(1)}, props["nested"])

	_, err := Marshal(f, time.Now())
	assert.NoError(t, err)
}

func TestMarshal_FallsBackToSummary(t *testing.T) {
	f := graph.NewForest().
		InsertAtRootEnd(graph.NewLeafSubtree(&graph.Node{ID: "a", Kind: api.KindLeaf, Base: graph.Props{"w": math.NaN()}})).
		InsertAtRootEnd(graph.NewLeafSubtree(&graph.Node{ID: "b", Kind: api.KindLeaf}))
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	data, err := Marshal(f, now)
	require.ErrorIs(t, err, ErrSummaryOnly)
	require.NotEmpty(t, data)

	var doc api.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	require.NotNil(t, doc.Summary)
	assert.Equal(t, 2, doc.Summary.NodeCount)
	assert.Equal(t, 2, doc.Summary.RootCount)
	assert.True(t, now.Equal(doc.Summary.SavedAt))

	got, err := Unmarshal(data, nil)
	assert.ErrorIs(t, err, ErrSummaryOnly)
	assert.Equal(t, 0, got.Len())
}

func TestDeserialize_MergesCurrentCatalog(t *testing.T) {
	doc := &api.Document{
		Version: api.DocumentVersion,
		Components: []api.Component{{
			ID:         "b1",
			Metadata:   api.MetadataRef{Name: "Button", Kind: api.KindContainer},
			Properties: map[string]any{"label": "Save"},
		}, {
			ID:         "u1",
			Metadata:   api.MetadataRef{Name: "Legacy", Kind: api.KindLeaf},
			Properties: map[string]any{"x": 1.0},
		}},
	}
	f, err := Deserialize(doc, catalog.Builtin())
	require.NoError(t, err)

	b, _ := f.Find("b1")
	assert.Equal(t, api.KindLeaf, b.Kind, "kind comes from the live catalog")
	assert.Equal(t, "Save", b.Base["label"])
	assert.Equal(t, "primary", b.Base["variant"], "new fields get defaults")

	u, _ := f.Find("u1")
	assert.Equal(t, graph.Props{"x": 1.0}, u.Base)
}

func TestDeserialize_RejectsBrokenDocuments(t *testing.T) {
	dup := &api.Document{Components: []api.Component{
		{ID: "a", Metadata: api.MetadataRef{Name: "Box", Kind: api.KindContainer}, Children: []api.Component{{ID: "a"}}},
	}}
	_, err := Deserialize(dup, nil)
	var inv *graph.InvariantError
	assert.ErrorAs(t, err, &inv)

	_, err = Deserialize(&api.Document{Version: "v9"}, nil)
	assert.Error(t, err)
}

func TestSanitize(t *testing.T) {
	type inner struct {
		Name   string `json:"name"`
		Hidden string `json:"-"`
		Fn     func()
	}
	var word int
	cyclic := map[string]any{"a": 1}
	cyclic["self"] = cyclic

	tests := []struct {
		name string
		in   any
		want any
		keep bool
	}{
		{"string", "x", "x", true},
		{"func", func() {}, nil, false},
		{"complex", complex(1, 2), nil, false},
		{"unsafe", unsafe.Pointer(&word), nil, false},
		{"struct", inner{Name: "n", Hidden: "h", Fn: func() {}}, map[string]any{"name": "n"}, true},
		{"pointer", &inner{Name: "p"}, map[string]any{"name": "p"}, true},
		{"cycle", cyclic, map[string]any{"a": int64(1)}, true},
		{"int keys", map[int]string{1: "a"}, nil, false},
		{"bytes", []byte("raw"), "raw", true},
		{"typed slice", []int{1, 2}, []any{int64(1), int64(2)}, true},
		{"nil", nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Sanitize(tt.in)
			assert.Equal(t, tt.keep, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileStore(t *testing.T) {
	fs := memfs.New()
	s := NewFileStore(fs, "docs/canvas.json")
	ctx := context.Background()

	_, err := s.Load(ctx, nil)
	assert.ErrorIs(t, err, ErrNoDocument)

	f := sampleForest(t)
	require.NoError(t, s.Save(ctx, f))
	_, err = fs.Stat("docs/canvas.json.tmp")
	assert.Error(t, err, "temporary file is renamed away")

	got, err := s.Load(ctx, catalog.Builtin())
	require.NoError(t, err)
	assert.True(t, f.Equal(got))
}

func TestFileStore_SummaryStillWritten(t *testing.T) {
	fs := memfs.New()
	s := NewFileStore(fs, "canvas.json")
	f := graph.NewForest().InsertAtRootEnd(graph.NewLeafSubtree(&graph.Node{ID: "a", Kind: api.KindLeaf, Base: graph.Props{"w": math.Inf(1)}}))

	assert.ErrorIs(t, s.Save(context.Background(), f), ErrSummaryOnly)
	data, err := util.ReadFile(fs, "canvas.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"nodeCount":1`)
}

func TestSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "easel.db")
	s, err := OpenSQLite(dbPath, "home")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	_, err = s.Load(ctx, nil)
	assert.ErrorIs(t, err, ErrNoDocument)

	f := sampleForest(t)
	require.NoError(t, s.Save(ctx, f))
	got, err := s.Load(ctx, catalog.Builtin())
	require.NoError(t, err)
	assert.True(t, f.Equal(got))

	// saving again replaces rather than appends
	_, smaller := f.Remove("c-2")
	require.NoError(t, s.Save(ctx, smaller))
	got, err = s.Load(ctx, catalog.Builtin())
	require.NoError(t, err)
	assert.True(t, smaller.Equal(got))

	other, err := OpenSQLite(dbPath, "other")
	require.NoError(t, err)
	defer func() { _ = other.Close() }()
	_, err = other.Load(ctx, nil)
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestSQLiteStore_SummaryOnly(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "easel.db"), "home")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleForest(t)))
	bad := graph.NewForest().InsertAtRootEnd(graph.NewLeafSubtree(&graph.Node{ID: "a", Kind: api.KindLeaf, Base: graph.Props{"w": math.NaN()}}))
	assert.ErrorIs(t, s.Save(ctx, bad), ErrSummaryOnly)

	got, err := s.Load(ctx, nil)
	assert.ErrorIs(t, err, ErrSummaryOnly)
	assert.Equal(t, 0, got.Len())
}
