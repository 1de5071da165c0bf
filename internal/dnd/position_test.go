package dnd

import (
	"testing"

	"github.com/agentic-research/easel/api"
	"github.com/stretchr/testify/assert"
)

func TestResolve_ContainerBands(t *testing.T) {
	box := Rect{Top: 100, Height: 200}
	tests := []struct {
		name string
		y    float64
		want Position
	}{
		{"ten percent", 120, Before},
		{"half", 200, Inside},
		{"ninety percent", 280, After},
		{"top edge", 100, Before},
		{"bottom edge", 300, After},
		{"above target", 50, Before},
		{"below target", 400, After},
		{"quarter boundary", 150, Inside},
		{"three quarter boundary", 250, Inside},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(box, tt.y, true))
		})
	}
}

func TestResolve_LeafNeverInside(t *testing.T) {
	text := Rect{Top: 0, Height: 100}
	for y := 0.0; y <= 100; y += 5 {
		got := Resolve(text, y, false)
		assert.NotEqual(t, Inside, got, "y=%v", y)
	}
	assert.Equal(t, Before, Resolve(text, 40, false))
	assert.Equal(t, After, Resolve(text, 60, false))
}

func TestResolve_ZeroHeight(t *testing.T) {
	assert.Equal(t, Before, Resolve(Rect{Top: 10}, 10, true))
}

func TestCanAcceptDrop(t *testing.T) {
	assert.True(t, CanAcceptDrop(api.KindContainer))
	assert.False(t, CanAcceptDrop(api.KindLeaf))
}

func TestParsePosition(t *testing.T) {
	p, ok := ParsePosition("inside")
	assert.True(t, ok)
	assert.Equal(t, Inside, p)
	_, ok = ParsePosition("beside")
	assert.False(t, ok)
}
