package catalog

import (
	"fmt"
	"html"
	"strings"

	"github.com/agentic-research/easel/api"
)

// LibraryBasic tags nodes created from the builtin catalog.
const LibraryBasic = "basic"

var (
	str     = api.PropertyType{Kind: api.PropString}
	num     = api.PropertyType{Kind: api.PropNumber}
	boolean = api.PropertyType{Kind: api.PropBoolean}
	array   = api.PropertyType{Kind: api.PropArray}
)

func enum(options ...string) api.PropertyType {
	return api.PropertyType{Kind: api.PropEnum, Options: options}
}

// Builtin returns the default component catalog with preview renderers.
func Builtin() *Catalog {
	c := New(
		api.ComponentMetadata{
			Name: "Text", Description: "A run of text", Category: "Typography", Kind: api.KindLeaf,
			PropertySchema: map[string]api.PropertyType{
				"text": str, "fontSize": num, "color": str, "align": enum("left", "center", "right"), "visible": boolean,
			},
			InitialValues: map[string]any{"text": "Text", "fontSize": float64(16), "color": "#111111", "align": "left", "visible": true},
		},
		api.ComponentMetadata{
			Name: "Heading", Description: "Section heading", Category: "Typography", Kind: api.KindLeaf,
			PropertySchema: map[string]api.PropertyType{
				"text": str, "level": enum("1", "2", "3", "4"), "color": str, "visible": boolean,
			},
			InitialValues: map[string]any{"text": "Heading", "level": "2", "color": "#111111", "visible": true},
		},
		api.ComponentMetadata{
			Name: "Button", Description: "Clickable button", Category: "Inputs", Kind: api.KindLeaf,
			PropertySchema: map[string]api.PropertyType{
				"label": str, "variant": enum("primary", "secondary", "ghost"), "disabled": boolean, "visible": boolean,
			},
			InitialValues: map[string]any{"label": "Button", "variant": "primary", "disabled": false, "visible": true},
		},
		api.ComponentMetadata{
			Name: "Link", Description: "Hyperlink", Category: "Typography", Kind: api.KindLeaf,
			PropertySchema: map[string]api.PropertyType{"text": str, "href": str, "newTab": boolean, "visible": boolean},
			InitialValues:  map[string]any{"text": "Link", "href": "#", "newTab": false, "visible": true},
		},
		api.ComponentMetadata{
			Name: "Image", Description: "Image", Category: "Media", Kind: api.KindLeaf,
			PropertySchema: map[string]api.PropertyType{"src": str, "alt": str, "width": num, "height": num, "visible": boolean},
			InitialValues:  map[string]any{"src": "", "alt": "", "width": float64(320), "height": float64(180), "visible": true},
		},
		api.ComponentMetadata{
			Name: "Input", Description: "Single-line text input", Category: "Inputs", Kind: api.KindLeaf,
			PropertySchema: map[string]api.PropertyType{"placeholder": str, "value": str, "disabled": boolean, "visible": boolean},
			InitialValues:  map[string]any{"placeholder": "Type here", "value": "", "disabled": false, "visible": true},
		},
		api.ComponentMetadata{
			Name: "Checkbox", Description: "Checkbox with label", Category: "Inputs", Kind: api.KindLeaf,
			PropertySchema: map[string]api.PropertyType{"label": str, "checked": boolean, "visible": boolean},
			InitialValues:  map[string]any{"label": "Checkbox", "checked": false, "visible": true},
		},
		api.ComponentMetadata{
			Name: "List", Description: "Bulleted list", Category: "Typography", Kind: api.KindLeaf,
			PropertySchema: map[string]api.PropertyType{"items": array, "ordered": boolean, "visible": boolean},
			InitialValues:  map[string]any{"items": []any{"First", "Second"}, "ordered": false, "visible": true},
		},
		api.ComponentMetadata{
			Name: "Box", Description: "Generic container", Category: "Layout", Kind: api.KindContainer,
			PropertySchema: map[string]api.PropertyType{"padding": num, "background": str, "visible": boolean},
			InitialValues:  map[string]any{"padding": float64(16), "background": "transparent", "visible": true},
		},
		api.ComponentMetadata{
			Name: "Stack", Description: "Vertical or horizontal stack", Category: "Layout", Kind: api.KindContainer,
			PropertySchema: map[string]api.PropertyType{"direction": enum("column", "row"), "gap": num, "visible": boolean},
			InitialValues:  map[string]any{"direction": "column", "gap": float64(8), "visible": true},
		},
		api.ComponentMetadata{
			Name: "Grid", Description: "Grid container", Category: "Layout", Kind: api.KindContainer,
			PropertySchema: map[string]api.PropertyType{"columns": num, "gap": num, "visible": boolean},
			InitialValues:  map[string]any{"columns": float64(2), "gap": float64(8), "visible": true},
		},
	)

	c.RegisterRenderer("Text", func(p map[string]any, _ string) string {
		return fmt.Sprintf(`<p style="font-size:%vpx;color:%s;text-align:%s">%s</p>`,
			p["fontSize"], text(p["color"]), text(p["align"]), text(p["text"]))
	})
	c.RegisterRenderer("Heading", func(p map[string]any, _ string) string {
		level := text(p["level"])
		return fmt.Sprintf(`<h%s style="color:%s">%s</h%s>`, level, text(p["color"]), text(p["text"]), level)
	})
	c.RegisterRenderer("Button", func(p map[string]any, _ string) string {
		disabled := ""
		if p["disabled"] == true {
			disabled = " disabled"
		}
		return fmt.Sprintf(`<button class="%s"%s>%s</button>`, text(p["variant"]), disabled, text(p["label"]))
	})
	c.RegisterRenderer("Link", func(p map[string]any, _ string) string {
		target := ""
		if p["newTab"] == true {
			target = ` target="_blank"`
		}
		return fmt.Sprintf(`<a href="%s"%s>%s</a>`, text(p["href"]), target, text(p["text"]))
	})
	c.RegisterRenderer("Image", func(p map[string]any, _ string) string {
		return fmt.Sprintf(`<img src="%s" alt="%s" width="%v" height="%v">`, text(p["src"]), text(p["alt"]), p["width"], p["height"])
	})
	c.RegisterRenderer("Input", func(p map[string]any, _ string) string {
		return fmt.Sprintf(`<input placeholder="%s" value="%s">`, text(p["placeholder"]), text(p["value"]))
	})
	c.RegisterRenderer("Checkbox", func(p map[string]any, _ string) string {
		checked := ""
		if p["checked"] == true {
			checked = " checked"
		}
		return fmt.Sprintf(`<label><input type="checkbox"%s> %s</label>`, checked, text(p["label"]))
	})
	c.RegisterRenderer("List", func(p map[string]any, _ string) string {
		tag := "ul"
		if p["ordered"] == true {
			tag = "ol"
		}
		var b strings.Builder
		b.WriteString("<" + tag + ">")
		items, _ := p["items"].([]any)
		for _, it := range items {
			b.WriteString("<li>" + text(it) + "</li>")
		}
		b.WriteString("</" + tag + ">")
		return b.String()
	})
	c.RegisterRenderer("Box", func(p map[string]any, children string) string {
		return fmt.Sprintf(`<div style="padding:%vpx;background:%s">%s</div>`, p["padding"], text(p["background"]), children)
	})
	c.RegisterRenderer("Stack", func(p map[string]any, children string) string {
		return fmt.Sprintf(`<div style="display:flex;flex-direction:%s;gap:%vpx">%s</div>`, text(p["direction"]), p["gap"], children)
	})
	c.RegisterRenderer("Grid", func(p map[string]any, children string) string {
		return fmt.Sprintf(`<div style="display:grid;grid-template-columns:repeat(%v,1fr);gap:%vpx">%s</div>`, p["columns"], p["gap"], children)
	})
	return c
}

func text(v any) string {
	if v == nil {
		return ""
	}
	return html.EscapeString(fmt.Sprint(v))
}
