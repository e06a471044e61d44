// Package palette assigns chart colors to categories. The mapping is purely
// positional: a category's slot is its index in the known distinct-category
// list modulo the palette size, so colors stay stable for a given category
// list without any per-category state.
package palette

// Color pairs a background with a readable text color.
type Color struct {
	Background string `json:"background_color"`
	Text       string `json:"text_color"`
}

const (
	darkText  = "#1f2937"
	lightText = "#ffffff"
)

// slots is the fixed 8-color palette. Slots 2 and 5 are light backgrounds and
// take dark text; this is a static table, not a luminance computation.
var slots = [8]Color{
	{Background: "#6366f1", Text: lightText},
	{Background: "#10b981", Text: lightText},
	{Background: "#fbbf24", Text: darkText},
	{Background: "#ef4444", Text: lightText},
	{Background: "#8b5cf6", Text: lightText},
	{Background: "#5eead4", Text: darkText},
	{Background: "#3b82f6", Text: lightText},
	{Background: "#ec4899", Text: lightText},
}

// Size is the number of palette slots.
const Size = len(slots)

// ColorFor maps a category to its palette slot given the currently known
// distinct-category list. A category not in the list falls back to slot 0.
func ColorFor(category string, known []string) Color {
	idx := 0
	for i, name := range known {
		if name == category {
			idx = i
			break
		}
	}
	return slots[idx%Size]
}
