package types

// Icon is the symbolic name of a category icon.
type Icon string

const (
	IconLayers     Icon = "Layers"
	IconLayout     Icon = "Layout"
	IconServer     Icon = "Server"
	IconDatabase   Icon = "Database"
	IconGlobe      Icon = "Globe"
	IconCode       Icon = "Code"
	IconSmartphone Icon = "Smartphone"
	IconCpu        Icon = "Cpu"
	IconFolder     Icon = "Folder"
)

// iconGlyphs maps every known icon to its terminal glyph. IconFolder is the
// fallback for unknown names.
var iconGlyphs = map[Icon]string{
	IconLayers:     "≣",
	IconLayout:     "▦",
	IconServer:     "▤",
	IconDatabase:   "⛁",
	IconGlobe:      "◍",
	IconCode:       "‹›",
	IconSmartphone: "▯",
	IconCpu:        "▣",
	IconFolder:     "▭",
}

// Known reports whether the icon has an entry in the lookup table.
func (i Icon) Known() bool {
	_, ok := iconGlyphs[i]
	return ok
}

// Resolve returns the icon itself when known, otherwise IconFolder.
func (i Icon) Resolve() Icon {
	if i.Known() {
		return i
	}
	return IconFolder
}

// Glyph returns the terminal glyph for the icon.
func (i Icon) Glyph() string {
	return iconGlyphs[i.Resolve()]
}

// Color is the symbolic name of a category color.
type Color string

const (
	ColorBlue    Color = "blue"
	ColorIndigo  Color = "indigo"
	ColorEmerald Color = "emerald"
	ColorAmber   Color = "amber"
	ColorRose    Color = "rose"
	ColorViolet  Color = "violet"
	ColorSlate   Color = "slate"
)

// Style is the resolved presentation of a Color: a foreground and a
// background in hex.
type Style struct {
	Foreground string
	Background string
	Border     string
}

var colorStyles = map[Color]Style{
	ColorBlue:    {Foreground: "#2563eb", Background: "#dbeafe", Border: "#bfdbfe"},
	ColorIndigo:  {Foreground: "#4f46e5", Background: "#e0e7ff", Border: "#c7d2fe"},
	ColorEmerald: {Foreground: "#059669", Background: "#d1fae5", Border: "#a7f3d0"},
	ColorAmber:   {Foreground: "#d97706", Background: "#fef3c7", Border: "#fde68a"},
	ColorRose:    {Foreground: "#e11d48", Background: "#ffe4e6", Border: "#fecdd3"},
	ColorViolet:  {Foreground: "#7c3aed", Background: "#ede9fe", Border: "#ddd6fe"},
	ColorSlate:   {Foreground: "#475569", Background: "#f1f5f9", Border: "#e2e8f0"},
}

// Known reports whether the color has an entry in the lookup table.
func (c Color) Known() bool {
	_, ok := colorStyles[c]
	return ok
}

// Resolve returns the color itself when known, otherwise ColorSlate.
func (c Color) Resolve() Color {
	if c.Known() {
		return c
	}
	return ColorSlate
}

// Style returns the presentation of the color.
func (c Color) Style() Style {
	return colorStyles[c.Resolve()]
}
