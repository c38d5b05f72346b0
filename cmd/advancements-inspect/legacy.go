package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Terminal colours for the legacy chat colour codes
var legacyColors = map[byte]lipgloss.Color{
	'0': lipgloss.Color("#000000"),
	'1': lipgloss.Color("#0000AA"),
	'2': lipgloss.Color("#00AA00"),
	'3': lipgloss.Color("#00AAAA"),
	'4': lipgloss.Color("#AA0000"),
	'5': lipgloss.Color("#AA00AA"),
	'6': lipgloss.Color("#FFAA00"),
	'7': lipgloss.Color("#AAAAAA"),
	'8': lipgloss.Color("#555555"),
	'9': lipgloss.Color("#5555FF"),
	'a': lipgloss.Color("#55FF55"),
	'b': lipgloss.Color("#55FFFF"),
	'c': lipgloss.Color("#FF5555"),
	'd': lipgloss.Color("#FF55FF"),
	'e': lipgloss.Color("#FFFF55"),
	'f': lipgloss.Color("#FFFFFF"),
}

const sectionSign = "§"

type segment struct {
	color     byte
	bold      bool
	underline bool
	text      string
}

// parseLegacy splits text on formatting codes. A colour code resets formatting.
func parseLegacy(text string) []segment {
	segments := []segment{}
	current := segment{color: 'f'}

	parts := strings.Split(text, sectionSign)
	if parts[0] != "" {
		current.text = parts[0]
		segments = append(segments, current)
	}

	for _, part := range parts[1:] {
		if part == "" {
			continue
		}

		code, rest := part[0], part[1:]
		current.text = ""
		switch {
		case legacyColors[code] != "":
			current = segment{color: code}
		case code == 'l':
			current.bold = true
		case code == 'n':
			current.underline = true
		case code == 'r':
			current = segment{color: 'f'}
		default:
			// Unknown code, keep it visible
			rest = sectionSign + part
		}

		if rest != "" {
			current.text = rest
			segments = append(segments, current)
		}
	}
	return segments
}

func renderLegacy(text string) string {
	var builder strings.Builder
	for _, s := range parseLegacy(text) {
		style := lipgloss.NewStyle().
			Foreground(legacyColors[s.color]).
			Bold(s.bold).
			Underline(s.underline)
		builder.WriteString(style.Render(s.text))
	}
	return builder.String()
}
