package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss/v2"

	"symres/internal/ui/colorize"
)

var (
	addrStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	nameStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	nsStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	tagStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Width(12)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

func paint(style lipgloss.Style, s string) string {
	if !colorize.Enabled() {
		return s
	}
	return style.Render(s)
}

// paintName highlights the last component of a qualified name.
func paintName(name string) string {
	if !colorize.Enabled() {
		return name
	}
	i := strings.LastIndex(name, "::")
	if i < 0 {
		return nameStyle.Render(name)
	}
	return nsStyle.Render(name[:i+2]) + nameStyle.Render(name[i+2:])
}

func hex(ea uint64) string { return fmt.Sprintf("%#x", ea) }

// field prints "label  value" with a fixed-width label.
func field(w io.Writer, label, value string) {
	if colorize.Enabled() {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render(label), value)
		return
	}
	fmt.Fprintf(w, "%-12s %s\n", label, value)
}

func flags(pairs ...any) string {
	var tags []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if on, _ := pairs[i+1].(bool); on {
			tags = append(tags, pairs[i].(string))
		}
	}
	if len(tags) == 0 {
		return paint(dimStyle, "-")
	}
	return paint(tagStyle, strings.Join(tags, ","))
}

// sanitizeForJSON keeps names from stripped or corrupt tables printable.
func sanitizeForJSON(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "�")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}
