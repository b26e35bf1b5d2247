package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// theme mirrors the accent/dim split the example pack's TUI helper
// uses for terminal status displays, narrowed from a live-updating
// frame to a one-shot render since sttctl prints a result and exits
// rather than redrawing a screen.
var (
	accent = lipgloss.Color("#00ff9f")
	dim    = lipgloss.Color("#6e7681")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(accent).Width(16)
	valueStyle = lipgloss.NewStyle()
	helpStyle  = lipgloss.NewStyle().Foreground(dim)
)

// renderFields prints a titled block of label/value pairs, e.g. the
// output of a backend's Status() map.
func renderFields(title string, fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	for _, k := range keys {
		b.WriteString(labelStyle.Render(k))
		b.WriteString(valueStyle.Render(fields[k]))
		b.WriteString("\n")
	}
	return b.String()
}

// renderList prints a labeled, comma-separated list on one line, e.g. a
// Capabilities slice field.
func renderList(title string, items []string) string {
	var b strings.Builder
	b.WriteString(labelStyle.Render(title))
	if len(items) == 0 {
		b.WriteString(helpStyle.Render("(none)"))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(strings.Join(items, ", "))
	b.WriteString("\n")
	return b.String()
}

func renderBool(label string, v bool) string {
	return fmt.Sprintf("%s%t\n", labelStyle.Render(label), v)
}
