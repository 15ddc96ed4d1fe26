package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
)

const statsWidth = 46

type styles struct {
	canvas  lipgloss.Style
	panel   lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	graph   lipgloss.Style
	help    lipgloss.Style
	running lipgloss.Style
	paused  lipgloss.Style
	done    lipgloss.Style
	failed  lipgloss.Style
	low     lipgloss.Style
	mid     lipgloss.Style
	high    lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		canvas:  lipgloss.NewStyle().Foreground(t.Primary).Padding(1, 2),
		panel:   lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(t.Muted).Padding(1, 2).Width(statsWidth),
		label:   lipgloss.NewStyle().Foreground(t.Muted).Width(12),
		value:   lipgloss.NewStyle().Foreground(t.Text),
		graph:   lipgloss.NewStyle().Foreground(t.Secondary).Padding(1, 0),
		help:    lipgloss.NewStyle().Foreground(t.Muted).MarginTop(1),
		running: lipgloss.NewStyle().Bold(true).Foreground(t.Success),
		paused:  lipgloss.NewStyle().Bold(true).Foreground(t.Warning),
		done:    lipgloss.NewStyle().Bold(true).Foreground(t.Accent),
		failed:  lipgloss.NewStyle().Bold(true).Foreground(t.Error),
		low:     lipgloss.NewStyle().Foreground(t.Secondary),
		mid:     lipgloss.NewStyle().Foreground(t.Accent),
		high:    lipgloss.NewStyle().Foreground(t.Warning),
	}
}

// GradientText colors each rune of text along a Lab blend from start to end.
func GradientText(text string, start, end lipgloss.Color) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return ""
	}
	a, errA := colorful.Hex(string(start))
	b, errB := colorful.Hex(string(end))
	if errA != nil || errB != nil {
		return text
	}

	var out strings.Builder
	for i, r := range runes {
		t := 0.0
		if len(runes) > 1 {
			t = float64(i) / float64(len(runes)-1)
		}
		c := lipgloss.Color(a.BlendLab(b, t).Clamped().Hex())
		out.WriteString(lipgloss.NewStyle().Bold(true).Foreground(c).Render(string(r)))
	}
	return out.String()
}

var levelGlyphs = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// levelBars draws one bar per time level, its height the share of particles
// on that level.
func levelBars(hist []int, st styles) string {
	total := 0
	for _, c := range hist {
		total += c
	}
	if total == 0 {
		return st.label.Render("(none)")
	}

	var b strings.Builder
	for l, c := range hist {
		share := float64(c) / float64(total)
		idx := int(share * float64(len(levelGlyphs)-1))
		g := string(levelGlyphs[idx])
		if c == 0 {
			g = " "
		}
		switch {
		case share > 0.6:
			b.WriteString(st.high.Render(g))
		case share > 0.2:
			b.WriteString(st.mid.Render(g))
		default:
			b.WriteString(st.low.Render(g))
		}
		if l < len(hist)-1 {
			b.WriteByte(' ')
		}
	}
	return b.String()
}
