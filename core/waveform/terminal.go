package waveform

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const maxTerminalHeight = 40

var (
	waveStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	playheadStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	noteStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	statusStyle   = lipgloss.NewStyle().Faint(true).Italic(true)
)

// RenderTerminal draws a frame as text rows. Columns map one-to-one to
// characters; markers are optional note x positions relative to ScrollX.
func RenderTerminal(f Frame, height int, markers []float64) string {
	if f.State != StateReady {
		msg := string(f.State)
		if f.Message != "" {
			msg += ": " + f.Message
		}
		return statusStyle.Render(msg)
	}
	if height < 3 {
		height = 3
	}
	if height > maxTerminalHeight {
		height = maxTerminalHeight
	}
	if height%2 == 0 {
		height++
	}
	mid := height / 2
	width := len(f.Columns)

	grid := make([][]string, height)
	for r := range grid {
		grid[r] = make([]string, width)
		for c := range grid[r] {
			grid[r][c] = " "
		}
	}

	for c, col := range f.Columns {
		top := mid - int(float64(col.Max)*float64(mid)+0.5)
		bot := mid - int(float64(col.Min)*float64(mid)-0.5)
		if top < 0 {
			top = 0
		}
		if bot > height-1 {
			bot = height - 1
		}
		for r := top; r <= bot; r++ {
			grid[r][c] = waveStyle.Render("█")
		}
	}

	for _, x := range markers {
		c := int(x)
		if c >= 0 && c < width {
			grid[0][c] = noteStyle.Render("▼")
		}
	}

	ph := int(f.PlayheadX)
	if ph >= 0 && ph < width {
		for r := range grid {
			grid[r][ph] = playheadStyle.Render("│")
		}
	}

	var sb strings.Builder
	for _, row := range grid {
		sb.WriteString(strings.Join(row, ""))
		sb.WriteString("\n")
	}
	sb.WriteString(renderTimeAxis(f))
	return sb.String()
}

func renderTimeAxis(f Frame) string {
	width := len(f.Columns)
	if width == 0 {
		return ""
	}
	const markerWidth = 8
	span := f.EndMs - f.StartMs

	var sb strings.Builder
	for c := 0; c+markerWidth <= width; c += markerWidth * 2 {
		ms := f.StartMs + span*float64(c)/float64(width)
		ts := time.Duration(ms * float64(time.Millisecond))
		label := fmt.Sprintf("%02d:%02d.%d", int(ts.Minutes()), int(ts.Seconds())%60, (ts.Milliseconds()%1000)/100)
		sb.WriteString(fmt.Sprintf("%-*s", markerWidth*2, label))
	}
	return sb.String()
}
