// Package ui renders command output.
package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"
)

var (
	Success = lipgloss.NewStyle().Foreground(lipgloss.Color("#3FB950")).Bold(true)
	Failure = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	Warning = lipgloss.NewStyle().Foreground(lipgloss.Color("#E3B341"))
	Muted   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true).MarginBottom(1)
)

// Table renders rows under headers with a rounded border. A cell may hold
// several lines; versions of one photon are stacked that way.
func Table(title string, headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))).
		BorderRow(true).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Rows(rows...)
	if title == "" {
		return t.String()
	}
	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), t.String())
}

// Timestamp formats a unix millisecond timestamp in local time.
func Timestamp(ms int64) string {
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04:05")
}

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Confirm asks a yes/no question on out and reads the answer from in. An
// empty answer picks def.
func Confirm(in io.Reader, out io.Writer, prompt string, def bool) (bool, error) {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	fmt.Fprintf(out, "%s %s: ", prompt, hint)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Prompt confirms on the terminal, or returns true without asking when stdin
// is not a terminal.
func Prompt(prompt string, def bool) (bool, error) {
	if !IsInteractive() {
		return true, nil
	}
	return Confirm(os.Stdin, os.Stderr, prompt, def)
}
