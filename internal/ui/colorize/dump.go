// Package colorize styles terminal output of memory dumps.
package colorize

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
)

var (
	addressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")) // Gray for addresses
	wordStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
)

// Enabled reports whether coloring is on. WRANGLE_NO_COLOR disables it
// regardless of the output device.
func Enabled() bool {
	return os.Getenv("WRANGLE_NO_COLOR") == ""
}

// Header styles a section heading such as the inspected file name.
func Header(s string) string {
	if !Enabled() {
		return s
	}
	return headerStyle.Render(s)
}

// DumpLine styles one "address: words" line. Lines without the address
// separator pass through untouched.
func DumpLine(line string) string {
	if !Enabled() {
		return line
	}

	addr, words, ok := strings.Cut(line, ": ")
	if !ok {
		return line
	}
	return fmt.Sprintf("%s: %s", addressStyle.Render(addr), wordStyle.Render(words))
}

// Dump styles a whole rendered dump.
func Dump(lines []string) []string {
	styled := make([]string, len(lines))
	for i, line := range lines {
		styled[i] = DumpLine(line)
	}
	return styled
}
