package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// stdout receives all command output. Tests swap it for a buffer.
var stdout io.Writer = os.Stdout

var (
	colorAccent = lipgloss.Color("36")  // spinner, bars
	colorOK     = lipgloss.Color("35")  // success, cache hits
	colorWarn   = lipgloss.Color("220") // warnings
	colorFail   = lipgloss.Color("167") // errors
	colorLink   = lipgloss.Color("75")  // suggested commands
	colorValue  = lipgloss.Color("255")
	colorLabel  = lipgloss.Color("245")
	colorMuted  = lipgloss.Color("240")
)

var (
	// StyleDim renders secondary text.
	StyleDim = lipgloss.NewStyle().Foreground(colorMuted)

	// StyleValue renders data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorValue)

	// StyleWarning renders warning text.
	StyleWarning = lipgloss.NewStyle().Foreground(colorWarn)

	styleOK      = lipgloss.NewStyle().Foreground(colorOK)
	styleFail    = lipgloss.NewStyle().Foreground(colorFail)
	styleLabel   = lipgloss.NewStyle().Foreground(colorLabel)
	styleKey     = styleLabel.Width(12)
	styleAccent  = lipgloss.NewStyle().Foreground(colorAccent)
	styleCommand = lipgloss.NewStyle().Foreground(colorLink)

	styleIconSpinner = styleAccent
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	barRune     = "█"
	barWidth    = 30
)

func emit(line string) { fmt.Fprintln(stdout, line) }

func printSuccess(format string, args ...any) {
	emit(styleOK.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	emit(styleFail.Render(iconError) + " " + fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	emit(StyleWarning.Render(iconWarning) + " " + StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	emit(styleLabel.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// printDetail prints an indented, muted line.
func printDetail(format string, args ...any) {
	emit("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints an output path.
func printFile(path string) {
	emit("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a label padded to a fixed column and its value.
func printKeyValue(key, value string) {
	emit(styleKey.Render(key) + " " + StyleValue.Render(value))
}

// printStats prints the mesh size and whether the result came from the cache.
func printStats(nodes, edges int, cached bool) {
	status := styleLabel.Render("fresh")
	if cached {
		status = styleOK.Render("cached")
	}
	sep := StyleDim.Render(" · ")
	emit("  " + StyleDim.Render(fmt.Sprintf("%d nodes", nodes)) + sep +
		StyleDim.Render(fmt.Sprintf("%d edges", edges)) + sep + status)
}

// printNextStep suggests a follow-up command.
func printNextStep(description, cmd string) {
	emit(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// printHistogram prints one bar per layer count, scaled to the most
// frequent count.
func printHistogram(title string, nlayer []int) {
	counts := make(map[int]int)
	peak := 0
	for _, n := range nlayer {
		counts[n]++
		peak = max(peak, counts[n])
	}
	keys := make([]int, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	emit(styleLabel.Render(title))
	for _, k := range keys {
		w := max(1, counts[k]*barWidth/peak)
		emit(fmt.Sprintf("  %4d %s %s", k,
			styleAccent.Render(strings.Repeat(barRune, w)),
			StyleDim.Render(fmt.Sprint(counts[k]))))
	}
}
