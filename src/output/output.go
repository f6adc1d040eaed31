// Package output renders human-readable progress for terminal and CI.
package output

import (
	"fmt"
	"io"
	"os"
)

// Colors for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// Printer formats and writes progress lines.
type Printer struct {
	Writer io.Writer
	Color  bool
}

// NewPrinter creates a printer writing to stdout with color auto-detection.
func NewPrinter() *Printer {
	return &Printer{
		Writer: os.Stdout,
		Color:  UseColor(),
	}
}

// Deploy emits the progress line for one overlay operation: the bundle,
// the family, and each matched variant.
func (p *Printer) Deploy(bundle, family string, variants []string) {
	fmt.Fprintf(p.Writer, "%s %s → %s\n",
		p.colorize("deploy", colorCyan),
		bundle,
		p.colorize(family, colorBold),
	)
	if len(variants) == 0 {
		fmt.Fprintf(p.Writer, "    %s\n", p.colorize("(no matching variants)", colorGray))
		return
	}
	for _, v := range variants {
		fmt.Fprintf(p.Writer, "    %s\n", v)
	}
}

// Expand emits the progress line for one macro-expansion pass.
func (p *Printer) Expand(path string, markers int) {
	fmt.Fprintf(p.Writer, "%s %s %s\n",
		p.colorize("expand", colorCyan),
		path,
		p.colorize(fmt.Sprintf("(%d macro(s))", markers), colorGray),
	)
}

// Warn emits a non-fatal warning line.
func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintf(p.Writer, "%s %s\n",
		p.colorize("warning:", colorYellow),
		fmt.Sprintf(format, args...),
	)
}

// Error emits an error line.
func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintf(p.Writer, "%s %s\n",
		p.colorize("error:", colorRed),
		fmt.Sprintf(format, args...),
	)
}

// Target emits the header line for one dispatched target.
func (p *Printer) Target(name string) {
	fmt.Fprintf(p.Writer, "\n%s\n", p.colorize("── "+name+" ──", colorBold))
}

func (p *Printer) colorize(text, color string) string {
	if !p.Color {
		return text
	}
	return color + text + colorReset
}

func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// IsCI reports whether we appear to run inside a CI pipeline.
func IsCI() bool {
	return os.Getenv("CI") != "" || os.Getenv("GITLAB_CI") != "" || os.Getenv("GITHUB_ACTIONS") != ""
}

// UseColor returns true if colored output should be used.
// Respects NO_COLOR env, TERM=dumb, and terminal detection.
func UseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return isTerminal() || IsCI()
}
