// Package buildfix drives the build, parse, fix, rebuild loop against
// dotnet, cargo, go and tsc builds.
package buildfix

import (
	"regexp"
	"strconv"
	"strings"
)

// Severity of a build diagnostic.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// BuildError is one diagnostic parsed from build output. The shape is the
// same for every ecosystem.
type BuildError struct {
	FilePath string `json:"filePath"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Severity string `json:"severity"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message"`
}

// Parser extracts diagnostics from raw build output.
type Parser func(output string) []BuildError

var (
	// path(line,col): error CODE: message  (MSBuild, csc, tsc --pretty false)
	msbuildPattern = regexp.MustCompile(`^\s*(.+?)\((\d+),(\d+)\): (error|warning) ([A-Za-z]+\d+): (.+?)\s*(?:\[[^\]]*\])?$`)

	// error[E0384]: message [--> path:line:col]
	rustHeader   = regexp.MustCompile(`^(error|warning)(?:\[([A-Za-z]\d+)\])?: (.+?)(?:\s+-->\s+(\S+):(\d+):(\d+))?\s*$`)
	rustLocation = regexp.MustCompile(`^\s*-->\s+(\S+):(\d+):(\d+)`)

	// path.go:line:col: message
	goPattern = regexp.MustCompile(`^(\S+\.go):(\d+):(\d+): (.+)$`)
)

// ParseMSBuild parses the "path(line,col): severity code: message" form.
func ParseMSBuild(output string) []BuildError {
	var out []BuildError
	for _, line := range splitLines(output) {
		m := msbuildPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, BuildError{
			FilePath: strings.TrimSpace(m[1]),
			Line:     atoi(m[2]),
			Column:   atoi(m[3]),
			Severity: m[4],
			Code:     m[5],
			Message:  m[6],
		})
	}
	return dedupe(out)
}

// ParseRust parses rustc diagnostics. The location follows the header on
// the same line or on a later "-->" line.
func ParseRust(output string) []BuildError {
	lines := splitLines(output)
	var out []BuildError
	for i := 0; i < len(lines); i++ {
		m := rustHeader.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		e := BuildError{Severity: m[1], Code: m[2], Message: m[3]}
		if m[4] != "" {
			e.FilePath, e.Line, e.Column = m[4], atoi(m[5]), atoi(m[6])
		} else {
			// The location belongs to this header only until the next one.
			for j := i + 1; j < len(lines) && j <= i+3 && !rustHeader.MatchString(lines[j]); j++ {
				if loc := rustLocation.FindStringSubmatch(lines[j]); loc != nil {
					e.FilePath, e.Line, e.Column = loc[1], atoi(loc[2]), atoi(loc[3])
					break
				}
			}
		}
		// Summary lines such as "error: could not compile" carry no location.
		if e.FilePath == "" {
			continue
		}
		out = append(out, e)
	}
	return dedupe(out)
}

// ParseGo parses "file.go:line:col: message" compiler output.
func ParseGo(output string) []BuildError {
	var out []BuildError
	for _, line := range splitLines(output) {
		m := goPattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		out = append(out, BuildError{
			FilePath: m[1],
			Line:     atoi(m[2]),
			Column:   atoi(m[3]),
			Severity: SeverityError,
			Message:  m[4],
		})
	}
	return dedupe(out)
}

// ParseAll runs every parser and merges the results.
func ParseAll(output string) []BuildError {
	var out []BuildError
	out = append(out, ParseMSBuild(output)...)
	out = append(out, ParseRust(output)...)
	out = append(out, ParseGo(output)...)
	return dedupe(out)
}

// Errors filters to error-severity diagnostics.
func Errors(diags []BuildError) []BuildError {
	var out []BuildError
	for _, d := range diags {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

func dedupe(in []BuildError) []BuildError {
	if len(in) < 2 {
		return in
	}
	seen := make(map[BuildError]bool, len(in))
	out := in[:0]
	for _, e := range in {
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func splitLines(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
