// Package stacktrace trims runtime stacks down to module frames.
package stacktrace

import "strings"

// InternalPaths returns the "internal/...go:line" locations found in a raw
// debug.Stack output.
func InternalPaths(stack []byte) []string {
	var paths []string
	for line := range strings.SplitSeq(string(stack), "\n") {
		line = strings.TrimSpace(line)

		dot := strings.Index(line, ".go:")
		if dot == -1 {
			continue
		}
		start := strings.Index(line[:dot], "/internal/")
		if start == -1 {
			continue
		}

		loc := line[start+1:]
		if sp := strings.IndexByte(loc, ' '); sp != -1 {
			loc = loc[:sp]
		}
		paths = append(paths, loc)
	}
	return paths
}
