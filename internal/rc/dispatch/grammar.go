package dispatch

import "strings"

// splitCommand splits a raw command line into its verb and the
// remaining argument string, trimming surrounding whitespace from
// both. "local_zone example.com. static" -> ("local_zone", "example.com. static").
func splitCommand(line string) (verb, args string) {
	line = strings.TrimSpace(line)
	i := strings.IndexAny(line, " \t")
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimSpace(line[i+1:])
}

// splitArgs splits an already-trimmed argument string on runs of
// whitespace, the way the original remote.c tokenizes handler
// arguments before validating each field.
func splitArgs(args string) []string {
	if args == "" {
		return nil
	}
	return strings.Fields(args)
}
