package fastreload

import "fmt"

// Options is the result of parsing a fast_reload command's option
// string, e.g. "+v+p" (bump verbosity, no-pause flag). Verbosity
// drives the pipeline's extra output. NoPause only selects the mode
// label on the reload metrics: Publish picks paused or no-pause from
// the config diff, whatever NoPause says. DropMesh is parsed and not
// acted on.
type Options struct {
	Verbosity int
	NoPause   bool
	DropMesh  bool
}

// ParseOptions parses the fast_reload options grammar: a sequence of
// two-character tokens, '+' followed by one of 'v' (increment
// verbosity), 'p' (no-pause), 'd' (drop-mesh). Any other token is a
// hard error, matching spec.md §4.4's "unknown option -> error line
// and abort".
func ParseOptions(raw string) (Options, error) {
	var opts Options
	runes := []rune(raw)

	for i := 0; i < len(runes); {
		if runes[i] != '+' {
			return Options{}, fmt.Errorf("fast_reload: unexpected token %q", string(runes[i]))
		}
		if i+1 >= len(runes) {
			return Options{}, fmt.Errorf("fast_reload: dangling '+' at end of options")
		}
		switch runes[i+1] {
		case 'v':
			opts.Verbosity++
		case 'p':
			opts.NoPause = true
		case 'd':
			opts.DropMesh = true
		default:
			return Options{}, fmt.Errorf("fast_reload: unknown option %q", string(runes[i:i+2]))
		}
		i += 2
	}

	return opts, nil
}
