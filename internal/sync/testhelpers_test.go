package sync

import (
	"context"
	"strings"

	"github.com/silexa/hostctl/internal/transport"
)

// scriptedGitContext replays a canned result keyed by a substring match
// against the command; fallback is used when nothing matches.
type scriptedGitContext struct {
	calls    []string
	results  map[string]transport.RunResult
	fallback transport.RunResult
}

func (s *scriptedGitContext) Run(ctx context.Context, cmd string, cwd string) (transport.RunResult, error) {
	s.calls = append(s.calls, cmd)
	for substr, result := range s.results {
		if strings.Contains(cmd, substr) {
			return result, nil
		}
	}
	return s.fallback, nil
}
