package agent

import "context"

// bgCtx is used for agent-management commands not tied to a caller
// context; the Connector's own RunOptions timeout bounds execution time.
func bgCtx() context.Context {
	return context.Background()
}
