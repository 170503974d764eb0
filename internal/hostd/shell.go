package hostd

import (
	"context"
	"encoding/json"
	"strings"
)

// bgCtx is used for host-management commands not tied to a caller context
// (activity recording, env file writes); the Connector's own RunOptions
// timeout bounds how long the command may run.
func bgCtx() context.Context {
	return context.Background()
}

// shQuote single-quotes s for embedding in a shell command, escaping any
// single quotes it contains.
func shQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func jsonMarshalIndent(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
