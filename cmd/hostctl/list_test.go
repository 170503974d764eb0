package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/listing"
	"github.com/spf13/cobra"
)

func TestColorizeStateKnownAndUnknown(t *testing.T) {
	// color disables itself when stdout is not a terminal, as under go test.
	oldNoColor := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = oldNoColor }()

	cases := map[string]bool{
		"RUNNING":   true,
		"STOPPED":   true,
		"DESTROYED": true,
		"BUILDING":  true,
		"UNKNOWN":   false,
	}
	for state, colored := range cases {
		out := colorizeState(state)
		if colored && out == state {
			t.Errorf("expected %s to be colorized, got it back unchanged", state)
		}
		if !colored && out != state {
			t.Errorf("expected %s to pass through unchanged, got %q", state, out)
		}
	}
}

func TestPrintViewsRendersRows(t *testing.T) {
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	views := []listing.AgentView{
		{AgentName: "worker", AgentType: "generic", HostName: "box", Provider: "docker", HostState: ids.HostRunning},
	}
	printViews(cmd, views)

	out := buf.String()
	if !strings.Contains(out, "worker") || !strings.Contains(out, "box") || !strings.Contains(out, "docker") {
		t.Fatalf("expected rendered row to contain the agent's fields, got: %q", out)
	}
}

func TestPrintListErrorsWritesToStderr(t *testing.T) {
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetErr(&buf)

	printListErrors(cmd, []listing.ErrorInfo{{Provider: "docker", Err: errBoom}})

	if !strings.Contains(buf.String(), "docker") {
		t.Fatalf("expected the provider name in the error line, got: %q", buf.String())
	}
}

var errBoom = boomError{}

type boomError struct{}

func (boomError) Error() string { return "boom" }
