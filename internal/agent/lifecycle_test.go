package agent

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/silexa/hostctl/internal/hostd"
	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/statestore"
	"github.com/silexa/hostctl/internal/transport"
)

// lifecycleConnector scripts the two distinct queries GetLifecycleState
// issues (tmux list-panes and ps -e) plus the waiting-sentinel GetFile
// check, so each test picks exactly the branch it wants to exercise.
type lifecycleConnector struct {
	paneLine      string
	psOutput      string
	waitingExists bool
}

func (c *lifecycleConnector) RunShellCommand(ctx context.Context, cmd string, opts transport.RunOptions) (transport.RunResult, error) {
	switch {
	case strings.Contains(cmd, "list-panes"):
		if c.paneLine == "" {
			return transport.RunResult{Success: true, Stdout: ""}, nil
		}
		return transport.RunResult{Success: true, Stdout: c.paneLine}, nil
	case strings.Contains(cmd, "ps -e"):
		return transport.RunResult{Success: true, Stdout: c.psOutput}, nil
	}
	return transport.RunResult{Success: true}, nil
}

func (c *lifecycleConnector) GetFile(ctx context.Context, remotePath string) ([]byte, error) {
	if c.waitingExists {
		return []byte("1"), nil
	}
	return nil, transport.ErrFileNotFound
}

func (c *lifecycleConnector) PutFile(ctx context.Context, remotePath string, data []byte, mode os.FileMode) error {
	return nil
}

func (c *lifecycleConnector) Disconnect() error { return nil }

func newLifecycleTestAgent(conn *lifecycleConnector) *Agent {
	h := hostd.New(ids.NewHostID(), "/home/hostctl/.hostctl", "hostctl-", conn, noopStore{}, nil)
	return New(h, statestore.AgentRecord{ID: ids.NewAgentID(), Name: "box", Command: "claude"}, nil)
}

// P3: GetLifecycleState is a pure function of session existence, pane_dead,
// current_command, descendant processes, and waiting-sentinel presence.
func TestGetLifecycleStateNoSessionIsStopped(t *testing.T) {
	a := newLifecycleTestAgent(&lifecycleConnector{})
	got, err := a.GetLifecycleState()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != ids.AgentStopped {
		t.Fatalf("expected AgentStopped, got %v", got)
	}
}

func TestGetLifecycleStatePaneDeadIsDone(t *testing.T) {
	a := newLifecycleTestAgent(&lifecycleConnector{paneLine: "1|claude|100"})
	got, err := a.GetLifecycleState()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != ids.AgentDone {
		t.Fatalf("expected AgentDone, got %v", got)
	}
}

func TestGetLifecycleStateExpectedCommandRunningWithoutSentinelIsRunning(t *testing.T) {
	a := newLifecycleTestAgent(&lifecycleConnector{paneLine: "0|claude|100"})
	got, err := a.GetLifecycleState()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != ids.AgentRunning {
		t.Fatalf("expected AgentRunning, got %v", got)
	}
}

func TestGetLifecycleStateExpectedCommandWithSentinelIsWaiting(t *testing.T) {
	a := newLifecycleTestAgent(&lifecycleConnector{paneLine: "0|claude|100", waitingExists: true})
	got, err := a.GetLifecycleState()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != ids.AgentWaiting {
		t.Fatalf("expected AgentWaiting, got %v", got)
	}
}

func TestGetLifecycleStateFindsExpectedCommandAmongDescendants(t *testing.T) {
	a := newLifecycleTestAgent(&lifecycleConnector{
		paneLine: "0|bash|100",
		psOutput: "100 1 bash\n200 100 claude\n",
	})
	got, err := a.GetLifecycleState()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != ids.AgentRunning {
		t.Fatalf("expected AgentRunning (matched via descendant), got %v", got)
	}
}

func TestGetLifecycleStateUnrecognizedDescendantIsReplaced(t *testing.T) {
	a := newLifecycleTestAgent(&lifecycleConnector{
		paneLine: "0|bash|100",
		psOutput: "100 1 bash\n200 100 vim\n",
	})
	got, err := a.GetLifecycleState()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != ids.AgentReplaced {
		t.Fatalf("expected AgentReplaced, got %v", got)
	}
}

func TestGetLifecycleStateBareShellWithNoDescendantsIsDone(t *testing.T) {
	a := newLifecycleTestAgent(&lifecycleConnector{paneLine: "0|bash|100"})
	got, err := a.GetLifecycleState()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != ids.AgentDone {
		t.Fatalf("expected AgentDone, got %v", got)
	}
}

func TestCommandBasenameStripsPath(t *testing.T) {
	if got := commandBasename("/usr/bin/sleep 1000"); got != "sleep" {
		t.Fatalf("expected sleep, got %q", got)
	}
	if got := commandBasename("sleep 1000"); got != "sleep" {
		t.Fatalf("expected sleep, got %q", got)
	}
	if got := commandBasename(""); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestIsShellCommand(t *testing.T) {
	for _, shell := range []string{"bash", "sh", "zsh", "fish", "dash", "ksh", "tcsh", "csh"} {
		if !isShellCommand(shell) {
			t.Fatalf("expected %q to be recognized as a shell", shell)
		}
	}
	if isShellCommand("claude") {
		t.Fatalf("did not expect claude to be recognized as a shell")
	}
}

func TestDescendantProcessNamesWalksTree(t *testing.T) {
	psOutput := "100 1 bash\n200 100 claude\n300 200 node\n400 999 unrelated\n"
	names := descendantProcessNames("100", psOutput)
	want := map[string]bool{"claude": true, "node": true}
	if len(names) != 2 {
		t.Fatalf("expected 2 descendants, got %v", names)
	}
	for _, n := range names {
		if !want[n] {
			t.Fatalf("unexpected descendant %q in %v", n, names)
		}
	}
}

func TestExpectedProcessNameFallsBackToCommandBasename(t *testing.T) {
	a := &Agent{Record: statestore.AgentRecord{Command: "/usr/local/bin/claude --dangerously-skip-permissions"}}
	if got := a.expectedProcessName(); got != "claude" {
		t.Fatalf("expected claude, got %q", got)
	}
}

func TestExpectedProcessNameHonorsTypeOverride(t *testing.T) {
	a := &Agent{
		Record: statestore.AgentRecord{Command: "entrypoint.sh"},
		Type:   &Type{Name: "wrapped", ExpectedProcessName: "claude"},
	}
	if got := a.expectedProcessName(); got != "claude" {
		t.Fatalf("expected override claude, got %q", got)
	}
}
