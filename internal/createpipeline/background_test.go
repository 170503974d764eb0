package createpipeline

import (
	"os"
	"testing"

	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/statestore"
)

func TestContinuationStateRoundTrip(t *testing.T) {
	state := ContinuationState{
		HostID: ids.NewHostID(),
		AgentRecord: statestore.AgentRecord{
			ID:   ids.NewAgentID(),
			Name: "worker",
			Type: "generic",
		},
		AgentTypeName:  "generic",
		InitialMessage: "hello",
		UnsetVars:      []string{"SSH_AUTH_SOCK"},
	}

	path, err := WriteContinuationState(state)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	defer os.Remove(path)

	got, err := ReadContinuationState(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.AgentRecord.Name != "worker" || got.InitialMessage != "hello" {
		t.Fatalf("unexpected round-trip: %+v", got)
	}
	if len(got.UnsetVars) != 1 || got.UnsetVars[0] != "SSH_AUTH_SOCK" {
		t.Fatalf("unexpected unset vars: %v", got.UnsetVars)
	}
}
