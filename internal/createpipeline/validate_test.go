package createpipeline

import "testing"

func TestValidateFlagsRejectsEditMessageWithBackgroundCreation(t *testing.T) {
	opts := &CreateOptions{
		Agent:        AgentOptions{Name: "a"},
		TargetHostID: "host-1",
		EditMessage:  true,
		NoConnect:    true,
		NoAwaitReady: true,
	}
	if err := validateFlags(opts); err == nil {
		t.Fatalf("expected error for --edit-message with background creation")
	}
}

func TestValidateFlagsRejectsMutuallyExclusiveTarget(t *testing.T) {
	opts := &CreateOptions{
		Agent:        AgentOptions{Name: "a"},
		TargetHostID: "host-1",
		NewHost:      &NewHostOptions{Name: "new"},
	}
	if err := validateFlags(opts); err == nil {
		t.Fatalf("expected error for target host + new host both set")
	}
}

func TestValidateFlagsRequiresAgentName(t *testing.T) {
	opts := &CreateOptions{TargetHostID: "host-1"}
	if err := validateFlags(opts); err == nil {
		t.Fatalf("expected error for missing agent name")
	}
}

func TestValidateFlagsRequiresTargetOrNewHost(t *testing.T) {
	opts := &CreateOptions{Agent: AgentOptions{Name: "a"}}
	if err := validateFlags(opts); err == nil {
		t.Fatalf("expected error when neither target host nor new host is set")
	}
}

func TestValidateFlagsAccepts(t *testing.T) {
	opts := &CreateOptions{Agent: AgentOptions{Name: "a"}, TargetHostID: "host-1"}
	if err := validateFlags(opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
