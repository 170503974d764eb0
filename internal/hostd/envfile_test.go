package hostd

import (
	"testing"

	"github.com/silexa/hostctl/internal/ids"
)

// P9: CollectAgentEnvVars layers core-injected values, then GIT_BASE_BRANCH,
// then env files in order, then explicit env_vars - each later layer wins
// any conflict with an earlier one.
func TestCollectAgentEnvVarsCoreValuesArePresent(t *testing.T) {
	h := New(ids.NewHostID(), "/home/hostctl/.hostctl", "hostctl-", &fakeConnector{}, &fakeStore{}, nil)
	agentID := ids.NewAgentID()

	env, err := h.CollectAgentEnvVars(agentID, "box", "/work/box", AgentEnvInputs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if env[EnvPrefix+"_AGENT_ID"] != string(agentID) {
		t.Fatalf("expected %s_AGENT_ID to be set, got %q", EnvPrefix, env[EnvPrefix+"_AGENT_ID"])
	}
	if env[EnvPrefix+"_AGENT_NAME"] != "box" {
		t.Fatalf("expected %s_AGENT_NAME = box, got %q", EnvPrefix, env[EnvPrefix+"_AGENT_NAME"])
	}
	if env[EnvPrefix+"_AGENT_WORK_DIR"] != "/work/box" {
		t.Fatalf("expected %s_AGENT_WORK_DIR = /work/box, got %q", EnvPrefix, env[EnvPrefix+"_AGENT_WORK_DIR"])
	}
	if env[EnvPrefix+"_HOST_DIR"] != h.HostDir {
		t.Fatalf("expected %s_HOST_DIR = %q, got %q", EnvPrefix, h.HostDir, env[EnvPrefix+"_HOST_DIR"])
	}
}

func TestCollectAgentEnvVarsEnvFilesOverrideCoreValues(t *testing.T) {
	h := New(ids.NewHostID(), "/home/hostctl/.hostctl", "hostctl-", &fakeConnector{}, &fakeStore{}, nil)
	agentID := ids.NewAgentID()

	env, err := h.CollectAgentEnvVars(agentID, "box", "/work/box", AgentEnvInputs{
		GitBaseBranch: "main",
		EnvFiles:      []string{EnvPrefix + "_AGENT_NAME=overridden\nFOO=bar\n"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env["GIT_BASE_BRANCH"] != "main" {
		t.Fatalf("expected GIT_BASE_BRANCH = main, got %q", env["GIT_BASE_BRANCH"])
	}
	if env[EnvPrefix+"_AGENT_NAME"] != "overridden" {
		t.Fatalf("expected an env file to override the core-injected %s_AGENT_NAME, got %q", EnvPrefix, env[EnvPrefix+"_AGENT_NAME"])
	}
	if env["FOO"] != "bar" {
		t.Fatalf("expected FOO=bar from the env file, got %q", env["FOO"])
	}
}

func TestCollectAgentEnvVarsLaterEnvFilesOverrideEarlierOnes(t *testing.T) {
	h := New(ids.NewHostID(), "/home/hostctl/.hostctl", "hostctl-", &fakeConnector{}, &fakeStore{}, nil)

	env, err := h.CollectAgentEnvVars(ids.NewAgentID(), "box", "/work/box", AgentEnvInputs{
		EnvFiles: []string{"FOO=first\n", "FOO=second\n"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env["FOO"] != "second" {
		t.Fatalf("expected the later env file to win, got %q", env["FOO"])
	}
}

func TestCollectAgentEnvVarsExplicitEnvVarsWinOverEverything(t *testing.T) {
	h := New(ids.NewHostID(), "/home/hostctl/.hostctl", "hostctl-", &fakeConnector{}, &fakeStore{}, nil)

	env, err := h.CollectAgentEnvVars(ids.NewAgentID(), "box", "/work/box", AgentEnvInputs{
		EnvFiles: []string{"FOO=from-file\n"},
		EnvVars:  map[string]string{"FOO": "from-explicit-env-vars"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env["FOO"] != "from-explicit-env-vars" {
		t.Fatalf("expected explicit env_vars to win over env files, got %q", env["FOO"])
	}
}
