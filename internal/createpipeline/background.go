package createpipeline

import (
	"encoding/json"
	"os"
	"os/exec"
	"syscall"

	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/statestore"
)

// ContinuationState is everything CompleteCreate needs to finish step 11
// once it no longer shares memory with the process that ran steps 1-9 -
// serializable on purpose, since it is what crosses the process boundary
// in the backgrounded path (step 10).
type ContinuationState struct {
	HostID              ids.HostID            `json:"host_id"`
	AgentRecord         statestore.AgentRecord `json:"agent_record"`
	AgentTypeName       string                `json:"agent_type_name"`
	InitialMessage      string                `json:"initial_message"`
	ResumeMessage       string                `json:"resume_message"`
	IsReuse             bool                  `json:"is_reuse"`
	ReadyTimeoutSeconds float64               `json:"ready_timeout_seconds"`
	UnsetVars           []string              `json:"unset_vars"`
}

// WriteContinuationState persists state to a temp file for a detached
// child to read back; the caller owns cleaning it up once consumed.
func WriteContinuationState(state ContinuationState) (path string, err error) {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return "", err
	}
	f, err := os.CreateTemp("", "hostctl-create-continuation-*.json")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// ReadContinuationState is the child-process counterpart of
// WriteContinuationState.
func ReadContinuationState(path string) (ContinuationState, error) {
	var state ContinuationState
	data, err := os.ReadFile(path)
	if err != nil {
		return state, err
	}
	err = json.Unmarshal(data, &state)
	return state, err
}

// SpawnBackgroundCompletion is the Go adaptation of create.py's
// os.fork()-based backgrounding: Go has no fork(), so the equivalent
// "detached child that survives the parent's exit" is a self re-exec -
// starting a fresh copy of selfExe with a hidden subcommand and letting it
// run in its own session (Setsid), detached from the parent's controlling
// terminal and stdio. stateFile is the path written by
// WriteContinuationState; logFile captures the child's stdout/stderr since
// nothing will be there to read them once the parent exits.
func SpawnBackgroundCompletion(selfExe string, hiddenSubcommand []string, stateFile, logFile string) (pid int, err error) {
	log, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, err
	}
	defer log.Close()

	args := append(append([]string{}, hiddenSubcommand...), stateFile)
	cmd := exec.Command(selfExe, args...)
	cmd.Stdin = nil
	cmd.Stdout = log
	cmd.Stderr = log
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, err
	}
	return cmd.Process.Pid, nil
}

func selfExePath() string {
	exe, err := os.Executable()
	if err != nil {
		return os.Args[0]
	}
	return exe
}
