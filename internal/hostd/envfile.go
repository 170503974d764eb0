package hostd

import (
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/transport"
)

// AgentEnvInputs are the caller-supplied layers composed on top of the
// core-injected variables (spec.md §4.D). EnvFiles are parsed in order
// with godotenv's key=value grammar; EnvVars is applied last and wins any
// conflict.
type AgentEnvInputs struct {
	GitBaseBranch string
	EnvFiles      []string // raw file contents, in load order
	EnvVars       map[string]string
}

// CollectAgentEnvVars composes the full environment for an agent's shell,
// in the order spec.md §4.D mandates: core-injected, programmatic
// defaults, env files in order, then explicit env_vars.
func (h *Host) CollectAgentEnvVars(agentID ids.AgentID, agentName, workDir string, in AgentEnvInputs) (map[string]string, error) {
	env := make(map[string]string)

	env[EnvPrefix+"_HOST_DIR"] = h.HostDir
	env[EnvPrefix+"_AGENT_ID"] = string(agentID)
	env[EnvPrefix+"_AGENT_NAME"] = agentName
	env[EnvPrefix+"_AGENT_STATE_DIR"] = h.agentStateDir(agentID)
	env[EnvPrefix+"_AGENT_WORK_DIR"] = workDir

	env["GIT_BASE_BRANCH"] = in.GitBaseBranch

	for _, content := range in.EnvFiles {
		parsed, err := godotenv.Unmarshal(content)
		if err != nil {
			return nil, err
		}
		for k, v := range parsed {
			env[k] = v
		}
	}

	for k, v := range in.EnvVars {
		env[k] = v
	}

	return env, nil
}

// WriteAgentEnvFile persists env as the agent's sourceable env file.
// Values containing whitespace, quotes, or newlines are double-quoted with
// backslash-escaped inner quotes (spec.md §4.D); keys are written in sorted
// order for deterministic output.
func (h *Host) WriteAgentEnvFile(agentID ids.AgentID, env map[string]string) error {
	if len(env) == 0 {
		return nil
	}
	return h.writeEnvFile(h.agentEnvPath(agentID), env)
}

// WriteHostEnvFile persists the host-level env file sourced before each
// agent's own env file.
func (h *Host) WriteHostEnvFile(env map[string]string) error {
	if len(env) == 0 {
		return nil
	}
	return h.writeEnvFile(h.hostEnvPath(), env)
}

func (h *Host) writeEnvFile(path string, env map[string]string) error {
	content := formatEnvFile(env)
	result, err := h.Conn.RunShellCommand(bgCtx(), "mkdir -p "+shQuote(dirname(path)), transport.RunOptions{})
	if err != nil {
		return err
	}
	if !result.Success {
		return &pathError{path: path, reason: result.Stderr}
	}
	return h.Conn.PutFile(bgCtx(), path, []byte(content), 0o644)
}

func formatEnvFile(env map[string]string) string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		v := env[k]
		if strings.ContainsAny(v, " \"'\n") {
			v = `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
		b.WriteByte('\n')
	}
	return b.String()
}

// BuildSourceEnvCommands returns the shell lines that source the host env
// file then the agent env file (host first, so the agent's own values can
// override it), with `set -a` bracketing so sourced variables are exported.
func (h *Host) BuildSourceEnvCommands(agentID ids.AgentID) []string {
	hostEnv := h.hostEnvPath()
	agentEnv := h.agentEnvPath(agentID)
	return []string{
		"set -a",
		"[ -f " + shQuote(hostEnv) + " ] && . " + shQuote(hostEnv) + " || true",
		"[ -f " + shQuote(agentEnv) + " ] && . " + shQuote(agentEnv) + " || true",
		"set +a",
	}
}

// BuildSourceEnvPrefix joins BuildSourceEnvCommands into a single `&&`
// chain usable as a literal command prefix.
func (h *Host) BuildSourceEnvPrefix(agentID ids.AgentID) string {
	return strings.Join(h.BuildSourceEnvCommands(agentID), " && ") + " && "
}

// BuildEnvShellCommand wraps BuildSourceEnvCommands into a `bash -c` used
// as the tmux session/window shell-command, so every pane created in the
// session inherits the sourced environment.
func (h *Host) BuildEnvShellCommand(agentID ids.AgentID) string {
	commands := append(h.BuildSourceEnvCommands(agentID), "exec bash")
	return "bash -c " + shQuote(strings.Join(commands, "; "))
}

func dirname(p string) string {
	idx := strings.LastIndexByte(p, '/')
	if idx < 0 {
		return "."
	}
	if idx == 0 {
		return "/"
	}
	return p[:idx]
}

type pathError struct {
	path   string
	reason string
}

func (e *pathError) Error() string {
	return e.path + ": " + e.reason
}
