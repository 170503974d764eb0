package hostd

import (
	"errors"
	"fmt"
	"os"

	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/transport"
)

// FileTransferSpec is one agent-declared file to place in the work dir
// during provisioning (spec.md §4.D step 2-3).
type FileTransferSpec struct {
	LocalPath  string // read from the control-plane's own filesystem
	AgentPath  string // resolved relative to the agent's work dir
	IsRequired bool
}

// UploadSpec is one user-declared upload (step 6).
type UploadSpec struct {
	LocalPath  string
	RemotePath string
}

// AppendSpec/PrependSpec are user-declared text mutations (steps 7-8).
type AppendSpec struct {
	RemotePath string
	Text       string
}

type PrependSpec struct {
	RemotePath string
	Text       string
}

// ProvisioningOptions mirrors CreateAgentOptions.provisioning.
type ProvisioningOptions struct {
	CreateDirectories []string
	UploadFiles       []UploadSpec
	AppendToFiles     []AppendSpec
	PrependToFiles    []PrependSpec
	SudoCommands      []string
	UserCommands      []string
}

// ProvisionAgentType is the subset of internal/agent.AgentType needed by
// ProvisionAgent; kept narrow here to avoid a hostd -> agent import cycle
// (agent imports hostd for Host, not the reverse).
type ProvisionAgentType interface {
	OnBeforeProvisioning() error
	GetProvisionFileTransfers() []FileTransferSpec
	Provision() error
	OnAfterProvisioning() error
}

// ProvisionAgent executes the 12-step orchestration of spec.md §4.D in
// strict order; any failure aborts the remaining steps, and partial state
// (directories created, files already written) is left in place for
// debugging rather than rolled back.
func (h *Host) ProvisionAgent(agentID ids.AgentID, agentName, workDir string, agentType ProvisionAgentType, provisioning ProvisioningOptions, envVars map[string]string) error {
	// 1. agent.OnBeforeProvisioning
	if err := agentType.OnBeforeProvisioning(); err != nil {
		return fmt.Errorf("on_before_provisioning: %w", err)
	}

	// 2. collect file transfers declared by the agent
	transfers := agentType.GetProvisionFileTransfers()

	// 3. validate required transfers, write them
	if err := h.executeAgentFileTransfers(workDir, transfers); err != nil {
		return err
	}

	// 4. agent.Provision
	if err := agentType.Provision(); err != nil {
		return fmt.Errorf("provision: %w", err)
	}

	// 5. create_directories
	for _, dir := range provisioning.CreateDirectories {
		if err := h.mkdir(dir); err != nil {
			return err
		}
	}

	// 6. upload_files
	for _, upload := range provisioning.UploadFiles {
		data, err := os.ReadFile(upload.LocalPath)
		if err != nil {
			return fmt.Errorf("read upload %s: %w", upload.LocalPath, err)
		}
		if err := h.Conn.PutFile(bgCtx(), upload.RemotePath, data, 0o644); err != nil {
			return fmt.Errorf("upload %s -> %s: %w", upload.LocalPath, upload.RemotePath, err)
		}
	}

	// 7. append_to_files
	for _, appendSpec := range provisioning.AppendToFiles {
		if err := h.appendToFile(appendSpec.RemotePath, appendSpec.Text); err != nil {
			return err
		}
	}

	// 8. prepend_to_files
	for _, prependSpec := range provisioning.PrependToFiles {
		if err := h.prependToFile(prependSpec.RemotePath, prependSpec.Text); err != nil {
			return err
		}
	}

	// 9. write agent env file
	if err := h.WriteAgentEnvFile(agentID, envVars); err != nil {
		return fmt.Errorf("write agent env file: %w", err)
	}

	sourcePrefix := h.BuildSourceEnvPrefix(agentID)

	// 10. sudo_commands (env-file sourcing prefix prepended)
	for _, cmd := range provisioning.SudoCommands {
		result, err := h.Conn.RunShellCommand(bgCtx(), sourcePrefix+cmd, transport.RunOptions{AsRoot: true})
		if err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("sudo command failed: %s\nstderr: %s", cmd, result.Stderr)
		}
	}

	// 11. user_commands (same prefix, cwd=work_dir)
	for _, cmd := range provisioning.UserCommands {
		result, err := h.Conn.RunShellCommand(bgCtx(), sourcePrefix+cmd, transport.RunOptions{Cwd: workDir})
		if err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("user command failed: %s\nstderr: %s", cmd, result.Stderr)
		}
	}

	// 12. agent.OnAfterProvisioning
	if err := agentType.OnAfterProvisioning(); err != nil {
		return fmt.Errorf("on_after_provisioning: %w", err)
	}

	return nil
}

func (h *Host) executeAgentFileTransfers(workDir string, transfers []FileTransferSpec) error {
	if len(transfers) == 0 {
		return nil
	}

	var missing []string
	for _, transfer := range transfers {
		if transfer.IsRequired {
			if _, err := os.Stat(transfer.LocalPath); err != nil {
				missing = append(missing, transfer.LocalPath)
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required files for provisioning not found: %v", missing)
	}

	for _, transfer := range transfers {
		if _, err := os.Stat(transfer.LocalPath); err != nil {
			h.Log.Debug("skipping optional file transfer (not found)", "path", transfer.LocalPath)
			continue
		}
		data, err := os.ReadFile(transfer.LocalPath)
		if err != nil {
			return fmt.Errorf("read %s: %w", transfer.LocalPath, err)
		}
		remotePath := workDir + "/" + transfer.AgentPath
		if err := h.Conn.PutFile(bgCtx(), remotePath, data, 0o644); err != nil {
			return fmt.Errorf("agent file transfer %s -> %s: %w", transfer.LocalPath, remotePath, err)
		}
	}
	return nil
}

func (h *Host) appendToFile(path, text string) error {
	existing, err := h.Conn.GetFile(bgCtx(), path)
	if err != nil && !errors.Is(err, transport.ErrFileNotFound) {
		return err
	}
	return h.Conn.PutFile(bgCtx(), path, append(existing, []byte(text)...), 0o644)
}

func (h *Host) prependToFile(path, text string) error {
	existing, err := h.Conn.GetFile(bgCtx(), path)
	if err != nil && !errors.Is(err, transport.ErrFileNotFound) {
		return err
	}
	return h.Conn.PutFile(bgCtx(), path, append([]byte(text), existing...), 0o644)
}
