package hostd

import (
	"fmt"
	"strings"

	"github.com/silexa/hostctl/internal/hosterrors"
	"github.com/silexa/hostctl/internal/ids"
	"github.com/silexa/hostctl/internal/transport"
)

// GitOptions mirrors CreateAgentOptions.git (spec.md §4.D).
type GitOptions struct {
	CopyMode           ids.GitCopyMode
	BaseBranch         string
	NewBranchName      string
	NewBranchPrefix    string // defaults to "hostctl/"
	IsGitSynced        bool
	IsIncludeUnclean   bool
	IsIncludeGitignored bool
}

// DataOptions mirrors CreateAgentOptions.data_options.
type DataOptions struct {
	IsRsyncEnabled bool
	RsyncArgs      string
}

// WorkDirOptions is the subset of CreateAgentOptions that
// CreateAgentWorkDir needs.
type WorkDirOptions struct {
	AgentName    string
	ProviderName string // the host's provider, appended to the default branch name (spec.md §4.D)
	TargetPath   string // empty means "derive from source"
	Git          *GitOptions
	Data         DataOptions
}

const defaultNewBranchPrefix = "hostctl/"

// CreateAgentWorkDir materializes an agent's work directory from sourcePath
// on sourceHost, branching per copy_mode (spec.md §4.D, rules 1-5):
// WORKTREE requires sourceHost == h; CLONE/COPY transfer via git
// push-to-target plus rsync of uncommitted/untracked files; in-place
// (GitCopyModeNone) requires no transfer. Non-git sources fall back to a
// full rsync with a warning.
func (h *Host) CreateAgentWorkDir(sourceHost *Host, sourcePath string, opts WorkDirOptions) (string, error) {
	mode := ids.GitCopyModeCopy
	if opts.Git != nil {
		mode = opts.Git.CopyMode
	}

	switch mode {
	case ids.GitCopyModeWorktree:
		return h.createWorkDirAsWorktree(sourceHost, sourcePath, opts)
	case ids.GitCopyModeCopy, ids.GitCopyModeClone:
		return h.createWorkDirAsCopy(sourceHost, sourcePath, opts)
	case ids.GitCopyModeNone:
		return sourcePath, nil
	default:
		return "", &hosterrors.SwitchError{Enum: "GitCopyMode", Value: mode}
	}
}

func (h *Host) createWorkDirAsWorktree(sourceHost *Host, sourcePath string, opts WorkDirOptions) (string, error) {
	if sourceHost.ID != h.ID {
		return "", &hosterrors.UserInputError{Reason: "worktree mode only works when source is on the same host"}
	}

	targetPath := opts.TargetPath
	if targetPath == "" {
		targetPath = h.HostDir + "/worktrees/" + string(ids.NewAgentID())
	}

	branch := h.determineBranchName(opts)
	cmd := fmt.Sprintf("git -C %s worktree add %s -b %s", shQuote(sourcePath), shQuote(targetPath), shQuote(branch))
	if opts.Git != nil && opts.Git.BaseBranch != "" {
		cmd += " " + shQuote(opts.Git.BaseBranch)
	}

	result, err := h.Conn.RunShellCommand(bgCtx(), cmd, transport.RunOptions{})
	if err != nil {
		return "", err
	}
	if !result.Success {
		return "", fmt.Errorf("create git worktree: %s", result.Stderr)
	}
	return targetPath, nil
}

func (h *Host) createWorkDirAsCopy(sourceHost *Host, sourcePath string, opts WorkDirOptions) (string, error) {
	sameHost := sourceHost.ID == h.ID

	targetPath := opts.TargetPath
	if targetPath == "" {
		targetPath = sourcePath
	}

	if err := h.mkdir(targetPath); err != nil {
		return "", err
	}

	if sameHost && targetPath == sourcePath {
		return targetPath, nil
	}

	sourceHasGit, err := sourceHost.pathExists(sourcePath + "/.git")
	if err != nil {
		return "", err
	}

	isGitSynced := opts.Git != nil && opts.Git.IsGitSynced
	hasGitOptions := opts.Git != nil

	if isGitSynced {
		if !sourceHasGit {
			h.Log.Warn("source path is not a git repository, falling back to file copy", "path", sourcePath)
			if err := h.rsync(sourceHost, sourcePath, targetPath, []string{"--delete"}, "", true); err != nil {
				return "", err
			}
		} else {
			if err := h.transferGitRepo(sourceHost, sourcePath, targetPath, opts); err != nil {
				return "", err
			}
			if err := h.transferExtraFiles(sourceHost, sourcePath, targetPath, opts); err != nil {
				return "", err
			}
		}
	}

	if opts.Data.IsRsyncEnabled {
		if err := h.rsync(sourceHost, sourcePath, targetPath, nil, opts.Data.RsyncArgs, hasGitOptions); err != nil {
			return "", err
		}
	}

	return targetPath, nil
}

func (h *Host) transferGitRepo(sourceHost *Host, sourcePath, targetPath string, opts WorkDirOptions) error {
	newBranch := h.determineBranchName(opts)

	baseBranch := ""
	if opts.Git != nil {
		baseBranch = opts.Git.BaseBranch
	}
	if baseBranch == "" {
		result, err := sourceHost.Conn.RunShellCommand(bgCtx(), "git rev-parse --abbrev-ref HEAD", transport.RunOptions{Cwd: sourcePath})
		if err == nil && result.Success {
			baseBranch = strings.TrimSpace(result.Stdout)
		}
		if baseBranch == "" {
			baseBranch = "main"
		}
	}

	targetHasGit, err := h.pathExists(targetPath + "/.git")
	if err != nil {
		return err
	}
	if !targetHasGit {
		initCmd := fmt.Sprintf("git init --bare %s && git config --global --add safe.directory %s", shQuote(targetPath+"/.git"), shQuote(targetPath))
		result, err := h.Conn.RunShellCommand(bgCtx(), initCmd, transport.RunOptions{})
		if err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("initialize git repo on target: %s", result.Stderr)
		}
	}

	if err := h.gitPushToTarget(sourceHost, sourcePath, targetPath); err != nil {
		return err
	}

	configureCmd := fmt.Sprintf("git config --bool core.bare false && git checkout -B %s %s", shQuote(newBranch), shQuote(baseBranch))
	result, err := h.Conn.RunShellCommand(bgCtx(), configureCmd, transport.RunOptions{Cwd: targetPath})
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("configure git repo on target: %s", result.Stderr)
	}
	return nil
}

// gitPushToTarget pushes sourcePath's full history to targetPath's bare
// repo via `git push --mirror`, run from the source host so the push
// direction matches how the original implementation avoids assuming
// bidirectional SSH reachability. LFS objects are skipped: they can be
// fetched lazily later and pushing them up front is needlessly slow.
func (h *Host) gitPushToTarget(sourceHost *Host, sourcePath, targetPath string) error {
	gitURL := targetPath + "/.git"
	cmd := fmt.Sprintf("GIT_LFS_SKIP_PUSH=1 git push --no-verify --mirror %s", shQuote(gitURL))
	result, err := sourceHost.Conn.RunShellCommand(bgCtx(), cmd, transport.RunOptions{Cwd: sourcePath})
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("push git repo: %s", result.Stderr)
	}
	return nil
}

// transferExtraFiles rsyncs files git itself wouldn't carry over: the
// uncommitted/untracked tree (via `git status --porcelain`) and, if
// requested, gitignored files (`git ls-files --others --ignored`).
func (h *Host) transferExtraFiles(sourceHost *Host, sourcePath, targetPath string, opts WorkDirOptions) error {
	includeUnclean := opts.Git == nil || opts.Git.IsIncludeUnclean
	includeGitignored := opts.Git != nil && opts.Git.IsIncludeGitignored

	seen := make(map[string]struct{})
	var files []string
	addLines := func(stdout string) {
		for _, line := range splitNonEmptyLines(stdout) {
			if _, ok := seen[line]; !ok {
				seen[line] = struct{}{}
				files = append(files, line)
			}
		}
	}

	if includeUnclean {
		result, err := sourceHost.Conn.RunShellCommand(bgCtx(), "git status --porcelain", transport.RunOptions{Cwd: sourcePath})
		if err != nil {
			return err
		}
		if result.Success {
			for _, line := range splitNonEmptyLines(result.Stdout) {
				if len(line) <= 3 {
					continue
				}
				filename := line[3:]
				if idx := strings.Index(filename, " -> "); idx >= 0 {
					filename = filename[idx+4:]
				}
				if _, ok := seen[filename]; !ok {
					seen[filename] = struct{}{}
					files = append(files, filename)
				}
			}
		}
	}

	if includeGitignored {
		result, err := sourceHost.Conn.RunShellCommand(bgCtx(), "git ls-files --others --ignored --exclude-standard", transport.RunOptions{Cwd: sourcePath})
		if err != nil {
			return err
		}
		if result.Success {
			addLines(result.Stdout)
		}
	}

	if len(files) == 0 {
		return nil
	}

	filesFromPath := targetPath + "/.hostctl-rsync-files-from"
	content := strings.Join(files, "\n") + "\n"
	if err := sourceHost.Conn.PutFile(bgCtx(), filesFromPath, []byte(content), 0o600); err != nil {
		return err
	}
	defer sourceHost.Conn.RunShellCommand(bgCtx(), "rm -f "+shQuote(filesFromPath), transport.RunOptions{})

	return h.rsync(sourceHost, sourcePath, targetPath, []string{"--files-from", filesFromPath}, "", true)
}

// rsync always runs from the source host (matching original_source's
// approach of pushing outward from wherever the source data lives), with
// an optional --exclude .git and extra args appended.
func (h *Host) rsync(sourceHost *Host, sourcePath, targetPath string, extraArgs []string, rawExtraArgs string, excludeGit bool) error {
	args := []string{"rsync", "-rlpt"}
	if excludeGit {
		args = append(args, "--exclude", ".git")
	}
	if rawExtraArgs != "" {
		args = append(args, strings.Fields(rawExtraArgs)...)
	}
	args = append(args, extraArgs...)

	sourceStr := strings.TrimRight(sourcePath, "/") + "/"
	targetStr := strings.TrimRight(targetPath, "/") + "/"
	args = append(args, shQuote(sourceStr), shQuote(targetStr))

	cmd := strings.Join(args, " ")
	result, err := sourceHost.Conn.RunShellCommand(bgCtx(), cmd, transport.RunOptions{})
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("rsync failed: %s", result.Stderr)
	}
	return nil
}

// determineBranchName implements spec.md §4.D's default branch-derivation
// rule (<new_branch_prefix><agent_name>-<provider_name>), matching
// original_source's _determine_branch_name.
func (h *Host) determineBranchName(opts WorkDirOptions) string {
	if opts.Git != nil && opts.Git.NewBranchName != "" {
		return opts.Git.NewBranchName
	}
	agentName := opts.AgentName
	if agentName == "" {
		agentName = "agent"
	}
	prefix := defaultNewBranchPrefix
	if opts.Git != nil && opts.Git.NewBranchPrefix != "" {
		prefix = opts.Git.NewBranchPrefix
	}
	providerName := opts.ProviderName
	if providerName == "" {
		providerName = "unknown"
	}
	return prefix + agentName + "-" + providerName
}

func (h *Host) mkdir(path string) error {
	result, err := h.Conn.RunShellCommand(bgCtx(), "mkdir -p "+shQuote(path), transport.RunOptions{})
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("mkdir %s: %s", path, result.Stderr)
	}
	return nil
}

func (h *Host) pathExists(path string) (bool, error) {
	result, err := h.Conn.RunShellCommand(bgCtx(), "test -e "+shQuote(path), transport.RunOptions{})
	if err != nil {
		return false, err
	}
	return result.Success, nil
}
