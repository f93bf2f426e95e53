package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Hook names passed to scripts in BBL_HOOK
const (
	HookActivateBefore   = "activate.before"
	HookActivateAfter    = "activate.after"
	HookDeactivateBefore = "deactivate.before"
	HookDeactivateAfter  = "deactivate.after"
)

// HookContext provides environment information for hook scripts
type HookContext struct {
	InstallID   string
	InstallPath string
	DvdRoot     string
	ModsPath    string
	ModName     string
	OpID        string
	HookName    string // e.g., "activate.before"
}

// HookResult contains the output from running a hook
type HookResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// HookRunner executes hook scripts with timeout and environment
type HookRunner struct {
	timeout time.Duration
}

// NewHookRunner creates a new hook runner with the given timeout
func NewHookRunner(timeout time.Duration) *HookRunner {
	return &HookRunner{timeout: timeout}
}

// Run executes a hook script and returns its output
func (r *HookRunner) Run(ctx context.Context, scriptPath string, hc HookContext) (*HookResult, error) {
	result := &HookResult{}

	info, err := os.Stat(scriptPath)
	if errors.Is(err, os.ErrNotExist) {
		return result, fmt.Errorf("hook script not found: %s", scriptPath)
	}
	if err != nil {
		return result, fmt.Errorf("checking hook script: %w", err)
	}
	if info.Mode()&0111 == 0 {
		return result, fmt.Errorf("hook script not executable: %s", scriptPath)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, scriptPath)
	cmd.WaitDelay = 100 * time.Millisecond
	cmd.Env = append(os.Environ(),
		"BBL_INSTALL_ID="+hc.InstallID,
		"BBL_INSTALL_PATH="+hc.InstallPath,
		"BBL_DVDROOT="+hc.DvdRoot,
		"BBL_MODS_PATH="+hc.ModsPath,
		"BBL_MOD_NAME="+hc.ModName,
		"BBL_OP_ID="+hc.OpID,
		"BBL_HOOK="+hc.HookName,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return result, fmt.Errorf("hook timed out after %v: %s", r.timeout, scriptPath)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, fmt.Errorf("hook failed with exit code %d: %s", result.ExitCode, scriptPath)
		}
		return result, fmt.Errorf("running hook: %w", err)
	}

	return result, nil
}
