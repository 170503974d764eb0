package createpipeline

import "github.com/silexa/hostctl/internal/hosterrors"

// validateFlags implements step 1: reject combinations that cannot be
// satisfied together before anything else runs.
func validateFlags(o *CreateOptions) error {
	if o.EditMessage && o.NoConnect && o.NoAwaitReady {
		return &hosterrors.UserInputError{Reason: "--edit-message cannot be combined with background creation (--no-connect --no-await-ready)"}
	}
	if o.TargetHostID != "" && o.NewHost != nil {
		return &hosterrors.UserInputError{Reason: "target host and new-host options are mutually exclusive"}
	}
	if o.TargetHostID == "" && o.NewHost == nil {
		return &hosterrors.UserInputError{Reason: "either a target host or new-host options are required"}
	}
	if o.Agent.Name == "" {
		return &hosterrors.UserInputError{Reason: "agent name is required"}
	}
	return nil
}
