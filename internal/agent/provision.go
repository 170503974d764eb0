package agent

import "github.com/silexa/hostctl/internal/hostd"

// The methods below satisfy hostd.ProvisionAgentType, delegating to the
// Type's hook functions when set and no-op'ing otherwise - the Go
// realization of base_agent.py's on_before_provisioning/provision/
// on_after_provisioning default-no-op hooks.

func (a *Agent) OnBeforeProvisioning() error {
	if a.Type != nil && a.Type.OnBeforeProvisioning != nil {
		return a.Type.OnBeforeProvisioning(a)
	}
	return nil
}

func (a *Agent) GetProvisionFileTransfers() []hostd.FileTransferSpec {
	if a.Type != nil && a.Type.GetProvisionFileTransfers != nil {
		return a.Type.GetProvisionFileTransfers(a)
	}
	return nil
}

func (a *Agent) Provision() error {
	if a.Type != nil && a.Type.Provision != nil {
		return a.Type.Provision(a)
	}
	return nil
}

func (a *Agent) OnAfterProvisioning() error {
	if a.Type != nil && a.Type.OnAfterProvisioning != nil {
		return a.Type.OnAfterProvisioning(a)
	}
	return nil
}

var _ hostd.ProvisionAgentType = (*Agent)(nil)
