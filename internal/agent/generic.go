package agent

// GenericTypeName is the sole concrete agent type shipped by core
// (spec.md §9 open question 3: vendor-specific provisioning stays out of
// core). It runs whatever command the caller supplies, with simple
// (non-marker) message injection and no readiness gate.
const GenericTypeName = "generic"

func init() {
	Register(&Type{
		Name:                GenericTypeName,
		Command:             "bash",
		UsesMarkerBasedSend: false,
	})
}
