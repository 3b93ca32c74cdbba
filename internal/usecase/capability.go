package usecase

// OperationKind identifies an engine operation for capability gating.
type OperationKind string

const (
	OperationLeaseContact   OperationKind = "lease_contact"
	OperationImportContacts OperationKind = "import_contacts"
	OperationSaveCampaign   OperationKind = "save_campaign"
	OperationQualifyContact OperationKind = "qualify_contact"
)

// CapabilityChecker is the external licensing/trial-gating collaborator. The
// engine consults it before mutating operations but never implements the
// underlying policy.
type CapabilityChecker interface {
	IsOperationPermitted(kind OperationKind) bool
}

// AllowAllCapabilities permits every operation. Used whenever no licensing
// collaborator is wired in.
type AllowAllCapabilities struct{}

// IsOperationPermitted always returns true
func (AllowAllCapabilities) IsOperationPermitted(OperationKind) bool {
	return true
}
