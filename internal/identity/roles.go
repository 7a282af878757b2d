// Package identity resolves the acting principal for a request and defines
// the role and capability model.
package identity

// Role represents a user role in the system.
type Role string

// Staff roles
const (
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
	RoleLawyer     Role = "lawyer"
	RoleViewer     Role = "viewer"
	RoleExpert     Role = "expert"
)

// Beneficiary role
const (
	RoleBeneficiary Role = "beneficiary"
)

// Capability represents a specific action on a resource.
type Capability string

// Case capabilities
const (
	CapCaseCreateSelf     Capability = "case.create.self"  // beneficiary self-case
	CapCaseCreateDirect   Capability = "case.create.admin" // admin-created, skips review
	CapCaseApprove        Capability = "case.approve"
	CapCaseReject         Capability = "case.reject"
	CapCaseAssignLawyer   Capability = "case.assign_lawyer"
	CapCaseAdminStatus    Capability = "case.status.admin"
	CapCaseOperateStatus  Capability = "case.status.operate" // assigned lawyer only
	CapCaseEdit           Capability = "case.edit"
	CapCaseDelete         Capability = "case.delete"
	CapCaseReadAll        Capability = "case.read.all"
	CapCaseReadAssigned   Capability = "case.read.assigned"
	CapCaseReadOwn        Capability = "case.read.own"
	CapCaseInternalNotes  Capability = "case.internal_notes"
)

// Judicial service capabilities
const (
	CapJudicialCreateSelf   Capability = "judicial.create.self"
	CapJudicialCreateDirect Capability = "judicial.create.admin"
	CapJudicialAssignLawyer Capability = "judicial.assign_lawyer"
	CapJudicialStatus       Capability = "judicial.status"
	CapJudicialReadAll      Capability = "judicial.read.all"
	CapJudicialReadAssigned Capability = "judicial.read.assigned"
	CapJudicialReadOwn      Capability = "judicial.read.own"
)

// Task capabilities
const (
	CapTaskCreate       Capability = "task.create"
	CapTaskEdit         Capability = "task.edit"
	CapTaskStatus       Capability = "task.status" // linked lawyer, status-only
	CapTaskReadAll      Capability = "task.read.all"
	CapTaskReadAssigned Capability = "task.read.assigned"
	CapTaskReadOwn      Capability = "task.read.own"
)

// Document capabilities
const (
	CapDocumentAttach         Capability = "document.attach"
	CapDocumentAttachInternal Capability = "document.attach.internal" // may set is_public=false
	CapDocumentReadInternal   Capability = "document.read.internal"
)

// RoleCapabilities maps roles to their capabilities. Adding a role or a
// capability is a table edit, not a handler change.
var RoleCapabilities = map[Role][]Capability{
	RoleAdmin: {
		CapCaseCreateDirect, CapCaseApprove, CapCaseReject, CapCaseAssignLawyer,
		CapCaseAdminStatus, CapCaseEdit, CapCaseDelete, CapCaseReadAll, CapCaseInternalNotes,
		CapJudicialCreateDirect, CapJudicialAssignLawyer, CapJudicialStatus, CapJudicialReadAll,
		CapTaskCreate, CapTaskEdit, CapTaskReadAll,
		CapDocumentAttach, CapDocumentAttachInternal, CapDocumentReadInternal,
	},
	RoleSuperAdmin: {
		CapCaseCreateDirect, CapCaseApprove, CapCaseReject, CapCaseAssignLawyer,
		CapCaseAdminStatus, CapCaseEdit, CapCaseDelete, CapCaseReadAll, CapCaseInternalNotes,
		CapJudicialCreateDirect, CapJudicialAssignLawyer, CapJudicialStatus, CapJudicialReadAll,
		CapTaskCreate, CapTaskEdit, CapTaskReadAll,
		CapDocumentAttach, CapDocumentAttachInternal, CapDocumentReadInternal,
	},
	RoleLawyer: {
		CapCaseOperateStatus, CapCaseDelete, CapCaseReadAssigned, CapCaseInternalNotes,
		CapJudicialReadAssigned,
		CapTaskStatus, CapTaskReadAssigned,
		CapDocumentAttach, CapDocumentAttachInternal, CapDocumentReadInternal,
	},
	RoleViewer: {
		CapCaseReadAll, CapCaseInternalNotes,
		CapJudicialReadAll,
		CapTaskReadAll,
		CapDocumentReadInternal,
	},
	RoleExpert: {
		CapCaseReadAssigned,
		CapDocumentReadInternal,
	},
	RoleBeneficiary: {
		CapCaseCreateSelf, CapCaseReadOwn,
		CapJudicialCreateSelf, CapJudicialReadOwn,
		CapTaskReadOwn,
		CapDocumentAttach,
	},
}

// HasCapability checks if a role has a specific capability. Unknown roles
// have no capabilities.
func HasCapability(role Role, cap Capability) bool {
	caps, ok := RoleCapabilities[role]
	if !ok {
		return false
	}
	for _, c := range caps {
		if c == cap {
			return true
		}
	}
	return false
}

// IsStaffRole reports whether the role belongs to the staff side.
func IsStaffRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleSuperAdmin, RoleLawyer, RoleViewer, RoleExpert:
		return true
	}
	return false
}
