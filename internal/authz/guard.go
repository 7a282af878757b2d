// Package authz is the record-level authorization guard. Every handler asks
// it one question per request: may this principal perform this action on
// this record. Evaluation is fail-closed: unknown roles and uninitialized
// principals deny.
package authz

import (
	casedomain "github.com/legalaid-center/platform/internal/case/domain"
	"github.com/legalaid-center/platform/internal/document"
	"github.com/legalaid-center/platform/internal/identity"
	"github.com/legalaid-center/platform/internal/judicial"
	"github.com/legalaid-center/platform/internal/shared/errors"
	"github.com/legalaid-center/platform/internal/shared/metrics"
	"github.com/legalaid-center/platform/internal/task"
)

// Action is an operation a principal attempts against a record.
type Action string

const (
	ActionRead          Action = "read"
	ActionEdit          Action = "edit"
	ActionDelete        Action = "delete"
	ActionApprove       Action = "approve"
	ActionReject        Action = "reject"
	ActionAssignLawyer  Action = "assign_lawyer"
	ActionSetStatus     Action = "set_status"
	ActionAttach        Action = "attach"
	ActionListDocuments Action = "list_documents"
	ActionReadTimeline  Action = "read_timeline"
)

// Case decides whether the principal may perform the action on the case.
// Returns nil to allow, or a typed error to deny. For beneficiary callers a
// foreign record denies as NotFound so existence never leaks.
func Case(p identity.Principal, c *casedomain.Case, action Action) error {
	err := caseDecision(p, c, action)
	metrics.RecordAuthorizationDecision("case", string(action), err == nil)
	return err
}

func caseDecision(p identity.Principal, c *casedomain.Case, action Action) error {
	if p.IsZero() || c == nil {
		return errors.Unauthorized("authentication required")
	}

	if p.IsBeneficiary() {
		if p.BeneficiaryID.IsZero() {
			return errors.ProfileIncomplete()
		}
		// Another beneficiary's case must be indistinguishable from a
		// missing one.
		if c.BeneficiaryID != p.BeneficiaryID {
			return errors.NotFound("case", c.ID.String())
		}
		switch action {
		case ActionRead, ActionListDocuments, ActionReadTimeline, ActionAttach:
			return nil
		}
		return errors.Forbidden("beneficiaries may not perform this action")
	}

	if !p.IsStaff() {
		return errors.Forbidden("access denied")
	}

	// Admins bypass assignment checks entirely.
	if p.IsAdmin() {
		return nil
	}

	switch p.Role {
	case identity.RoleLawyer:
		switch action {
		case ActionRead, ActionListDocuments, ActionReadTimeline:
			if p.Can(identity.CapCaseReadAssigned) && c.AssignedLawyerID == p.UserID {
				return nil
			}
		case ActionSetStatus:
			if p.Can(identity.CapCaseOperateStatus) && c.AssignedLawyerID == p.UserID {
				return nil
			}
		case ActionAttach:
			if c.AssignedLawyerID == p.UserID {
				return nil
			}
		case ActionDelete:
			if p.Can(identity.CapCaseDelete) && c.AssignedLawyerID == p.UserID {
				return nil
			}
		}
		return errors.Forbidden("case is not assigned to you")
	case identity.RoleViewer:
		switch action {
		case ActionRead, ActionListDocuments, ActionReadTimeline:
			return nil
		}
		return errors.Forbidden("read-only access")
	case identity.RoleExpert:
		if action == ActionRead && c.AssignedLawyerID == p.UserID {
			return nil
		}
		return errors.Forbidden("access denied")
	}

	return errors.Forbidden("access denied")
}

// JudicialService decides whether the principal may perform the action on
// the judicial service.
func JudicialService(p identity.Principal, s *judicial.Service, action Action) error {
	err := judicialDecision(p, s, action)
	metrics.RecordAuthorizationDecision("judicial_service", string(action), err == nil)
	return err
}

func judicialDecision(p identity.Principal, s *judicial.Service, action Action) error {
	if p.IsZero() || s == nil {
		return errors.Unauthorized("authentication required")
	}

	if p.IsBeneficiary() {
		if p.BeneficiaryID.IsZero() {
			return errors.ProfileIncomplete()
		}
		if s.BeneficiaryID != p.BeneficiaryID {
			return errors.NotFound("judicial service", s.ID.String())
		}
		switch action {
		case ActionRead, ActionListDocuments, ActionAttach:
			return nil
		}
		return errors.Forbidden("beneficiaries may not perform this action")
	}

	if !p.IsStaff() {
		return errors.Forbidden("access denied")
	}

	if p.IsAdmin() {
		return nil
	}

	switch p.Role {
	case identity.RoleLawyer:
		switch action {
		case ActionRead, ActionListDocuments, ActionAttach:
			if s.AssignedLawyerID == p.UserID {
				return nil
			}
		}
		return errors.Forbidden("service is not assigned to you")
	case identity.RoleViewer:
		switch action {
		case ActionRead, ActionListDocuments:
			return nil
		}
		return errors.Forbidden("read-only access")
	}

	return errors.Forbidden("access denied")
}

// Task decides whether the principal may perform the action on the task.
func Task(p identity.Principal, t *task.Task, action Action) error {
	err := taskDecision(p, t, action)
	metrics.RecordAuthorizationDecision("task", string(action), err == nil)
	return err
}

func taskDecision(p identity.Principal, t *task.Task, action Action) error {
	if p.IsZero() || t == nil {
		return errors.Unauthorized("authentication required")
	}

	if p.IsBeneficiary() {
		if p.BeneficiaryID.IsZero() {
			return errors.ProfileIncomplete()
		}
		if t.BeneficiaryID != p.BeneficiaryID {
			return errors.NotFound("task", t.ID.String())
		}
		switch action {
		case ActionRead, ActionListDocuments, ActionAttach:
			return nil
		}
		return errors.Forbidden("beneficiaries may not perform this action")
	}

	if !p.IsStaff() {
		return errors.Forbidden("access denied")
	}

	if p.IsAdmin() {
		return nil
	}

	switch p.Role {
	case identity.RoleLawyer:
		// The linked lawyer may read and apply status-only transitions;
		// field edits stay admin-only.
		switch action {
		case ActionRead, ActionListDocuments, ActionAttach:
			if t.LawyerID == p.UserID {
				return nil
			}
		case ActionSetStatus:
			if p.Can(identity.CapTaskStatus) && t.LawyerID == p.UserID {
				return nil
			}
		}
		return errors.Forbidden("task is not linked to you")
	case identity.RoleViewer:
		switch action {
		case ActionRead, ActionListDocuments:
			return nil
		}
		return errors.Forbidden("read-only access")
	}

	return errors.Forbidden("access denied")
}

// Document decides whether the principal may see an individual document.
// Parent-level access must already have been established via the parent's
// guard; this adds the isPublic gate for beneficiaries.
func Document(p identity.Principal, d *document.Document, action Action) error {
	err := documentDecision(p, d, action)
	metrics.RecordAuthorizationDecision("document", string(action), err == nil)
	return err
}

func documentDecision(p identity.Principal, d *document.Document, action Action) error {
	if p.IsZero() || d == nil {
		return errors.Unauthorized("authentication required")
	}
	if action != ActionRead {
		return errors.Forbidden("documents are immutable")
	}
	if !d.VisibleTo(p) {
		return errors.NotFound("document", d.ID.String())
	}
	return nil
}
