// Package authz maps roles to the actions they may perform.
package authz

import (
	"errors"

	"patorama/pkg/domain"
)

type Action string

const (
	ManageUsers       Action = "users.manage"
	WriteCustomers    Action = "customers.write"
	DeleteCustomers   Action = "customers.delete"
	WriteProducts     Action = "products.write"
	CreateJobs        Action = "jobs.create"
	UpdateJobs        Action = "jobs.update"
	DeleteJobs        Action = "jobs.delete"
	ViewAllJobs       Action = "jobs.view_all"
	FinalizeAnyUpload Action = "uploads.finalize_any"
	DeleteAnyUpload   Action = "uploads.delete_any"
	WriteInvoices     Action = "invoices.write"
)

// ErrForbidden is returned when a role lacks the requested action.
var ErrForbidden = errors.New("access denied - insufficient permissions")

// Policy is an immutable role -> action table. The zero value denies everything.
type Policy struct {
	superRole domain.UserRole
	grants    map[domain.UserRole]map[Action]struct{}
}

// NewPolicy copies grants so later changes to the input have no effect.
// superRole is implicitly granted every action.
func NewPolicy(superRole domain.UserRole, grants map[domain.UserRole][]Action) *Policy {
	p := &Policy{
		superRole: superRole,
		grants:    make(map[domain.UserRole]map[Action]struct{}, len(grants)),
	}
	for role, actions := range grants {
		set := make(map[Action]struct{}, len(actions))
		for _, action := range actions {
			set[action] = struct{}{}
		}
		p.grants[role] = set
	}
	return p
}

// DefaultPolicy is the agency's role table.
func DefaultPolicy() *Policy {
	return NewPolicy(domain.RoleSuperAdmin, map[domain.UserRole][]Action{
		domain.RoleTeamManager: {
			WriteCustomers,
			CreateJobs,
			UpdateJobs,
			ViewAllJobs,
			FinalizeAnyUpload,
			WriteInvoices,
		},
		domain.RoleContentCreator: nil,
		domain.RoleEditor:         nil,
	})
}

// Can reports whether role may perform action.
func (p *Policy) Can(role domain.UserRole, action Action) bool {
	if p == nil || role == "" {
		return false
	}
	if role == p.superRole {
		return true
	}
	_, ok := p.grants[role][action]
	return ok
}

// Authorize returns ErrForbidden when role may not perform action.
func (p *Policy) Authorize(role domain.UserRole, action Action) error {
	if !p.Can(role, action) {
		return ErrForbidden
	}
	return nil
}
