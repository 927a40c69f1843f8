package authz

import (
	"errors"
	"testing"

	"patorama/pkg/domain"
)

func TestDefaultPolicySuperAdminHasEverything(t *testing.T) {
	p := DefaultPolicy()
	for _, action := range []Action{ManageUsers, WriteCustomers, DeleteCustomers, WriteProducts, CreateJobs, UpdateJobs, DeleteJobs, ViewAllJobs, FinalizeAnyUpload, DeleteAnyUpload, WriteInvoices} {
		if !p.Can(domain.RoleSuperAdmin, action) {
			t.Fatalf("super_admin should be allowed %s", action)
		}
	}
}

func TestDefaultPolicyTeamManager(t *testing.T) {
	p := DefaultPolicy()
	allowed := []Action{WriteCustomers, CreateJobs, UpdateJobs, ViewAllJobs, FinalizeAnyUpload, WriteInvoices}
	denied := []Action{ManageUsers, DeleteCustomers, WriteProducts, DeleteJobs, DeleteAnyUpload}
	for _, action := range allowed {
		if !p.Can(domain.RoleTeamManager, action) {
			t.Fatalf("team_manager should be allowed %s", action)
		}
	}
	for _, action := range denied {
		if err := p.Authorize(domain.RoleTeamManager, action); !errors.Is(err, ErrForbidden) {
			t.Fatalf("team_manager should be denied %s, got %v", action, err)
		}
	}
}

func TestDefaultPolicyCreatorAndEditorHaveNoWrites(t *testing.T) {
	p := DefaultPolicy()
	for _, role := range []domain.UserRole{domain.RoleContentCreator, domain.RoleEditor, "", "unknown"} {
		for _, action := range []Action{CreateJobs, UpdateJobs, DeleteJobs, ViewAllJobs, WriteInvoices} {
			if p.Can(role, action) {
				t.Fatalf("%q should not be allowed %s", role, action)
			}
		}
	}
}

func TestNewPolicyCopiesInput(t *testing.T) {
	grants := map[domain.UserRole][]Action{domain.RoleEditor: {WriteCustomers}}
	p := NewPolicy(domain.RoleSuperAdmin, grants)
	grants[domain.RoleEditor] = append(grants[domain.RoleEditor], DeleteJobs)
	grants[domain.RoleContentCreator] = []Action{DeleteJobs}
	if p.Can(domain.RoleEditor, DeleteJobs) || p.Can(domain.RoleContentCreator, DeleteJobs) {
		t.Fatalf("policy must not observe mutations of its input")
	}
	if !p.Can(domain.RoleEditor, WriteCustomers) {
		t.Fatalf("expected copied grant to remain")
	}
}

func TestNilPolicyDenies(t *testing.T) {
	var p *Policy
	if p.Can(domain.RoleSuperAdmin, ManageUsers) {
		t.Fatalf("nil policy must deny")
	}
}
