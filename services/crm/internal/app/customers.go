package app

import (
	"context"
	"errors"
	"strings"

	"patorama/pkg/authz"
	"patorama/pkg/domain"
	"patorama/pkg/store"
)

const recentJobsPerCustomer = 10

// CustomerPage is one page of customers.
type CustomerPage struct {
	Customers  []domain.Customer `json:"customers"`
	Pagination domain.Pagination `json:"pagination"`
}

// CustomerInput carries the fields accepted when creating a customer.
type CustomerInput struct {
	AgencyName       string `json:"agency_name"`
	ContactName      string `json:"contact_name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	BillingAddress   string `json:"billing_address"`
	TeamLeaderUserID *int64 `json:"team_leader_user_id"`
}

func (a *App) ListCustomers(ctx context.Context, search string, page, limit int) (CustomerPage, error) {
	p := domain.NormalizePage(page, limit)
	list, total, err := a.store.ListCustomers(ctx, domain.CustomerFilter{Search: strings.TrimSpace(search), Page: p})
	if err != nil {
		return CustomerPage{}, internal("Failed to fetch customers", err)
	}
	if list == nil {
		list = []domain.Customer{}
	}
	return CustomerPage{Customers: list, Pagination: domain.NewPagination(p.Page, p.Limit, total)}, nil
}

// GetCustomer returns a customer with its most recent jobs.
func (a *App) GetCustomer(ctx context.Context, id int64) (domain.CustomerDetail, error) {
	c, ok, err := a.store.GetCustomer(ctx, id)
	if err != nil {
		return domain.CustomerDetail{}, internal("Failed to fetch customer", err)
	}
	if !ok {
		return domain.CustomerDetail{}, notFound("Customer not found")
	}
	jobs, err := a.store.ListRecentJobsByCustomer(ctx, id, recentJobsPerCustomer)
	if err != nil {
		return domain.CustomerDetail{}, internal("Failed to fetch customer", err)
	}
	if jobs == nil {
		jobs = []domain.JobSummary{}
	}
	return domain.CustomerDetail{Customer: c, RecentJobs: jobs}, nil
}

func (a *App) CreateCustomer(ctx context.Context, actor domain.User, in CustomerInput) (domain.Customer, error) {
	if err := a.authorize(actor, authz.WriteCustomers); err != nil {
		return domain.Customer{}, err
	}
	c := domain.Customer{
		AgencyName:       strings.TrimSpace(in.AgencyName),
		ContactName:      strings.TrimSpace(in.ContactName),
		Email:            strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:            strings.TrimSpace(in.Phone),
		BillingAddress:   strings.TrimSpace(in.BillingAddress),
		TeamLeaderUserID: in.TeamLeaderUserID,
	}
	switch {
	case c.AgencyName == "":
		return domain.Customer{}, validationError("Agency name is required")
	case c.ContactName == "":
		return domain.Customer{}, validationError("Contact name is required")
	case !validEmail(c.Email):
		return domain.Customer{}, validationError("Valid email is required")
	case !validOptionalID(c.TeamLeaderUserID):
		return domain.Customer{}, validationError("Invalid team leader")
	}
	created, err := a.store.CreateCustomer(ctx, c)
	if err != nil {
		return domain.Customer{}, internal("Failed to create customer", err)
	}
	return created, nil
}

func (a *App) UpdateCustomer(ctx context.Context, actor domain.User, id int64, patch domain.CustomerPatch) error {
	if err := a.authorize(actor, authz.WriteCustomers); err != nil {
		return err
	}
	if patch.Empty() {
		return validationError("No valid fields to update")
	}
	if patch.AgencyName != nil && strings.TrimSpace(*patch.AgencyName) == "" {
		return validationError("Agency name cannot be empty")
	}
	if patch.ContactName != nil && strings.TrimSpace(*patch.ContactName) == "" {
		return validationError("Contact name cannot be empty")
	}
	if patch.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*patch.Email))
		if !validEmail(email) {
			return validationError("Valid email is required")
		}
		patch.Email = &email
	}
	if !validOptionalID(patch.TeamLeaderUserID.Value) {
		return validationError("Invalid team leader")
	}
	ok, err := a.store.UpdateCustomer(ctx, id, patch)
	if err != nil {
		return internal("Failed to update customer", err)
	}
	if !ok {
		return notFound("Customer not found")
	}
	return nil
}

func (a *App) DeleteCustomer(ctx context.Context, actor domain.User, id int64) error {
	if err := a.authorize(actor, authz.DeleteCustomers); err != nil {
		return err
	}
	err := a.store.DeleteCustomer(ctx, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrCustomerNotFound):
		return notFound("Customer not found")
	case errors.Is(err, store.ErrCustomerHasJobs):
		return conflict("Cannot delete customer with existing jobs", err)
	default:
		return internal("Failed to delete customer", err)
	}
}
