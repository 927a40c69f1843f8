package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"patorama/pkg/authz"
	"patorama/pkg/domain"
	"patorama/pkg/events"
	"patorama/pkg/store"
)

// JobInput is the body of a job booking.
type JobInput struct {
	CustomerID        int64          `json:"customer_id"`
	Address           string         `json:"address"`
	Date              string         `json:"date"`
	Time              string         `json:"time"`
	Status            string         `json:"status"`
	AssignedCreatorID *int64         `json:"assigned_creator_id"`
	AssignedEditorID  *int64         `json:"assigned_editor_id"`
	Notes             string         `json:"notes"`
	Products          []JobLineInput `json:"products"`
}

// JobLineInput is one priced line of a booking.
type JobLineInput struct {
	ProductID    int64   `json:"product_id"`
	VariantID    *int64  `json:"variant_id"`
	PayoutAmount float64 `json:"payout_amount"`
	Price        float64 `json:"price"`
	Duration     int     `json:"duration"`
}

// JobQuery holds the list filters accepted from the query string.
type JobQuery struct {
	Status     string
	DateFrom   string
	DateTo     string
	CustomerID int64
	Page       int
	Limit      int
}

// JobPage is one page of jobs visible to the caller.
type JobPage struct {
	Jobs       []domain.JobSummary `json:"jobs"`
	Pagination domain.Pagination   `json:"pagination"`
}

// CreateJob books a job with its line items in one transaction and notifies
// the assigned creator inside the same transaction.
func (a *App) CreateJob(ctx context.Context, actor domain.User, in JobInput) (domain.Job, error) {
	if err := a.authorize(actor, authz.CreateJobs); err != nil {
		return domain.Job{}, err
	}
	job := domain.Job{
		CustomerID:        in.CustomerID,
		Address:           strings.TrimSpace(in.Address),
		Date:              strings.TrimSpace(in.Date),
		Time:              strings.TrimSpace(in.Time),
		Status:            strings.TrimSpace(in.Status),
		AssignedCreatorID: in.AssignedCreatorID,
		AssignedEditorID:  in.AssignedEditorID,
		Notes:             in.Notes,
		CreatedByUserID:   actor.ID,
	}
	if job.Status == "" {
		job.Status = domain.JobScheduled
	}
	switch {
	case job.CustomerID <= 0:
		return domain.Job{}, validationError("Customer is required")
	case job.Address == "":
		return domain.Job{}, validationError("Address is required")
	case !validDate(job.Date):
		return domain.Job{}, validationError("Date must be YYYY-MM-DD")
	case !validOptionalID(job.AssignedCreatorID), !validOptionalID(job.AssignedEditorID):
		return domain.Job{}, validationError("Invalid assignee")
	}
	tm, ok := normalizeTime(job.Time)
	if !ok {
		return domain.Job{}, validationError("Time must be HH:MM")
	}
	job.Time = tm
	lines := make([]domain.JobProduct, 0, len(in.Products))
	for i, p := range in.Products {
		if p.ProductID <= 0 || !validOptionalID(p.VariantID) {
			return domain.Job{}, validationError("Product %d: invalid product", i+1)
		}
		if p.Price < 0 || p.PayoutAmount < 0 || p.Duration < 0 {
			return domain.Job{}, validationError("Product %d: price, payout and duration cannot be negative", i+1)
		}
		lines = append(lines, domain.JobProduct{
			ProductID:    p.ProductID,
			VariantID:    p.VariantID,
			PayoutAmount: p.PayoutAmount,
			Price:        p.Price,
			Duration:     p.Duration,
		})
	}

	var notify *domain.Notification
	if job.AssignedCreatorID != nil {
		notify = &domain.Notification{
			UserID:  *job.AssignedCreatorID,
			Message: "You have been assigned to a new job",
			Type:    domain.NotifyAssignment,
		}
	}
	created, err := a.store.CreateJob(ctx, job, lines, notify)
	if err != nil {
		return domain.Job{}, internal("Failed to create job", err)
	}
	a.publish(ctx, events.Event{
		Type:     events.JobCreated,
		EntityID: created.ID,
		ActorID:  actor.ID,
		Data:     map[string]any{"customer_id": created.CustomerID, "lines": len(lines)},
	})
	return created, nil
}

// ListJobs returns one page of the jobs the actor may see.
func (a *App) ListJobs(ctx context.Context, actor domain.User, q JobQuery) (JobPage, error) {
	f := domain.JobFilter{
		Status:     strings.TrimSpace(q.Status),
		DateFrom:   strings.TrimSpace(q.DateFrom),
		DateTo:     strings.TrimSpace(q.DateTo),
		CustomerID: q.CustomerID,
		Page:       domain.NormalizePage(q.Page, q.Limit),
	}
	if f.DateFrom != "" && !validDate(f.DateFrom) {
		return JobPage{}, validationError("date_from must be YYYY-MM-DD")
	}
	if f.DateTo != "" && !validDate(f.DateTo) {
		return JobPage{}, validationError("date_to must be YYYY-MM-DD")
	}
	if !a.policy.Can(actor.Role, authz.ViewAllJobs) {
		switch actor.Role {
		case domain.RoleContentCreator:
			f.CreatorID = actor.ID
		case domain.RoleEditor:
			f.EditorID = actor.ID
		default:
			return JobPage{}, forbidden("Access denied")
		}
	}
	jobs, total, err := a.store.ListJobs(ctx, f)
	if err != nil {
		return JobPage{}, internal("Failed to fetch jobs", err)
	}
	if jobs == nil {
		jobs = []domain.JobSummary{}
	}
	return JobPage{Jobs: jobs, Pagination: domain.NewPagination(f.Page.Page, f.Page.Limit, total)}, nil
}

// GetJob returns a job with its line items and uploads.
func (a *App) GetJob(ctx context.Context, actor domain.User, id int64) (domain.JobDetail, error) {
	job, err := a.visibleJob(ctx, actor, id)
	if err != nil {
		return domain.JobDetail{}, err
	}
	if job.Products, err = a.store.ListJobProducts(ctx, id); err != nil {
		return domain.JobDetail{}, internal("Failed to fetch job", err)
	}
	if job.Uploads, err = a.store.ListUploads(ctx, id); err != nil {
		return domain.JobDetail{}, internal("Failed to fetch job", err)
	}
	if job.Products == nil {
		job.Products = []domain.JobProduct{}
	}
	if job.Uploads == nil {
		job.Uploads = []domain.Upload{}
	}
	return job, nil
}

func (a *App) visibleJob(ctx context.Context, actor domain.User, id int64) (domain.JobDetail, error) {
	job, ok, err := a.store.GetJob(ctx, id)
	if err != nil {
		return domain.JobDetail{}, internal("Failed to fetch job", err)
	}
	if !ok {
		return domain.JobDetail{}, notFound("Job not found")
	}
	if !a.canSeeJob(actor, job.Job) {
		return domain.JobDetail{}, forbidden("Access denied")
	}
	return job, nil
}

// UpdateJob applies a typed patch. Notifications about the change are sent
// after the update and never fail it.
func (a *App) UpdateJob(ctx context.Context, actor domain.User, id int64, patch domain.JobPatch) (domain.Job, error) {
	if err := a.authorize(actor, authz.UpdateJobs); err != nil {
		return domain.Job{}, err
	}
	if patch.Empty() {
		return domain.Job{}, validationError("No valid fields to update")
	}
	if err := validateJobPatch(&patch); err != nil {
		return domain.Job{}, err
	}
	before, after, found, err := a.store.UpdateJob(ctx, id, patch)
	if err != nil {
		return domain.Job{}, internal("Failed to update job", err)
	}
	if !found {
		return domain.Job{}, notFound("Job not found")
	}

	jobID := after.ID
	if patch.Status != nil && after.AssignedCreatorID != nil {
		a.notify(ctx, domain.Notification{
			UserID:  *after.AssignedCreatorID,
			JobID:   &jobID,
			Message: fmt.Sprintf("Job status updated to %s", after.Status),
			Type:    domain.NotifyUpdate,
		})
	}
	if patch.AssignedCreatorID.Set && after.AssignedCreatorID != nil &&
		(before.AssignedCreatorID == nil || *before.AssignedCreatorID != *after.AssignedCreatorID) {
		a.notify(ctx, domain.Notification{
			UserID:  *after.AssignedCreatorID,
			JobID:   &jobID,
			Message: "You have been assigned to a job",
			Type:    domain.NotifyAssignment,
		})
	}
	a.publish(ctx, events.Event{
		Type:     events.JobUpdated,
		EntityID: jobID,
		ActorID:  actor.ID,
		Data:     map[string]any{"status": after.Status},
	})
	return after, nil
}

// validateJobPatch checks provided values and normalizes the time in place.
func validateJobPatch(p *domain.JobPatch) error {
	if p.Address != nil && strings.TrimSpace(*p.Address) == "" {
		return validationError("Address cannot be empty")
	}
	if p.Date != nil && !validDate(strings.TrimSpace(*p.Date)) {
		return validationError("Date must be YYYY-MM-DD")
	}
	if p.Time != nil {
		tm, ok := normalizeTime(strings.TrimSpace(*p.Time))
		if !ok {
			return validationError("Time must be HH:MM")
		}
		p.Time = &tm
	}
	if p.Status != nil && strings.TrimSpace(*p.Status) == "" {
		return validationError("Status cannot be empty")
	}
	if !validOptionalID(p.AssignedCreatorID.Value) || !validOptionalID(p.AssignedEditorID.Value) {
		return validationError("Invalid assignee")
	}
	return nil
}

// DeleteJob removes a job that has not been invoiced. Stored files of its
// uploads are removed after the rows are gone.
func (a *App) DeleteJob(ctx context.Context, actor domain.User, id int64) error {
	if err := a.authorize(actor, authz.DeleteJobs); err != nil {
		return err
	}
	removed, err := a.store.DeleteJob(ctx, id)
	switch {
	case errors.Is(err, store.ErrJobNotFound):
		return notFound("Job not found")
	case errors.Is(err, store.ErrJobHasInvoice):
		return conflict("Cannot delete job with an invoice", err)
	case err != nil:
		return internal("Failed to delete job", err)
	}
	for _, u := range removed {
		a.removeObject(ctx, u.FileURL)
	}
	a.publish(ctx, events.Event{Type: events.JobDeleted, EntityID: id, ActorID: actor.ID})
	return nil
}
