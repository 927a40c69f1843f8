package app

import (
	"context"
	"testing"

	"patorama/pkg/domain"
	"patorama/pkg/events"
)

func TestCreateJobValidatesInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	valid := JobInput{CustomerID: env.customer.ID, Address: "1 Road", Date: "2024-06-01", Time: "09:30"}

	cases := map[string]func(in *JobInput){
		"missing customer": func(in *JobInput) { in.CustomerID = 0 },
		"blank address":    func(in *JobInput) { in.Address = "  " },
		"bad date":         func(in *JobInput) { in.Date = "2024-13-01" },
		"bad time":         func(in *JobInput) { in.Time = "24:00" },
		"negative price": func(in *JobInput) {
			in.Products = []JobLineInput{{ProductID: env.product.ID, Price: -1}}
		},
		"zero product": func(in *JobInput) {
			in.Products = []JobLineInput{{ProductID: 0, Price: 1}}
		},
	}
	for name, mutate := range cases {
		in := valid
		mutate(&in)
		_, err := env.app.CreateJob(ctx, env.admin, in)
		if err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
		wantKind(t, err, ErrValidation, "")
	}

	_, err := env.app.CreateJob(ctx, env.creator, valid)
	wantKind(t, err, ErrForbidden, "")

	job, err := env.app.CreateJob(ctx, env.manager, valid)
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if job.Status != domain.JobScheduled || job.CreatedByUserID != env.manager.ID {
		t.Fatalf("unexpected job: %+v", job)
	}
}

func TestCreateJobIsAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.app.CreateJob(ctx, env.admin, JobInput{
		CustomerID:        env.customer.ID,
		Address:           "1 Road",
		Date:              "2024-06-01",
		Time:              "09:30",
		AssignedCreatorID: &env.creator.ID,
		Products: []JobLineInput{
			{ProductID: env.product.ID, Price: 250},
			{ProductID: env.product.ID, Price: 100},
			{ProductID: 9999, Price: 10},
		},
	})
	wantKind(t, err, ErrInternal, "Failed to create job")

	page, err := env.app.ListJobs(ctx, env.admin, JobQuery{})
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(page.Jobs) != 0 || page.Pagination.Total != 0 {
		t.Fatalf("expected no jobs, got %+v", page)
	}
	notes, err := env.app.ListNotifications(ctx, env.creator)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(notes) != 0 {
		t.Fatalf("expected no notifications, got %d", len(notes))
	}
	if got := env.events.types(); len(got) != 0 {
		t.Fatalf("expected no events, got %v", got)
	}
}

func TestCreateJobNotifiesAssignedCreator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.job(t, &env.creator.ID, nil)

	notes, err := env.app.ListNotifications(ctx, env.creator)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(notes) != 1 || notes[0].Type != domain.NotifyAssignment || notes[0].Message != "You have been assigned to a new job" {
		t.Fatalf("unexpected notifications: %+v", notes)
	}
	if notes[0].JobID == nil || *notes[0].JobID != job.ID {
		t.Fatalf("notification job id = %v, want %d", notes[0].JobID, job.ID)
	}
	if got := env.events.types(); len(got) != 1 || got[0] != events.JobCreated {
		t.Fatalf("events = %v", got)
	}
}

func TestListJobsScopesByRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mine := env.job(t, &env.creator.ID, nil)
	edited := env.job(t, nil, &env.editor.ID)
	env.job(t, nil, nil)

	page, err := env.app.ListJobs(ctx, env.creator, JobQuery{})
	if err != nil {
		t.Fatalf("creator list: %v", err)
	}
	if len(page.Jobs) != 1 || page.Jobs[0].ID != mine.ID || page.Pagination.Total != 1 {
		t.Fatalf("creator sees %+v", page)
	}

	page, err = env.app.ListJobs(ctx, env.editor, JobQuery{})
	if err != nil {
		t.Fatalf("editor list: %v", err)
	}
	if len(page.Jobs) != 1 || page.Jobs[0].ID != edited.ID {
		t.Fatalf("editor sees %+v", page)
	}

	page, err = env.app.ListJobs(ctx, env.manager, JobQuery{Limit: 2})
	if err != nil {
		t.Fatalf("manager list: %v", err)
	}
	if len(page.Jobs) != 2 || page.Pagination.Total != 3 || page.Pagination.Pages != 2 {
		t.Fatalf("manager page = %+v", page.Pagination)
	}

	_, err = env.app.ListJobs(ctx, env.manager, JobQuery{DateFrom: "yesterday"})
	wantKind(t, err, ErrValidation, "")
}

func TestGetJobAppliesOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.job(t, &env.creator.ID, nil)

	detail, err := env.app.GetJob(ctx, env.creator, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if len(detail.Products) != 1 || detail.Products[0].Title != "Photography" {
		t.Fatalf("unexpected products: %+v", detail.Products)
	}
	if detail.AgencyName != "Acme Realty" || detail.CreatedByName != "Admin" {
		t.Fatalf("unexpected names: %+v", detail.JobSummary)
	}

	_, err = env.app.GetJob(ctx, env.editor, job.ID)
	wantKind(t, err, ErrForbidden, "Access denied")
	_, err = env.app.GetJob(ctx, env.admin, 9999)
	wantKind(t, err, ErrNotFound, "Job not found")
}

func TestUpdateJobPatchAndNotifications(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.job(t, nil, nil)

	_, err := env.app.UpdateJob(ctx, env.admin, job.ID, domain.JobPatch{})
	wantKind(t, err, ErrValidation, "No valid fields to update")

	bad := "25:00"
	_, err = env.app.UpdateJob(ctx, env.admin, job.ID, domain.JobPatch{Time: &bad})
	wantKind(t, err, ErrValidation, "")

	status := domain.JobInProgress
	_, err = env.app.UpdateJob(ctx, env.editor, job.ID, domain.JobPatch{Status: &status})
	wantKind(t, err, ErrForbidden, "")

	updated, err := env.app.UpdateJob(ctx, env.manager, job.ID, domain.JobPatch{
		Status:            &status,
		AssignedCreatorID: domain.SomeID(env.creator.ID),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != domain.JobInProgress || updated.AssignedCreatorID == nil {
		t.Fatalf("unexpected job: %+v", updated)
	}
	notes, err := env.app.ListNotifications(ctx, env.creator)
	if err != nil {
		t.Fatalf("notifications: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("got %d notifications, want 2", len(notes))
	}
	messages := map[string]bool{}
	for _, n := range notes {
		messages[n.Message] = true
	}
	if !messages["Job status updated to in_progress"] || !messages["You have been assigned to a job"] {
		t.Fatalf("unexpected messages: %v", messages)
	}

	// Re-sending the same assignee does not notify again.
	_, err = env.app.UpdateJob(ctx, env.manager, job.ID, domain.JobPatch{AssignedCreatorID: domain.SomeID(env.creator.ID)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	notes, _ = env.app.ListNotifications(ctx, env.creator)
	if len(notes) != 2 {
		t.Fatalf("got %d notifications after no-op reassignment, want 2", len(notes))
	}

	_, err = env.app.UpdateJob(ctx, env.manager, 9999, domain.JobPatch{Status: &status})
	wantKind(t, err, ErrNotFound, "Job not found")
}

func TestDeleteJobBlockedByInvoice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.job(t, nil, nil)

	err := env.app.DeleteJob(ctx, env.manager, job.ID)
	wantKind(t, err, ErrForbidden, "")

	if _, err := env.app.CreateInvoice(ctx, env.manager, job.ID); err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	err = env.app.DeleteJob(ctx, env.admin, job.ID)
	wantKind(t, err, ErrConflict, "")

	other := env.job(t, nil, nil)
	if err := env.app.DeleteJob(ctx, env.admin, other.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	err = env.app.DeleteJob(ctx, env.admin, other.ID)
	wantKind(t, err, ErrNotFound, "Job not found")
}

func TestJobTimesAreZeroPaddedSoListOrderFollowsTheClock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	base := JobInput{CustomerID: env.customer.ID, Address: "1 Road", Date: "2024-06-01"}

	late := base
	late.Time = "23:00"
	if _, err := env.app.CreateJob(ctx, env.admin, late); err != nil {
		t.Fatalf("create late job: %v", err)
	}
	early := base
	early.Time = "9:30"
	created, err := env.app.CreateJob(ctx, env.admin, early)
	if err != nil {
		t.Fatalf("create early job: %v", err)
	}
	if created.Time != "09:30" {
		t.Fatalf("stored time = %q, want 09:30", created.Time)
	}

	page, err := env.app.ListJobs(ctx, env.admin, JobQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Jobs) != 2 || page.Jobs[0].Time != "23:00" || page.Jobs[1].Time != "09:30" {
		t.Fatalf("order = %+v", page.Jobs)
	}

	short := "7:05"
	updated, err := env.app.UpdateJob(ctx, env.admin, created.ID, domain.JobPatch{Time: &short})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Time != "07:05" {
		t.Fatalf("patched time = %q, want 07:05", updated.Time)
	}
}

func TestListJobsHugePageIsEmpty(t *testing.T) {
	env := newTestEnv(t)
	env.job(t, nil, nil)

	page, err := env.app.ListJobs(context.Background(), env.admin, JobQuery{Page: 1 << 62, Limit: 20})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Jobs) != 0 || page.Pagination.Total != 1 {
		t.Fatalf("huge page returned %d jobs, total %d", len(page.Jobs), page.Pagination.Total)
	}
}
