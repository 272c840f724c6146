package schedule

import (
	"context"
	"testing"

	"github.com/tulongph/tulong/core"
	"github.com/tulongph/tulong/core/audit"
)

type fakeRepo struct {
	schedules map[string]Schedule
	markedN   int
	statuses  map[string]Status
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{schedules: make(map[string]Schedule), statuses: make(map[string]Status)}
}

func (r *fakeRepo) CreateSchedule(_ context.Context, sch Schedule, _ ...core.DBExecutor) (Schedule, error) {
	r.schedules[sch.ID] = sch
	return sch, nil
}

func (r *fakeRepo) QuerySchedules(_ context.Context, filter *QueryFilter, _ []core.DBOrdering, _ ...core.DBExecutor) ([]Schedule, error) {
	schs := make([]Schedule, 0, len(r.schedules))
	for _, sch := range r.schedules {
		if filter.BarangayID != "" && sch.BarangayID != filter.BarangayID {
			continue
		}
		schs = append(schs, sch)
	}
	return schs, nil
}

func (r *fakeRepo) GetSchedule(_ context.Context, id string, _ ...core.DBExecutor) (Schedule, error) {
	sch, ok := r.schedules[id]
	if !ok {
		return Schedule{}, ErrNotFound
	}
	return sch, nil
}

func (r *fakeRepo) UpdateSchedule(_ context.Context, sch Schedule, _ ...core.DBExecutor) (Schedule, error) {
	stored, ok := r.schedules[sch.ID]
	if !ok {
		return Schedule{}, ErrNotFound
	}
	sch.BarangayID = stored.BarangayID
	sch.Status = stored.Status
	r.schedules[sch.ID] = sch
	return sch, nil
}

func (r *fakeRepo) SetStatus(_ context.Context, id string, status Status, _ ...core.DBExecutor) error {
	sch, ok := r.schedules[id]
	if !ok {
		return ErrNotFound
	}
	sch.Status = status
	r.schedules[id] = sch
	r.statuses[id] = status
	return nil
}

func (r *fakeRepo) MarkPastDistributed(_ context.Context, barangayID, today string, _ ...core.DBExecutor) (int, error) {
	n := 0
	for id, sch := range r.schedules {
		if sch.BarangayID == barangayID && sch.Status == StatusScheduled && sch.Date < today {
			sch.Status = StatusDistributed
			r.schedules[id] = sch
			n++
		}
	}
	r.markedN = n
	return n, nil
}

type fakeNotifier struct {
	created  []Schedule
	reminded []Schedule
}

func (n *fakeNotifier) ScheduleCreated(_ context.Context, sch Schedule)  { n.created = append(n.created, sch) }
func (n *fakeNotifier) ScheduleReminder(_ context.Context, sch Schedule) { n.reminded = append(n.reminded, sch) }

type auditEntry struct {
	actorID, action, entityID, details string
}

type fakeAudit struct {
	entries []auditEntry
}

func (a *fakeAudit) Log(_ context.Context, actorID, action, _, entityID, details string, _ ...core.DBExecutor) error {
	a.entries = append(a.entries, auditEntry{actorID, action, entityID, details})
	return nil
}

func setup() (*Service, *fakeRepo, *fakeNotifier, *fakeAudit) {
	repo := newFakeRepo()
	notifier := &fakeNotifier{}
	auditLog := &fakeAudit{}
	return NewService(repo, notifier, auditLog), repo, notifier, auditLog
}

func TestService_Create(t *testing.T) {
	svc, repo, notifier, auditLog := setup()

	capacity := int64(50)
	sch, err := svc.Create(context.Background(), "b1", "official-1", NewSchedule{
		Title:                "Rice distribution",
		Description:          "5kg per family",
		Date:                 "2030-01-15",
		StartTime:            "08:00",
		EndTime:              "12:00",
		Location:             "Barangay hall",
		Capacity:             &capacity,
		TargetClassification: "LOW",
	})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}
	if sch.Status != StatusScheduled {
		t.Errorf("Create() status = %s, want %s", sch.Status, StatusScheduled)
	}
	if sch.BarangayID != "b1" || sch.CreatedBy != "official-1" {
		t.Errorf("Create() scoping = (%s, %s), want (b1, official-1)", sch.BarangayID, sch.CreatedBy)
	}
	if !sch.Capacity.Valid || sch.Capacity.Int != 50 {
		t.Errorf("Create() capacity = %v, want 50", sch.Capacity)
	}
	if _, ok := repo.schedules[sch.ID]; !ok {
		t.Error("Create() did not persist the schedule")
	}
	if len(notifier.created) != 1 {
		t.Fatalf("Create() sent %d announcements, want 1", len(notifier.created))
	}
	if len(auditLog.entries) != 1 || auditLog.entries[0].action != "schedule.create" {
		t.Errorf("Create() audit entries = %+v, want one schedule.create", auditLog.entries)
	}
}

func TestService_ListByBarangay_autoDistributes(t *testing.T) {
	svc, repo, _, auditLog := setup()

	repo.schedules["s1"] = Schedule{ID: "s1", BarangayID: "b1", Date: "2001-01-01", Status: StatusScheduled}
	repo.schedules["s2"] = Schedule{ID: "s2", BarangayID: "b1", Date: "2999-01-01", Status: StatusScheduled}
	repo.schedules["s3"] = Schedule{ID: "s3", BarangayID: "b2", Date: "2001-01-01", Status: StatusScheduled}

	schs, err := svc.ListByBarangay(context.Background(), "b1", nil)
	if err != nil {
		t.Fatalf("ListByBarangay() failed, %v", err)
	}
	if len(schs) != 2 {
		t.Errorf("ListByBarangay() returned %d schedules, want 2", len(schs))
	}
	if got := repo.schedules["s1"].Status; got != StatusDistributed {
		t.Errorf("past schedule status = %s, want %s", got, StatusDistributed)
	}
	if got := repo.schedules["s2"].Status; got != StatusScheduled {
		t.Errorf("future schedule status = %s, want %s", got, StatusScheduled)
	}
	if got := repo.schedules["s3"].Status; got != StatusScheduled {
		t.Errorf("other barangay schedule status = %s, want %s", got, StatusScheduled)
	}
	if len(auditLog.entries) != 1 || auditLog.entries[0].actorID != audit.ActorSystem {
		t.Errorf("auto-transition audit entries = %+v, want one system entry", auditLog.entries)
	}

	// idempotent: nothing left to flip, no new audit entry
	if _, err = svc.ListByBarangay(context.Background(), "b1", nil); err != nil {
		t.Fatalf("ListByBarangay() failed, %v", err)
	}
	if len(auditLog.entries) != 1 {
		t.Errorf("second list added audit entries: %+v", auditLog.entries)
	}
}

func TestService_Cancel(t *testing.T) {
	svc, repo, _, auditLog := setup()

	repo.schedules["s1"] = Schedule{ID: "s1", BarangayID: "b1", Title: "Rice", Status: StatusScheduled}
	repo.schedules["s2"] = Schedule{ID: "s2", BarangayID: "b1", Status: StatusDistributed}

	if err := svc.Cancel(context.Background(), "s1", "official-1"); err != nil {
		t.Fatalf("Cancel() failed, %v", err)
	}
	if got := repo.schedules["s1"].Status; got != StatusCancelled {
		t.Errorf("Cancel() status = %s, want %s", got, StatusCancelled)
	}
	if len(auditLog.entries) != 1 || auditLog.entries[0].action != "schedule.cancel" {
		t.Errorf("Cancel() audit entries = %+v, want one schedule.cancel", auditLog.entries)
	}

	err := svc.Cancel(context.Background(), "s2", "official-1")
	if _, ok := err.(*core.ValidationError); !ok {
		t.Errorf("Cancel() on distributed schedule error = %v, want ValidationError", err)
	}

	if err := svc.Cancel(context.Background(), "nope", "official-1"); err != ErrNotFound {
		t.Errorf("Cancel() error = %v, want %v", err, ErrNotFound)
	}
}

func TestService_Remind(t *testing.T) {
	svc, repo, notifier, _ := setup()

	repo.schedules["s1"] = Schedule{ID: "s1", BarangayID: "b1", Status: StatusScheduled}
	repo.schedules["s2"] = Schedule{ID: "s2", BarangayID: "b1", Status: StatusCancelled}

	if err := svc.Remind(context.Background(), "s1"); err != nil {
		t.Fatalf("Remind() failed, %v", err)
	}
	if len(notifier.reminded) != 1 || notifier.reminded[0].ID != "s1" {
		t.Errorf("Remind() reminders = %+v, want one for s1", notifier.reminded)
	}

	err := svc.Remind(context.Background(), "s2")
	if _, ok := err.(*core.ValidationError); !ok {
		t.Errorf("Remind() on cancelled schedule error = %v, want ValidationError", err)
	}
}
