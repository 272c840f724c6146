package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tulongph/tulong/core"
	"github.com/tulongph/tulong/core/audit"
)

var (
	// errors
	ErrNotFound = errors.New("schedule not found")
)

type (
	Repository interface {
		CreateSchedule(ctx context.Context, sch Schedule, exec ...core.DBExecutor) (Schedule, error)
		QuerySchedules(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Schedule, error)
		GetSchedule(ctx context.Context, id string, exec ...core.DBExecutor) (Schedule, error)
		UpdateSchedule(ctx context.Context, sch Schedule, exec ...core.DBExecutor) (Schedule, error)
		SetStatus(ctx context.Context, id string, status Status, exec ...core.DBExecutor) error
		// MarkPastDistributed flips the barangay's SCHEDULED schedules dated
		// strictly before today to DISTRIBUTED and returns the affected count.
		MarkPastDistributed(ctx context.Context, barangayID, today string, exec ...core.DBExecutor) (int, error)
	}

	// Notifier fans a schedule event out to eligible residents. Implementations
	// swallow delivery failures; callers never fail on notification errors.
	Notifier interface {
		ScheduleCreated(ctx context.Context, sch Schedule)
		ScheduleReminder(ctx context.Context, sch Schedule)
	}

	ServiceInterface interface {
		Create(ctx context.Context, barangayID, actorID string, ns NewSchedule) (Schedule, error)
		ListByBarangay(ctx context.Context, barangayID string, ordering []core.DBOrdering) ([]Schedule, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Schedule, error)
		GetByID(ctx context.Context, id string) (Schedule, error)
		Update(ctx context.Context, id string, us UpdateSchedule) (Schedule, error)
		Cancel(ctx context.Context, id, actorID string) error
		Remind(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		notifier Notifier
		audit    audit.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, notifier Notifier, auditLog audit.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, audit: auditLog}
}

// Create inserts the schedule and announces it to the barangay's eligible
// residents. Notification failures never fail the creation.
func (svc *Service) Create(ctx context.Context, barangayID, actorID string, ns NewSchedule) (Schedule, error) {
	now := time.Now().UTC()
	sch := Schedule{
		ID:                   uuid.New().String(),
		BarangayID:           barangayID,
		Title:                ns.Title,
		Description:          ns.Description,
		Date:                 ns.Date,
		StartTime:            ns.StartTime,
		EndTime:              ns.EndTime,
		Location:             ns.Location,
		Capacity:             null.IntFromPtr(nil),
		TargetClassification: null.NewString(ns.TargetClassification, ns.TargetClassification != ""),
		Status:               StatusScheduled,
		CreatedBy:            actorID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if ns.Capacity != nil {
		sch.Capacity = null.IntFrom(int(*ns.Capacity))
	}

	sch, err := svc.repo.CreateSchedule(ctx, sch)
	if err != nil {
		return Schedule{}, err
	}
	if err = svc.audit.Log(ctx, actorID, "schedule.create", "schedule", sch.ID, sch.Title); err != nil {
		return Schedule{}, errors.Wrap(err, "logging schedule creation")
	}

	svc.notifier.ScheduleCreated(ctx, sch)
	return sch, nil
}

// ListByBarangay returns the barangay's schedules, first flipping any past
// SCHEDULED rows to DISTRIBUTED. The bulk update is idempotent; the audit
// entry is only written when at least one schedule transitioned.
func (svc *Service) ListByBarangay(ctx context.Context, barangayID string, ordering []core.DBOrdering) ([]Schedule, error) {
	n, err := svc.repo.MarkPastDistributed(ctx, barangayID, core.Today())
	if err != nil {
		return nil, errors.Wrap(err, "marking past schedules distributed")
	}
	if n > 0 {
		details := fmt.Sprintf("%d schedule(s) auto-marked distributed", n)
		if err = svc.audit.Log(ctx, audit.ActorSystem, "schedule.distribute", "schedule", "", details); err != nil {
			return nil, errors.Wrap(err, "logging auto-transition")
		}
	}
	return svc.repo.QuerySchedules(ctx, &QueryFilter{BarangayID: barangayID}, ordering)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Schedule, error) {
	return svc.repo.QuerySchedules(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Schedule, error) {
	return svc.repo.GetSchedule(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateSchedule) (Schedule, error) {
	sch := Schedule{
		ID:                   id,
		Title:                us.Title,
		Description:          us.Description,
		Date:                 us.Date,
		StartTime:            us.StartTime,
		EndTime:              us.EndTime,
		Location:             us.Location,
		TargetClassification: null.NewString(us.TargetClassification, us.TargetClassification != ""),
		UpdatedAt:            time.Now().UTC(),
	}
	if us.Capacity != nil {
		sch.Capacity = null.IntFrom(int(*us.Capacity))
	}
	return svc.repo.UpdateSchedule(ctx, sch)
}

func (svc *Service) Cancel(ctx context.Context, id, actorID string) error {
	sch, err := svc.repo.GetSchedule(ctx, id)
	if err != nil {
		return err
	}
	if sch.Status != StatusScheduled {
		return core.NewValidationError(errors.New("only scheduled distributions can be cancelled"))
	}
	if err = svc.repo.SetStatus(ctx, id, StatusCancelled); err != nil {
		return errors.Wrap(err, "cancelling schedule")
	}
	return svc.audit.Log(ctx, actorID, "schedule.cancel", "schedule", id, sch.Title)
}

// Remind re-announces an upcoming schedule, skipping families that already claimed.
func (svc *Service) Remind(ctx context.Context, id string) error {
	sch, err := svc.repo.GetSchedule(ctx, id)
	if err != nil {
		return err
	}
	if sch.Status != StatusScheduled {
		return core.NewValidationError(errors.New("only scheduled distributions can send reminders"))
	}
	svc.notifier.ScheduleReminder(ctx, sch)
	return nil
}
