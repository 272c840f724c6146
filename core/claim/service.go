package claim

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tulongph/tulong/core"
	"github.com/tulongph/tulong/core/audit"
	"github.com/tulongph/tulong/core/family"
	"github.com/tulongph/tulong/core/schedule"
	"github.com/tulongph/tulong/core/user"
)

var (
	// errors
	ErrNotFound       = errors.New("claim not found")
	ErrAlreadyClaimed = errors.New("this family has already claimed this schedule")
	ErrNotClaimable   = errors.New("schedule is not open for claims")
	ErrWrongBarangay  = errors.New("schedule belongs to a different barangay")
)

type (
	Repository interface {
		// CreateClaim maps the (family_id, schedule_id) unique-constraint
		// violation to ErrAlreadyClaimed; the constraint is the last line of
		// defense against concurrent double-claims.
		CreateClaim(ctx context.Context, c Claim, exec ...core.DBExecutor) (Claim, error)
		ClaimExists(ctx context.Context, familyID, scheduleID string, exec ...core.DBExecutor) (bool, error)
		QueryClaims(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Claim, error)
		GetClaim(ctx context.Context, id string, exec ...core.DBExecutor) (Claim, error)
	}

	UserGetter interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	FamilyGetter interface {
		GetByHead(ctx context.Context, headID string) (family.Family, error)
	}

	ScheduleGetter interface {
		GetByID(ctx context.Context, id string) (schedule.Schedule, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, actor user.User, nc NewClaim) (Claim, error)
		Query(ctx context.Context, filter *QueryFilter) ([]Claim, error)
		GetByID(ctx context.Context, id string) (Claim, error)
	}

	Service struct {
		db        core.DB
		repo      Repository
		users     UserGetter
		families  FamilyGetter
		schedules ScheduleGetter
		audit     audit.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	db core.DB,
	repo Repository,
	users UserGetter,
	families FamilyGetter,
	schedules ScheduleGetter,
	auditLog audit.Logger,
) *Service {
	return &Service{
		db:        db,
		repo:      repo,
		users:     users,
		families:  families,
		schedules: schedules,
		audit:     auditLog,
	}
}

// Create records a claim for the acting resident's family, or, when a barangay
// official acts on a resident's behalf, for that resident's family. The claim
// row and its audit entry are written in one transaction.
func (svc *Service) Create(ctx context.Context, actor user.User, nc NewClaim) (Claim, error) {
	residentID, verifiedBy, err := svc.resolveResident(ctx, actor, nc)
	if err != nil {
		return Claim{}, err
	}

	fam, err := svc.families.GetByHead(ctx, residentID)
	if err != nil {
		return Claim{}, errors.Wrap(err, "resolving resident family")
	}

	sch, err := svc.schedules.GetByID(ctx, nc.ScheduleID)
	if err != nil {
		return Claim{}, err
	}
	if sch.Status != schedule.StatusScheduled {
		return Claim{}, core.NewValidationError(ErrNotClaimable)
	}
	if sch.BarangayID != fam.BarangayID {
		return Claim{}, core.NewValidationError(ErrWrongBarangay)
	}

	// cheap pre-check; the unique constraint still backstops races
	if exists, err := svc.repo.ClaimExists(ctx, fam.ID, sch.ID); err != nil {
		return Claim{}, errors.Wrap(err, "checking existing claim")
	} else if exists {
		return Claim{}, core.NewValidationError(ErrAlreadyClaimed)
	}

	c := Claim{
		ID:         uuid.New().String(),
		ScheduleID: sch.ID,
		FamilyID:   fam.ID,
		ClaimedBy:  residentID,
		VerifiedBy: verifiedBy,
		Status:     StatusClaimed,
		Notes:      nc.Notes,
		ClaimedAt:  time.Now().UTC(),
	}

	err = core.Atomic(ctx, svc.db, func(tx core.DBExecutor) error {
		created, err := svc.repo.CreateClaim(ctx, c, tx)
		if err != nil {
			if errors.Cause(err) == ErrAlreadyClaimed {
				return core.NewValidationError(ErrAlreadyClaimed)
			}
			return errors.Wrap(err, "creating claim")
		}
		c = created
		return svc.audit.Log(ctx, actor.ID, "claim.create", "claim", c.ID, "schedule: "+sch.ID, tx)
	})
	if err != nil {
		return Claim{}, err
	}
	return c, nil
}

func (svc *Service) resolveResident(ctx context.Context, actor user.User, nc NewClaim) (string, null.String, error) {
	switch {
	case actor.IsResident():
		if nc.ResidentID != "" && nc.ResidentID != actor.ID {
			return "", null.String{}, core.NewValidationError(errors.New("residents may only claim for their own family"))
		}
		return actor.ID, null.String{}, nil

	case actor.IsBarangay():
		if nc.ResidentID == "" {
			return "", null.String{}, core.NewValidationError(nil,
				core.FieldError{Field: "resident_id", Error: "this field is required"})
		}
		resident, err := svc.users.GetByID(ctx, nc.ResidentID)
		if err != nil {
			return "", null.String{}, err
		}
		// cross-tenant residents resolve as not-found; do not leak existence
		if !resident.IsResident() || resident.BarangayID != actor.BarangayID {
			return "", null.String{}, user.ErrNotFound
		}
		if !resident.IsActive {
			return "", null.String{}, core.NewValidationError(errors.New("resident account is not active"))
		}
		return resident.ID, null.StringFrom(actor.ID), nil
	}
	return "", null.String{}, core.NewValidationError(errors.New("only residents and barangay officials can record claims"))
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Claim, error) {
	return svc.repo.QueryClaims(ctx, filter)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Claim, error) {
	return svc.repo.GetClaim(ctx, id)
}
