package barangay

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tulongph/tulong/core"
	"github.com/tulongph/tulong/core/audit"
	"github.com/tulongph/tulong/core/user"
)

var (
	// errors
	ErrNotFound   = errors.New("barangay not found")
	ErrCodeExists = errors.New("a barangay with this code already exists")
)

type (
	Repository interface {
		CheckCodeUniqueness(ctx context.Context, code string, excluded []Barangay, exec ...core.DBExecutor) error
		CreateBarangay(ctx context.Context, brgy Barangay, exec ...core.DBExecutor) (Barangay, error)
		QueryBarangays(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Barangay, error)
		GetBarangay(ctx context.Context, id string, exec ...core.DBExecutor) (Barangay, error)
		UpdateBarangay(ctx context.Context, brgy Barangay, isActive *bool, exec ...core.DBExecutor) (Barangay, error)
		// AssignManager points barangay.manager_id at the user and the user's
		// barangay_id back at the barangay, displacing any previous manager
		// reference. Both rows change; callers run it inside a transaction.
		AssignManager(ctx context.Context, barangayID, userID string, exec ...core.DBExecutor) error
	}

	// UserGetter resolves the user being assigned as manager.
	UserGetter interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, nb NewBarangay, actorID string) (Barangay, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Barangay, error)
		GetByID(ctx context.Context, id string) (Barangay, error)
		Update(ctx context.Context, id string, ub UpdateBarangay) (Barangay, error)
		Deactivate(ctx context.Context, id, actorID string) error
		AssignManager(ctx context.Context, barangayID, userID, actorID string) error
		CheckCodeUniqueness(code string, excluded ...Barangay) error
	}

	Service struct {
		db    core.DB
		repo  Repository
		users UserGetter
		audit audit.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(db core.DB, repo Repository, users UserGetter, auditLog audit.Logger) *Service {
	return &Service{db: db, repo: repo, users: users, audit: auditLog}
}

func (svc *Service) CheckCodeUniqueness(code string, excluded ...Barangay) error {
	if err := svc.repo.CheckCodeUniqueness(context.Background(), code, excluded); err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: ErrCodeExists.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nb NewBarangay, actorID string) (Barangay, error) {
	now := time.Now().UTC()
	brgy, err := svc.repo.CreateBarangay(ctx, Barangay{
		ID:        uuid.New().String(),
		Name:      nb.Name,
		Code:      nb.Code,
		Address:   nb.Address,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Barangay{}, err
	}
	if err = svc.audit.Log(ctx, actorID, "barangay.create", "barangay", brgy.ID, brgy.Name); err != nil {
		return Barangay{}, errors.Wrap(err, "logging barangay creation")
	}
	return brgy, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Barangay, error) {
	return svc.repo.QueryBarangays(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Barangay, error) {
	return svc.repo.GetBarangay(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, ub UpdateBarangay) (Barangay, error) {
	return svc.repo.UpdateBarangay(ctx, Barangay{
		ID:        id,
		Name:      ub.Name,
		Code:      ub.Code,
		Address:   ub.Address,
		UpdatedAt: time.Now().UTC(),
	}, nil)
}

func (svc *Service) Deactivate(ctx context.Context, id, actorID string) error {
	inactive := false
	if _, err := svc.repo.UpdateBarangay(ctx, Barangay{ID: id, UpdatedAt: time.Now().UTC()}, &inactive); err != nil {
		return err
	}
	return svc.audit.Log(ctx, actorID, "barangay.deactivate", "barangay", id, "")
}

// AssignManager makes the given BARANGAY-role user the barangay's exclusive manager.
func (svc *Service) AssignManager(ctx context.Context, barangayID, userID, actorID string) error {
	if _, err := svc.repo.GetBarangay(ctx, barangayID); err != nil {
		return err
	}
	usr, err := svc.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !usr.IsBarangay() {
		return core.NewValidationError(errors.New("manager must have the BARANGAY role"),
			core.FieldError{Field: "user_id", Error: "manager must have the BARANGAY role"})
	}

	return core.Atomic(ctx, svc.db, func(tx core.DBExecutor) error {
		if err := svc.repo.AssignManager(ctx, barangayID, userID, tx); err != nil {
			return errors.Wrap(err, "assigning manager")
		}
		return svc.audit.Log(ctx, actorID, "barangay.assign_manager", "barangay", barangayID, "manager: "+userID, tx)
	})
}
