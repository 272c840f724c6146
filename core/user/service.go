package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tulongph/tulong/core"
	"github.com/tulongph/tulong/core/audit"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
	ErrNotPending     = errors.New("registration is not pending")
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []User, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		UpdateUser(ctx context.Context, usr User, isActive *bool, exec ...core.DBExecutor) (User, error)
		SetLastLogin(ctx context.Context, id string, t time.Time, exec ...core.DBExecutor) error
		// PurgeUserData hard-deletes every row dependent on the user and the user
		// row itself. The delete order follows foreign-key dependencies and must
		// not change: family members, claims by family, claims by user,
		// notification logs, families, audit logs by user, user.
		PurgeUserData(ctx context.Context, userID string, exec ...core.DBExecutor) error
	}

	// FamilyCreator creates the Family owned by a newly registered resident.
	FamilyCreator interface {
		CreateForHead(ctx context.Context, headID, barangayID, classification string, exec ...core.DBExecutor) error
	}

	ServiceInterface interface {
		Register(ctx context.Context, r Register) (User, error)
		Create(ctx context.Context, nu NewUser) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		Update(ctx context.Context, id string, uu UpdateUser) (User, error)
		Deactivate(ctx context.Context, id, actorID string) error
		Approve(ctx context.Context, id, actorID string) (User, error)
		Reject(ctx context.Context, id, actorID string) error
		SetLastLogin(ctx context.Context, usr User) (User, error)
		CheckUniqueness(uname, email string, exclUsers ...User) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetUserPassword) error
	}

	Service struct {
		db       core.DB
		repo     Repository
		families FamilyCreator
		audit    audit.Logger
		mailSvc  core.EmailService
		smsSvc   core.SMSService
		logger   core.Logger
		conf     *core.Config
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	db core.DB,
	repo Repository,
	families FamilyCreator,
	auditLog audit.Logger,
	mailSvc core.EmailService,
	smsSvc core.SMSService,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		families: families,
		audit:    auditLog,
		mailSvc:  mailSvc,
		smsSvc:   smsSvc,
		logger:   logger,
		conf:     conf,
	}
}

func (svc *Service) CheckUniqueness(uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(context.Background(), uname, email, exclUsers); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: errors.Cause(err).Error()})
	}
	return nil
}

// Register creates a pending (inactive) resident account and its Family in one
// transaction. The account stays inactive until approved by an admin.
func (svc *Service) Register(ctx context.Context, r Register) (User, error) {
	now := time.Now().UTC()
	usr := User{
		ID:         uuid.New().String(),
		Name:       r.Name,
		Username:   r.Username,
		Email:      null.NewString(r.Email, r.Email != ""),
		Phone:      null.StringFrom(r.Phone),
		Role:       RoleResident,
		BarangayID: null.StringFrom(r.BarangayID),
		IsActive:   false,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := usr.SetPassword(r.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}

	classification := r.Classification
	if classification == "" {
		classification = "UNCLASSIFIED"
	}

	err := core.Atomic(ctx, svc.db, func(tx core.DBExecutor) error {
		created, err := svc.repo.CreateUser(ctx, usr, tx)
		if err != nil {
			return errors.Wrap(err, "creating user")
		}
		usr = created
		if err = svc.families.CreateForHead(ctx, usr.ID, r.BarangayID, classification, tx); err != nil {
			return errors.Wrap(err, "creating family")
		}
		return svc.audit.Log(ctx, usr.ID, "user.register", "user", usr.ID, "resident registration (pending approval)", tx)
	})
	if err != nil {
		return User{}, err
	}
	return usr, nil
}

// Create is the admin path; accounts are active immediately.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		ID:         uuid.New().String(),
		Name:       nu.Name,
		Username:   nu.Username,
		Email:      null.NewString(nu.Email, nu.Email != ""),
		Phone:      null.NewString(nu.Phone, nu.Phone != ""),
		Role:       nu.Role,
		BarangayID: null.NewString(nu.BarangayID, nu.BarangayID != ""),
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr := User{
		ID:        id,
		Name:      uu.Name,
		Username:  uu.Username,
		Email:     null.NewString(uu.Email, uu.Email != ""),
		Phone:     null.NewString(uu.Phone, uu.Phone != ""),
		UpdatedAt: time.Now().UTC(),
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	return svc.repo.UpdateUser(ctx, usr, uu.IsActive)
}

// Deactivate soft-deletes an account; rows are kept for auditability.
func (svc *Service) Deactivate(ctx context.Context, id, actorID string) error {
	inactive := false
	if _, err := svc.repo.UpdateUser(ctx, User{ID: id, UpdatedAt: time.Now().UTC()}, &inactive); err != nil {
		return err
	}
	return svc.audit.Log(ctx, actorID, "user.deactivate", "user", id, "")
}

// Approve activates a pending resident registration and notifies the resident
// best-effort over SMS and email.
func (svc *Service) Approve(ctx context.Context, id, actorID string) (User, error) {
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id})
	if err != nil {
		return User{}, err
	}
	if usr.IsActive || !usr.IsResident() {
		return User{}, core.NewValidationError(ErrNotPending)
	}

	active := true
	usr, err = svc.repo.UpdateUser(ctx, User{ID: id, UpdatedAt: time.Now().UTC()}, &active)
	if err != nil {
		return User{}, errors.Wrap(err, "activating user")
	}
	if err = svc.audit.Log(ctx, actorID, "user.approve", "user", id, ""); err != nil {
		return User{}, errors.Wrap(err, "logging approval")
	}

	svc.notifyApproval(ctx, usr)
	return usr, nil
}

func (svc *Service) notifyApproval(ctx context.Context, usr User) {
	body := fmt.Sprintf(
		"Good day %s! Your %s registration has been approved. You may now log in and claim scheduled donations.",
		usr.Name, svc.conf.AppName,
	)
	if usr.Phone.Valid {
		if _, err := svc.smsSvc.Send(ctx, core.SMSMessage{Body: body, Recipients: []string{usr.Phone.String}}); err != nil {
			// notification failure never fails the approval
			svc.logger.Error(fmt.Sprintf("sending approval SMS: %v", err), err)
		}
	}
	if usr.Email.Valid {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:      []mail.Address{{Name: usr.Name, Address: usr.Email.String}},
			Subject: "Registration approved",
			Body:    body,
		})
	}
}

// Reject removes a pending registration and every dependent row in a single
// transaction.
func (svc *Service) Reject(ctx context.Context, id, actorID string) error {
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id})
	if err != nil {
		return err
	}
	if usr.IsActive || !usr.IsResident() {
		return core.NewValidationError(ErrNotPending)
	}

	return core.Atomic(ctx, svc.db, func(tx core.DBExecutor) error {
		if err := svc.repo.PurgeUserData(ctx, id, tx); err != nil {
			return errors.Wrap(err, "purging user data")
		}
		return svc.audit.Log(ctx, actorID, "user.reject", "user", id, "registration rejected; account purged", tx)
	})
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	now := time.Now().UTC()
	if err := svc.repo.SetLastLogin(ctx, usr.ID, now); err != nil {
		return User{}, err
	}
	usr.LastLogin = null.TimeFrom(now)
	return usr, nil
}

// RequestPasswordReset emails a timestamped reset token to the account's address.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	token, err := MakeToken(usr, svc.conf)
	if err != nil {
		return errors.Wrap(err, "making reset token")
	}

	url := fmt.Sprintf("%s/password-reset?uid=%s&token=%s", svc.conf.FrontendBaseURL, EncodeUID(usr), token)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email.String}},
		Subject: "Password reset",
		Body: fmt.Sprintf(
			"Good day %s!\n\nFollow the link below to set a new password:\n%s\n\n"+
				"If you did not request a password reset, you can safely ignore this email.",
			usr.Name, url,
		),
	})
	return nil
}

func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	uid, err := decodeUID(data.UID)
	if err != nil {
		return core.NewValidationError(errInvalidToken)
	}
	usr, err := svc.GetByID(ctx, uid)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(errInvalidToken)
		}
		return err
	}
	if err = verifyToken(usr, data.Token, svc.conf); err != nil {
		return core.NewValidationError(err)
	}
	if err = usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	if _, err = svc.repo.UpdateUser(ctx, usr, nil); err != nil {
		return errors.Wrap(err, "updating password")
	}
	return nil
}
