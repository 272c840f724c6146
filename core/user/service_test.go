package user

import (
	"context"
	"testing"
	"time"

	"github.com/tulongph/tulong/core"
)

type fakeRepo struct {
	users map[string]User // by ID
}

var _ Repository = (*fakeRepo)(nil)

func (r *fakeRepo) CheckUsernameUniqueness(_ context.Context, uname, email string, excl []User, _ ...core.DBExecutor) error {
	skip := func(u User) bool {
		for _, e := range excl {
			if e.ID == u.ID {
				return true
			}
		}
		return false
	}
	for _, u := range r.users {
		if skip(u) {
			continue
		}
		if u.Username == uname {
			return ErrUsernameExists
		}
		if email != "" && u.Email.String == email {
			return ErrEmailExists
		}
	}
	return nil
}

func (r *fakeRepo) CreateUser(_ context.Context, usr User, _ ...core.DBExecutor) (User, error) {
	r.users[usr.ID] = usr
	return usr, nil
}

func (r *fakeRepo) QueryUsers(_ context.Context, _ *QueryFilter, _ []core.DBOrdering, _ ...core.DBExecutor) ([]User, error) {
	usrs := make([]User, 0, len(r.users))
	for _, u := range r.users {
		usrs = append(usrs, u)
	}
	return usrs, nil
}

func (r *fakeRepo) GetUser(_ context.Context, filter GetFilter, _ ...core.DBExecutor) (User, error) {
	for _, u := range r.users {
		switch {
		case filter.ID != "" && u.ID == filter.ID:
			return u, nil
		case filter.Username != "" && u.Username == filter.Username:
			return u, nil
		case filter.Email != "" && u.Email.String == filter.Email:
			return u, nil
		case filter.UsernameOrEmail != "" && (u.Username == filter.UsernameOrEmail || u.Email.String == filter.UsernameOrEmail):
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *fakeRepo) UpdateUser(_ context.Context, usr User, isActive *bool, _ ...core.DBExecutor) (User, error) {
	stored, ok := r.users[usr.ID]
	if !ok {
		return User{}, ErrNotFound
	}
	if isActive != nil {
		stored.IsActive = *isActive
	}
	stored.UpdatedAt = time.Now().UTC()
	r.users[usr.ID] = stored
	return stored, nil
}

func (r *fakeRepo) SetLastLogin(_ context.Context, id string, t time.Time, _ ...core.DBExecutor) error {
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLogin.SetValid(t)
	r.users[id] = u
	return nil
}

func (r *fakeRepo) PurgeUserData(_ context.Context, userID string, _ ...core.DBExecutor) error {
	delete(r.users, userID)
	return nil
}

type auditEntry struct {
	actorID, action, entityID string
}

type fakeAudit struct{ entries []auditEntry }

func (a *fakeAudit) Log(_ context.Context, actorID, action, _, entityID, _ string, _ ...core.DBExecutor) error {
	a.entries = append(a.entries, auditEntry{actorID, action, entityID})
	return nil
}

type fakeMailSvc struct{ sent int }

func (s *fakeMailSvc) SendMessages(messages ...*core.EmailMessage) { s.sent += len(messages) }

type fakeSMSSvc struct{ sent []core.SMSMessage }

func (s *fakeSMSSvc) Send(_ context.Context, msg core.SMSMessage) (core.SMSResult, error) {
	s.sent = append(s.sent, msg)
	return core.SMSResult{MessageID: "msg-1"}, nil
}

func (s *fakeSMSSvc) DeliveryStatus(context.Context, string) (string, error) {
	return "DELIVERED", nil
}

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func TestService_Approve(t *testing.T) {
	repo := &fakeRepo{users: make(map[string]User)}
	auditLog := &fakeAudit{}
	smsSvc := &fakeSMSSvc{}
	svc := NewService(nil, repo, nil, auditLog, &fakeMailSvc{}, smsSvc, nopLogger{}, &core.Config{AppName: "Tulong"})
	ctx := context.Background()

	pending := User{ID: "u1", Name: "Juan Dela Cruz", Username: "juandc1", Role: RoleResident}
	pending.Phone.SetValid("09171234567")
	activeResident := User{ID: "u2", Name: "Maria Clara", Username: "mclara1", Role: RoleResident, IsActive: true}
	official := User{ID: "u3", Name: "Cap Tan", Username: "captan1", Role: RoleBarangay} // deactivated by an admin
	for _, u := range []User{pending, activeResident, official} {
		repo.users[u.ID] = u
	}

	usr, err := svc.Approve(ctx, "u1", "admin-1")
	if err != nil {
		t.Fatalf("Approve() failed, %v", err)
	}
	if !usr.IsActive {
		t.Error("Approve() left the account inactive")
	}
	if len(auditLog.entries) != 1 || auditLog.entries[0].action != "user.approve" {
		t.Errorf("audit entries = %+v, want one user.approve", auditLog.entries)
	}
	if len(smsSvc.sent) != 1 {
		t.Errorf("SMS batches = %d, want 1", len(smsSvc.sent))
	}

	if _, err = svc.Approve(ctx, "u2", "admin-1"); err == nil {
		t.Error("Approve() re-approved an active account")
	} else if _, ok := err.(*core.ValidationError); !ok {
		t.Errorf("Approve() error = %v, want ValidationError", err)
	}

	// a deactivated official is not a pending registration
	if _, err = svc.Approve(ctx, "u3", "admin-1"); err == nil {
		t.Error("Approve() reactivated a deactivated official")
	} else if _, ok := err.(*core.ValidationError); !ok {
		t.Errorf("Approve() error = %v, want ValidationError", err)
	}
	if repo.users["u3"].IsActive {
		t.Error("Approve() activated the official")
	}
}
