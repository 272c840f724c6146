package claim

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/tulongph/tulong/core"
	"github.com/tulongph/tulong/core/family"
	"github.com/tulongph/tulong/core/schedule"
	"github.com/tulongph/tulong/core/user"
)

type fakeRepo struct {
	claims   map[string]Claim
	existing map[string]bool // familyID+scheduleID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{claims: make(map[string]Claim), existing: make(map[string]bool)}
}

func (r *fakeRepo) CreateClaim(_ context.Context, c Claim, _ ...core.DBExecutor) (Claim, error) {
	if r.existing[c.FamilyID+c.ScheduleID] {
		return Claim{}, ErrAlreadyClaimed
	}
	r.claims[c.ID] = c
	r.existing[c.FamilyID+c.ScheduleID] = true
	return c, nil
}

func (r *fakeRepo) ClaimExists(_ context.Context, familyID, scheduleID string, _ ...core.DBExecutor) (bool, error) {
	return r.existing[familyID+scheduleID], nil
}

func (r *fakeRepo) QueryClaims(_ context.Context, _ *QueryFilter, _ ...core.DBExecutor) ([]Claim, error) {
	cs := make([]Claim, 0, len(r.claims))
	for _, c := range r.claims {
		cs = append(cs, c)
	}
	return cs, nil
}

func (r *fakeRepo) GetClaim(_ context.Context, id string, _ ...core.DBExecutor) (Claim, error) {
	c, ok := r.claims[id]
	if !ok {
		return Claim{}, ErrNotFound
	}
	return c, nil
}

type fakeUsers struct{ users map[string]user.User }

func (f *fakeUsers) GetByID(_ context.Context, id string) (user.User, error) {
	u, ok := f.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

type fakeFamilies struct{ byHead map[string]family.Family }

func (f *fakeFamilies) GetByHead(_ context.Context, headID string) (family.Family, error) {
	fam, ok := f.byHead[headID]
	if !ok {
		return family.Family{}, family.ErrNotFound
	}
	return fam, nil
}

type fakeSchedules struct{ schedules map[string]schedule.Schedule }

func (f *fakeSchedules) GetByID(_ context.Context, id string) (schedule.Schedule, error) {
	sch, ok := f.schedules[id]
	if !ok {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	return sch, nil
}

type nopAudit struct{}

func (nopAudit) Log(_ context.Context, _, _, _, _, _ string, _ ...core.DBExecutor) error {
	return nil
}

const (
	scheduleID = "5a2493e8-8747-44a5-b5b7-5e49e66f1a19"
	residentID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
)

type fixture struct {
	svc  *Service
	repo *fakeRepo
	mock sqlmock.Sqlmock
}

func setup(t *testing.T) fixture {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	db := sqlx.NewDb(sqlDB, "sqlmock")

	repo := newFakeRepo()
	resident := user.User{ID: residentID, Role: user.RoleResident, BarangayID: null.StringFrom("b1"), IsActive: true}
	users := &fakeUsers{users: map[string]user.User{residentID: resident}}
	families := &fakeFamilies{byHead: map[string]family.Family{
		residentID: {ID: "f1", HeadID: residentID, BarangayID: "b1"},
	}}
	schedules := &fakeSchedules{schedules: map[string]schedule.Schedule{
		scheduleID: {ID: scheduleID, BarangayID: "b1", Status: schedule.StatusScheduled},
	}}

	return fixture{
		svc:  NewService(db, repo, users, families, schedules, nopAudit{}),
		repo: repo,
		mock: mock,
	}
}

func TestService_Create_resident(t *testing.T) {
	f := setup(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	actor := user.User{ID: residentID, Role: user.RoleResident, BarangayID: null.StringFrom("b1"), IsActive: true}
	c, err := f.svc.Create(context.Background(), actor, NewClaim{ScheduleID: scheduleID})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}
	if c.FamilyID != "f1" || c.ClaimedBy != residentID {
		t.Errorf("Create() = %+v, want family f1 claimed by the resident", c)
	}
	if c.VerifiedBy.Valid {
		t.Error("Create() by resident set verified_by")
	}
	if c.Status != StatusClaimed {
		t.Errorf("Create() status = %s, want %s", c.Status, StatusClaimed)
	}
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestService_Create_onBehalf(t *testing.T) {
	f := setup(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	official := user.User{ID: "off-1", Role: user.RoleBarangay, BarangayID: null.StringFrom("b1"), IsActive: true}
	c, err := f.svc.Create(context.Background(), official, NewClaim{ScheduleID: scheduleID, ResidentID: residentID})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}
	if c.ClaimedBy != residentID {
		t.Errorf("Create() claimed_by = %s, want the resident", c.ClaimedBy)
	}
	if !c.VerifiedBy.Valid || c.VerifiedBy.String != "off-1" {
		t.Errorf("Create() verified_by = %v, want the official", c.VerifiedBy)
	}
}

func TestService_Create_rejections(t *testing.T) {
	resident := user.User{ID: residentID, Role: user.RoleResident, BarangayID: null.StringFrom("b1"), IsActive: true}
	official := user.User{ID: "off-1", Role: user.RoleBarangay, BarangayID: null.StringFrom("b1"), IsActive: true}
	otherOfficial := user.User{ID: "off-2", Role: user.RoleBarangay, BarangayID: null.StringFrom("b2"), IsActive: true}
	admin := user.User{ID: "adm-1", Role: user.RoleAdmin, IsActive: true}

	tests := []struct {
		name     string
		actor    user.User
		nc       NewClaim
		prepare  func(f fixture)
		wantErr  error
		wantVErr bool
	}{
		{
			name:     "resident claiming for someone else",
			actor:    resident,
			nc:       NewClaim{ScheduleID: scheduleID, ResidentID: "adeadbee-7425-40de-944b-e07fc1f90ae7"},
			wantVErr: true,
		},
		{
			name:     "official without resident id",
			actor:    official,
			nc:       NewClaim{ScheduleID: scheduleID},
			wantVErr: true,
		},
		{
			name:    "official from another barangay",
			actor:   otherOfficial,
			nc:      NewClaim{ScheduleID: scheduleID, ResidentID: residentID},
			wantErr: user.ErrNotFound,
		},
		{
			name:     "admin cannot claim",
			actor:    admin,
			nc:       NewClaim{ScheduleID: scheduleID},
			wantVErr: true,
		},
		{
			name:  "cancelled schedule",
			actor: resident,
			nc:    NewClaim{ScheduleID: scheduleID},
			prepare: func(f fixture) {
				sch := schedule.Schedule{ID: scheduleID, BarangayID: "b1", Status: schedule.StatusCancelled}
				f.svc.schedules.(*fakeSchedules).schedules[scheduleID] = sch
			},
			wantVErr: true,
		},
		{
			name:  "double claim",
			actor: resident,
			nc:    NewClaim{ScheduleID: scheduleID},
			prepare: func(f fixture) {
				f.repo.existing["f1"+scheduleID] = true
			},
			wantVErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			if tt.prepare != nil {
				tt.prepare(f)
			}
			_, err := f.svc.Create(context.Background(), tt.actor, tt.nc)
			if tt.wantVErr {
				if _, ok := err.(*core.ValidationError); !ok {
					t.Errorf("Create() error = %v, want ValidationError", err)
				}
				return
			}
			if err != tt.wantErr {
				t.Errorf("Create() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
