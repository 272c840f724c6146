package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/tulongph/tulong/core"
	"github.com/tulongph/tulong/core/barangay"
	"github.com/tulongph/tulong/core/user"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

func testServerConfig() *core.Config {
	conf := &core.Config{
		AppName:   "Tulong",
		TestMode:  true,
		SecretKey: "test-secret",
	}
	conf.Server.JWTExpirationDelta = 10 * time.Minute
	conf.Server.JWTRefreshExpirationDelta = 4 * time.Hour
	return conf
}

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

// setupServer builds a Server around the provided services with a fully
// initialized validator and translator.
func setupServer(t *testing.T, deps ServerDeps) Server {
	t.Helper()

	if deps.Conf == nil {
		deps.Conf = testServerConfig()
	}
	deps.Logger = nopLogger{}
	deps.DisableReqLogs = true

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	deps.Validate = validate
	deps.Translator = translator
	return NewServer(deps)
}

// fakeUserSvc is an in-memory user.ServiceInterface.
type fakeUserSvc struct {
	users map[string]user.User // keyed by ID
}

var _ user.ServiceInterface = (*fakeUserSvc)(nil)

func newFakeUserSvc(users ...user.User) *fakeUserSvc {
	svc := &fakeUserSvc{users: make(map[string]user.User, len(users))}
	for _, usr := range users {
		svc.users[usr.ID] = usr
	}
	return svc
}

func (svc *fakeUserSvc) Register(_ context.Context, r user.Register) (user.User, error) {
	usr := user.User{
		ID:         uuid.New().String(),
		Name:       r.Name,
		Username:   r.Username,
		Email:      null.NewString(r.Email, r.Email != ""),
		Phone:      null.StringFrom(r.Phone),
		Role:       user.RoleResident,
		BarangayID: null.StringFrom(r.BarangayID),
	}
	svc.users[usr.ID] = usr
	return usr, nil
}

func (svc *fakeUserSvc) Create(_ context.Context, nu user.NewUser) (user.User, error) {
	usr := user.User{
		ID:       uuid.New().String(),
		Name:     nu.Name,
		Username: nu.Username,
		Role:     nu.Role,
		IsActive: true,
	}
	svc.users[usr.ID] = usr
	return usr, nil
}

func (svc *fakeUserSvc) Query(_ context.Context, _ *user.QueryFilter, _ []core.DBOrdering) ([]user.User, error) {
	users := make([]user.User, 0, len(svc.users))
	for _, usr := range svc.users {
		users = append(users, usr)
	}
	return users, nil
}

func (svc *fakeUserSvc) GetByID(_ context.Context, id string) (user.User, error) {
	usr, ok := svc.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (svc *fakeUserSvc) GetByEmail(_ context.Context, email string) (user.User, error) {
	for _, usr := range svc.users {
		if usr.Email.String == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (svc *fakeUserSvc) GetByUsernameOrEmail(_ context.Context, uname string) (user.User, error) {
	for _, usr := range svc.users {
		if usr.Username == uname || usr.Email.String == uname {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (svc *fakeUserSvc) Update(_ context.Context, id string, uu user.UpdateUser) (user.User, error) {
	usr, ok := svc.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	usr.Name = uu.Name
	usr.Username = uu.Username
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	svc.users[id] = usr
	return usr, nil
}

func (svc *fakeUserSvc) Deactivate(_ context.Context, id, _ string) error {
	usr, ok := svc.users[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.IsActive = false
	svc.users[id] = usr
	return nil
}

func (svc *fakeUserSvc) Approve(_ context.Context, id, _ string) (user.User, error) {
	usr, ok := svc.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	usr.IsActive = true
	svc.users[id] = usr
	return usr, nil
}

func (svc *fakeUserSvc) Reject(_ context.Context, id, _ string) error {
	if _, ok := svc.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(svc.users, id)
	return nil
}

func (svc *fakeUserSvc) SetLastLogin(_ context.Context, usr user.User) (user.User, error) {
	usr.LastLogin = null.TimeFrom(time.Now().UTC())
	svc.users[usr.ID] = usr
	return usr, nil
}

func (svc *fakeUserSvc) CheckUniqueness(uname, email string, exclUsers ...user.User) error {
	excluded := func(id string) bool {
		for _, ex := range exclUsers {
			if ex.ID == id {
				return true
			}
		}
		return false
	}
	for _, usr := range svc.users {
		if excluded(usr.ID) {
			continue
		}
		if usr.Username == uname {
			return core.NewValidationError(user.ErrUsernameExists,
				core.FieldError{Field: "username", Error: user.ErrUsernameExists.Error()})
		}
		if email != "" && usr.Email.String == email {
			return core.NewValidationError(user.ErrEmailExists,
				core.FieldError{Field: "email", Error: user.ErrEmailExists.Error()})
		}
	}
	return nil
}

func (svc *fakeUserSvc) RequestPasswordReset(_ context.Context, _ string) error { return nil }

func (svc *fakeUserSvc) ResetPassword(_ context.Context, _ user.ResetUserPassword) error {
	return nil
}

// fakeBarangaySvc is an in-memory barangay.ServiceInterface.
type fakeBarangaySvc struct {
	barangays map[string]barangay.Barangay
}

var _ barangay.ServiceInterface = (*fakeBarangaySvc)(nil)

func newFakeBarangaySvc(brgys ...barangay.Barangay) *fakeBarangaySvc {
	svc := &fakeBarangaySvc{barangays: make(map[string]barangay.Barangay, len(brgys))}
	for _, brgy := range brgys {
		svc.barangays[brgy.ID] = brgy
	}
	return svc
}

func (svc *fakeBarangaySvc) Create(_ context.Context, nb barangay.NewBarangay, _ string) (barangay.Barangay, error) {
	brgy := barangay.Barangay{
		ID:       uuid.New().String(),
		Name:     nb.Name,
		Code:     nb.Code,
		Address:  nb.Address,
		IsActive: true,
	}
	svc.barangays[brgy.ID] = brgy
	return brgy, nil
}

func (svc *fakeBarangaySvc) Query(_ context.Context, _ *barangay.QueryFilter, _ []core.DBOrdering) ([]barangay.Barangay, error) {
	brgys := make([]barangay.Barangay, 0, len(svc.barangays))
	for _, brgy := range svc.barangays {
		brgys = append(brgys, brgy)
	}
	return brgys, nil
}

func (svc *fakeBarangaySvc) GetByID(_ context.Context, id string) (barangay.Barangay, error) {
	brgy, ok := svc.barangays[id]
	if !ok {
		return barangay.Barangay{}, barangay.ErrNotFound
	}
	return brgy, nil
}

func (svc *fakeBarangaySvc) Update(_ context.Context, id string, ub barangay.UpdateBarangay) (barangay.Barangay, error) {
	brgy, ok := svc.barangays[id]
	if !ok {
		return barangay.Barangay{}, barangay.ErrNotFound
	}
	brgy.Name = ub.Name
	brgy.Code = ub.Code
	brgy.Address = ub.Address
	svc.barangays[id] = brgy
	return brgy, nil
}

func (svc *fakeBarangaySvc) Deactivate(_ context.Context, id, _ string) error {
	brgy, ok := svc.barangays[id]
	if !ok {
		return barangay.ErrNotFound
	}
	brgy.IsActive = false
	svc.barangays[id] = brgy
	return nil
}

func (svc *fakeBarangaySvc) AssignManager(_ context.Context, barangayID, userID, _ string) error {
	brgy, ok := svc.barangays[barangayID]
	if !ok {
		return barangay.ErrNotFound
	}
	brgy.ManagerID = null.StringFrom(userID)
	svc.barangays[barangayID] = brgy
	return nil
}

func (svc *fakeBarangaySvc) CheckCodeUniqueness(code string, excluded ...barangay.Barangay) error {
	exc := func(id string) bool {
		for _, ex := range excluded {
			if ex.ID == id {
				return true
			}
		}
		return false
	}
	for _, brgy := range svc.barangays {
		if brgy.Code == code && !exc(brgy.ID) {
			return core.NewValidationError(barangay.ErrCodeExists,
				core.FieldError{Field: "code", Error: barangay.ErrCodeExists.Error()})
		}
	}
	return nil
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User, conf *core.Config) string {
	t.Helper()
	token, err := GenerateToken(GetUserClaims(usr, conf), conf)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
