package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/tulongph/tulong/core"
	"github.com/tulongph/tulong/core/family"
)

const (
	familyColumns = `id, head_id, barangay_id, classification, is_active, created_at, updated_at`
	memberColumns = `id, family_id, full_name, birthdate, relationship,
	is_indigent, indigent_status, is_senior, senior_status,
	is_pwd, pwd_status, is_student, student_status, created_at, updated_at`
)

// eligibilityColumns maps each flag to its (value, status) column pair. The
// map is the single place a flag name becomes SQL; keys mirror
// family.EligibilityFlag.
var eligibilityColumns = map[family.EligibilityFlag][2]string{
	family.FlagIndigent: {"is_indigent", "indigent_status"},
	family.FlagSenior:   {"is_senior", "senior_status"},
	family.FlagPWD:      {"is_pwd", "pwd_status"},
	family.FlagStudent:  {"is_student", "student_status"},
}

type familyRepository struct {
	exec core.DBExecutor
}

var _ family.Repository = (*familyRepository)(nil) // interface compliance check

func NewFamilyRepository(exec core.DBExecutor) *familyRepository {
	return &familyRepository{exec: exec}
}

func (repo familyRepository) trapNoRowsErr(err error, target error, msg string) error {
	if err == sql.ErrNoRows {
		return target
	}
	return errors.Wrap(err, msg)
}

func (repo familyRepository) CreateFamily(ctx context.Context, fam family.Family, exec ...core.DBExecutor) (family.Family, error) {
	if fam.ID == "" {
		fam.ID = uuid.New().String()
	}
	query := `
INSERT INTO families (` + familyColumns + `)
VALUES (:id, :head_id, :barangay_id, :classification, :is_active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, getExec(repo.exec, exec), query, fam); err != nil {
		return family.Family{}, errors.Wrap(err, "inserting family")
	}
	return fam, nil
}

func (repo familyRepository) QueryFamilies(ctx context.Context, filter *family.QueryFilter, exec ...core.DBExecutor) ([]family.Family, error) {
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.BarangayID != "" {
			conds = append(conds, `barangay_id = ?`)
			args = append(args, filter.BarangayID)
		}
		if filter.HeadID != "" {
			conds = append(conds, `head_id = ?`)
			args = append(args, filter.HeadID)
		}
		if filter.Classification != "" {
			conds = append(conds, `classification = ?`)
			args = append(args, filter.Classification)
		}
		if filter.IsActive != nil {
			conds = append(conds, `is_active = ?`)
			args = append(args, *filter.IsActive)
		}
	}

	exe := getExec(repo.exec, exec)
	query := `SELECT ` + familyColumns + ` FROM families` + where(conds) + ` ORDER BY created_at DESC`

	var fams []family.Family
	if err := sqlx.SelectContext(ctx, exe, &fams, exe.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying families")
	}
	return fams, nil
}

func (repo familyRepository) GetFamily(ctx context.Context, id string, exec ...core.DBExecutor) (family.Family, error) {
	if _, err := uuid.Parse(id); err != nil {
		return family.Family{}, family.ErrNotFound
	}
	exe := getExec(repo.exec, exec)
	var fam family.Family
	query := `SELECT ` + familyColumns + ` FROM families WHERE id = ?`
	if err := sqlx.GetContext(ctx, exe, &fam, exe.Rebind(query), id); err != nil {
		return family.Family{}, repo.trapNoRowsErr(err, family.ErrNotFound, "finding family")
	}
	return fam, nil
}

func (repo familyRepository) GetFamilyByHead(ctx context.Context, headID string, exec ...core.DBExecutor) (family.Family, error) {
	exe := getExec(repo.exec, exec)
	var fam family.Family
	query := `SELECT ` + familyColumns + ` FROM families WHERE head_id = ?`
	if err := sqlx.GetContext(ctx, exe, &fam, exe.Rebind(query), headID); err != nil {
		return family.Family{}, repo.trapNoRowsErr(err, family.ErrNotFound, "finding family by head")
	}
	return fam, nil
}

func (repo familyRepository) UpdateClassification(ctx context.Context, id string, classification family.Classification, exec ...core.DBExecutor) (family.Family, error) {
	exe := getExec(repo.exec, exec)
	query := exe.Rebind(`UPDATE families SET classification = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`)
	res, err := exe.ExecContext(ctx, query, classification, id)
	if err != nil {
		return family.Family{}, errors.Wrap(err, "updating classification")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return family.Family{}, family.ErrNotFound
	}
	return repo.GetFamily(ctx, id, exec...)
}

func (repo familyRepository) CreateMember(ctx context.Context, m family.Member, exec ...core.DBExecutor) (family.Member, error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	query := `
INSERT INTO family_members (` + memberColumns + `)
VALUES (:id, :family_id, :full_name, :birthdate, :relationship,
	:is_indigent, :indigent_status, :is_senior, :senior_status,
	:is_pwd, :pwd_status, :is_student, :student_status, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, getExec(repo.exec, exec), query, m); err != nil {
		return family.Member{}, errors.Wrap(err, "inserting family member")
	}
	return m, nil
}

func (repo familyRepository) QueryMembers(ctx context.Context, familyID string, exec ...core.DBExecutor) ([]family.Member, error) {
	exe := getExec(repo.exec, exec)
	query := `SELECT ` + memberColumns + ` FROM family_members WHERE family_id = ? ORDER BY created_at ASC`

	var members []family.Member
	if err := sqlx.SelectContext(ctx, exe, &members, exe.Rebind(query), familyID); err != nil {
		return nil, errors.Wrap(err, "querying family members")
	}
	return members, nil
}

func (repo familyRepository) GetMemberScoped(ctx context.Context, memberID, barangayID string, exec ...core.DBExecutor) (family.Member, error) {
	if _, err := uuid.Parse(memberID); err != nil {
		return family.Member{}, family.ErrMemberNotFound
	}

	query := `
SELECT m.id, m.family_id, m.full_name, m.birthdate, m.relationship,
	m.is_indigent, m.indigent_status, m.is_senior, m.senior_status,
	m.is_pwd, m.pwd_status, m.is_student, m.student_status, m.created_at, m.updated_at
FROM family_members m
JOIN families f ON f.id = m.family_id
WHERE m.id = ?`
	args := []interface{}{memberID}
	if barangayID != "" {
		query += ` AND f.barangay_id = ?`
		args = append(args, barangayID)
	}

	exe := getExec(repo.exec, exec)
	var m family.Member
	if err := sqlx.GetContext(ctx, exe, &m, exe.Rebind(query), args...); err != nil {
		return family.Member{}, repo.trapNoRowsErr(err, family.ErrMemberNotFound, "finding family member")
	}
	return m, nil
}

func (repo familyRepository) UpdateMember(ctx context.Context, m family.Member, exec ...core.DBExecutor) (family.Member, error) {
	sets := []string{`updated_at = ?`}
	args := []interface{}{m.UpdatedAt.UTC()}

	if m.FullName != "" {
		sets = append(sets, `full_name = ?`)
		args = append(args, m.FullName)
	}
	if m.Birthdate != "" {
		sets = append(sets, `birthdate = ?`)
		args = append(args, m.Birthdate)
	}
	if m.Relationship != "" {
		sets = append(sets, `relationship = ?`)
		args = append(args, m.Relationship)
	}
	args = append(args, m.ID)

	exe := getExec(repo.exec, exec)
	query := `UPDATE family_members SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	res, err := exe.ExecContext(ctx, exe.Rebind(query), args...)
	if err != nil {
		return family.Member{}, errors.Wrap(err, "updating family member")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return family.Member{}, family.ErrMemberNotFound
	}
	return repo.GetMemberScoped(ctx, m.ID, "", exec...)
}

func (repo familyRepository) DeleteMember(ctx context.Context, memberID string, exec ...core.DBExecutor) error {
	exe := getExec(repo.exec, exec)
	res, err := exe.ExecContext(ctx, exe.Rebind(`DELETE FROM family_members WHERE id = ?`), memberID)
	if err != nil {
		return errors.Wrap(err, "deleting family member")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return family.ErrMemberNotFound
	}
	return nil
}

func (repo familyRepository) SetMemberEligibility(ctx context.Context, memberID string, flag family.EligibilityFlag, value bool, status family.VerificationStatus, exec ...core.DBExecutor) (family.Member, error) {
	cols, ok := eligibilityColumns[flag]
	if !ok {
		return family.Member{}, errors.Errorf("unknown eligibility flag: %s", flag)
	}

	exe := getExec(repo.exec, exec)
	query := `UPDATE family_members SET ` + cols[0] + ` = ?, ` + cols[1] + ` = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := exe.ExecContext(ctx, exe.Rebind(query), value, status, memberID)
	if err != nil {
		return family.Member{}, errors.Wrap(err, "setting member eligibility")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return family.Member{}, family.ErrMemberNotFound
	}
	return repo.GetMemberScoped(ctx, memberID, "", exec...)
}
