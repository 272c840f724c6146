package family

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tulongph/tulong/core"
	"github.com/tulongph/tulong/core/audit"
)

var (
	// errors
	ErrNotFound       = errors.New("family not found")
	ErrMemberNotFound = errors.New("family member not found")
)

type (
	Repository interface {
		CreateFamily(ctx context.Context, fam Family, exec ...core.DBExecutor) (Family, error)
		QueryFamilies(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Family, error)
		GetFamily(ctx context.Context, id string, exec ...core.DBExecutor) (Family, error)
		GetFamilyByHead(ctx context.Context, headID string, exec ...core.DBExecutor) (Family, error)
		UpdateClassification(ctx context.Context, id string, classification Classification, exec ...core.DBExecutor) (Family, error)

		CreateMember(ctx context.Context, m Member, exec ...core.DBExecutor) (Member, error)
		QueryMembers(ctx context.Context, familyID string, exec ...core.DBExecutor) ([]Member, error)
		// GetMemberScoped resolves a member only when its family belongs to
		// barangayID; otherwise ErrMemberNotFound. An empty barangayID skips
		// the tenant check.
		GetMemberScoped(ctx context.Context, memberID, barangayID string, exec ...core.DBExecutor) (Member, error)
		UpdateMember(ctx context.Context, m Member, exec ...core.DBExecutor) (Member, error)
		DeleteMember(ctx context.Context, memberID string, exec ...core.DBExecutor) error
		SetMemberEligibility(ctx context.Context, memberID string, flag EligibilityFlag, value bool, status VerificationStatus, exec ...core.DBExecutor) (Member, error)
	}

	ServiceInterface interface {
		CreateForHead(ctx context.Context, headID, barangayID, classification string, exec ...core.DBExecutor) error
		Query(ctx context.Context, filter *QueryFilter) ([]Family, error)
		GetByID(ctx context.Context, id string) (Family, error)
		GetByHead(ctx context.Context, headID string) (Family, error)
		Classify(ctx context.Context, id string, classification Classification, actorID string) (Family, error)
		AddMember(ctx context.Context, familyID string, nm NewMember) (Member, error)
		Members(ctx context.Context, familyID string) ([]Member, error)
		GetMemberScoped(ctx context.Context, memberID, barangayID string) (Member, error)
		UpdateMember(ctx context.Context, memberID string, um UpdateMember) (Member, error)
		RemoveMember(ctx context.Context, memberID string) error
		Verify(ctx context.Context, memberID, officialBarangayID string, in VerifyInput, actorID string) (Member, error)
	}

	Service struct {
		repo  Repository
		audit audit.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, auditLog audit.Logger) *Service {
	return &Service{repo: repo, audit: auditLog}
}

// CreateForHead creates the Family owned by a newly registered resident.
// Runs on the registration transaction when an executor is passed.
func (svc *Service) CreateForHead(ctx context.Context, headID, barangayID, classification string, exec ...core.DBExecutor) error {
	cls := Classification(classification)
	if !cls.Valid() {
		cls = ClassificationUnclassified
	}
	now := time.Now().UTC()
	_, err := svc.repo.CreateFamily(ctx, Family{
		ID:             uuid.New().String(),
		HeadID:         headID,
		BarangayID:     barangayID,
		Classification: cls,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, exec...)
	return err
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Family, error) {
	return svc.repo.QueryFamilies(ctx, filter)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Family, error) {
	return svc.repo.GetFamily(ctx, id)
}

func (svc *Service) GetByHead(ctx context.Context, headID string) (Family, error) {
	return svc.repo.GetFamilyByHead(ctx, headID)
}

func (svc *Service) Classify(ctx context.Context, id string, classification Classification, actorID string) (Family, error) {
	if !classification.Valid() {
		return Family{}, core.NewValidationError(nil,
			core.FieldError{Field: "classification", Error: "must be one of HIGH, MIDDLE, LOW, UNCLASSIFIED"})
	}
	fam, err := svc.repo.UpdateClassification(ctx, id, classification)
	if err != nil {
		return Family{}, err
	}
	if err = svc.audit.Log(ctx, actorID, "family.classify", "family", id, string(classification)); err != nil {
		return Family{}, errors.Wrap(err, "logging classification")
	}
	return fam, nil
}

func (svc *Service) AddMember(ctx context.Context, familyID string, nm NewMember) (Member, error) {
	if _, err := svc.repo.GetFamily(ctx, familyID); err != nil {
		return Member{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateMember(ctx, Member{
		ID:             uuid.New().String(),
		FamilyID:       familyID,
		FullName:       nm.FullName,
		Birthdate:      nm.Birthdate,
		Relationship:   nm.Relationship,
		IndigentStatus: StatusPending,
		SeniorStatus:   StatusPending,
		PWDStatus:      StatusPending,
		StudentStatus:  StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

func (svc *Service) Members(ctx context.Context, familyID string) ([]Member, error) {
	return svc.repo.QueryMembers(ctx, familyID)
}

func (svc *Service) GetMemberScoped(ctx context.Context, memberID, barangayID string) (Member, error) {
	return svc.repo.GetMemberScoped(ctx, memberID, barangayID)
}

func (svc *Service) UpdateMember(ctx context.Context, memberID string, um UpdateMember) (Member, error) {
	return svc.repo.UpdateMember(ctx, Member{
		ID:           memberID,
		FullName:     um.FullName,
		Birthdate:    um.Birthdate,
		Relationship: um.Relationship,
		UpdatedAt:    time.Now().UTC(),
	})
}

func (svc *Service) RemoveMember(ctx context.Context, memberID string) error {
	return svc.repo.DeleteMember(ctx, memberID)
}

// Verify toggles one eligibility flag on a member within the acting official's
// own barangay. Members of other barangays resolve to ErrMemberNotFound so the
// response does not leak their existence.
func (svc *Service) Verify(ctx context.Context, memberID, officialBarangayID string, in VerifyInput, actorID string) (Member, error) {
	if _, err := svc.repo.GetMemberScoped(ctx, memberID, officialBarangayID); err != nil {
		return Member{}, err
	}

	value := in.Action == "APPROVE"
	status := StatusRejected
	if value {
		status = StatusApproved
	}

	m, err := svc.repo.SetMemberEligibility(ctx, memberID, in.Flag, value, status)
	if err != nil {
		return Member{}, err
	}
	details := fmt.Sprintf("%s: %s", in.Flag, status)
	if err = svc.audit.Log(ctx, actorID, "member.verify", "family_member", memberID, details); err != nil {
		return Member{}, errors.Wrap(err, "logging verification")
	}
	return m, nil
}
