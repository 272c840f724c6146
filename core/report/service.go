package report

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/tulongph/tulong/core"
)

type (
	Repository interface {
		DashboardCounts(ctx context.Context, exec ...core.DBExecutor) (Dashboard, error)
		QueryClaimRows(ctx context.Context, filter *ClaimsFilter, exec ...core.DBExecutor) ([]ClaimRow, error)
	}

	ServiceInterface interface {
		Dashboard(ctx context.Context) (Dashboard, error)
		Claims(ctx context.Context, filter *ClaimsFilter) ([]ClaimRow, error)
		ExportClaimsXLSX(ctx context.Context, filter *ClaimsFilter, w io.Writer) error
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	return svc.repo.DashboardCounts(ctx)
}

func (svc *Service) Claims(ctx context.Context, filter *ClaimsFilter) ([]ClaimRow, error) {
	return svc.repo.QueryClaimRows(ctx, filter)
}

var claimsHeader = []string{
	"Claim ID", "Schedule", "Date", "Barangay", "Family Head",
	"Classification", "Claimed By", "Verified By", "Notes", "Claimed At",
}

// ExportClaimsXLSX streams the claims report as a spreadsheet.
func (svc *Service) ExportClaimsXLSX(ctx context.Context, filter *ClaimsFilter, w io.Writer) error {
	rows, err := svc.repo.QueryClaimRows(ctx, filter)
	if err != nil {
		return err
	}

	f := excelize.NewFile()

	const sheet = "Claims"
	f.SetSheetName(f.GetSheetName(0), sheet)

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return errors.Wrap(err, "opening stream writer")
	}

	header := make([]interface{}, len(claimsHeader))
	for i, h := range claimsHeader {
		header[i] = h
	}
	if err = sw.SetRow("A1", header); err != nil {
		return errors.Wrap(err, "writing header row")
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "computing cell name")
		}
		err = sw.SetRow(cell, []interface{}{
			r.ClaimID, r.ScheduleTitle, r.ScheduleDate, r.BarangayName, r.HeadName,
			r.Classification, r.ClaimedByName, r.VerifiedBy.String, r.Notes, r.ClaimedAt,
		})
		if err != nil {
			return errors.Wrap(err, "writing claim row")
		}
	}
	if err = sw.Flush(); err != nil {
		return errors.Wrap(err, "flushing sheet")
	}
	if err = f.Write(w); err != nil {
		return errors.Wrap(err, "writing workbook")
	}
	return nil
}
