package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tulongph/tulong/core"
	"github.com/tulongph/tulong/core/schedule"
)

type (
	Repository interface {
		// QueryRecipients returns the barangay's active residents with a phone
		// number, optionally filtered by family classification.
		QueryRecipients(ctx context.Context, barangayID string, classification null.String, exec ...core.DBExecutor) ([]Recipient, error)
		QueryClaimedFamilyIDs(ctx context.Context, scheduleID string, exec ...core.DBExecutor) ([]string, error)
		CreateLogs(ctx context.Context, logs []Log, exec ...core.DBExecutor) error

		GetActiveSettings(ctx context.Context, exec ...core.DBExecutor) (SMSSettings, error)
		SaveSettings(ctx context.Context, s SMSSettings, exec ...core.DBExecutor) (SMSSettings, error)
	}

	// Dispatcher fans schedule announcements out to eligible residents over SMS,
	// recording a per-recipient outcome row for each dispatch. Delivery failures
	// are logged and swallowed; the triggering operation never fails on them.
	Dispatcher struct {
		repo   Repository
		sms    core.SMSService
		logger core.Logger
		conf   *core.Config
	}
)

var _ schedule.Notifier = (*Dispatcher)(nil)

var ErrSettingsNotFound = errors.New("sms settings not found")

func NewDispatcher(repo Repository, sms core.SMSService, logger core.Logger, conf *core.Config) *Dispatcher {
	return &Dispatcher{repo: repo, sms: sms, logger: logger, conf: conf}
}

func (d *Dispatcher) ScheduleCreated(ctx context.Context, sch schedule.Schedule) {
	d.dispatch(ctx, sch, KindCreated)
}

func (d *Dispatcher) ScheduleReminder(ctx context.Context, sch schedule.Schedule) {
	d.dispatch(ctx, sch, KindReminder)
}

func (d *Dispatcher) dispatch(ctx context.Context, sch schedule.Schedule, kind Kind) {
	recipients, err := d.repo.QueryRecipients(ctx, sch.BarangayID, sch.TargetClassification)
	if err != nil {
		d.logger.Error(fmt.Sprintf("querying notification recipients: %v", err), err)
		return
	}

	now := time.Now().UTC()
	logs := make([]Log, 0, len(recipients))

	// reminders skip residents whose family already claimed
	if kind == KindReminder {
		claimedIDs, err := d.repo.QueryClaimedFamilyIDs(ctx, sch.ID)
		if err != nil {
			d.logger.Error(fmt.Sprintf("querying claimed families: %v", err), err)
			return
		}
		claimed := make(map[string]bool, len(claimedIDs))
		for _, id := range claimedIDs {
			claimed[id] = true
		}

		pending := recipients[:0]
		for _, r := range recipients {
			if claimed[r.FamilyID] {
				logs = append(logs, d.newLog(sch.ID, kind, r, StatusSkipped, "", "family already claimed", now))
			} else {
				pending = append(pending, r)
			}
		}
		recipients = pending
	}

	body := d.renderBody(sch, kind)
	batchSize := d.conf.SMS.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	for start := 0; start < len(recipients); start += batchSize {
		end := start + batchSize
		if end > len(recipients) {
			end = len(recipients)
		}
		chunk := recipients[start:end]

		phones := make([]string, 0, len(chunk))
		for _, r := range chunk {
			phones = append(phones, r.Phone)
		}

		res, err := d.sendWithRetry(ctx, core.SMSMessage{Body: body, Recipients: phones})
		for _, r := range chunk {
			if err != nil {
				logs = append(logs, d.newLog(sch.ID, kind, r, StatusFailed, "", err.Error(), now))
			} else {
				logs = append(logs, d.newLog(sch.ID, kind, r, StatusSent, res.MessageID, "", now))
			}
		}
		if err != nil {
			d.logger.Error(fmt.Sprintf("sending %s notification for schedule %s: %v", kind, sch.ID, err), err)
		}
	}

	if len(logs) > 0 {
		if err = d.repo.CreateLogs(ctx, logs); err != nil {
			d.logger.Error(fmt.Sprintf("recording notification logs: %v", err), err)
		}
	}
}

// sendWithRetry retries a failed chunk once before giving up.
func (d *Dispatcher) sendWithRetry(ctx context.Context, msg core.SMSMessage) (core.SMSResult, error) {
	res, err := d.sms.Send(ctx, msg)
	if err == nil {
		return res, nil
	}
	return d.sms.Send(ctx, msg)
}

func (d *Dispatcher) renderBody(sch schedule.Schedule, kind Kind) string {
	switch kind {
	case KindReminder:
		return fmt.Sprintf(
			"Reminder po: ang distribusyon ng donasyon na '%s' ay sa %s, %s-%s sa %s. Huwag po kalimutang magdala ng valid ID. - %s",
			sch.Title, sch.Date, sch.StartTime, sch.EndTime, sch.Location, d.conf.AppName,
		)
	default:
		return fmt.Sprintf(
			"Magandang araw po! May nakatakdang distribusyon ng donasyon: '%s' sa %s, %s-%s sa %s. - %s",
			sch.Title, sch.Date, sch.StartTime, sch.EndTime, sch.Location, d.conf.AppName,
		)
	}
}

func (d *Dispatcher) newLog(scheduleID string, kind Kind, r Recipient, status LogStatus, messageID, errMsg string, now time.Time) Log {
	return Log{
		ID:         uuid.New().String(),
		ScheduleID: scheduleID,
		Kind:       kind,
		UserID:     r.UserID,
		Recipient:  r.Phone,
		Status:     status,
		MessageID:  null.NewString(messageID, messageID != ""),
		Error:      null.NewString(errMsg, errMsg != ""),
		CreatedAt:  now,
	}
}
