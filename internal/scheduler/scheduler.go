package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"hr-center/internal/config"
	"hr-center/internal/models"
	"hr-center/internal/workflow"
)

// Assignments lists open assignments due for a reminder or an overdue notice
type Assignments interface {
	GetByID(ctx context.Context, id uint) (*models.DocumentAssignment, error)
	ListReminderDue(ctx context.Context, cutoff time.Time) ([]models.DocumentAssignment, error)
	TouchReminded(ctx context.Context, id uint) error
	ListOverdue(ctx context.Context, now time.Time) ([]models.DocumentAssignment, error)
	TouchOverdueNotified(ctx context.Context, id uint) error
}

type Templates interface {
	GetByID(ctx context.Context, id uint) (*models.DocumentTemplate, error)
}

type Reconciliations interface {
	ListPending(ctx context.Context, cutoff time.Time, limit int) ([]models.ArtifactReconciliation, error)
	MarkResolved(ctx context.Context, id uint) error
}

// Reminder asks the signing provider to re-notify a signer
type Reminder interface {
	SendReminder(ctx context.Context, requestID string) error
}

type Notifier interface {
	SendReminder(ctx context.Context, to, name, documentTitle string, assignmentID uint) error
	SendOverdue(ctx context.Context, to, name, documentTitle string, assignmentID uint, dueDate time.Time) error
}

type Storage interface {
	Delete(ctx context.Context, key string) error
}

// reconcileBatch bounds one sweep
const reconcileBatch = 100

// Scheduler handles periodic tasks
type Scheduler struct {
	assignments     Assignments
	templates       Templates
	reconciliations Reconciliations
	provider        Reminder
	notifier        Notifier
	storage         Storage
	directory       workflow.Directory
	config          *config.SchedulerConfig
	ctx             context.Context
	cancel          context.CancelFunc
	now             func() time.Time
}

// NewScheduler creates a new scheduler
func NewScheduler(
	assignments Assignments,
	templates Templates,
	reconciliations Reconciliations,
	provider Reminder,
	notifier Notifier,
	storage Storage,
	directory workflow.Directory,
	cfg *config.SchedulerConfig,
) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		assignments:     assignments,
		templates:       templates,
		reconciliations: reconciliations,
		provider:        provider,
		notifier:        notifier,
		storage:         storage,
		directory:       directory,
		config:          cfg,
		ctx:             ctx,
		cancel:          cancel,
		now:             time.Now,
	}
}

// Start starts all scheduled tasks
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler",
		"reminders_enabled", s.config.EnableReminders,
		"reconcile_enabled", s.config.EnableReconcile,
		"overdue_enabled", s.config.EnableOverdue)

	if s.config.EnableReminders {
		if err := s.startCronTask(s.config.ReminderCron, "signature_reminders", s.sendReminders); err != nil {
			slog.Error("Failed to start signature reminders", "error", err)
		}
	}

	if s.config.EnableReconcile {
		if err := s.startCronTask(s.config.ReconcileCron, "artifact_reconciliation", s.reconcileArtifacts); err != nil {
			slog.Error("Failed to start artifact reconciliation", "error", err)
		}
	}

	if s.config.EnableOverdue {
		if err := s.startCronTask(s.config.OverdueCron, "overdue_notices", s.sendOverdueNotices); err != nil {
			slog.Error("Failed to start overdue notices", "error", err)
		}
	}

	slog.Info("Scheduler started")
}

// Stop stops the scheduler and cancels running tasks
func (s *Scheduler) Stop() {
	slog.Info("Stopping scheduler")
	s.cancel()
}

type schedule struct {
	interval     time.Duration // minute intervals, "*/n * * * *"
	hourInterval int           // "m */n * * *"
	minute       int
	hour         int
	weekday      *time.Weekday
}

// parseCron supports the simple form "minute hour day month weekday".
// Examples: "0 9 * * 1" = Monday 9 AM, "0 8 * * *" = Daily 8 AM, "*/5 * * * *" = Every 5 minutes
func parseCron(cronExpr string) (*schedule, error) {
	parts := strings.Fields(cronExpr)
	if len(parts) != 5 {
		return nil, fmt.Errorf("invalid cron expression: %s (expected 5 fields)", cronExpr)
	}

	if strings.HasPrefix(parts[0], "*/") {
		interval, err := strconv.Atoi(parts[0][2:])
		if err != nil || interval < 1 || interval > 59 {
			return nil, fmt.Errorf("invalid minute interval in cron: %s", parts[0])
		}
		return &schedule{interval: time.Duration(interval) * time.Minute}, nil
	}

	minute, err := strconv.Atoi(parts[0])
	if err != nil || minute < 0 || minute > 59 {
		return nil, fmt.Errorf("invalid minute in cron: %s", parts[0])
	}

	if strings.HasPrefix(parts[1], "*/") {
		interval, err := strconv.Atoi(parts[1][2:])
		if err != nil || interval < 1 || interval > 23 {
			return nil, fmt.Errorf("invalid hour interval in cron: %s", parts[1])
		}
		return &schedule{hourInterval: interval, minute: minute}, nil
	}

	hour, err := strconv.Atoi(parts[1])
	if err != nil || hour < 0 || hour > 23 {
		return nil, fmt.Errorf("invalid hour in cron: %s", parts[1])
	}

	sch := &schedule{minute: minute, hour: hour}
	if parts[4] != "*" {
		weekday, err := strconv.Atoi(parts[4])
		if err != nil || weekday < 0 || weekday > 6 {
			return nil, fmt.Errorf("invalid weekday in cron: %s (0-6, 0=Sunday)", parts[4])
		}
		wd := time.Weekday(weekday)
		sch.weekday = &wd
	}
	return sch, nil
}

// next returns the first run strictly after from
func (sch *schedule) next(from time.Time) time.Time {
	switch {
	case sch.interval > 0:
		return from.Add(sch.interval)

	case sch.hourInterval > 0:
		next := time.Date(from.Year(), from.Month(), from.Day(), from.Hour(), sch.minute, 0, 0, from.Location())
		if !next.After(from) {
			next = next.Add(time.Hour)
		}
		for next.Hour()%sch.hourInterval != 0 {
			next = next.Add(time.Hour)
		}
		return next

	case sch.weekday != nil:
		next := time.Date(from.Year(), from.Month(), from.Day(), sch.hour, sch.minute, 0, 0, from.Location())
		daysUntil := int(*sch.weekday - from.Weekday())
		if daysUntil < 0 {
			daysUntil += 7
		}
		next = next.AddDate(0, 0, daysUntil)
		if !next.After(from) {
			next = next.AddDate(0, 0, 7)
		}
		return next

	default:
		next := time.Date(from.Year(), from.Month(), from.Day(), sch.hour, sch.minute, 0, 0, from.Location())
		if !next.After(from) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	}
}

func (s *Scheduler) startCronTask(cronExpr, taskName string, task func(ctx context.Context)) error {
	sch, err := parseCron(cronExpr)
	if err != nil {
		return err
	}
	go s.run(sch, taskName, task)
	return nil
}

func (s *Scheduler) run(sch *schedule, taskName string, task func(ctx context.Context)) {
	// interval tasks run immediately on start
	if sch.interval > 0 {
		slog.Info("Running interval task", "task", taskName)
		task(s.ctx)
	}

	for {
		now := time.Now()
		next := sch.next(now)
		slog.Debug("Next task scheduled", "task", taskName, "next_run", next.Format("2006-01-02 15:04:05"))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-timer.C:
			slog.Info("Running scheduled task", "task", taskName)
			task(s.ctx)
		case <-s.ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (s *Scheduler) sendReminders(ctx context.Context) {
	sent, err := s.RunReminders(ctx)
	if err != nil {
		slog.Error("Signature reminders failed", "error", err)
		return
	}
	slog.Info("Signature reminders completed", "reminders_sent", sent)
}

// RunReminders re-notifies the current signer of every open assignment handed
// out more than the lead time ago and not reminded since. Returns the reminder count.
func (s *Scheduler) RunReminders(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.config.ReminderLeadTime)
	due, err := s.assignments.ListReminderDue(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, a := range due {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		if a.SignatureRequestID != nil {
			if err := s.provider.SendReminder(ctx, *a.SignatureRequestID); err != nil {
				slog.Warn("Provider reminder failed",
					"assignment_id", a.ID,
					"signature_request_id", *a.SignatureRequestID,
					"error", err,
				)
			}
		}

		s.emailCurrentSigner(ctx, &a)

		if err := s.assignments.TouchReminded(ctx, a.ID); err != nil {
			slog.Error("Failed to record reminder", "assignment_id", a.ID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}

func (s *Scheduler) sendOverdueNotices(ctx context.Context) {
	sent, err := s.RunOverdueNotices(ctx)
	if err != nil {
		slog.Error("Overdue notices failed", "error", err)
		return
	}
	slog.Info("Overdue notices completed", "notices_sent", sent)
}

// RunOverdueNotices emails the current signer of every open assignment past
// its due date, once per assignment. Returns the notice count.
func (s *Scheduler) RunOverdueNotices(ctx context.Context) (int, error) {
	overdue, err := s.assignments.ListOverdue(ctx, s.now())
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, a := range overdue {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if a.DueDate == nil {
			continue
		}

		to, name := s.currentSigner(ctx, &a)
		if to == "" {
			slog.Warn("No address for overdue notice", "assignment_id", a.ID)
			continue
		}
		if err := s.notifier.SendOverdue(ctx, to, name, s.title(ctx, &a), a.ID, *a.DueDate); err != nil {
			slog.Warn("Overdue email failed", "assignment_id", a.ID, "error", err)
			continue
		}

		if err := s.assignments.TouchOverdueNotified(ctx, a.ID); err != nil {
			slog.Error("Failed to record overdue notice", "assignment_id", a.ID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}

func (s *Scheduler) emailCurrentSigner(ctx context.Context, a *models.DocumentAssignment) {
	to, name := s.currentSigner(ctx, a)
	if to == "" {
		return
	}
	if err := s.notifier.SendReminder(ctx, to, name, s.title(ctx, a), a.ID); err != nil {
		slog.Warn("Reminder email failed", "assignment_id", a.ID, "error", err)
	}
}

// currentSigner is the address of whoever must sign next
func (s *Scheduler) currentSigner(ctx context.Context, a *models.DocumentAssignment) (string, string) {
	var to *string
	name := ""
	if signer, ok := a.CurrentSigner(); ok {
		to, name = signer.Email, signer.DisplayName
	} else if p, err := s.directory.FindPerson(ctx, a.EmployeeID); err == nil && p != nil {
		to, name = p.Email, p.DisplayName
	}
	if to == nil {
		return "", ""
	}
	return *to, name
}

func (s *Scheduler) title(ctx context.Context, a *models.DocumentAssignment) string {
	if tmpl, err := s.templates.GetByID(ctx, a.TemplateID); err == nil && tmpl != nil {
		return tmpl.Title
	}
	return "your document"
}

func (s *Scheduler) reconcileArtifacts(ctx context.Context) {
	resolved, err := s.RunReconciliation(ctx)
	if err != nil {
		slog.Error("Artifact reconciliation failed", "error", err)
		return
	}
	slog.Info("Artifact reconciliation completed", "resolved", resolved)
}

// RunReconciliation resolves pending reconciliation entries older than the
// grace period. Objects the assignment still references are kept; all others
// are deleted from storage. Returns the number of resolved entries.
func (s *Scheduler) RunReconciliation(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.config.ReconcileGracePause)
	pending, err := s.reconciliations.ListPending(ctx, cutoff, reconcileBatch)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, rec := range pending {
		if ctx.Err() != nil {
			return resolved, ctx.Err()
		}

		a, err := s.assignments.GetByID(ctx, rec.AssignmentID)
		if err != nil {
			slog.Error("Failed to load assignment for reconciliation", "assignment_id", rec.AssignmentID, "error", err)
			continue
		}

		if a != nil && references(a, rec.StorageKey) {
			slog.Info("Reconciliation object is referenced, keeping it",
				"assignment_id", rec.AssignmentID,
				"storage_key", rec.StorageKey,
			)
		} else if err := s.storage.Delete(ctx, rec.StorageKey); err != nil {
			slog.Error("Failed to delete orphaned artifact", "storage_key", rec.StorageKey, "error", err)
			continue
		}

		if err := s.reconciliations.MarkResolved(ctx, rec.ID); err != nil {
			slog.Error("Failed to resolve reconciliation", "id", rec.ID, "error", err)
			continue
		}
		resolved++
	}
	return resolved, nil
}

func references(a *models.DocumentAssignment, key string) bool {
	if a.SignedArtifactKey != nil && *a.SignedArtifactKey == key {
		return true
	}
	return a.WorkingArtifactKey != nil && *a.WorkingArtifactKey == key
}
