package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/tipmasterapp/tipmaster/internal/pkg/billing"
	"github.com/tipmasterapp/tipmaster/internal/pkg/database"
	"github.com/tipmasterapp/tipmaster/internal/pkg/ledgerarchive"
	"github.com/tipmasterapp/tipmaster/internal/pkg/mail"
)

// processPurchaseReconcileJob links purchase ledger rows that arrived before
// their subscriber existed. Runs are cheap when there is nothing to link, so
// the manager schedules them on a fixed interval.
func (q *Queue) processPurchaseReconcileJob(ctx context.Context, job *Job) error {
	payload, err := PurchaseReconcileJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid purchase reconcile payload: %w", err)
	}
	db := database.GetDB()
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	svc := billing.NewServiceFromDB(db)
	linked, err := svc.ReconcileOrphanPurchases(ctx, payload.Limit)
	if err != nil {
		return fmt.Errorf("reconcile orphan purchases failed: %w", err)
	}
	if linked > 0 {
		log.Infof("[Reconcile] Linked %d orphan purchases to subscribers", linked)
	}
	return nil
}

// processLedgerArchiveJob writes a JSON snapshot of the purchase ledger to
// the S3 archive bucket. Disabled configs complete the job as a no-op so a
// dev setup without S3 credentials never accumulates failed jobs.
func (q *Queue) processLedgerArchiveJob(ctx context.Context, job *Job) error {
	payload, err := LedgerArchiveJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid ledger archive payload: %w", err)
	}

	cfg, err := ledgerarchive.LoadConfig()
	if err != nil {
		return fmt.Errorf("load archive config failed: %w", err)
	}
	if !cfg.IsEnabled() {
		log.Debug("[LedgerArchive] Archive disabled, skipping snapshot job")
		return nil
	}

	db := database.GetDB()
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	cutoff := time.Now()
	if payload.CutoffDays > 0 {
		cutoff = cutoff.AddDate(0, 0, -payload.CutoffDays)
	}
	maxRows := payload.MaxRows
	if maxRows <= 0 {
		maxRows = 10000
	}

	repo := billing.NewRepository(db)
	purchases, err := repo.ListPurchasesCreatedBefore(cutoff, maxRows)
	if err != nil {
		return fmt.Errorf("list purchases for snapshot failed: %w", err)
	}
	if len(purchases) == 0 {
		log.Info("[LedgerArchive] No purchases to snapshot")
		return nil
	}

	client, err := ledgerarchive.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("create archive client failed: %w", err)
	}

	result, err := client.UploadSnapshot(ctx, cutoff, purchases)
	if err != nil {
		return fmt.Errorf("upload ledger snapshot failed: %w", err)
	}

	log.Infof("[LedgerArchive] Snapshot s3://%s/%s written (%d rows, %d bytes)",
		result.BucketName, result.ObjectKey, result.RowCount, result.Size)
	return nil
}

// processProWelcomeMailJob sends the one-time welcome mail to a new pro
// subscriber. Mail sending is queued so a slow SMTP server never delays the
// webhook response.
func (q *Queue) processProWelcomeMailJob(job *Job) error {
	payload, err := ProWelcomeMailJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid welcome mail payload: %w", err)
	}
	if payload.Email == "" {
		log.Warnf("[JobQueue] Welcome mail job %s has no email, dropping", job.ID)
		return nil
	}
	if err := mail.SendProWelcome(payload.Email, payload.Plan); err != nil {
		return fmt.Errorf("send welcome mail failed: %w", err)
	}
	return nil
}
