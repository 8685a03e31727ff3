package jobqueue

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/tipmasterapp/tipmaster/app/models"
	"github.com/tipmasterapp/tipmaster/internal/pkg/env"
	metrics "github.com/tipmasterapp/tipmaster/internal/pkg/metrics/counter"
)

// Manager manages the global job queue and background tasks
type Manager struct {
	queue              *Queue
	reconcileTicker    *time.Ticker
	archiveTicker      *time.Ticker
	counterFlushTicker *time.Ticker
	stopCh             chan struct{}
	wg                 sync.WaitGroup
	mu                 sync.Mutex
	running            bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		// Get worker count from settings, fallback to 5 if not available
		workerCount := 5
		if settings := getAppSettings(); settings != nil {
			workerCount = settings.GetJobQueueWorkerCount()
		}

		globalManager = &Manager{
			queue:  NewQueue(workerCount),
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	// Start the job queue
	m.queue.Start()

	// Orphan-purchase reconcile interval from settings
	reconcileInterval := 5 * time.Minute
	if settings := getAppSettings(); settings != nil {
		reconcileInterval = time.Duration(settings.GetReconcileIntervalMinutes()) * time.Minute
	}
	m.reconcileTicker = time.NewTicker(reconcileInterval)
	m.wg.Add(1)
	go m.reconcileWorker()

	// Daily ledger snapshot; runs as a queued job so retries apply
	m.archiveTicker = time.NewTicker(24 * time.Hour)
	m.wg.Add(1)
	go m.archiveWorker()

	// Start counter flush worker (Redis -> DB) every 5 seconds
	m.counterFlushTicker = time.NewTicker(5 * time.Second)
	m.wg.Add(1)
	go m.counterFlushWorker()

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.reconcileTicker != nil {
		m.reconcileTicker.Stop()
	}
	if m.archiveTicker != nil {
		m.archiveTicker.Stop()
	}
	if m.counterFlushTicker != nil {
		m.counterFlushTicker.Stop()
	}

	// Signal workers to stop. The channel stays non-nil so a worker that
	// loops once more still selects on the closed channel instead of
	// blocking forever on a nil one; Start replaces it on restart.
	close(m.stopCh)
	m.running = false

	// Wait for background workers to finish
	m.wg.Wait()

	// Stop the job queue
	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// reconcileWorker periodically enqueues an orphan-purchase reconcile job
func (m *Manager) reconcileWorker() {
	defer m.wg.Done()
	log.Info("[JobQueue Manager] Started purchase reconcile worker")

	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Purchase reconcile worker stopping")
			return
		case <-m.reconcileTicker.C:
			payload := PurchaseReconcileJobPayload{Limit: 100}
			if _, err := m.queue.EnqueueJob(JobTypePurchaseReconcile, payload.ToMap()); err != nil {
				log.Errorf("[JobQueue Manager] Error enqueueing reconcile job: %v", err)
			}
		}
	}
}

// archiveWorker periodically enqueues a ledger snapshot job
func (m *Manager) archiveWorker() {
	defer m.wg.Done()
	log.Info("[JobQueue Manager] Started ledger archive worker")

	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Ledger archive worker stopping")
			return
		case <-m.archiveTicker.C:
			payload := LedgerArchiveJobPayload{}
			if _, err := m.queue.EnqueueJob(JobTypeLedgerArchive, payload.ToMap()); err != nil {
				log.Errorf("[JobQueue Manager] Error enqueueing archive job: %v", err)
			}
		}
	}
}

// counterFlushWorker periodically flushes usage counters from Redis to DB
func (m *Manager) counterFlushWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Counter flush worker stopping")
			return
		case <-m.counterFlushTicker.C:
			if err := m.flushCountersOnce(); err != nil {
				log.Errorf("[JobQueue Manager] Counter flush error: %v", err)
			}
		}
	}
}

func (m *Manager) flushCountersOnce() error {
	// Flush Redis -> DB (batched CASE update)
	return metrics.FlushAll()
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// getAppSettings safely returns the current app settings
func getAppSettings() *models.AppSettings {
	return models.GetAppSettings()
}

// EnqueueProWelcomeMail queues the one-time welcome mail for a new pro
// subscriber. Fails soft when SMTP is not configured.
func (m *Manager) EnqueueProWelcomeMail(email, plan string) {
	if env.GetEnv("SMTP_HOST", "") == "" {
		log.Debug("[JobQueue Manager] SMTP not configured, skipping welcome mail")
		return
	}
	payload := ProWelcomeMailJobPayload{Email: email, Plan: plan}
	if _, err := m.queue.EnqueueJob(JobTypeProWelcomeMail, payload.ToMap()); err != nil {
		log.Errorf("[JobQueue Manager] Error enqueueing welcome mail: %v", err)
	}
}
