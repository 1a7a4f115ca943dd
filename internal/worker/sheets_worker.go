package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"consultdesk/internal/domain"
	"consultdesk/internal/logging"
	"consultdesk/internal/metrics"
	"consultdesk/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	redisQueueKey = "consultdesk:sheets:queue"
	deadLetterKey = "consultdesk:sheets:deadletter"

	supersedeGrace = 10 * time.Minute
)

// SheetsWorker applies consultation changes to the spreadsheet mirror in the
// background. Tasks go through redis when available and an in-memory queue
// otherwise.
type SheetsWorker struct {
	sheets       domain.SheetsWriter
	redis        *redis.Client
	retryPolicy  RetryPolicy
	queue        chan models.SyncTask
	pollInterval time.Duration
	logger       zerolog.Logger
	now          func() time.Time

	// Pending retry timers, stopped on shutdown.
	mu     sync.Mutex
	timers map[*time.Timer]struct{}

	// Newest task CreatedAt per consultation. Older tasks for the same
	// consultation, including pending retries, are dropped.
	seenMu    sync.Mutex
	latest    map[string]time.Time
	lastPrune time.Time
}

// NewSheetsWorker builds a worker with sane defaults.
func NewSheetsWorker(sheets domain.SheetsWriter, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *SheetsWorker {
	defaults := DefaultRetryPolicy()
	if retry.MaxRetries == 0 {
		retry.MaxRetries = defaults.MaxRetries
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = defaults.InitialDelay
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = defaults.MaxDelay
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = defaults.BackoffFactor
	}

	return &SheetsWorker{
		sheets:       sheets,
		redis:        redisClient,
		retryPolicy:  retry,
		queue:        make(chan models.SyncTask, models.WorkerQueueSize),
		pollInterval: time.Second,
		logger:       logging.Component(logger, "sheets_worker"),
		now:          time.Now,
		timers:       make(map[*time.Timer]struct{}),
		latest:       make(map[string]time.Time),
	}
}

// EnqueueTask schedules a mirror update for one consultation.
func (w *SheetsWorker) EnqueueTask(ctx context.Context, taskType, consultationID string, c *models.Consultation) error {
	switch taskType {
	case models.SyncTaskUpsert:
		if c == nil {
			return errors.New("consultation payload is required for upsert")
		}
	case models.SyncTaskDelete:
	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}
	if consultationID == "" && c != nil {
		consultationID = c.ID
	}
	if consultationID == "" {
		return errors.New("consultation id is required")
	}

	task := models.SyncTask{
		TaskType:       taskType,
		ConsultationID: consultationID,
		Consultation:   c,
		CreatedAt:      w.now(),
	}
	w.observe(&task)
	return w.push(ctx, task)
}

func (w *SheetsWorker) push(ctx context.Context, task models.SyncTask) error {
	if w.redis != nil {
		if err := w.pushRedis(ctx, redisQueueKey, task); err != nil {
			w.logger.Warn().Err(err).Msg("redis push failed, falling back to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
		return nil
	default:
		return fmt.Errorf("sheets queue full, task for %s dropped", task.ConsultationID)
	}
}

// Start runs the consume loop until ctx is done.
func (w *SheetsWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("started")
	defer func() {
		w.stopTimers()
		w.logger.Info().Msg("stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}

		if w.redis != nil {
			if t, ok := w.tryRedis(ctx); ok {
				w.processTask(ctx, &t)
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case t := <-w.queue:
			w.processTask(ctx, &t)
		}
	}
}

func (w *SheetsWorker) tryLocalQueue() (models.SyncTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.SyncTask{}, false
	}
}

func (w *SheetsWorker) tryRedis(ctx context.Context) (models.SyncTask, bool) {
	res, err := w.redis.BRPop(ctx, w.pollInterval, redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return models.SyncTask{}, false
		}
		w.logger.Error().Err(err).Msg("redis BRPOP error")
		sleepCtx(ctx, w.pollInterval)
		return models.SyncTask{}, false
	}
	if len(res) != 2 {
		return models.SyncTask{}, false
	}
	var task models.SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("decode redis task")
		return models.SyncTask{}, false
	}
	return task, true
}

func (w *SheetsWorker) processTask(ctx context.Context, task *models.SyncTask) {
	if !w.observe(task) {
		w.dropSuperseded(task)
		return
	}
	if err := w.handleTask(ctx, task); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}
	metrics.IncSheetsSync("ok")
	w.logger.Debug().Str("task", task.TaskType).Str("consultation_id", task.ConsultationID).Msg("mirror updated")
}

func (w *SheetsWorker) handleTask(ctx context.Context, task *models.SyncTask) error {
	switch task.TaskType {
	case models.SyncTaskUpsert:
		if task.Consultation == nil {
			return errors.New("consultation payload missing")
		}
		return w.sheets.UpsertConsultation(ctx, task.Consultation)
	case models.SyncTaskDelete:
		if task.ConsultationID == "" {
			return errors.New("consultation id missing")
		}
		return w.sheets.DeleteConsultationRow(ctx, task.ConsultationID)
	default:
		return fmt.Errorf("unknown task type: %s", task.TaskType)
	}
}

func (w *SheetsWorker) retryOrFail(ctx context.Context, task *models.SyncTask, cause error) {
	task.RetryCount++
	task.LastError = cause.Error()

	if task.RetryCount >= w.retryPolicy.MaxRetries {
		metrics.IncSheetsSync("failed")
		w.logger.Error().Err(cause).
			Str("consultation_id", task.ConsultationID).
			Int("attempts", task.RetryCount).
			Msg("sheets task failed permanently")
		w.pushDeadLetter(ctx, task)
		return
	}

	metrics.IncSheetsSync("retry")
	delay := w.retryPolicy.NextDelay(task.RetryCount)
	task.NextRetryAt = w.now().Add(delay)
	w.logger.Warn().Err(cause).
		Str("consultation_id", task.ConsultationID).
		Dur("delay", delay).
		Msg("sheets task will be retried")

	retry := *task
	w.mu.Lock()
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		defer func() {
			w.mu.Lock()
			delete(w.timers, timer)
			w.mu.Unlock()
		}()
		if w.superseded(&retry) {
			w.dropSuperseded(&retry)
			return
		}
		if err := w.push(context.Background(), retry); err != nil {
			w.logger.Error().Err(err).Str("consultation_id", retry.ConsultationID).Msg("requeue failed")
		}
	})
	w.timers[timer] = struct{}{}
	w.mu.Unlock()
}

// observe records task as the newest for its consultation and reports
// whether it is still current. Tasks without CreatedAt are always current.
func (w *SheetsWorker) observe(task *models.SyncTask) bool {
	if task.CreatedAt.IsZero() || task.ConsultationID == "" {
		return true
	}
	w.seenMu.Lock()
	defer w.seenMu.Unlock()

	w.pruneLocked()
	if newest, ok := w.latest[task.ConsultationID]; ok && newest.After(task.CreatedAt) {
		return false
	}
	w.latest[task.ConsultationID] = task.CreatedAt
	return true
}

func (w *SheetsWorker) superseded(task *models.SyncTask) bool {
	if task.CreatedAt.IsZero() {
		return false
	}
	w.seenMu.Lock()
	defer w.seenMu.Unlock()
	newest, ok := w.latest[task.ConsultationID]
	return ok && newest.After(task.CreatedAt)
}

func (w *SheetsWorker) dropSuperseded(task *models.SyncTask) {
	metrics.IncSheetsSync("superseded")
	w.logger.Debug().
		Str("task", task.TaskType).
		Str("consultation_id", task.ConsultationID).
		Int("attempts", task.RetryCount).
		Msg("dropping superseded sheets task")
}

// supersedeWindow bounds how long a task may still be retried after it was
// created. Markers older than that can no longer shadow anything.
func (w *SheetsWorker) supersedeWindow() time.Duration {
	return time.Duration(w.retryPolicy.MaxRetries)*w.retryPolicy.MaxDelay + supersedeGrace
}

func (w *SheetsWorker) pruneLocked() {
	now := w.now()
	window := w.supersedeWindow()
	if now.Sub(w.lastPrune) < window {
		return
	}
	w.lastPrune = now
	cutoff := now.Add(-window)
	for id, at := range w.latest {
		if at.Before(cutoff) {
			delete(w.latest, id)
		}
	}
}

func (w *SheetsWorker) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for t := range w.timers {
		t.Stop()
		delete(w.timers, t)
	}
}

func (w *SheetsWorker) pushRedis(ctx context.Context, key string, task models.SyncTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}

func (w *SheetsWorker) pushDeadLetter(ctx context.Context, task *models.SyncTask) {
	if w.redis == nil {
		return
	}
	if err := w.pushRedis(ctx, deadLetterKey, *task); err != nil {
		w.logger.Error().Err(err).Str("consultation_id", task.ConsultationID).Msg("deadletter push failed")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
