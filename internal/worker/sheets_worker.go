package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"spacehub/internal/domain"
	"spacehub/internal/metrics"
	"spacehub/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Task types stored in sync_queue.task_type.
const (
	TaskUpsert       = "upsert"
	TaskDelete       = "delete"
	TaskUpdateStatus = "update_status"
)

// TaskStore persists sync tasks. *database.DB implements it.
type TaskStore interface {
	CreateSyncTask(ctx context.Context, task *models.SyncTask) error
	GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error)
	UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
}

// rowChange is the JSON kept in SyncTask.Payload.
type rowChange struct {
	BookingID string          `json:"booking_id"`
	Booking   *models.Booking `json:"booking,omitempty"`
	Status    string          `json:"status,omitempty"`
}

func (c rowChange) check(kind string) error {
	switch kind {
	case TaskUpsert:
		if c.Booking == nil {
			return errors.New("upsert without booking snapshot")
		}
	case TaskDelete:
		if c.BookingID == "" {
			return errors.New("delete without booking id")
		}
	case TaskUpdateStatus:
		if c.BookingID == "" || c.Status == "" {
			return errors.New("status change needs booking id and status")
		}
	default:
		return fmt.Errorf("unknown task type %q", kind)
	}
	return nil
}

// SheetsWorker mirrors booking changes into the bookings sheet.
// Every task is written to sync_queue first; the local channel and the
// redis list only shorten the wait before the next poll would find it.
type SheetsWorker struct {
	store  TaskStore
	sheets domain.SheetsWriter
	redis  *redis.Client
	retry  RetryPolicy
	logger *zerolog.Logger

	wake          chan models.SyncTask
	queueKey      string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	now           func() time.Time
}

// NewSheetsWorker builds a worker. redisClient may be nil.
func NewSheetsWorker(store TaskStore, sheets domain.SheetsWriter, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *SheetsWorker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SheetsWorker{
		store:         store,
		sheets:        sheets,
		redis:         redisClient,
		retry:         retry.withDefaults(),
		logger:        logger,
		wake:          make(chan models.SyncTask, 128),
		queueKey:      "spacehub:sheets:queue",
		deadLetterKey: "spacehub:sheets:dead",
		pollInterval:  2 * time.Second,
		batchSize:     20,
		now:           time.Now,
	}
}

// EnqueueTask records a sheet change for the booking. booking may be nil for
// delete and status tasks; its ID fills an empty bookingID.
func (w *SheetsWorker) EnqueueTask(ctx context.Context, taskType, bookingID string, booking *models.Booking, status string) error {
	if bookingID == "" && booking != nil {
		bookingID = booking.ID
	}
	if taskType == "" || bookingID == "" {
		return errors.New("sync task needs a type and a booking id")
	}

	raw, err := json.Marshal(rowChange{BookingID: bookingID, Booking: booking, Status: status})
	if err != nil {
		return fmt.Errorf("encode sync payload: %w", err)
	}
	task := models.SyncTask{
		TaskType:  taskType,
		BookingID: bookingID,
		Payload:   string(raw),
		Status:    models.SyncStatusPending,
	}
	if err := w.store.CreateSyncTask(ctx, &task); err != nil {
		return fmt.Errorf("persist sync task: %w", err)
	}
	w.hint(ctx, task)
	return nil
}

func (w *SheetsWorker) hint(ctx context.Context, task models.SyncTask) {
	if w.redis != nil {
		data, err := json.Marshal(task)
		if err == nil {
			err = w.redis.LPush(ctx, w.queueKey, data).Err()
		}
		if err == nil {
			return
		}
		w.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("redis hint failed, using local queue")
	}
	select {
	case w.wake <- task:
	default:
		// the poller will find it
	}
}

// Start applies queued tasks until ctx is done.
func (w *SheetsWorker) Start(ctx context.Context) {
	w.logger.Info().Dur("poll", w.pollInterval).Msg("sheets worker started")
	defer w.logger.Info().Msg("sheets worker stopped")

	for ctx.Err() == nil {
		batch, err := w.collect(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("load pending sync tasks")
		}
		if len(batch) == 0 {
			select {
			case <-ctx.Done():
			case <-time.After(w.pollInterval):
			}
			continue
		}
		w.runBatch(ctx, batch)
	}
}

// collect prefers hinted tasks and falls back to polling the table.
func (w *SheetsWorker) collect(ctx context.Context) ([]models.SyncTask, error) {
	var batch []models.SyncTask
	for len(batch) < w.batchSize {
		select {
		case t := <-w.wake:
			batch = append(batch, t)
			continue
		default:
		}
		break
	}
	if len(batch) > 0 {
		return batch, nil
	}
	if t, ok := w.popRedis(ctx); ok {
		return []models.SyncTask{t}, nil
	}
	return w.store.GetPendingSyncTasks(ctx, w.batchSize)
}

func (w *SheetsWorker) popRedis(ctx context.Context) (models.SyncTask, bool) {
	var task models.SyncTask
	if w.redis == nil {
		return task, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.queueKey).Result()
	switch {
	case err == nil:
	case errors.Is(err, redis.Nil), ctx.Err() != nil:
		return task, false
	default:
		w.logger.Warn().Err(err).Msg("redis BRPOP failed")
		return task, false
	}
	if len(res) != 2 || json.Unmarshal([]byte(res[1]), &task) != nil {
		w.logger.Error().Strs("reply", res).Msg("undecodable redis sync hint")
		return models.SyncTask{}, false
	}
	return task, true
}

// coalesce drops tasks a later task in the same batch makes pointless:
// an upsert or delete replaces everything queued before it for that booking,
// and a status change replaces an earlier status change.
func coalesce(batch []models.SyncTask) (run, superseded []models.SyncTask) {
	sorted := make([]models.SyncTask, len(batch))
	copy(sorted, batch)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	seen := make(map[int64]bool, len(sorted))
	keep := make([]bool, len(sorted))
	lastStatus := make(map[string]int)
	for i, t := range sorted {
		if seen[t.ID] && t.ID != 0 {
			continue
		}
		seen[t.ID] = true
		keep[i] = true

		switch t.TaskType {
		case TaskUpsert, TaskDelete:
			for j := 0; j < i; j++ {
				if keep[j] && sorted[j].BookingID == t.BookingID {
					keep[j] = false
					superseded = append(superseded, sorted[j])
				}
			}
			delete(lastStatus, t.BookingID)
		case TaskUpdateStatus:
			if prev, ok := lastStatus[t.BookingID]; ok && keep[prev] {
				keep[prev] = false
				superseded = append(superseded, sorted[prev])
			}
			lastStatus[t.BookingID] = i
		}
	}
	for i, t := range sorted {
		if keep[i] {
			run = append(run, t)
		}
	}
	return run, superseded
}

func (w *SheetsWorker) runBatch(ctx context.Context, batch []models.SyncTask) {
	run, superseded := coalesce(batch)
	for _, t := range superseded {
		w.finish(ctx, t, models.SyncStatusCompleted, "superseded", nil)
	}
	for i := range run {
		if ctx.Err() != nil {
			return
		}
		w.apply(ctx, run[i])
	}
}

func (w *SheetsWorker) apply(ctx context.Context, task models.SyncTask) {
	var change rowChange
	if err := json.Unmarshal([]byte(task.Payload), &change); err != nil {
		w.giveUp(ctx, task, fmt.Errorf("decode payload: %w", err))
		return
	}
	if err := change.check(task.TaskType); err != nil {
		w.giveUp(ctx, task, err)
		return
	}
	if w.sheets == nil {
		w.reschedule(ctx, task, errors.New("bookings sheet is not connected"))
		return
	}

	var err error
	switch task.TaskType {
	case TaskUpsert:
		err = w.sheets.UpsertBooking(ctx, change.Booking)
	case TaskDelete:
		err = w.sheets.DeleteBooking(ctx, change.BookingID)
	case TaskUpdateStatus:
		err = w.sheets.UpdateBookingStatus(ctx, change.BookingID, change.Status)
	}
	if err != nil {
		w.reschedule(ctx, task, err)
		return
	}
	w.finish(ctx, task, models.SyncStatusCompleted, "", nil)
}

func (w *SheetsWorker) reschedule(ctx context.Context, task models.SyncTask, cause error) {
	attempt := task.RetryCount + 1
	if w.retry.Exhausted(attempt) {
		w.giveUp(ctx, task, cause)
		return
	}
	at := w.now().Add(w.retry.NextDelay(attempt))
	w.logger.Warn().Err(cause).
		Int64("task_id", task.ID).
		Str("booking_id", task.BookingID).
		Int("attempt", attempt).
		Time("next_retry_at", at).
		Msg("sheet sync deferred")
	w.finish(ctx, task, models.SyncStatusRetry, cause.Error(), &at)
}

func (w *SheetsWorker) giveUp(ctx context.Context, task models.SyncTask, cause error) {
	w.logger.Error().Err(cause).Int64("task_id", task.ID).Str("booking_id", task.BookingID).Msg("sheet sync abandoned")
	w.finish(ctx, task, models.SyncStatusFailed, cause.Error(), nil)

	if w.redis == nil {
		return
	}
	task.Status = models.SyncStatusFailed
	msg := cause.Error()
	task.LastError = &msg
	data, err := json.Marshal(task)
	if err == nil {
		err = w.redis.LPush(ctx, w.deadLetterKey, data).Err()
	}
	if err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("dead-letter push failed")
	}
}

func (w *SheetsWorker) finish(ctx context.Context, task models.SyncTask, status, msg string, next *time.Time) {
	metrics.IncSyncTask(status)
	if err := w.store.UpdateSyncTaskStatus(ctx, task.ID, status, msg, next); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Str("status", status).Msg("update sync task")
	}
}
