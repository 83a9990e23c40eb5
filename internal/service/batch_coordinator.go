package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/agenda-api/internal/models"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
	"github.com/noah-isme/agenda-api/pkg/timeutil"
)

// BatchUpdate is one independent partial update inside a batch.
type BatchUpdate struct {
	AppointmentID string
	Patch         models.AppointmentPatch
}

// BatchCoordinator applies updates one by one. Each item is atomic on its own; the batch is not.
type BatchCoordinator struct {
	store    AppointmentStore
	detector *ConflictDetector
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewBatchCoordinator constructs the coordinator.
func NewBatchCoordinator(store AppointmentStore, metrics *MetricsService, logger *zap.Logger) *BatchCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchCoordinator{store: store, detector: NewConflictDetector(store), metrics: metrics, logger: logger}
}

// ApplyBatch validates every item independently, then applies the valid ones in input order.
// Structurally invalid items are reported under failed and never reach the store. Items that
// would collide with a confirmed appointment are skipped and reported; store failures are
// reported per item. Already applied items are never rolled back.
func (b *BatchCoordinator) ApplyBatch(ctx context.Context, calendarID string, items []BatchUpdate) (*models.BatchResult, error) {
	updates := append([]BatchUpdate(nil), items...)
	rejected := make(map[int]error)
	for i := range updates {
		updates[i].Patch = normalizePatch(updates[i].Patch)
		if problems := batchItemProblems(updates[i]); len(problems) > 0 {
			rejected[i] = invalidAppointment(calendarID, problems, timeOrZero(updates[i].Patch.Start), timeOrZero(updates[i].Patch.End))
		}
	}

	result := &models.BatchResult{
		Updated:   []models.Appointment{},
		Conflicts: []models.BatchConflict{},
		Failed:    []models.BatchFailure{},
	}
	for i, update := range updates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err, ok := rejected[i]; ok {
			result.Failed = append(result.Failed, batchFailure(i, update, err))
			continue
		}
		b.applyOne(ctx, calendarID, i, update, result)
	}

	b.metrics.RecordBatch(len(result.Updated), len(result.Conflicts), len(result.Failed))
	b.logger.Info("batch applied",
		zap.String("calendar_id", calendarID),
		zap.Int("updated", len(result.Updated)),
		zap.Int("conflicts", len(result.Conflicts)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

func (b *BatchCoordinator) applyOne(ctx context.Context, calendarID string, index int, update BatchUpdate, result *models.BatchResult) {
	fail := func(err error) {
		result.Failed = append(result.Failed, batchFailure(index, update, err))
	}

	current, err := b.store.Get(ctx, calendarID, update.AppointmentID)
	if err != nil {
		fail(err)
		return
	}

	merged := update.Patch.Apply(*current)
	if problems := (models.AppointmentFields{Title: merged.Title, Start: merged.Start, End: merged.End, Priority: merged.Priority}).Problems(); len(problems) > 0 {
		fail(invalidAppointment(calendarID, problems, merged.Start, merged.End))
		return
	}

	if merged.IsConfirmed() {
		conflicts, err := b.detector.FindConflicts(ctx, calendarID, merged.Start, merged.End, merged.ID)
		if err != nil {
			fail(err)
			return
		}
		if len(conflicts) > 0 {
			result.Conflicts = append(result.Conflicts, models.BatchConflict{
				UpdateIndex:   index,
				AppointmentID: update.AppointmentID,
				Conflicts:     conflicts,
			})
			return
		}
	}

	patch := update.Patch
	if patch.ExpectedVersion == nil {
		version := current.Version
		patch.ExpectedVersion = &version
	}
	updated, err := b.store.Update(ctx, calendarID, update.AppointmentID, patch)
	if err != nil {
		b.logger.Warn("batch item failed",
			zap.String("calendar_id", calendarID),
			zap.Int("update_index", index),
			zap.Error(err),
		)
		fail(err)
		return
	}
	result.Updated = append(result.Updated, *updated)
}

// batchItemProblems checks what can be judged without reading the store.
func batchFailure(index int, update BatchUpdate, err error) models.BatchFailure {
	appErr := appErrors.FromError(err)
	return models.BatchFailure{
		UpdateIndex:   index,
		AppointmentID: update.AppointmentID,
		Code:          appErr.Code,
		Message:       appErr.Message,
	}
}

func batchItemProblems(update BatchUpdate) []string {
	var problems []string
	p := update.Patch
	if strings.TrimSpace(update.AppointmentID) == "" {
		problems = append(problems, "appointment id is required")
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		problems = append(problems, "title must not be empty")
	}
	if p.Priority != nil && !models.ValidPriority(*p.Priority) {
		problems = append(problems, "priority must be between 1 and 5")
	}
	if p.Start != nil && p.End != nil && !p.Start.Before(*p.End) {
		problems = append(problems, "start must be before end")
	}
	if p.Status != nil && *p.Status != models.AppointmentStatusConfirmed && *p.Status != models.AppointmentStatusCancelled {
		problems = append(problems, fmt.Sprintf("unknown status %q", *p.Status))
	}
	return problems
}

func normalizePatch(p models.AppointmentPatch) models.AppointmentPatch {
	if p.Start != nil {
		s := timeutil.Normalize(*p.Start)
		p.Start = &s
	}
	if p.End != nil {
		e := timeutil.Normalize(*p.End)
		p.End = &e
	}
	return p
}
