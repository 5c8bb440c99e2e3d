package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/salon/internal/logging"
	"github.com/JonMunkholm/salon/internal/model"
	"github.com/JonMunkholm/salon/internal/source"
	"github.com/JonMunkholm/salon/internal/store"
)

// Ingest normalizes, links and stores every table in batch. Tables load in
// stage order so bookings resolve against the clients and services written
// earlier in the same run; a link-stage table is skipped with
// ErrDependencyFailed when a table of an earlier stage fails.
//
// Per-table failures are reported in the Report, not returned. The error
// is non-nil only when the run could not start at all.
func (s *Service) Ingest(ctx context.Context, batch Batch) (Report, error) {
	if len(batch) == 0 {
		return Report{}, ErrNoFiles
	}
	for key := range batch {
		if _, ok := Get(key); !ok {
			return Report{}, fmt.Errorf("%w: %q", store.ErrUnknownTable, key)
		}
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return Report{}, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report := Report{RunID: uuid.New().String(), Started: time.Now()}
	logger := logging.WithFields(ctx, "run_id", report.RunID)
	logger.Info("import started", "tables", len(batch))

	lookup := NewCachedLookup(StoreLookup{Store: s.store})
	failed := make(map[Stage]bool)

	for _, def := range All() {
		t, ok := batch[def.Info.Key]
		if !ok || t == nil {
			continue
		}

		var tr TableReport
		if earlierStageFailed(failed, def.Info.Stage) {
			tr = TableReport{Table: def.Info.Key, Source: t.Name, Read: t.Len(), Err: ErrDependencyFailed}
		} else {
			tr = s.loadTable(ctx, def, t, lookup)
		}

		if tr.Err != nil {
			failed[def.Info.Stage] = true
			msg := MapError(tr.Err)
			tr.Error = &msg
			logger.Error("table import failed",
				"table", tr.Table,
				"source", tr.Source,
				"code", msg.Code,
				"error", tr.Err,
			)
		} else {
			logger.Info("table imported",
				"table", tr.Table,
				"source", tr.Source,
				"read", tr.Read,
				"written", tr.Written,
				"defaulted", tr.Defaulted,
				"rejected", tr.Rejected,
			)
		}

		s.metrics.TableLoad(tr.Table, tr.Read, tr.Written, tr.Defaulted, tr.Rejected, tr.Failed())
		report.Tables = append(report.Tables, tr)
	}

	if cascaded := cascadedBookings(report); cascaded > 0 {
		if _, reloaded := batch[model.TableClientService]; !reloaded {
			msg := fmt.Sprintf("%d bookings were removed with the replaced clients and services; import bookings again to restore them", cascaded)
			report.Warnings = append(report.Warnings, msg)
			logger.Warn("bookings removed by import", "count", cascaded)
		}
	}

	report.Duration = time.Since(report.Started)
	s.metrics.ImportDone(report.Duration)
	logger.Info("import finished", "duration", report.Duration, "failed", report.Failed())

	return report, nil
}

func cascadedBookings(report Report) int {
	n := 0
	for _, tr := range report.Tables {
		n += tr.Cascaded
	}
	return n
}

func earlierStageFailed(failed map[Stage]bool, stage Stage) bool {
	for st, f := range failed {
		if f && st < stage {
			return true
		}
	}
	return false
}

// loadTable runs one table through normalize, build and replace. A panic in
// a table's Build is turned into a table failure.
func (s *Service) loadTable(ctx context.Context, def TableDefinition, t *source.Table, lookup Lookup) (tr TableReport) {
	tr = TableReport{Table: def.Info.Key, Source: t.Name, Read: t.Len()}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in table import", "table", def.Info.Key, "panic", r)
			tr.Err = fmt.Errorf("import %s: panic: %v", def.Info.Key, r)
		}
	}()

	if err := ctx.Err(); err != nil {
		tr.Err = err
		return tr
	}

	norm := NormalizeBatch(t, s.mappings[def.Info.Key], s.opts)
	tr.Issues = norm.Issues
	tr.Skipped = norm.Skipped
	tr.Defaulted = norm.Defaulted()

	built, err := def.Build(ctx, norm.Rows, lookup)
	tr.Rejects = built.Rejects
	tr.Rejected = len(built.Rejects)
	tr.Issues = append(tr.Issues, built.Issues...)
	tr.Defaulted += len(built.Issues)
	if err != nil {
		tr.Err = fmt.Errorf("build %s: %w", def.Info.Key, err)
		return tr
	}

	bookingsBefore := -1
	if def.Info.Stage < StageLinks {
		bookingsBefore = s.countBookings(ctx)
	}

	if err := s.store.ClearAndBulkInsert(ctx, def.Info.Key, built.Rows); err != nil {
		tr.Err = fmt.Errorf("write %s: %w", def.Info.Key, err)
		return tr
	}
	tr.Written = len(built.Rows)

	if bookingsBefore > 0 {
		if after := s.countBookings(ctx); after >= 0 && after < bookingsBefore {
			tr.Cascaded = bookingsBefore - after
		}
	}
	return tr
}

// countBookings returns the number of stored bookings, or -1 when the
// store cannot say.
func (s *Service) countBookings(ctx context.Context) int {
	n, err := s.store.Count(ctx, model.TableClientService)
	if err != nil {
		logging.FromContext(ctx).Warn("count bookings failed", "error", err)
		return -1
	}
	return n
}
