// internal/worker/archiver.go
package worker

import (
	"context"

	"escrow-service/internal/domain"
	"escrow-service/internal/repository"

	"go.uber.org/zap"
)

// Archiver drains the escrow event feed into the Postgres archive.
// Only events that carry a record (deposits and registrations) touch the
// archive; everything else is audit-logged by the bus already. Archive
// failures are logged and skipped, the in-memory state machine is the
// source of truth.
type Archiver struct {
	feed    <-chan domain.Event
	archive *repository.RecordArchive
	logger  *zap.Logger
}

func NewArchiver(feed <-chan domain.Event, archive *repository.RecordArchive, logger *zap.Logger) *Archiver {
	return &Archiver{feed: feed, archive: archive, logger: logger}
}

func (a *Archiver) Run(ctx context.Context) {
	a.logger.Info("record archiver started")
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("record archiver stopped")
			return
		case evt := <-a.feed:
			if evt.Record == nil {
				continue
			}
			if err := a.archive.Upsert(ctx, evt.ServiceID, evt.Record); err != nil {
				a.logger.Error("failed to archive record",
					zap.String("event_id", evt.ID),
					zap.Uint64("service_id", evt.ServiceID),
					zap.Uint64("record_id", evt.Record.ID),
					zap.Error(err))
			}
		}
	}
}
