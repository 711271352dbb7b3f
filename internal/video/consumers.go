package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/miadabdi/streamy/internal/blob"
	"github.com/miadabdi/streamy/internal/lifecycle"
	"github.com/miadabdi/streamy/internal/queue"
	"github.com/miadabdi/streamy/internal/storage"
)

// Run registers the service's queue consumers: object-store upload events
// and worker status reports. It returns once the subscriptions are in place;
// delivery runs on the transport's consumer goroutines until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	if err := s.transport.Subscribe(ctx, queue.QueueObjectEvents, s.prefetch, s.instrument(queue.QueueObjectEvents, s.handleObjectEvent)); err != nil {
		return fmt.Errorf("subscribe %s: %w", queue.QueueObjectEvents, err)
	}
	if err := s.transport.Subscribe(ctx, queue.QueueSetVideoStatus, s.prefetch, s.instrument(queue.QueueSetVideoStatus, s.handleStatusMessage)); err != nil {
		return fmt.Errorf("subscribe %s: %w", queue.QueueSetVideoStatus, err)
	}
	return nil
}

func (s *Service) instrument(queueName string, handler queue.Handler) queue.Handler {
	return func(ctx context.Context, body []byte) error {
		err := handler(ctx, body)
		s.metrics.ObserveConsume(queueName, err)
		if err != nil {
			s.logger.Warn("message handling failed", "queue", queueName, "error", err)
		}
		return err
	}
}

// handleObjectEvent correlates an object-store upload notification back to
// its asset. Objects we never issued an upload target for are logged and
// dropped; everything else that fails is returned so the transport
// redelivers.
func (s *Service) handleObjectEvent(ctx context.Context, body []byte) error {
	infos, err := blob.ParseNotification(body)
	if err != nil {
		return fmt.Errorf("parse object event: %w", err)
	}
	for _, info := range infos {
		if err := s.correlateUpload(ctx, info); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) correlateUpload(ctx context.Context, info blob.ObjectInfo) error {
	file, err := s.store.FindFileRefByLocation(ctx, info.BucketName, info.Path)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.Debug("object event for unknown file", "bucket", info.BucketName, "path", info.Path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("find file record: %w", err)
	}
	if _, err := s.store.UpdateFileRefStats(ctx, info.BucketName, info.Path, info.SizeInByte, info.Mimetype); err != nil {
		return fmt.Errorf("update file stats: %w", err)
	}
	asset, err := s.store.FindAssetByMediaFile(ctx, file.ID)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.Debug("object event for unlinked file", "file_id", file.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("find asset for file %d: %w", file.ID, err)
	}
	if asset.ProcessingStatus != lifecycle.StatusReadyForUpload {
		// Redelivery after the transition already happened.
		s.logger.Debug("upload already correlated", "asset_id", asset.ID, "status", string(asset.ProcessingStatus))
		return nil
	}
	applied, err := s.applyTransition(ctx, asset, lifecycle.StatusReadyForProcessing, nil)
	if err != nil {
		return err
	}
	if !applied {
		s.logger.Debug("upload correlation lost race", "asset_id", asset.ID)
	}
	return nil
}

// handleStatusMessage applies a worker's status report. The claimed status
// is parsed, mapped onto a lifecycle event, and validated against the
// asset's current state before the conditional write.
func (s *Service) handleStatusMessage(ctx context.Context, body []byte) error {
	var msg StatusMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("decode status message: %w", err)
	}
	claimed, err := lifecycle.ParseStatus(msg.Status)
	if err != nil {
		return fmt.Errorf("status message for asset %d: %w", msg.VideoID, err)
	}
	event, err := lifecycle.EventForReported(claimed)
	if err != nil {
		return fmt.Errorf("status message for asset %d: %w", msg.VideoID, err)
	}
	asset, err := s.store.GetAsset(ctx, msg.VideoID)
	if err != nil {
		return fmt.Errorf("load asset %d: %w", msg.VideoID, err)
	}
	next, err := lifecycle.Next(asset.ProcessingStatus, event)
	if err != nil {
		return fmt.Errorf("asset %d: %w", asset.ID, err)
	}
	var logs *string
	if msg.Logs != "" {
		logs = &msg.Logs
	}
	applied, err := s.applyTransition(ctx, asset, next, logs)
	if err != nil {
		return err
	}
	if !applied {
		// Raced with another writer; redelivery re-reads the fresh state.
		return fmt.Errorf("asset %d: %w", asset.ID, ErrConflict)
	}
	return nil
}
