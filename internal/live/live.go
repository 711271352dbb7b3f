// Package live gates RTMP publishes from the media server and hands
// accepted streams to the live processing workers. The stream key is the
// asset's public identifier: publishing is only allowed for a live asset
// that is ready to be dispatched.
package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/miadabdi/streamy/internal/lifecycle"
	"github.com/miadabdi/streamy/internal/models"
	"github.com/miadabdi/streamy/internal/notify"
	"github.com/miadabdi/streamy/internal/observability/logging"
	"github.com/miadabdi/streamy/internal/observability/metrics"
	"github.com/miadabdi/streamy/internal/queue"
	"github.com/miadabdi/streamy/internal/storage"
	"github.com/miadabdi/streamy/internal/video"
)

// AppName is the only RTMP application accepted for publishing.
const AppName = "live"

// ErrAppNotAllowed reports a publish attempt on an RTMP application other
// than AppName.
var ErrAppNotAllowed = errors.New("rtmp application not allowed")

// ProcessMessage is the job published to the live processing queue when a
// publish is accepted. VideoID carries the public identifier, which doubles
// as the stream key the worker pulls from the media server.
type ProcessMessage struct {
	VideoID   string `json:"videoId"`
	StreamKey string `json:"streamKey"`
	App       string `json:"app"`
}

// Service authorizes publish attempts and dispatches live jobs.
type Service struct {
	store     storage.Repository
	transport queue.Transport
	notifier  notify.Notifier
	metrics   *metrics.Recorder
	logger    *slog.Logger
}

func NewService(store storage.Repository, transport queue.Transport, notifier notify.Notifier, recorder *metrics.Recorder, logger *slog.Logger) (*Service, error) {
	if store == nil || transport == nil {
		return nil, errors.New("live: store and transport are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		transport: transport,
		notifier:  notifier,
		metrics:   recorder,
		logger:    logging.WithComponent(logger, "live"),
	}, nil
}

// AuthorizePublish decides whether the media server may accept an incoming
// stream. On success the live job is already on the queue and the asset sits
// in waiting_in_queue.
func (s *Service) AuthorizePublish(ctx context.Context, app, streamKey string) (models.Asset, error) {
	if app != AppName {
		return models.Asset{}, fmt.Errorf("app %q: %w", app, ErrAppNotAllowed)
	}
	asset, err := s.store.GetAssetByPublicID(ctx, streamKey)
	if err != nil {
		return models.Asset{}, err
	}
	if asset.Kind != models.KindLive || !asset.IsActive {
		return models.Asset{}, fmt.Errorf("stream key %q: %w", streamKey, storage.ErrNotFound)
	}
	if !lifecycle.Allows(asset.ProcessingStatus, lifecycle.EventDispatchRequested) {
		return models.Asset{}, &video.StateError{AssetID: asset.ID, Operation: "go live", Current: asset.ProcessingStatus}
	}

	err = s.transport.Publish(ctx, queue.QueueLiveProcess, ProcessMessage{
		VideoID:   asset.PublicID,
		StreamKey: streamKey,
		App:       app,
	})
	s.metrics.ObservePublish(queue.QueueLiveProcess, err)
	if err != nil {
		return models.Asset{}, fmt.Errorf("publish live job: %w", err)
	}

	applied, err := s.store.UpdateProcessingStatus(ctx, asset.ID, asset.ProcessingStatus, lifecycle.StatusWaitingInQueue, nil)
	if err != nil {
		return models.Asset{}, err
	}
	if !applied {
		return models.Asset{}, fmt.Errorf("stream key %q: %w", streamKey, video.ErrConflict)
	}
	s.metrics.ObserveTransition(string(asset.ProcessingStatus), string(lifecycle.StatusWaitingInQueue))
	s.logger.Info("live publish accepted", "asset_id", asset.ID, "stream_key", streamKey)
	if s.notifier != nil {
		if err := s.notifier.StatusChanged(ctx, asset.ID, asset.PublicID, lifecycle.StatusWaitingInQueue); err != nil {
			s.logger.Warn("status notification failed", "asset_id", asset.ID, "error", err)
		}
	}
	return s.store.GetAsset(ctx, asset.ID)
}

// EndPublish records that the stream stopped. The worker owns the final
// status report; this is bookkeeping only.
func (s *Service) EndPublish(ctx context.Context, app, streamKey string) {
	asset, err := s.store.GetAssetByPublicID(ctx, streamKey)
	if err != nil {
		s.logger.Debug("unpublish for unknown stream key", "app", app, "stream_key", streamKey)
		return
	}
	s.logger.Info("live publish ended", "asset_id", asset.ID, "stream_key", streamKey, "status", string(asset.ProcessingStatus))
}
