package video

import (
	"context"
	"fmt"

	"github.com/miadabdi/streamy/internal/lifecycle"
	"github.com/miadabdi/streamy/internal/models"
	"github.com/miadabdi/streamy/internal/queue"
)

// Dispatch hands the asset off to the processing workers. The job snapshot
// is taken and published before the asset moves to waiting_in_queue, so a
// crash between the two leaves a job in flight against an asset still in
// its prior state; the conditional write on the worker's first report
// resolves that window.
func (s *Service) Dispatch(ctx context.Context, id int64, actor models.User) (models.Asset, error) {
	asset, err := s.OwnedAsset(ctx, id, actor)
	if err != nil {
		return models.Asset{}, err
	}
	if !lifecycle.Allows(asset.ProcessingStatus, lifecycle.EventDispatchRequested) {
		return models.Asset{}, &StateError{AssetID: id, Operation: "be dispatched", Current: asset.ProcessingStatus}
	}
	msg, err := s.buildProcessMessage(ctx, asset)
	if err != nil {
		return models.Asset{}, err
	}

	err = s.transport.Publish(ctx, queue.QueueVideoProcess, msg)
	s.metrics.ObservePublish(queue.QueueVideoProcess, err)
	if err != nil {
		return models.Asset{}, fmt.Errorf("publish processing job: %w", err)
	}

	applied, err := s.applyTransition(ctx, asset, lifecycle.StatusWaitingInQueue, nil)
	if err != nil {
		return models.Asset{}, err
	}
	if !applied {
		return models.Asset{}, fmt.Errorf("dispatch asset %d: %w", id, ErrConflict)
	}
	return s.store.GetAsset(ctx, id)
}

// buildProcessMessage assembles the self-contained job payload: the media
// object plus every subtitle track with its backing file.
func (s *Service) buildProcessMessage(ctx context.Context, asset models.Asset) (ProcessMessage, error) {
	if asset.MediaFileID == nil {
		return ProcessMessage{}, fmt.Errorf("asset %d: %w", asset.ID, ErrNoMediaFile)
	}
	media, err := s.store.GetFileRef(ctx, *asset.MediaFileID)
	if err != nil {
		return ProcessMessage{}, fmt.Errorf("load media file: %w", err)
	}
	subtitles, err := s.store.ListSubtitles(ctx, asset.ID)
	if err != nil {
		return ProcessMessage{}, fmt.Errorf("load subtitles: %w", err)
	}
	jobs := make([]SubtitleJob, 0, len(subtitles))
	for _, sub := range subtitles {
		file, err := s.store.GetFileRef(ctx, sub.FileID)
		if err != nil {
			return ProcessMessage{}, fmt.Errorf("load subtitle file %d: %w", sub.FileID, err)
		}
		jobs = append(jobs, SubtitleJob{
			ID:         sub.ID,
			Lang:       sub.Lang,
			FileID:     file.ID,
			FilePath:   file.Path,
			BucketName: file.BucketName,
			SizeInByte: file.SizeInByte,
			Mimetype:   file.Mimetype,
		})
	}
	return ProcessMessage{
		VideoID:    asset.ID,
		FileID:     media.ID,
		BucketName: media.BucketName,
		FilePath:   media.Path,
		SizeInByte: media.SizeInByte,
		Mimetype:   media.Mimetype,
		Subs:       jobs,
	}, nil
}
