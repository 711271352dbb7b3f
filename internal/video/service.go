package video

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/miadabdi/streamy/internal/blob"
	"github.com/miadabdi/streamy/internal/lifecycle"
	"github.com/miadabdi/streamy/internal/models"
	"github.com/miadabdi/streamy/internal/notify"
	"github.com/miadabdi/streamy/internal/observability/logging"
	"github.com/miadabdi/streamy/internal/observability/metrics"
	"github.com/miadabdi/streamy/internal/queue"
	"github.com/miadabdi/streamy/internal/storage"
)

const (
	publicIDBytes     = 8
	defaultPresignTTL = time.Hour
	defaultPrefetch   = 10
)

// Config wires a Service to its collaborators. Store and Transport are
// required; the rest degrade to no-ops when absent.
type Config struct {
	Store      storage.Repository
	Transport  queue.Transport
	Blobs      blob.Store
	Notifier   notify.Notifier
	Metrics    *metrics.Recorder
	Logger     *slog.Logger
	PresignTTL time.Duration
	Prefetch   int
}

// Service owns the video lifecycle: creation, upload correlation, dispatch
// to workers, status ingestion, and release. All state transitions funnel
// through the lifecycle table and the store's conditional status write.
type Service struct {
	store      storage.Repository
	transport  queue.Transport
	blobs      blob.Store
	notifier   notify.Notifier
	metrics    *metrics.Recorder
	logger     *slog.Logger
	presignTTL time.Duration
	prefetch   int
	randRead   func([]byte) (int, error)
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("video: store is required")
	}
	if cfg.Transport == nil {
		return nil, errors.New("video: transport is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = defaultPresignTTL
	}
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}
	return &Service{
		store:      cfg.Store,
		transport:  cfg.Transport,
		blobs:      cfg.Blobs,
		notifier:   cfg.Notifier,
		metrics:    cfg.Metrics,
		logger:     logging.WithComponent(logger, "video"),
		presignTTL: ttl,
		prefetch:   prefetch,
		randRead:   rand.Read,
	}, nil
}

// CreateParams describes a new asset. Kind defaults to on-demand.
type CreateParams struct {
	ChannelID   int64
	Title       string
	Description string
	Kind        models.AssetKind
}

// Create registers a new asset under the actor's channel. The public
// identifier is generated server side and checked against the store until a
// free one is found.
func (s *Service) Create(ctx context.Context, params CreateParams, actor models.User) (models.Asset, error) {
	if params.Title == "" {
		return models.Asset{}, errors.New("video: title is required")
	}
	if err := s.assertChannelOwner(ctx, params.ChannelID, actor); err != nil {
		return models.Asset{}, err
	}
	kind := params.Kind
	if kind == "" {
		kind = models.KindOnDemand
	}
	publicID, err := s.generatePublicID(ctx)
	if err != nil {
		return models.Asset{}, err
	}
	asset, err := s.store.CreateAsset(ctx, storage.CreateAssetParams{
		PublicID:    publicID,
		Kind:        kind,
		ChannelID:   params.ChannelID,
		Title:       params.Title,
		Description: params.Description,
		Status:      lifecycle.Initial(kind == models.KindLive),
	})
	if err != nil {
		return models.Asset{}, fmt.Errorf("create asset: %w", err)
	}
	s.logger.Info("asset created", "asset_id", asset.ID, "public_id", asset.PublicID, "kind", string(kind))
	return asset, nil
}

// Get returns the asset by its internal identifier.
func (s *Service) Get(ctx context.Context, id int64) (models.Asset, error) {
	return s.store.GetAsset(ctx, id)
}

// GetByPublicID returns the asset addressed by its public identifier.
func (s *Service) GetByPublicID(ctx context.Context, publicID string) (models.Asset, error) {
	return s.store.GetAssetByPublicID(ctx, publicID)
}

// UpdateParams carries the mutable metadata fields. Nil means unchanged.
type UpdateParams struct {
	Title       *string
	Description *string
}

// Update edits the asset's metadata. Processing state is never touched here.
func (s *Service) Update(ctx context.Context, id int64, params UpdateParams, actor models.User) (models.Asset, error) {
	if _, err := s.OwnedAsset(ctx, id, actor); err != nil {
		return models.Asset{}, err
	}
	return s.store.UpdateAsset(ctx, id, storage.AssetUpdate{
		Title:       params.Title,
		Description: params.Description,
	})
}

// Delete soft deletes the asset. The row and its processing history stay in
// the store.
func (s *Service) Delete(ctx context.Context, id int64, actor models.User) error {
	if _, err := s.OwnedAsset(ctx, id, actor); err != nil {
		return err
	}
	return s.store.SoftDeleteAsset(ctx, id)
}

// Release publishes a processed asset. Only assets whose processing finished
// may be released; releasing an already released asset is a no-op that
// returns the stored record unchanged.
func (s *Service) Release(ctx context.Context, id int64, actor models.User) (models.Asset, error) {
	asset, err := s.OwnedAsset(ctx, id, actor)
	if err != nil {
		return models.Asset{}, err
	}
	if asset.ProcessingStatus != lifecycle.StatusDone {
		return models.Asset{}, &StateError{AssetID: id, Operation: "be released", Current: asset.ProcessingStatus}
	}
	released, applied, err := s.store.ReleaseAsset(ctx, id)
	if err != nil {
		return models.Asset{}, err
	}
	if applied {
		s.logger.Info("asset released", "asset_id", id)
	}
	return released, nil
}

// UploadTarget returns a presigned PUT URL for the asset's media object and
// records the pending file so the object-store notification can be
// correlated back to this asset.
func (s *Service) UploadTarget(ctx context.Context, id int64, filename string, actor models.User) (blob.PresignedUpload, models.FileRef, error) {
	if s.blobs == nil {
		return blob.PresignedUpload{}, models.FileRef{}, errors.New("video: blob store not configured")
	}
	asset, err := s.OwnedAsset(ctx, id, actor)
	if err != nil {
		return blob.PresignedUpload{}, models.FileRef{}, err
	}
	if asset.ProcessingStatus != lifecycle.StatusReadyForUpload {
		return blob.PresignedUpload{}, models.FileRef{}, &StateError{AssetID: id, Operation: "accept an upload", Current: asset.ProcessingStatus}
	}
	upload, err := s.blobs.PresignedPutURL(ctx, blob.BucketVideos, filename, s.presignTTL)
	if err != nil {
		return blob.PresignedUpload{}, models.FileRef{}, fmt.Errorf("presign upload: %w", err)
	}
	file, err := s.store.CreateFileRef(ctx, storage.CreateFileRefParams{
		BucketName: blob.BucketVideos,
		Path:       upload.Path,
		OwnerID:    actor.ID,
	})
	if err != nil {
		return blob.PresignedUpload{}, models.FileRef{}, fmt.Errorf("record upload target: %w", err)
	}
	if _, err := s.store.UpdateAsset(ctx, id, storage.AssetUpdate{MediaFileID: &file.ID}); err != nil {
		return blob.PresignedUpload{}, models.FileRef{}, fmt.Errorf("link upload target: %w", err)
	}
	s.logger.Info("upload target issued", "asset_id", id, "bucket", blob.BucketVideos, "path", upload.Path)
	return upload, file, nil
}

// MediaURL returns a time-limited download URL for the asset's media
// object, for operators inspecting a stuck or failed job.
func (s *Service) MediaURL(ctx context.Context, id int64, actor models.User) (string, error) {
	if s.blobs == nil {
		return "", errors.New("video: blob store not configured")
	}
	asset, err := s.OwnedAsset(ctx, id, actor)
	if err != nil {
		return "", err
	}
	if asset.MediaFileID == nil {
		return "", fmt.Errorf("asset %d: %w", id, ErrNoMediaFile)
	}
	file, err := s.store.GetFileRef(ctx, *asset.MediaFileID)
	if err != nil {
		return "", err
	}
	return s.blobs.PresignedGetURL(ctx, file.BucketName, file.Path, s.presignTTL)
}

// SetThumbnail stores the thumbnail object and links it to the asset.
func (s *Service) SetThumbnail(ctx context.Context, id int64, filename, contentType string, body []byte, actor models.User) (models.FileRef, error) {
	if s.blobs == nil {
		return models.FileRef{}, errors.New("video: blob store not configured")
	}
	asset, err := s.OwnedAsset(ctx, id, actor)
	if err != nil {
		return models.FileRef{}, err
	}
	info, err := s.blobs.Upload(ctx, blob.BucketThumbnails, asset.PublicID, filename, contentType, body)
	if err != nil {
		return models.FileRef{}, fmt.Errorf("upload thumbnail: %w", err)
	}
	file, err := s.store.CreateFileRef(ctx, storage.CreateFileRefParams{
		BucketName: info.BucketName,
		Path:       info.Path,
		SizeInByte: info.SizeInByte,
		Mimetype:   info.Mimetype,
		OwnerID:    actor.ID,
	})
	if err != nil {
		return models.FileRef{}, fmt.Errorf("record thumbnail: %w", err)
	}
	if _, err := s.store.UpdateAsset(ctx, id, storage.AssetUpdate{ThumbnailFileID: &file.ID}); err != nil {
		return models.FileRef{}, fmt.Errorf("link thumbnail: %w", err)
	}
	return file, nil
}

// OwnedAsset loads the asset and verifies the actor owns its channel.
// Admins pass the ownership check for any asset.
func (s *Service) OwnedAsset(ctx context.Context, id int64, actor models.User) (models.Asset, error) {
	asset, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return models.Asset{}, err
	}
	if err := s.assertChannelOwner(ctx, asset.ChannelID, actor); err != nil {
		return models.Asset{}, err
	}
	return asset, nil
}

func (s *Service) assertChannelOwner(ctx context.Context, channelID int64, actor models.User) error {
	channel, err := s.store.GetChannel(ctx, channelID)
	if err != nil {
		return err
	}
	if channel.OwnerID != actor.ID && !actor.IsAdmin {
		return fmt.Errorf("channel %d: %w", channelID, ErrForbidden)
	}
	return nil
}

// generatePublicID draws random identifiers until one is free. Collisions
// regenerate and retry; only entropy or store failures end the loop.
func (s *Service) generatePublicID(ctx context.Context) (string, error) {
	for {
		buf := make([]byte, publicIDBytes)
		if _, err := s.randRead(buf); err != nil {
			return "", fmt.Errorf("generate public id: %w", err)
		}
		candidate := hex.EncodeToString(buf)
		_, err := s.store.GetAssetByPublicID(ctx, candidate)
		if errors.Is(err, storage.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("check public id: %w", err)
		}
	}
}

// applyTransition performs the conditional status write and the bookkeeping
// that follows every successful transition.
func (s *Service) applyTransition(ctx context.Context, asset models.Asset, next lifecycle.Status, logs *string) (bool, error) {
	applied, err := s.store.UpdateProcessingStatus(ctx, asset.ID, asset.ProcessingStatus, next, logs)
	if err != nil {
		return false, err
	}
	if !applied {
		return false, nil
	}
	s.metrics.ObserveTransition(string(asset.ProcessingStatus), string(next))
	s.logger.Info("status transition",
		"asset_id", asset.ID,
		"from", string(asset.ProcessingStatus),
		"to", string(next))
	if s.notifier != nil {
		if err := s.notifier.StatusChanged(ctx, asset.ID, asset.PublicID, next); err != nil {
			s.logger.Warn("status notification failed", "asset_id", asset.ID, "error", err)
		}
	}
	return true, nil
}
