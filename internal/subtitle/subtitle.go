// Package subtitle manages caption tracks attached to video assets. Tracks
// are plain files in the subtitle bucket; the processing job snapshots them
// at dispatch time, so edits here only affect future dispatches.
package subtitle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/text/language"

	"github.com/miadabdi/streamy/internal/blob"
	"github.com/miadabdi/streamy/internal/models"
	"github.com/miadabdi/streamy/internal/observability/logging"
	"github.com/miadabdi/streamy/internal/storage"
	"github.com/miadabdi/streamy/internal/video"
)

// ErrBadLanguageTag reports a language code that is not a well-formed
// RFC 5646 tag.
var ErrBadLanguageTag = errors.New("not a valid RFC 5646 language tag")

// Service provides subtitle CRUD. Ownership checks are delegated to the
// video service so the channel-ownership rule lives in one place.
type Service struct {
	store  storage.Repository
	blobs  blob.Store
	videos *video.Service
	logger *slog.Logger
}

func NewService(store storage.Repository, blobs blob.Store, videos *video.Service, logger *slog.Logger) (*Service, error) {
	if store == nil || videos == nil {
		return nil, errors.New("subtitle: store and video service are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		blobs:  blobs,
		videos: videos,
		logger: logging.WithComponent(logger, "subtitle"),
	}, nil
}

// CanonicalTag validates lang and returns its canonical RFC 5646 spelling.
func CanonicalTag(lang string) (string, error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return "", fmt.Errorf("%q: %w", lang, ErrBadLanguageTag)
	}
	return tag.String(), nil
}

// Create uploads the caption body and attaches it to the asset under the
// canonical form of lang.
func (s *Service) Create(ctx context.Context, assetID int64, lang, filename, contentType string, body []byte, actor models.User) (models.Subtitle, error) {
	if s.blobs == nil {
		return models.Subtitle{}, errors.New("subtitle: blob store not configured")
	}
	canonical, err := CanonicalTag(lang)
	if err != nil {
		return models.Subtitle{}, err
	}
	asset, err := s.videos.OwnedAsset(ctx, assetID, actor)
	if err != nil {
		return models.Subtitle{}, err
	}
	info, err := s.blobs.Upload(ctx, blob.BucketSubtitles, asset.PublicID, filename, contentType, body)
	if err != nil {
		return models.Subtitle{}, fmt.Errorf("upload subtitle: %w", err)
	}
	file, err := s.store.CreateFileRef(ctx, storage.CreateFileRefParams{
		BucketName: info.BucketName,
		Path:       info.Path,
		SizeInByte: info.SizeInByte,
		Mimetype:   info.Mimetype,
		OwnerID:    actor.ID,
	})
	if err != nil {
		return models.Subtitle{}, fmt.Errorf("record subtitle file: %w", err)
	}
	sub, err := s.store.CreateSubtitle(ctx, storage.CreateSubtitleParams{
		AssetID: assetID,
		Lang:    canonical,
		FileID:  file.ID,
	})
	if err != nil {
		return models.Subtitle{}, fmt.Errorf("create subtitle: %w", err)
	}
	s.logger.Info("subtitle attached", "asset_id", assetID, "lang", canonical, "file_id", file.ID)
	return sub, nil
}

// List returns the asset's subtitles in creation order.
func (s *Service) List(ctx context.Context, assetID int64, actor models.User) ([]models.Subtitle, error) {
	if _, err := s.videos.OwnedAsset(ctx, assetID, actor); err != nil {
		return nil, err
	}
	return s.store.ListSubtitles(ctx, assetID)
}

// Delete detaches a subtitle from its asset. The underlying object stays in
// the bucket; already-dispatched jobs may still reference it.
func (s *Service) Delete(ctx context.Context, id int64, actor models.User) error {
	sub, err := s.store.GetSubtitle(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.videos.OwnedAsset(ctx, sub.AssetID, actor); err != nil {
		return err
	}
	return s.store.DeleteSubtitle(ctx, id)
}
