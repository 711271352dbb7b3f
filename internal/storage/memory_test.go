package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/miadabdi/streamy/internal/lifecycle"
	"github.com/miadabdi/streamy/internal/models"
)

func newTestAsset(t *testing.T, repo *MemoryRepository, publicID string, status lifecycle.Status) models.Asset {
	t.Helper()
	ctx := context.Background()
	owner, err := repo.CreateUser(ctx, publicID+"@example.com", "Owner")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	channel, err := repo.CreateChannel(ctx, owner.ID, "channel-"+publicID)
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	asset, err := repo.CreateAsset(ctx, CreateAssetParams{
		PublicID:  publicID,
		Kind:      models.KindOnDemand,
		ChannelID: channel.ID,
		Title:     "Test",
		Status:    status,
	})
	if err != nil {
		t.Fatalf("CreateAsset: %v", err)
	}
	return asset
}

func TestMemoryRepositoryRejectsDuplicatePublicID(t *testing.T) {
	repo := NewMemoryRepository()
	newTestAsset(t, repo, "aaaa0000bbbb1111", lifecycle.StatusReadyForUpload)
	_, err := repo.CreateAsset(context.Background(), CreateAssetParams{
		PublicID:  "aaaa0000bbbb1111",
		Kind:      models.KindOnDemand,
		ChannelID: 1,
		Status:    lifecycle.StatusReadyForUpload,
	})
	if err == nil {
		t.Fatal("expected duplicate public id to be rejected")
	}
}

func TestMemoryRepositoryUpdateProcessingStatusCAS(t *testing.T) {
	repo := NewMemoryRepository()
	asset := newTestAsset(t, repo, "cafe0000cafe0000", lifecycle.StatusReadyForProcessing)
	ctx := context.Background()

	applied, err := repo.UpdateProcessingStatus(ctx, asset.ID, lifecycle.StatusReadyForProcessing, lifecycle.StatusWaitingInQueue, nil)
	if err != nil || !applied {
		t.Fatalf("first transition: applied=%v err=%v", applied, err)
	}

	// Same expected prior status on redelivery; the row already moved.
	applied, err = repo.UpdateProcessingStatus(ctx, asset.ID, lifecycle.StatusReadyForProcessing, lifecycle.StatusWaitingInQueue, nil)
	if err != nil {
		t.Fatalf("second transition errored: %v", err)
	}
	if applied {
		t.Fatal("second transition must report applied=false")
	}

	stored, err := repo.GetAsset(ctx, asset.ID)
	if err != nil {
		t.Fatalf("GetAsset: %v", err)
	}
	if stored.ProcessingStatus != lifecycle.StatusWaitingInQueue {
		t.Fatalf("status = %s, want waiting_in_queue", stored.ProcessingStatus)
	}
}

func TestMemoryRepositoryUpdateProcessingStatusWritesLogs(t *testing.T) {
	repo := NewMemoryRepository()
	asset := newTestAsset(t, repo, "feed0000feed0000", lifecycle.StatusProcessing)
	logs := "frame=250 fps=25 done"

	applied, err := repo.UpdateProcessingStatus(context.Background(), asset.ID, lifecycle.StatusProcessing, lifecycle.StatusDone, &logs)
	if err != nil || !applied {
		t.Fatalf("transition: applied=%v err=%v", applied, err)
	}
	stored, _ := repo.GetAsset(context.Background(), asset.ID)
	if stored.ProcessingLog != logs {
		t.Fatalf("processing log = %q, want %q", stored.ProcessingLog, logs)
	}
}

func TestMemoryRepositoryUpdateProcessingStatusMissingAsset(t *testing.T) {
	repo := NewMemoryRepository()
	_, err := repo.UpdateProcessingStatus(context.Background(), 42, lifecycle.StatusProcessing, lifecycle.StatusDone, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryRepositoryReleaseAsset(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	pending := newTestAsset(t, repo, "0000000000000001", lifecycle.StatusProcessing)
	if _, applied, err := repo.ReleaseAsset(ctx, pending.ID); err != nil || applied {
		t.Fatalf("release before done: applied=%v err=%v", applied, err)
	}

	done := newTestAsset(t, repo, "0000000000000002", lifecycle.StatusDone)
	released, applied, err := repo.ReleaseAsset(ctx, done.ID)
	if err != nil || !applied {
		t.Fatalf("release: applied=%v err=%v", applied, err)
	}
	if !released.IsReleased || released.ReleasedAt == nil {
		t.Fatalf("release did not stamp the record: %+v", released)
	}
	firstStamp := *released.ReleasedAt

	// Second release is a no-op and must not re-stamp releasedAt.
	again, applied, err := repo.ReleaseAsset(ctx, done.ID)
	if err != nil || applied {
		t.Fatalf("second release: applied=%v err=%v", applied, err)
	}
	if again.ReleasedAt == nil || !again.ReleasedAt.Equal(firstStamp) {
		t.Fatalf("second release re-stamped releasedAt: %v vs %v", again.ReleasedAt, firstStamp)
	}
}

func TestMemoryRepositoryUploadCorrelationLookups(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	asset := newTestAsset(t, repo, "beef0000beef0000", lifecycle.StatusReadyForUpload)

	file, err := repo.CreateFileRef(ctx, CreateFileRefParams{BucketName: "videos", Path: "raw/beef.mp4", OwnerID: 1})
	if err != nil {
		t.Fatalf("CreateFileRef: %v", err)
	}
	if _, err := repo.UpdateAsset(ctx, asset.ID, AssetUpdate{MediaFileID: &file.ID}); err != nil {
		t.Fatalf("UpdateAsset: %v", err)
	}

	updated, err := repo.UpdateFileRefStats(ctx, "videos", "raw/beef.mp4", 2048, "video/mp4")
	if err != nil {
		t.Fatalf("UpdateFileRefStats: %v", err)
	}
	if updated.SizeInByte != 2048 || updated.Mimetype != "video/mp4" {
		t.Fatalf("stats not applied: %+v", updated)
	}

	found, err := repo.FindAssetByMediaFile(ctx, file.ID)
	if err != nil {
		t.Fatalf("FindAssetByMediaFile: %v", err)
	}
	if found.ID != asset.ID {
		t.Fatalf("found asset %d, want %d", found.ID, asset.ID)
	}

	if _, err := repo.FindFileRefByLocation(ctx, "thumbnails", "raw/beef.mp4"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unrelated bucket lookup err = %v, want ErrNotFound", err)
	}
}

func TestMemoryRepositorySoftDeleteKeepsStatus(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	asset := newTestAsset(t, repo, "dead0000dead0000", lifecycle.StatusWaitingInQueue)

	if err := repo.SoftDeleteAsset(ctx, asset.ID); err != nil {
		t.Fatalf("SoftDeleteAsset: %v", err)
	}
	stored, err := repo.GetAsset(ctx, asset.ID)
	if err != nil {
		t.Fatalf("GetAsset after delete: %v", err)
	}
	if stored.IsActive || stored.DeletedAt == nil {
		t.Fatalf("soft delete flags not set: %+v", stored)
	}
	if stored.ProcessingStatus != lifecycle.StatusWaitingInQueue {
		t.Fatalf("soft delete must not touch processing status, got %s", stored.ProcessingStatus)
	}
}

func TestMemoryRepositorySubtitles(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	asset := newTestAsset(t, repo, "f00d0000f00d0000", lifecycle.StatusReadyForUpload)

	first, err := repo.CreateSubtitle(ctx, CreateSubtitleParams{AssetID: asset.ID, Lang: "en-US", FileID: 7})
	if err != nil {
		t.Fatalf("CreateSubtitle: %v", err)
	}
	if _, err := repo.CreateSubtitle(ctx, CreateSubtitleParams{AssetID: asset.ID, Lang: "fa", FileID: 8}); err != nil {
		t.Fatalf("CreateSubtitle: %v", err)
	}

	subs, err := repo.ListSubtitles(ctx, asset.ID)
	if err != nil {
		t.Fatalf("ListSubtitles: %v", err)
	}
	if len(subs) != 2 || subs[0].ID != first.ID {
		t.Fatalf("unexpected subtitles: %+v", subs)
	}

	if err := repo.DeleteSubtitle(ctx, first.ID); err != nil {
		t.Fatalf("DeleteSubtitle: %v", err)
	}
	if _, err := repo.GetSubtitle(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetSubtitle after delete err = %v, want ErrNotFound", err)
	}
}
