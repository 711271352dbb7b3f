//go:build postgres

package storage

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/miadabdi/streamy/internal/lifecycle"
	"github.com/miadabdi/streamy/internal/models"
)

func openPostgresForTest(t *testing.T) *PostgresRepository {
	t.Helper()
	dsn := os.Getenv("STREAMY_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("STREAMY_TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	repo, err := NewPostgresRepository(ctx, PostgresConfig{DSN: dsn, ApplicationName: "streamy-test"})
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = repo.Close(closeCtx)
	})
	return repo
}

func TestPostgresConditionalStatusWrite(t *testing.T) {
	repo := openPostgresForTest(t)
	ctx := context.Background()

	owner, err := repo.CreateUser(ctx, fmt.Sprintf("it-%d@example.com", time.Now().UnixNano()), "Integration")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	channel, err := repo.CreateChannel(ctx, owner.ID, "it-channel")
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	asset, err := repo.CreateAsset(ctx, CreateAssetParams{
		PublicID:  fmt.Sprintf("%016x", time.Now().UnixNano()),
		Kind:      models.KindOnDemand,
		ChannelID: channel.ID,
		Title:     "integration",
		Status:    lifecycle.StatusReadyForProcessing,
	})
	if err != nil {
		t.Fatalf("CreateAsset: %v", err)
	}

	applied, err := repo.UpdateProcessingStatus(ctx, asset.ID, lifecycle.StatusReadyForProcessing, lifecycle.StatusWaitingInQueue, nil)
	if err != nil || !applied {
		t.Fatalf("first CAS: applied=%v err=%v", applied, err)
	}
	applied, err = repo.UpdateProcessingStatus(ctx, asset.ID, lifecycle.StatusReadyForProcessing, lifecycle.StatusWaitingInQueue, nil)
	if err != nil {
		t.Fatalf("second CAS errored: %v", err)
	}
	if applied {
		t.Fatal("second CAS must lose the race")
	}
}

// TestPostgresFileRecordRoundTrip walks a file record through every query
// the upload path issues, so the schema and the SQL stay in agreement.
func TestPostgresFileRecordRoundTrip(t *testing.T) {
	repo := openPostgresForTest(t)
	ctx := context.Background()

	owner, err := repo.CreateUser(ctx, fmt.Sprintf("it-files-%d@example.com", time.Now().UnixNano()), "Integration")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	objectPath := fmt.Sprintf("raw/%016x.mp4", time.Now().UnixNano())
	file, err := repo.CreateFileRef(ctx, CreateFileRefParams{
		BucketName: "videos",
		Path:       objectPath,
		OwnerID:    owner.ID,
	})
	if err != nil {
		t.Fatalf("CreateFileRef: %v", err)
	}
	if file.OwnerID != owner.ID {
		t.Fatalf("OwnerID = %d, want %d", file.OwnerID, owner.ID)
	}

	fetched, err := repo.GetFileRef(ctx, file.ID)
	if err != nil {
		t.Fatalf("GetFileRef: %v", err)
	}
	if fetched.Path != objectPath || fetched.OwnerID != owner.ID {
		t.Fatalf("GetFileRef = %+v", fetched)
	}

	located, err := repo.FindFileRefByLocation(ctx, "videos", objectPath)
	if err != nil {
		t.Fatalf("FindFileRefByLocation: %v", err)
	}
	if located.ID != file.ID {
		t.Fatalf("FindFileRefByLocation id = %d, want %d", located.ID, file.ID)
	}

	updated, err := repo.UpdateFileRefStats(ctx, "videos", objectPath, 4096, "video/mp4")
	if err != nil {
		t.Fatalf("UpdateFileRefStats: %v", err)
	}
	if updated.SizeInByte != 4096 || updated.Mimetype != "video/mp4" {
		t.Fatalf("UpdateFileRefStats = %+v", updated)
	}
}
