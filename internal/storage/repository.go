// Package storage persists the orchestrator's records. Every processing
// status write is a conditional write keyed on the expected prior status;
// callers learn about lost races through the returned applied flag instead
// of overwriting concurrent transitions.
package storage

import (
	"context"
	"errors"

	"github.com/miadabdi/streamy/internal/lifecycle"
	"github.com/miadabdi/streamy/internal/models"
)

// ErrNotFound reports that a referenced record does not exist. Lookups wrap
// it with the record kind and identifier, so errors.Is(err, ErrNotFound)
// holds for every missing-record failure.
var ErrNotFound = errors.New("record not found")

// CreateAssetParams captures the caller-supplied fields of a new asset.
// ProcessingStatus and PublicID are assigned by the service layer.
type CreateAssetParams struct {
	PublicID    string
	Kind        models.AssetKind
	ChannelID   int64
	Title       string
	Description string
	Status      lifecycle.Status
}

// AssetUpdate mutates optional asset fields. Nil fields are left untouched.
// Processing status is deliberately absent: it only moves through
// UpdateProcessingStatus.
type AssetUpdate struct {
	Title           *string
	Description     *string
	MediaFileID     *int64
	ThumbnailFileID *int64
}

// CreateFileRefParams captures a new blob reference. Size and mimetype may
// be zero until the object-store creation event arrives.
type CreateFileRefParams struct {
	BucketName string
	Path       string
	SizeInByte int64
	Mimetype   string
	OwnerID    int64
}

// CreateSubtitleParams attaches a caption file to an asset. Lang must
// already be a canonical RFC 5646 tag.
type CreateSubtitleParams struct {
	AssetID int64
	Lang    string
	FileID  int64
}

// Repository is the datastore contract consumed by the lifecycle services.
// Implementations must be safe for concurrent use; the Postgres repository
// is the production backend and the memory repository mirrors its
// compare-and-swap semantics for tests.
type Repository interface {
	Ping(ctx context.Context) error
	Close(ctx context.Context) error

	CreateUser(ctx context.Context, email, displayName string) (models.User, error)
	GetUser(ctx context.Context, id int64) (models.User, error)

	CreateChannel(ctx context.Context, ownerID int64, name string) (models.Channel, error)
	GetChannel(ctx context.Context, id int64) (models.Channel, error)

	CreateFileRef(ctx context.Context, params CreateFileRefParams) (models.FileRef, error)
	GetFileRef(ctx context.Context, id int64) (models.FileRef, error)
	FindFileRefByLocation(ctx context.Context, bucket, path string) (models.FileRef, error)
	UpdateFileRefStats(ctx context.Context, bucket, path string, sizeInByte int64, mimetype string) (models.FileRef, error)

	CreateAsset(ctx context.Context, params CreateAssetParams) (models.Asset, error)
	GetAsset(ctx context.Context, id int64) (models.Asset, error)
	GetAssetByPublicID(ctx context.Context, publicID string) (models.Asset, error)
	FindAssetByMediaFile(ctx context.Context, fileID int64) (models.Asset, error)
	UpdateAsset(ctx context.Context, id int64, update AssetUpdate) (models.Asset, error)
	SoftDeleteAsset(ctx context.Context, id int64) error

	// UpdateProcessingStatus moves an asset from the expected prior status to
	// the next one in a single conditional write. When logs is non-nil the
	// processing log is replaced in the same write. The applied result is
	// false when the asset was not in the expected status, which is how
	// concurrent redelivery and duplicate dispatch are detected.
	UpdateProcessingStatus(ctx context.Context, id int64, from, to lifecycle.Status, logs *string) (bool, error)

	// ReleaseAsset stamps isReleased/releasedAt, conditioned on the asset
	// being done and not yet released. applied is false when the condition
	// did not hold; the caller decides between no-op and precondition error
	// by inspecting the returned record.
	ReleaseAsset(ctx context.Context, id int64) (asset models.Asset, applied bool, err error)

	CreateSubtitle(ctx context.Context, params CreateSubtitleParams) (models.Subtitle, error)
	GetSubtitle(ctx context.Context, id int64) (models.Subtitle, error)
	ListSubtitles(ctx context.Context, assetID int64) ([]models.Subtitle, error)
	DeleteSubtitle(ctx context.Context, id int64) error
}
