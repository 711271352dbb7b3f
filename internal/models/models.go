// Package models holds the persistent records tracked by the orchestrator.
package models

import (
	"time"

	"github.com/miadabdi/streamy/internal/lifecycle"
)

// AssetKind distinguishes uploaded videos from live streams. The kind is
// fixed at creation time.
type AssetKind string

const (
	KindOnDemand AssetKind = "vod"
	KindLive     AssetKind = "live"
)

// Asset is a video or live stream moving through the processing lifecycle.
//
// ID is the durable numeric identity. PublicID is the externally facing
// token used in URLs and as the live stream key; it is random, unique and
// never reassigned. ProcessingStatus only changes through accepted
// lifecycle transitions.
type Asset struct {
	ID               int64            `json:"id"`
	PublicID         string           `json:"videoId"`
	Kind             AssetKind        `json:"type"`
	ChannelID        int64            `json:"channelId"`
	Title            string           `json:"title"`
	Description      string           `json:"description,omitempty"`
	ProcessingStatus lifecycle.Status `json:"processingStatus"`
	ProcessingLog    string           `json:"processingLog,omitempty"`
	MediaFileID      *int64           `json:"videoFileId,omitempty"`
	ThumbnailFileID  *int64           `json:"thumbnailFileId,omitempty"`
	IsReleased       bool             `json:"isReleased"`
	ReleasedAt       *time.Time       `json:"releasedAt,omitempty"`
	IsActive         bool             `json:"isActive"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
	DeletedAt        *time.Time       `json:"deletedAt,omitempty"`
}

// FileRef correlates a logical file to its location in the object store.
// Size and mimetype are filled in once the object-store creation event for
// (BucketName, Path) has been observed.
type FileRef struct {
	ID         int64     `json:"id"`
	BucketName string    `json:"bucketName"`
	Path       string    `json:"path"`
	SizeInByte int64     `json:"sizeInByte"`
	Mimetype   string    `json:"mimetype"`
	OwnerID    int64     `json:"userId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Subtitle attaches a language-tagged caption file to an asset. Lang holds
// the canonical RFC 5646 tag.
type Subtitle struct {
	ID        int64     `json:"id"`
	AssetID   int64     `json:"videoId"`
	Lang      string    `json:"langRFC5646"`
	FileID    int64     `json:"fileId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Channel owns assets. Only the channel owner may mutate them.
type Channel struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"ownerId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// User is the acting principal for owner-authorized operations. Credential
// handling lives outside this service; only identity and the admin flag are
// consulted here.
type User struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	IsAdmin     bool   `json:"isAdmin"`
}
