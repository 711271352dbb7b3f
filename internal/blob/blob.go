// Package blob abstracts the object store holding media files. The
// orchestrator only needs uploads, presigned URLs and the creation
// notifications; everything else about the store is opaque.
package blob

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"
)

// Buckets the application writes into.
const (
	BucketVideos     = "videos"
	BucketThumbnails = "videothumbnails"
	BucketSubtitles  = "subtitles"
)

// ObjectInfo describes a stored object with the coordinates the transcoder
// and the file records need.
type ObjectInfo struct {
	BucketName string
	Path       string
	SizeInByte int64
	Mimetype   string
}

// PresignedUpload is a time-limited PUT target. Path is the generated
// object key the upload will land on; the caller persists it as the file
// record so the creation event can be correlated later.
type PresignedUpload struct {
	URL       string
	Path      string
	ExpiresAt time.Time
}

// Store is the object-store contract consumed by the lifecycle services.
type Store interface {
	// Upload stores body under a generated key inside directory and returns
	// the final object coordinates.
	Upload(ctx context.Context, bucket, directory, filename, contentType string, body []byte) (ObjectInfo, error)
	// PresignedPutURL returns a PUT target for a generated key derived from
	// requestedPath (the extension is preserved, the name is randomized).
	PresignedPutURL(ctx context.Context, bucket, requestedPath string, ttl time.Duration) (PresignedUpload, error)
	// PresignedGetURL returns a time-limited download URL for an existing
	// object.
	PresignedGetURL(ctx context.Context, bucket, objectPath string, ttl time.Duration) (string, error)
}

// randomObjectPath builds "<directory>/<32 hex chars><ext>" so concurrent
// uploads of identically named files never collide in the bucket.
func randomObjectPath(directory, filename string) (string, error) {
	var buffer [16]byte
	if _, err := rand.Read(buffer[:]); err != nil {
		return "", fmt.Errorf("generate object name: %w", err)
	}
	name := hex.EncodeToString(buffer[:]) + strings.ToLower(path.Ext(filename))
	directory = strings.Trim(strings.TrimSpace(directory), "/")
	if directory == "" {
		return name, nil
	}
	return directory + "/" + name, nil
}
