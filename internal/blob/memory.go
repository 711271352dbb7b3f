package blob

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for tests. Uploaded objects are kept
// in memory and presigned URLs are fabricated but structurally realistic.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Fail makes every subsequent call return err. Pass nil to recover.
func (m *MemoryStore) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MemoryStore) Upload(_ context.Context, bucket, directory, filename, contentType string, body []byte) (ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return ObjectInfo{}, m.err
	}
	objectPath, err := randomObjectPath(directory, filename)
	if err != nil {
		return ObjectInfo{}, err
	}
	stored := make([]byte, len(body))
	copy(stored, body)
	m.objects[bucket+"/"+objectPath] = stored
	return ObjectInfo{
		BucketName: bucket,
		Path:       objectPath,
		SizeInByte: int64(len(body)),
		Mimetype:   contentType,
	}, nil
}

func (m *MemoryStore) PresignedPutURL(_ context.Context, bucket, requestedPath string, ttl time.Duration) (PresignedUpload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return PresignedUpload{}, m.err
	}
	objectPath, err := randomObjectPath("", requestedPath)
	if err != nil {
		return PresignedUpload{}, err
	}
	return PresignedUpload{
		URL:       fmt.Sprintf("memory://%s/%s", bucket, objectPath),
		Path:      objectPath,
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

func (m *MemoryStore) PresignedGetURL(_ context.Context, bucket, objectPath string, _ time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return fmt.Sprintf("memory://%s/%s", bucket, objectPath), nil
}

// Object returns the stored body for bucket/path, for assertions.
func (m *MemoryStore) Object(bucket, objectPath string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.objects[bucket+"/"+objectPath]
	return body, ok
}
