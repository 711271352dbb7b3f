package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/miadabdi/streamy/internal/lifecycle"
	"github.com/miadabdi/streamy/internal/models"
)

// MemoryRepository keeps all records in process memory. It backs tests and
// local development and implements the same conditional-write semantics as
// the Postgres repository.
type MemoryRepository struct {
	mu        sync.RWMutex
	nextID    int64
	users     map[int64]models.User
	channels  map[int64]models.Channel
	files     map[int64]models.FileRef
	assets    map[int64]models.Asset
	subtitles map[int64]models.Subtitle
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:     make(map[int64]models.User),
		channels:  make(map[int64]models.Channel),
		files:     make(map[int64]models.FileRef),
		assets:    make(map[int64]models.Asset),
		subtitles: make(map[int64]models.Subtitle),
	}
}

func (m *MemoryRepository) allocateIDLocked() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemoryRepository) Ping(ctx context.Context) error { return nil }

func (m *MemoryRepository) Close(ctx context.Context) error { return nil }

func (m *MemoryRepository) CreateUser(ctx context.Context, email, displayName string) (models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return models.User{}, fmt.Errorf("user email is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	user := models.User{
		ID:          m.allocateIDLocked(),
		Email:       email,
		DisplayName: strings.TrimSpace(displayName),
	}
	m.users[user.ID] = user
	return user, nil
}

func (m *MemoryRepository) GetUser(ctx context.Context, id int64) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return user, nil
}

func (m *MemoryRepository) CreateChannel(ctx context.Context, ownerID int64, name string) (models.Channel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Channel{}, fmt.Errorf("channel name is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	channel := models.Channel{
		ID:        m.allocateIDLocked(),
		OwnerID:   ownerID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	m.channels[channel.ID] = channel
	return channel, nil
}

func (m *MemoryRepository) GetChannel(ctx context.Context, id int64) (models.Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	channel, ok := m.channels[id]
	if !ok {
		return models.Channel{}, fmt.Errorf("channel %d: %w", id, ErrNotFound)
	}
	return channel, nil
}

func (m *MemoryRepository) CreateFileRef(ctx context.Context, params CreateFileRefParams) (models.FileRef, error) {
	if strings.TrimSpace(params.BucketName) == "" || strings.TrimSpace(params.Path) == "" {
		return models.FileRef{}, fmt.Errorf("file bucket and path are required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	file := models.FileRef{
		ID:         m.allocateIDLocked(),
		BucketName: params.BucketName,
		Path:       params.Path,
		SizeInByte: params.SizeInByte,
		Mimetype:   params.Mimetype,
		OwnerID:    params.OwnerID,
		CreatedAt:  time.Now().UTC(),
	}
	m.files[file.ID] = file
	return file, nil
}

func (m *MemoryRepository) GetFileRef(ctx context.Context, id int64) (models.FileRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	file, ok := m.files[id]
	if !ok {
		return models.FileRef{}, fmt.Errorf("file %d: %w", id, ErrNotFound)
	}
	return file, nil
}

func (m *MemoryRepository) FindFileRefByLocation(ctx context.Context, bucket, path string) (models.FileRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, file := range m.files {
		if file.BucketName == bucket && file.Path == path {
			return file, nil
		}
	}
	return models.FileRef{}, fmt.Errorf("file %s/%s: %w", bucket, path, ErrNotFound)
}

func (m *MemoryRepository) UpdateFileRefStats(ctx context.Context, bucket, path string, sizeInByte int64, mimetype string) (models.FileRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, file := range m.files {
		if file.BucketName == bucket && file.Path == path {
			file.SizeInByte = sizeInByte
			file.Mimetype = mimetype
			m.files[id] = file
			return file, nil
		}
	}
	return models.FileRef{}, fmt.Errorf("file %s/%s: %w", bucket, path, ErrNotFound)
}

func (m *MemoryRepository) CreateAsset(ctx context.Context, params CreateAssetParams) (models.Asset, error) {
	if strings.TrimSpace(params.PublicID) == "" {
		return models.Asset{}, fmt.Errorf("asset public id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.assets {
		if existing.PublicID == params.PublicID {
			return models.Asset{}, fmt.Errorf("asset public id %s already taken", params.PublicID)
		}
	}
	now := time.Now().UTC()
	asset := models.Asset{
		ID:               m.allocateIDLocked(),
		PublicID:         params.PublicID,
		Kind:             params.Kind,
		ChannelID:        params.ChannelID,
		Title:            params.Title,
		Description:      params.Description,
		ProcessingStatus: params.Status,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	m.assets[asset.ID] = asset
	return asset, nil
}

func (m *MemoryRepository) GetAsset(ctx context.Context, id int64) (models.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	asset, ok := m.assets[id]
	if !ok {
		return models.Asset{}, fmt.Errorf("asset %d: %w", id, ErrNotFound)
	}
	return asset, nil
}

func (m *MemoryRepository) GetAssetByPublicID(ctx context.Context, publicID string) (models.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, asset := range m.assets {
		if asset.PublicID == publicID {
			return asset, nil
		}
	}
	return models.Asset{}, fmt.Errorf("asset %s: %w", publicID, ErrNotFound)
}

func (m *MemoryRepository) FindAssetByMediaFile(ctx context.Context, fileID int64) (models.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, asset := range m.assets {
		if asset.MediaFileID != nil && *asset.MediaFileID == fileID {
			return asset, nil
		}
	}
	return models.Asset{}, fmt.Errorf("asset with media file %d: %w", fileID, ErrNotFound)
}

func (m *MemoryRepository) UpdateAsset(ctx context.Context, id int64, update AssetUpdate) (models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	asset, ok := m.assets[id]
	if !ok {
		return models.Asset{}, fmt.Errorf("asset %d: %w", id, ErrNotFound)
	}
	if update.Title != nil {
		asset.Title = *update.Title
	}
	if update.Description != nil {
		asset.Description = *update.Description
	}
	if update.MediaFileID != nil {
		fileID := *update.MediaFileID
		asset.MediaFileID = &fileID
	}
	if update.ThumbnailFileID != nil {
		fileID := *update.ThumbnailFileID
		asset.ThumbnailFileID = &fileID
	}
	asset.UpdatedAt = time.Now().UTC()
	m.assets[id] = asset
	return asset, nil
}

func (m *MemoryRepository) SoftDeleteAsset(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	asset, ok := m.assets[id]
	if !ok {
		return fmt.Errorf("asset %d: %w", id, ErrNotFound)
	}
	now := time.Now().UTC()
	asset.IsActive = false
	asset.DeletedAt = &now
	asset.UpdatedAt = now
	m.assets[id] = asset
	return nil
}

func (m *MemoryRepository) UpdateProcessingStatus(ctx context.Context, id int64, from, to lifecycle.Status, logs *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	asset, ok := m.assets[id]
	if !ok {
		return false, fmt.Errorf("asset %d: %w", id, ErrNotFound)
	}
	if asset.ProcessingStatus != from {
		return false, nil
	}
	asset.ProcessingStatus = to
	if logs != nil {
		asset.ProcessingLog = *logs
	}
	asset.UpdatedAt = time.Now().UTC()
	m.assets[id] = asset
	return true, nil
}

func (m *MemoryRepository) ReleaseAsset(ctx context.Context, id int64) (models.Asset, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	asset, ok := m.assets[id]
	if !ok {
		return models.Asset{}, false, fmt.Errorf("asset %d: %w", id, ErrNotFound)
	}
	if asset.ProcessingStatus != lifecycle.StatusDone || asset.IsReleased {
		return asset, false, nil
	}
	now := time.Now().UTC()
	asset.IsReleased = true
	asset.ReleasedAt = &now
	asset.UpdatedAt = now
	m.assets[id] = asset
	return asset, true, nil
}

func (m *MemoryRepository) CreateSubtitle(ctx context.Context, params CreateSubtitleParams) (models.Subtitle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assets[params.AssetID]; !ok {
		return models.Subtitle{}, fmt.Errorf("asset %d: %w", params.AssetID, ErrNotFound)
	}
	subtitle := models.Subtitle{
		ID:        m.allocateIDLocked(),
		AssetID:   params.AssetID,
		Lang:      params.Lang,
		FileID:    params.FileID,
		CreatedAt: time.Now().UTC(),
	}
	m.subtitles[subtitle.ID] = subtitle
	return subtitle, nil
}

func (m *MemoryRepository) GetSubtitle(ctx context.Context, id int64) (models.Subtitle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	subtitle, ok := m.subtitles[id]
	if !ok {
		return models.Subtitle{}, fmt.Errorf("subtitle %d: %w", id, ErrNotFound)
	}
	return subtitle, nil
}

func (m *MemoryRepository) ListSubtitles(ctx context.Context, assetID int64) ([]models.Subtitle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var results []models.Subtitle
	for _, subtitle := range m.subtitles {
		if subtitle.AssetID == assetID {
			results = append(results, subtitle)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

func (m *MemoryRepository) DeleteSubtitle(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subtitles[id]; !ok {
		return fmt.Errorf("subtitle %d: %w", id, ErrNotFound)
	}
	delete(m.subtitles, id)
	return nil
}
