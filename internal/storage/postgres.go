package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/miadabdi/streamy/internal/lifecycle"
	"github.com/miadabdi/streamy/internal/models"
)

// PostgresConfig tunes the connection pool behind the Postgres repository.
type PostgresConfig struct {
	DSN             string
	MaxConnections  int32
	MinConnections  int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
	ApplicationName string
}

// PostgresRepository persists records to Postgres. Conditional status writes
// rely on row counts from UPDATE ... WHERE processing_status = $expected,
// which serializes concurrent consumers without explicit locks.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository opens a pooled Postgres connection. The caller must
// ensure migrations have been applied before use.
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections > 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.ApplicationName != "" {
		if poolCfg.ConnConfig.RuntimeParams == nil {
			poolCfg.ConnConfig.RuntimeParams = make(map[string]string)
		}
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close releases the pool, bounded by the context deadline.
func (r *PostgresRepository) Close(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *PostgresRepository) CreateUser(ctx context.Context, email, displayName string) (models.User, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO users (email, display_name)
VALUES ($1, $2)
RETURNING id, email, display_name, is_admin
`, strings.TrimSpace(email), strings.TrimSpace(displayName))
	return scanUser(row)
}

func (r *PostgresRepository) GetUser(ctx context.Context, id int64) (models.User, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, email, display_name, is_admin
FROM users
WHERE id = $1
`, id)
	user, err := scanUser(row)
	if isNoRows(err) {
		return models.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return user, err
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.DisplayName, &user.IsAdmin); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *PostgresRepository) CreateChannel(ctx context.Context, ownerID int64, name string) (models.Channel, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO channels (owner_id, name)
VALUES ($1, $2)
RETURNING id, owner_id, name, created_at
`, ownerID, strings.TrimSpace(name))
	return scanChannel(row)
}

func (r *PostgresRepository) GetChannel(ctx context.Context, id int64) (models.Channel, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, owner_id, name, created_at
FROM channels
WHERE id = $1
`, id)
	channel, err := scanChannel(row)
	if isNoRows(err) {
		return models.Channel{}, fmt.Errorf("channel %d: %w", id, ErrNotFound)
	}
	return channel, err
}

func scanChannel(row pgx.Row) (models.Channel, error) {
	var channel models.Channel
	if err := row.Scan(&channel.ID, &channel.OwnerID, &channel.Name, &channel.CreatedAt); err != nil {
		return models.Channel{}, err
	}
	return channel, nil
}

func (r *PostgresRepository) CreateFileRef(ctx context.Context, params CreateFileRefParams) (models.FileRef, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO files (bucket_name, path, size_in_byte, mimetype, owner_id)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, bucket_name, path, size_in_byte, mimetype, owner_id, created_at
`, params.BucketName, params.Path, params.SizeInByte, params.Mimetype, params.OwnerID)
	return scanFileRef(row)
}

func (r *PostgresRepository) GetFileRef(ctx context.Context, id int64) (models.FileRef, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, bucket_name, path, size_in_byte, mimetype, owner_id, created_at
FROM files
WHERE id = $1
`, id)
	file, err := scanFileRef(row)
	if isNoRows(err) {
		return models.FileRef{}, fmt.Errorf("file %d: %w", id, ErrNotFound)
	}
	return file, err
}

func (r *PostgresRepository) FindFileRefByLocation(ctx context.Context, bucket, path string) (models.FileRef, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, bucket_name, path, size_in_byte, mimetype, owner_id, created_at
FROM files
WHERE bucket_name = $1 AND path = $2
`, bucket, path)
	file, err := scanFileRef(row)
	if isNoRows(err) {
		return models.FileRef{}, fmt.Errorf("file %s/%s: %w", bucket, path, ErrNotFound)
	}
	return file, err
}

func (r *PostgresRepository) UpdateFileRefStats(ctx context.Context, bucket, path string, sizeInByte int64, mimetype string) (models.FileRef, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE files
SET size_in_byte = $3, mimetype = $4
WHERE bucket_name = $1 AND path = $2
RETURNING id, bucket_name, path, size_in_byte, mimetype, owner_id, created_at
`, bucket, path, sizeInByte, mimetype)
	file, err := scanFileRef(row)
	if isNoRows(err) {
		return models.FileRef{}, fmt.Errorf("file %s/%s: %w", bucket, path, ErrNotFound)
	}
	return file, err
}

func scanFileRef(row pgx.Row) (models.FileRef, error) {
	var file models.FileRef
	if err := row.Scan(&file.ID, &file.BucketName, &file.Path, &file.SizeInByte, &file.Mimetype, &file.OwnerID, &file.CreatedAt); err != nil {
		return models.FileRef{}, err
	}
	return file, nil
}

const assetColumns = `id, public_id, kind, channel_id, title, description,
processing_status, processing_log, video_file_id, thumbnail_file_id,
is_released, released_at, is_active, created_at, updated_at, deleted_at`

func (r *PostgresRepository) CreateAsset(ctx context.Context, params CreateAssetParams) (models.Asset, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO videos (public_id, kind, channel_id, title, description, processing_status)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+assetColumns,
		params.PublicID, string(params.Kind), params.ChannelID,
		params.Title, params.Description, string(params.Status))
	return scanAsset(row)
}

func (r *PostgresRepository) GetAsset(ctx context.Context, id int64) (models.Asset, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+assetColumns+` FROM videos WHERE id = $1`, id)
	asset, err := scanAsset(row)
	if isNoRows(err) {
		return models.Asset{}, fmt.Errorf("asset %d: %w", id, ErrNotFound)
	}
	return asset, err
}

func (r *PostgresRepository) GetAssetByPublicID(ctx context.Context, publicID string) (models.Asset, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+assetColumns+` FROM videos WHERE public_id = $1`, publicID)
	asset, err := scanAsset(row)
	if isNoRows(err) {
		return models.Asset{}, fmt.Errorf("asset %s: %w", publicID, ErrNotFound)
	}
	return asset, err
}

func (r *PostgresRepository) FindAssetByMediaFile(ctx context.Context, fileID int64) (models.Asset, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+assetColumns+` FROM videos WHERE video_file_id = $1`, fileID)
	asset, err := scanAsset(row)
	if isNoRows(err) {
		return models.Asset{}, fmt.Errorf("asset with media file %d: %w", fileID, ErrNotFound)
	}
	return asset, err
}

func (r *PostgresRepository) UpdateAsset(ctx context.Context, id int64, update AssetUpdate) (models.Asset, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE videos
SET title = COALESCE($2, title),
    description = COALESCE($3, description),
    video_file_id = COALESCE($4, video_file_id),
    thumbnail_file_id = COALESCE($5, thumbnail_file_id),
    updated_at = now()
WHERE id = $1
RETURNING `+assetColumns,
		id, update.Title, update.Description, update.MediaFileID, update.ThumbnailFileID)
	asset, err := scanAsset(row)
	if isNoRows(err) {
		return models.Asset{}, fmt.Errorf("asset %d: %w", id, ErrNotFound)
	}
	return asset, err
}

func (r *PostgresRepository) SoftDeleteAsset(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE videos
SET is_active = false, deleted_at = now(), updated_at = now()
WHERE id = $1
`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("asset %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *PostgresRepository) UpdateProcessingStatus(ctx context.Context, id int64, from, to lifecycle.Status, logs *string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE videos
SET processing_status = $3,
    processing_log = COALESCE($4, processing_log),
    updated_at = now()
WHERE id = $1 AND processing_status = $2
`, id, string(from), string(to), logs)
	if err != nil {
		return false, fmt.Errorf("update processing status of asset %d: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}
	// Distinguish a lost race from a missing asset.
	if _, err := r.GetAsset(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *PostgresRepository) ReleaseAsset(ctx context.Context, id int64) (models.Asset, bool, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE videos
SET is_released = true, released_at = now(), updated_at = now()
WHERE id = $1 AND processing_status = $2 AND is_released = false
RETURNING `+assetColumns, id, string(lifecycle.StatusDone))
	asset, err := scanAsset(row)
	if err == nil {
		return asset, true, nil
	}
	if !isNoRows(err) {
		return models.Asset{}, false, err
	}
	asset, err = r.GetAsset(ctx, id)
	if err != nil {
		return models.Asset{}, false, err
	}
	return asset, false, nil
}

func scanAsset(row pgx.Row) (models.Asset, error) {
	var asset models.Asset
	var kind, status string
	if err := row.Scan(
		&asset.ID, &asset.PublicID, &kind, &asset.ChannelID,
		&asset.Title, &asset.Description, &status, &asset.ProcessingLog,
		&asset.MediaFileID, &asset.ThumbnailFileID,
		&asset.IsReleased, &asset.ReleasedAt, &asset.IsActive,
		&asset.CreatedAt, &asset.UpdatedAt, &asset.DeletedAt,
	); err != nil {
		return models.Asset{}, err
	}
	asset.Kind = models.AssetKind(kind)
	asset.ProcessingStatus = lifecycle.Status(status)
	return asset, nil
}

func (r *PostgresRepository) CreateSubtitle(ctx context.Context, params CreateSubtitleParams) (models.Subtitle, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO subtitles (video_id, lang_rfc5646, file_id)
VALUES ($1, $2, $3)
RETURNING id, video_id, lang_rfc5646, file_id, created_at
`, params.AssetID, params.Lang, params.FileID)
	return scanSubtitle(row)
}

func (r *PostgresRepository) GetSubtitle(ctx context.Context, id int64) (models.Subtitle, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, video_id, lang_rfc5646, file_id, created_at
FROM subtitles
WHERE id = $1
`, id)
	subtitle, err := scanSubtitle(row)
	if isNoRows(err) {
		return models.Subtitle{}, fmt.Errorf("subtitle %d: %w", id, ErrNotFound)
	}
	return subtitle, err
}

func (r *PostgresRepository) ListSubtitles(ctx context.Context, assetID int64) ([]models.Subtitle, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, video_id, lang_rfc5646, file_id, created_at
FROM subtitles
WHERE video_id = $1
ORDER BY id
`, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []models.Subtitle
	for rows.Next() {
		subtitle, err := scanSubtitle(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, subtitle)
	}
	return results, rows.Err()
}

func (r *PostgresRepository) DeleteSubtitle(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM subtitles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("subtitle %d: %w", id, ErrNotFound)
	}
	return nil
}

func scanSubtitle(row pgx.Row) (models.Subtitle, error) {
	var subtitle models.Subtitle
	if err := row.Scan(&subtitle.ID, &subtitle.AssetID, &subtitle.Lang, &subtitle.FileID, &subtitle.CreatedAt); err != nil {
		return models.Subtitle{}, err
	}
	return subtitle, nil
}

func isNoRows(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, pgx.ErrNoRows)
}
