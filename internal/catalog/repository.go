package catalog

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	CreateSource(ctx context.Context, source *Source) error
	GetSource(ctx context.Context, id string) (*Source, error)
	GetSourceByPath(ctx context.Context, path string) (*Source, error)
	ListSources(ctx context.Context) ([]*Source, error)
	DeleteSource(ctx context.Context, id string) error
	UpdateSourcePresent(ctx context.Context, id string, present bool) error

	GetAsset(ctx context.Context, id string) (*Asset, error)
	GetAssets(ctx context.Context, ids []string) ([]*Asset, error)
	ListAssets(ctx context.Context) ([]*Asset, error)
	GetAssetsBySource(ctx context.Context, sourceID string) ([]*Asset, error)
	DeleteAssetsBySource(ctx context.Context, sourceID string) error
	UpsertAsset(ctx context.Context, asset *Asset) error
	CountAssets(ctx context.Context) (int, error)

	CreateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, limit int) ([]*Job, error)
	ListPendingJobs(ctx context.Context) ([]*Job, error)
	UpdateJobStatus(ctx context.Context, id, status, errorMsg string) error
	UpdateJobProgress(ctx context.Context, id string, progress int) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateSource(ctx context.Context, s *Source) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sources (id, type, path, display_name, present, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.ID, s.Type, s.Path, s.DisplayName, boolToInt(s.Present), s.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetSource(ctx context.Context, id string) (*Source, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, type, path, display_name, present, created_at
		FROM sources WHERE id = ?
	`, id)
	return r.scanSource(row)
}

func (r *SQLiteRepository) GetSourceByPath(ctx context.Context, path string) (*Source, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, type, path, display_name, present, created_at
		FROM sources WHERE path = ?
	`, path)
	return r.scanSource(row)
}

func (r *SQLiteRepository) scanSource(row *sql.Row) (*Source, error) {
	var s Source
	var present int
	var createdAt string

	err := row.Scan(&s.ID, &s.Type, &s.Path, &s.DisplayName, &present, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.Present = present == 1
	s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &s, nil
}

func (r *SQLiteRepository) ListSources(ctx context.Context) ([]*Source, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, path, display_name, present, created_at
		FROM sources ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*Source
	for rows.Next() {
		var s Source
		var present int
		var createdAt string

		if err := rows.Scan(&s.ID, &s.Type, &s.Path, &s.DisplayName, &present, &createdAt); err != nil {
			return nil, err
		}
		s.Present = present == 1
		s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		sources = append(sources, &s)
	}
	return sources, rows.Err()
}

func (r *SQLiteRepository) DeleteSource(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM sources WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) UpdateSourcePresent(ctx context.Context, id string, present bool) error {
	_, err := r.db.ExecContext(ctx, "UPDATE sources SET present = ? WHERE id = ?", boolToInt(present), id)
	return err
}

const assetColumns = "id, source_id, path, filename, type, width, height, size, mtime, fingerprint, created_at"

func (r *SQLiteRepository) GetAsset(ctx context.Context, id string) (*Asset, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+assetColumns+`
		FROM assets WHERE id = ?
	`, id)

	a, err := scanAssetRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *SQLiteRepository) GetAssets(ctx context.Context, ids []string) ([]*Asset, error) {
	assets := make([]*Asset, 0, len(ids))
	for _, id := range ids {
		a, err := r.GetAsset(ctx, id)
		if err != nil {
			return nil, err
		}
		if a != nil {
			assets = append(assets, a)
		}
	}
	return assets, nil
}

func (r *SQLiteRepository) ListAssets(ctx context.Context) ([]*Asset, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+assetColumns+`
		FROM assets ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssets(rows)
}

func (r *SQLiteRepository) GetAssetsBySource(ctx context.Context, sourceID string) ([]*Asset, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+assetColumns+`
		FROM assets WHERE source_id = ? ORDER BY filename
	`, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssets(rows)
}

func (r *SQLiteRepository) DeleteAssetsBySource(ctx context.Context, sourceID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM assets WHERE source_id = ?", sourceID)
	return err
}

func (r *SQLiteRepository) UpsertAsset(ctx context.Context, a *Asset) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO assets (`+assetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, path) DO UPDATE SET
			type = excluded.type,
			width = excluded.width,
			height = excluded.height,
			size = excluded.size,
			mtime = excluded.mtime,
			fingerprint = excluded.fingerprint
	`, a.ID, a.SourceID, a.Path, a.Filename, a.Type, a.Width, a.Height,
		a.Size, a.Mtime.Format(time.RFC3339), a.Fingerprint, a.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) CountAssets(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assets").Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssetRow(row rowScanner) (*Asset, error) {
	var a Asset
	var mtime, createdAt string
	err := row.Scan(&a.ID, &a.SourceID, &a.Path, &a.Filename, &a.Type,
		&a.Width, &a.Height, &a.Size, &mtime, &a.Fingerprint, &createdAt)
	if err != nil {
		return nil, err
	}
	a.Mtime, _ = time.Parse(time.RFC3339, mtime)
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &a, nil
}

func scanAssets(rows *sql.Rows) ([]*Asset, error) {
	var assets []*Asset
	for rows.Next() {
		a, err := scanAssetRow(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (r *SQLiteRepository) CreateJob(ctx context.Context, j *Job) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO jobs (id, type, status, source_id, progress, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, j.Type, j.Status, nullString(j.SourceID),
		j.Progress, nullString(j.Error),
		j.CreatedAt.Format(time.RFC3339), j.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetJob(ctx context.Context, id string) (*Job, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, type, status, source_id, progress, error, created_at, updated_at
		FROM jobs WHERE id = ?
	`, id)
	return r.scanJob(row)
}

func (r *SQLiteRepository) scanJob(row *sql.Row) (*Job, error) {
	var j Job
	var sourceID, errMsg sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&j.ID, &j.Type, &j.Status, &sourceID, &j.Progress, &errMsg, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	j.SourceID = sourceID.String
	j.Error = errMsg.String
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &j, nil
}

func (r *SQLiteRepository) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, status, source_id, progress, error, created_at, updated_at
		FROM jobs ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanJobs(rows)
}

func (r *SQLiteRepository) ListPendingJobs(ctx context.Context) ([]*Job, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, status, source_id, progress, error, created_at, updated_at
		FROM jobs WHERE status = 'pending' ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanJobs(rows)
}

func (r *SQLiteRepository) scanJobs(rows *sql.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		var j Job
		var sourceID, errMsg sql.NullString
		var createdAt, updatedAt string

		if err := rows.Scan(&j.ID, &j.Type, &j.Status, &sourceID, &j.Progress, &errMsg, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		j.SourceID = sourceID.String
		j.Error = errMsg.String
		j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

func (r *SQLiteRepository) UpdateJobStatus(ctx context.Context, id, status, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, error = ?, updated_at = datetime('now') WHERE id = ?
	`, status, nullString(errorMsg), id)
	return err
}

func (r *SQLiteRepository) UpdateJobProgress(ctx context.Context, id string, progress int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET progress = ?, updated_at = datetime('now') WHERE id = ?
	`, progress, id)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
