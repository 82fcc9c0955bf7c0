package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

const fingerprintSize = 64 * 1024

// AssetService is the metadata-provider contract the crop controller
// and export pipeline consume: asset type, oriented dimensions, and
// access to the original file.
type AssetService interface {
	AddFolder(ctx context.Context, path, displayName string) (*Source, error)
	RemoveSource(ctx context.Context, id string) error
	GetSources(ctx context.Context) ([]*Source, error)
	GetSource(ctx context.Context, id string) (*Source, error)
	GetAssets(ctx context.Context, sourceID string) ([]*Asset, error)
	GetAsset(ctx context.Context, id string) (*Asset, error)
	GetSelection(ctx context.Context, ids []string) ([]*Asset, error)
	CountAssets(ctx context.Context) (int, error)
	ScanSource(ctx context.Context, sourceID string) (*Job, error)
	ExecuteScan(ctx context.Context, jobID, sourceID, path string) error

	// OriginalFile returns the on-disk path of an asset's original
	// content, or "" when it is unavailable.
	OriginalFile(ctx context.Context, assetID string) (string, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) AddFolder(ctx context.Context, path, displayName string) (*Source, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory")
	}

	existing, err := s.repo.GetSourceByPath(ctx, absPath)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if displayName == "" {
		displayName = filepath.Base(absPath)
	}

	source := &Source{
		ID:          NewID(),
		Type:        "folder",
		Path:        absPath,
		DisplayName: displayName,
		Present:     true,
		CreatedAt:   time.Now(),
	}

	if err := s.repo.CreateSource(ctx, source); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("folder added", "source_id", source.ID, "path", absPath)
	}
	return source, nil
}

func (s *Service) RemoveSource(ctx context.Context, id string) error {
	if err := s.repo.DeleteAssetsBySource(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteSource(ctx, id)
}

func (s *Service) GetSources(ctx context.Context) ([]*Source, error) {
	return s.repo.ListSources(ctx)
}

func (s *Service) GetSource(ctx context.Context, id string) (*Source, error) {
	return s.repo.GetSource(ctx, id)
}

func (s *Service) GetAssets(ctx context.Context, sourceID string) ([]*Asset, error) {
	return s.repo.GetAssetsBySource(ctx, sourceID)
}

func (s *Service) GetAsset(ctx context.Context, id string) (*Asset, error) {
	return s.repo.GetAsset(ctx, id)
}

// GetSelection resolves an ordered ID list into assets, preserving
// the caller's order. Unknown IDs fail: the selection is the export
// contract and silently shrinking it would skew progress math.
func (s *Service) GetSelection(ctx context.Context, ids []string) ([]*Asset, error) {
	assets := make([]*Asset, 0, len(ids))
	for _, id := range ids {
		a, err := s.repo.GetAsset(ctx, id)
		if err != nil {
			return nil, err
		}
		if a == nil {
			return nil, fmt.Errorf("asset not found: %s", id)
		}
		assets = append(assets, a)
	}
	return assets, nil
}

func (s *Service) CountAssets(ctx context.Context) (int, error) {
	return s.repo.CountAssets(ctx)
}

func (s *Service) OriginalFile(ctx context.Context, assetID string) (string, error) {
	a, err := s.repo.GetAsset(ctx, assetID)
	if err != nil {
		return "", err
	}
	if a == nil {
		return "", nil
	}
	if _, err := os.Stat(a.Path); err != nil {
		return "", nil
	}
	return a.Path, nil
}

func (s *Service) ScanSource(ctx context.Context, sourceID string) (*Job, error) {
	source, err := s.repo.GetSource(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, fmt.Errorf("source not found")
	}

	now := time.Now()
	job := &Job{
		ID:        NewID(),
		Type:      JobTypeScan,
		Status:    JobStatusPending,
		SourceID:  sourceID,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("scan job created", "job_id", job.ID, "source_id", sourceID)
	}
	return job, nil
}

func (s *Service) ExecuteScan(ctx context.Context, jobID, sourceID, path string) error {
	s.repo.UpdateJobStatus(ctx, jobID, JobStatusRunning, "")
	if s.logger != nil {
		s.logger.Info("starting scan", "job_id", jobID, "path", path)
	}

	var files []string
	err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if !d.IsDir() && IsMediaFile(d.Name()) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		s.repo.UpdateJobStatus(ctx, jobID, JobStatusFailed, err.Error())
		return err
	}

	total := len(files)
	if s.logger != nil {
		s.logger.Info("found media files", "count", total)
	}

	for i, filePath := range files {
		select {
		case <-ctx.Done():
			s.repo.UpdateJobStatus(ctx, jobID, JobStatusFailed, "cancelled")
			return ctx.Err()
		default:
		}

		if err := s.processFile(ctx, sourceID, filePath); err != nil {
			if s.logger != nil {
				s.logger.Warn("failed to process file", "path", filePath, "error", err)
			}
		}

		progress := 0
		if total > 0 {
			progress = (i + 1) * 100 / total
		}
		s.repo.UpdateJobProgress(ctx, jobID, progress)
	}

	s.repo.UpdateJobStatus(ctx, jobID, JobStatusCompleted, "")
	if s.logger != nil {
		s.logger.Info("scan completed", "job_id", jobID, "files_processed", total)
	}
	return nil
}

func (s *Service) processFile(ctx context.Context, sourceID, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	fingerprint, err := computeFingerprint(path)
	if err != nil {
		return err
	}

	mediaType := MediaType(path)
	width, height := 0, 0
	if mediaType == AssetTypeImage {
		// Dimension probe is best effort; undecodable images stay
		// cataloged with zero dimensions.
		if w, h, err := probeImageSize(path); err == nil {
			width, height = w, h
		} else if s.logger != nil {
			s.logger.Warn("failed to probe image size", "path", path, "error", err)
		}
	}

	asset := &Asset{
		ID:          NewID(),
		SourceID:    sourceID,
		Path:        path,
		Filename:    filepath.Base(path),
		Type:        mediaType,
		Width:       width,
		Height:      height,
		Size:        info.Size(),
		Mtime:       info.ModTime(),
		Fingerprint: fingerprint,
		CreatedAt:   time.Now(),
	}

	return s.repo.UpsertAsset(ctx, asset)
}

// probeImageSize reads the image header for its pixel dimensions
// without decoding the full bitmap.
func probeImageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

func computeFingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	lr := io.LimitReader(f, fingerprintSize)
	if _, err := io.Copy(h, lr); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
