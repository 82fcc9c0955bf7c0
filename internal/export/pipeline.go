package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/framecut/framecut-agent/internal/catalog"
	"github.com/framecut/framecut-agent/internal/crop"
	"github.com/framecut/framecut-agent/internal/imaging"
)

// AssetFiles supplies original file content for assets. Implemented
// by the catalog service; "" means the content is unavailable.
type AssetFiles interface {
	OriginalFile(ctx context.Context, assetID string) (string, error)
}

// Pipeline exports selected assets through sampling and cropping.
// Assets are processed strictly in selection order, one at a time, so
// at most one source, one sample, and one crop output are in flight.
type Pipeline struct {
	store     *crop.Store
	selector  *crop.RatioSelector
	files     AssetFiles
	sampler   imaging.Sampler
	cropper   imaging.Cropper
	preferred imaging.Size
	logger    *slog.Logger
}

// PipelineConfig wires a pipeline's collaborators.
type PipelineConfig struct {
	Store    *crop.Store
	Selector *crop.RatioSelector
	Files    AssetFiles
	Sampler  imaging.Sampler
	Cropper  imaging.Cropper
	// PreferredSize is the desired output resolution. Sampling
	// targets PreferredSize / parameter.Scale so that cropping at
	// that scale yields this resolution.
	PreferredSize imaging.Size
	Logger        *slog.Logger
}

// NewPipeline builds an export pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	return &Pipeline{
		store:     cfg.Store,
		selector:  cfg.Selector,
		files:     cfg.Files,
		sampler:   cfg.Sampler,
		cropper:   cfg.Cropper,
		preferred: cfg.PreferredSize,
		logger:    cfg.Logger,
	}
}

// ExportCropFiles processes the selection in order and streams
// progress snapshots on the returned channel. Progress runs
// 0, step, 2*step, ..., 1 with step = 1/len(selection); a fatal
// failure replaces the final snapshot with one carrying Err. The
// channel is unbuffered and closed when the run ends; cancelling ctx
// stops the producer promptly without generating further snapshots.
//
// The store is read once up front: mutating it during an export does
// not affect the in-flight run.
func (p *Pipeline) ExportCropFiles(ctx context.Context, selection []*catalog.Asset, skipCrop bool) <-chan Snapshot {
	out := make(chan Snapshot)

	go func() {
		defer close(out)
		p.run(ctx, selection, skipCrop, out)
	}()

	return out
}

func (p *Pipeline) run(ctx context.Context, selection []*catalog.Asset, skipCrop bool, out chan<- Snapshot) {
	ids := make([]string, len(selection))
	for i, a := range selection {
		ids[i] = a.ID
	}
	ratio := p.selector.Current()

	emit := func(records []Record, progress float64, err error) bool {
		// Copy so every snapshot stays immutable while the run
		// keeps appending.
		owned := make([]Record, len(records))
		copy(owned, records)
		select {
		case out <- Snapshot{
			Records:     owned,
			Selection:   ids,
			AspectRatio: ratio,
			Progress:    progress,
			Err:         err,
		}:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if !emit(nil, 0, nil) {
		return
	}

	// Empty selection: nothing to divide progress by, emit start and
	// end and be done.
	if len(selection) == 0 {
		emit(nil, 1, nil)
		return
	}

	params := p.store.Snapshot()
	step := 1.0 / float64(len(selection))
	records := make([]Record, 0, len(selection))

	for i, asset := range selection {
		if ctx.Err() != nil {
			return
		}

		param, ok := params[asset.ID]
		if !ok {
			param = crop.DefaultParameter(asset.ID)
		}

		record, err := p.exportOne(ctx, asset, param, skipCrop)
		if err != nil {
			if p.logger != nil {
				p.logger.Error("export aborted",
					"asset_id", asset.ID,
					"processed", len(records),
					"error", err,
				)
			}
			emit(records, float64(i)*step, err)
			return
		}
		records = append(records, record)

		progress := float64(i+1) * step
		if progress < 1 {
			if !emit(records, progress, nil) {
				return
			}
		}
	}

	if p.logger != nil {
		p.logger.Info("export completed",
			"assets", len(selection),
			"skip_crop", skipCrop,
		)
	}
	emit(records, 1, nil)
}

// exportOne produces the record for a single asset. Non-image assets
// and skip-crop runs record no file and perform no I/O.
func (p *Pipeline) exportOne(ctx context.Context, asset *catalog.Asset, param crop.Parameter, skipCrop bool) (Record, error) {
	if skipCrop || !asset.IsImage() {
		return Record{Parameter: param}, nil
	}

	srcPath, err := p.files.OriginalFile(ctx, asset.ID)
	if err != nil {
		return Record{}, fmt.Errorf("resolve source for %s: %w", asset.ID, err)
	}
	if srcPath == "" {
		return Record{}, fmt.Errorf("asset %s: %w", asset.ID, ErrMissingSourceFile)
	}

	sampled, err := p.sampler.Sample(ctx, srcPath, p.preferred.Scaled(param.Scale))
	if err != nil {
		return Record{}, fmt.Errorf("sample %s: %w", asset.ID, err)
	}

	if param.Area == nil {
		// No crop region selected: the sample is the final output.
		return Record{File: sampled, Parameter: param}, nil
	}

	cropped, err := p.cropper.Crop(ctx, sampled, *param.Area)
	if err != nil {
		return Record{}, fmt.Errorf("crop %s: %w", asset.ID, err)
	}

	// The intermediate sample is no longer needed. Deletion is best
	// effort and never aborts the export.
	if err := os.Remove(sampled); err != nil && p.logger != nil {
		p.logger.Warn("failed to delete intermediate sample",
			"asset_id", asset.ID,
			"path", sampled,
			"error", err,
		)
	}

	return Record{File: cropped, Parameter: param}, nil
}
