package export

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/framecut/framecut-agent/internal/catalog"
	"github.com/framecut/framecut-agent/internal/crop"
	"github.com/framecut/framecut-agent/internal/imaging"
)

type fakeFiles struct {
	paths map[string]string
}

func (f *fakeFiles) OriginalFile(_ context.Context, assetID string) (string, error) {
	return f.paths[assetID], nil
}

// fakeSampler writes a real file so the pipeline's intermediate
// deletion is observable.
type fakeSampler struct {
	dir     string
	calls   atomic.Int32
	lastSz  imaging.Size
	err     error
	written []string
}

func (f *fakeSampler) Sample(_ context.Context, srcPath string, target imaging.Size) (string, error) {
	f.calls.Add(1)
	f.lastSz = target
	if f.err != nil {
		return "", f.err
	}
	out := filepath.Join(f.dir, fmt.Sprintf("%s.sample.%d", filepath.Base(srcPath), f.calls.Load()))
	if err := os.WriteFile(out, []byte("sampled"), 0644); err != nil {
		return "", err
	}
	f.written = append(f.written, out)
	return out, nil
}

type fakeCropper struct {
	dir   string
	calls atomic.Int32
	err   error
}

func (f *fakeCropper) Crop(_ context.Context, srcPath string, _ crop.Area) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	out := filepath.Join(f.dir, fmt.Sprintf("%s.crop", filepath.Base(srcPath)))
	if err := os.WriteFile(out, []byte("cropped"), 0644); err != nil {
		return "", err
	}
	return out, nil
}

type pipelineFixture struct {
	pipeline *Pipeline
	store    *crop.Store
	selector *crop.RatioSelector
	files    *fakeFiles
	sampler  *fakeSampler
	cropper  *fakeCropper
}

func newFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	dir := t.TempDir()
	selector, err := crop.NewRatioSelector([]float64{1.0, 1.7778}, 0)
	if err != nil {
		t.Fatalf("NewRatioSelector() error = %v", err)
	}

	fx := &pipelineFixture{
		store:    crop.NewStore(),
		selector: selector,
		files:    &fakeFiles{paths: map[string]string{}},
		sampler:  &fakeSampler{dir: dir},
		cropper:  &fakeCropper{dir: dir},
	}
	fx.pipeline = NewPipeline(PipelineConfig{
		Store:         fx.store,
		Selector:      fx.selector,
		Files:         fx.files,
		Sampler:       fx.sampler,
		Cropper:       fx.cropper,
		PreferredSize: imaging.Size{Width: 1080, Height: 1080},
	})
	return fx
}

func (fx *pipelineFixture) addImage(t *testing.T, id string) *catalog.Asset {
	t.Helper()
	src := filepath.Join(fx.sampler.dir, id+".png")
	if err := os.WriteFile(src, []byte("original"), 0644); err != nil {
		t.Fatalf("failed to write source: %v", err)
	}
	fx.files.paths[id] = src
	return &catalog.Asset{ID: id, Type: catalog.AssetTypeImage, Width: 100, Height: 100}
}

func drain(t *testing.T, ch <-chan Snapshot) []Snapshot {
	t.Helper()
	var out []Snapshot
	for s := range ch {
		out = append(out, s)
	}
	return out
}

func TestExportCropFiles_ProgressSequence(t *testing.T) {
	fx := newFixture(t)
	selection := []*catalog.Asset{
		fx.addImage(t, "a1"),
		fx.addImage(t, "a2"),
		fx.addImage(t, "a3"),
	}

	snaps := drain(t, fx.pipeline.ExportCropFiles(context.Background(), selection, false))

	// Initial 0, one per asset while below 1, final exactly 1. The
	// progress-1 value appears exactly once.
	if len(snaps) != 4 {
		t.Fatalf("got %d snapshots, want 4", len(snaps))
	}

	wantProgress := []float64{0, 1.0 / 3, 2.0 / 3, 1}
	for i, s := range snaps {
		if math.Abs(s.Progress-wantProgress[i]) > 1e-9 {
			t.Errorf("snapshot %d progress = %v, want %v", i, s.Progress, wantProgress[i])
		}
		if s.Err != nil {
			t.Errorf("snapshot %d unexpected error: %v", i, s.Err)
		}
	}

	for i := 1; i < len(snaps); i++ {
		if snaps[i].Progress <= snaps[i-1].Progress {
			t.Errorf("progress not strictly increasing: %v -> %v", snaps[i-1].Progress, snaps[i].Progress)
		}
	}

	if len(snaps[0].Records) != 0 {
		t.Errorf("initial snapshot has %d records, want 0", len(snaps[0].Records))
	}
	final := snaps[len(snaps)-1]
	if final.Progress != 1 {
		t.Errorf("final progress = %v, want exactly 1", final.Progress)
	}
	if len(final.Records) != 3 {
		t.Errorf("final snapshot has %d records, want 3", len(final.Records))
	}
}

func TestExportCropFiles_SnapshotRecordsGrow(t *testing.T) {
	fx := newFixture(t)
	selection := []*catalog.Asset{fx.addImage(t, "a1"), fx.addImage(t, "a2")}

	snaps := drain(t, fx.pipeline.ExportCropFiles(context.Background(), selection, false))

	wantCounts := []int{0, 1, 2}
	if len(snaps) != len(wantCounts) {
		t.Fatalf("got %d snapshots, want %d", len(snaps), len(wantCounts))
	}
	for i, s := range snaps {
		if len(s.Records) != wantCounts[i] {
			t.Errorf("snapshot %d has %d records, want %d", i, len(s.Records), wantCounts[i])
		}
	}
}

func TestExportCropFiles_SkipCrop(t *testing.T) {
	fx := newFixture(t)
	selection := []*catalog.Asset{fx.addImage(t, "a1"), fx.addImage(t, "a2")}

	snaps := drain(t, fx.pipeline.ExportCropFiles(context.Background(), selection, true))

	final := snaps[len(snaps)-1]
	for i, r := range final.Records {
		if r.File != "" {
			t.Errorf("record %d has file %q, want none with skipCrop", i, r.File)
		}
	}
	if fx.sampler.calls.Load() != 0 {
		t.Errorf("sampler called %d times with skipCrop, want 0", fx.sampler.calls.Load())
	}
}

func TestExportCropFiles_NonImageAsset(t *testing.T) {
	fx := newFixture(t)
	video := &catalog.Asset{ID: "v1", Type: catalog.AssetTypeVideo}

	snaps := drain(t, fx.pipeline.ExportCropFiles(context.Background(), []*catalog.Asset{video}, false))

	final := snaps[len(snaps)-1]
	if final.Progress != 1 {
		t.Errorf("final progress = %v, want 1", final.Progress)
	}
	if len(final.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(final.Records))
	}
	if final.Records[0].File != "" {
		t.Errorf("non-image record has file %q, want none", final.Records[0].File)
	}
	if fx.sampler.calls.Load() != 0 {
		t.Errorf("sampler called %d times for non-image, want 0", fx.sampler.calls.Load())
	}
}

func TestExportCropFiles_MissingSourceFile(t *testing.T) {
	fx := newFixture(t)
	// Asset known to the catalog but with no file behind it.
	missing := &catalog.Asset{ID: "gone", Type: catalog.AssetTypeImage}
	after := fx.addImage(t, "after")

	snaps := drain(t, fx.pipeline.ExportCropFiles(context.Background(), []*catalog.Asset{missing, after}, false))

	last := snaps[len(snaps)-1]
	if !errors.Is(last.Err, ErrMissingSourceFile) {
		t.Fatalf("terminal error = %v, want ErrMissingSourceFile", last.Err)
	}
	for _, s := range snaps {
		if s.Err == nil && s.Progress >= 1 {
			t.Error("failed export must not emit a final progress-1 snapshot")
		}
	}
	// The asset after the failure is never processed.
	if fx.sampler.calls.Load() != 0 {
		t.Errorf("sampler called %d times after fatal error, want 0", fx.sampler.calls.Load())
	}
}

func TestExportCropFiles_SampleFailureAborts(t *testing.T) {
	fx := newFixture(t)
	fx.sampler.err = errors.New("decode failed")
	selection := []*catalog.Asset{fx.addImage(t, "a1")}

	snaps := drain(t, fx.pipeline.ExportCropFiles(context.Background(), selection, false))

	last := snaps[len(snaps)-1]
	if last.Err == nil {
		t.Fatal("sample failure should surface as terminal error")
	}
}

func TestExportCropFiles_NilAreaSamplesOnly(t *testing.T) {
	fx := newFixture(t)
	selection := []*catalog.Asset{fx.addImage(t, "a1")}
	// Stored parameter with no crop region.
	fx.store.SnapshotAndMerge("a1", &crop.Parameter{Scale: 1.0}, []string{"a1"})

	snaps := drain(t, fx.pipeline.ExportCropFiles(context.Background(), selection, false))

	final := snaps[len(snaps)-1]
	if final.Records[0].File == "" {
		t.Error("record should carry the sampled file")
	}
	if fx.cropper.calls.Load() != 0 {
		t.Errorf("cropper called %d times with nil area, want 0", fx.cropper.calls.Load())
	}
	// The sample is the final output, so it must not be deleted.
	if _, err := os.Stat(final.Records[0].File); err != nil {
		t.Errorf("sampled output missing: %v", err)
	}
}

func TestExportCropFiles_AreaCropsAndDeletesSample(t *testing.T) {
	fx := newFixture(t)
	selection := []*catalog.Asset{fx.addImage(t, "a1")}
	fx.store.SnapshotAndMerge("a1", &crop.Parameter{
		Scale: 1.0,
		Area:  &crop.Area{Left: 0, Top: 0, Width: 0.5, Height: 0.5},
	}, []string{"a1"})

	snaps := drain(t, fx.pipeline.ExportCropFiles(context.Background(), selection, false))

	final := snaps[len(snaps)-1]
	if fx.cropper.calls.Load() != 1 {
		t.Errorf("cropper called %d times, want 1", fx.cropper.calls.Load())
	}
	if final.Records[0].File == "" {
		t.Error("record should carry the cropped file")
	}

	if len(fx.sampler.written) != 1 {
		t.Fatalf("sampler wrote %d files, want 1", len(fx.sampler.written))
	}
	if _, err := os.Stat(fx.sampler.written[0]); !os.IsNotExist(err) {
		t.Error("intermediate sample should be deleted after cropping")
	}
}

func TestExportCropFiles_ScaleDividesPreferredSize(t *testing.T) {
	fx := newFixture(t)
	selection := []*catalog.Asset{fx.addImage(t, "a1")}
	fx.store.SnapshotAndMerge("a1", &crop.Parameter{Scale: 2.0}, []string{"a1"})

	drain(t, fx.pipeline.ExportCropFiles(context.Background(), selection, false))

	want := imaging.Size{Width: 540, Height: 540}
	if fx.sampler.lastSz != want {
		t.Errorf("sample target = %+v, want %+v", fx.sampler.lastSz, want)
	}
}

func TestExportCropFiles_EmptySelection(t *testing.T) {
	fx := newFixture(t)

	snaps := drain(t, fx.pipeline.ExportCropFiles(context.Background(), nil, false))

	if len(snaps) != 2 {
		t.Fatalf("got %d snapshots for empty selection, want 2", len(snaps))
	}
	if snaps[0].Progress != 0 || snaps[1].Progress != 1 {
		t.Errorf("progress = %v, %v, want 0, 1", snaps[0].Progress, snaps[1].Progress)
	}
	if len(snaps[1].Records) != 0 {
		t.Errorf("empty selection produced %d records, want 0", len(snaps[1].Records))
	}
}

func TestExportCropFiles_DefaultParameterWhenUnstored(t *testing.T) {
	fx := newFixture(t)
	selection := []*catalog.Asset{fx.addImage(t, "a1")}

	snaps := drain(t, fx.pipeline.ExportCropFiles(context.Background(), selection, false))

	final := snaps[len(snaps)-1]
	p := final.Records[0].Parameter
	if p.Scale != crop.DefaultScale || p.Area != nil {
		t.Errorf("unstored asset should export with default parameter, got %+v", p)
	}
}

func TestExportCropFiles_StoreMutationDoesNotAffectRun(t *testing.T) {
	fx := newFixture(t)
	selection := []*catalog.Asset{fx.addImage(t, "a1"), fx.addImage(t, "a2")}
	fx.store.SnapshotAndMerge("a1", &crop.Parameter{Scale: 2.0}, []string{"a1", "a2"})

	ch := fx.pipeline.ExportCropFiles(context.Background(), selection, false)

	var snaps []Snapshot
	for s := range ch {
		snaps = append(snaps, s)
		// Mutate the store mid-run; the export read it once at start.
		fx.store.Clear()
	}

	final := snaps[len(snaps)-1]
	if final.Records[0].Parameter.Scale != 2.0 {
		t.Errorf("export should use the pre-read mapping, got scale %v", final.Records[0].Parameter.Scale)
	}
}

func TestExportCropFiles_CancellationStopsProducer(t *testing.T) {
	fx := newFixture(t)
	selection := []*catalog.Asset{
		fx.addImage(t, "a1"),
		fx.addImage(t, "a2"),
		fx.addImage(t, "a3"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch := fx.pipeline.ExportCropFiles(ctx, selection, false)

	// Take the initial snapshot, then stop consuming.
	<-ch
	cancel()

	// The channel must close without requiring further reads.
	count := 0
	for range ch {
		count++
	}
	if count > len(selection)+1 {
		t.Errorf("received %d snapshots after cancel, producer did not stop", count)
	}
}

func TestExportCropFiles_AspectRatioCarried(t *testing.T) {
	fx := newFixture(t)
	fx.selector.Advance() // 1.7778
	selection := []*catalog.Asset{fx.addImage(t, "a1")}

	snaps := drain(t, fx.pipeline.ExportCropFiles(context.Background(), selection, false))

	for i, s := range snaps {
		if s.AspectRatio != 1.7778 {
			t.Errorf("snapshot %d aspect ratio = %v, want 1.7778", i, s.AspectRatio)
		}
	}
}

func TestExportCropFiles_MixedScenario(t *testing.T) {
	fx := newFixture(t)
	a := fx.addImage(t, "a")
	b := fx.addImage(t, "b")

	// A has no crop region, B crops the top-left quarter.
	fx.store.SnapshotAndMerge("a", &crop.Parameter{Scale: 1.0}, []string{"a", "b"})
	fx.store.SnapshotAndMerge("b", &crop.Parameter{
		Scale: 1.0,
		Area:  &crop.Area{Left: 0, Top: 0, Width: 0.5, Height: 0.5},
	}, []string{"a", "b"})

	snaps := drain(t, fx.pipeline.ExportCropFiles(context.Background(), []*catalog.Asset{a, b}, false))

	final := snaps[len(snaps)-1]
	if final.Progress != 1 {
		t.Errorf("final progress = %v, want 1", final.Progress)
	}
	if len(final.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(final.Records))
	}
	if final.Records[0].File == "" {
		t.Error("record for A should have a sampled file")
	}
	if final.Records[1].File == "" {
		t.Error("record for B should have a cropped file")
	}
	if final.AspectRatio != 1.0 {
		t.Errorf("aspect ratio = %v, want 1.0", final.AspectRatio)
	}
	if fx.cropper.calls.Load() != 1 {
		t.Errorf("cropper called %d times, want 1 (only B has an area)", fx.cropper.calls.Load())
	}
}
