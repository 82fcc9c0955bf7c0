package api

import (
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/framecut/framecut-agent/internal/catalog"
	"github.com/framecut/framecut-agent/internal/crop"
)

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
}

func exportTestConfig(t *testing.T) (ServerConfig, *fakeService) {
	t.Helper()
	cfg := testConfig(t)

	srcDir := t.TempDir()
	a1 := filepath.Join(srcDir, "a1.png")
	a2 := filepath.Join(srcDir, "a2.png")
	writeTestPNG(t, a1, 64, 64)
	writeTestPNG(t, a2, 64, 64)

	svc := &fakeService{
		assets: map[string]*catalog.Asset{
			"a1": {ID: "a1", Type: catalog.AssetTypeImage, Path: a1},
			"a2": {ID: "a2", Type: catalog.AssetTypeImage, Path: a2},
		},
		files: map[string]string{"a1": a1, "a2": a2},
	}
	cfg.AssetService = svc
	return cfg, svc
}

func postExport(t *testing.T, cfg ServerConfig, req ExportRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	httpReq := httptest.NewRequest(http.MethodPost, "/export/crops", strings.NewReader(string(body)))
	httpReq.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	exportCropsHandler(cfg).ServeHTTP(rr, httpReq)
	return rr
}

func decodeStream(t *testing.T, rr *httptest.ResponseRecorder) []ExportStreamLine {
	t.Helper()
	var lines []ExportStreamLine
	for _, raw := range strings.Split(strings.TrimSpace(rr.Body.String()), "\n") {
		if raw == "" {
			continue
		}
		var line ExportStreamLine
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			t.Fatalf("decode stream line %q: %v", raw, err)
		}
		lines = append(lines, line)
	}
	return lines
}

func TestExportCrops_HappyPath(t *testing.T) {
	cfg, _ := exportTestConfig(t)
	cfg.Controller.OnChange("a2", &crop.Parameter{
		Scale: 1.0,
		Area:  &crop.Area{Left: 0, Top: 0, Width: 0.5, Height: 0.5},
	}, []string{"a1", "a2"})

	rr := postExport(t, cfg, ExportRequest{Selection: []string{"a1", "a2"}, Label: "Test Run"})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("Content-Type = %q, want application/x-ndjson", ct)
	}

	lines := decodeStream(t, rr)
	if len(lines) != 3 {
		t.Fatalf("got %d stream lines, want 3", len(lines))
	}

	final := lines[len(lines)-1]
	if !final.Done || final.Progress != 1 {
		t.Fatalf("final line done=%v progress=%v, want done at 1", final.Done, final.Progress)
	}
	if len(final.Records) != 2 {
		t.Fatalf("final records = %d, want 2", len(final.Records))
	}
	for i, rec := range final.Records {
		if rec.File == "" {
			t.Errorf("record %d has no output file", i)
			continue
		}
		if _, err := os.Stat(rec.File); err != nil {
			t.Errorf("record %d output missing: %v", i, err)
		}
	}

	// Output lands in a labeled run directory under the export dir.
	if !strings.Contains(final.Records[0].File, "Test Run-") {
		t.Errorf("output path %q does not use run directory", final.Records[0].File)
	}
}

func TestExportCrops_SkipCrop(t *testing.T) {
	cfg, _ := exportTestConfig(t)

	rr := postExport(t, cfg, ExportRequest{Selection: []string{"a1"}, SkipCrop: true})

	lines := decodeStream(t, rr)
	final := lines[len(lines)-1]
	if !final.Done {
		t.Fatal("run should complete")
	}
	if final.Records[0].File != "" {
		t.Errorf("skip-crop record has file %q, want none", final.Records[0].File)
	}
}

func TestExportCrops_EmptySelection(t *testing.T) {
	cfg, _ := exportTestConfig(t)

	rr := postExport(t, cfg, ExportRequest{Selection: []string{}})

	lines := decodeStream(t, rr)
	if len(lines) != 2 {
		t.Fatalf("got %d stream lines, want 2", len(lines))
	}
	if lines[0].Progress != 0 || lines[1].Progress != 1 {
		t.Errorf("progress = %v, %v, want 0, 1", lines[0].Progress, lines[1].Progress)
	}
}

func TestExportCrops_UnknownAsset(t *testing.T) {
	cfg, _ := exportTestConfig(t)

	rr := postExport(t, cfg, ExportRequest{Selection: []string{"nope"}})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestExportCrops_InvalidOutputDir(t *testing.T) {
	cfg, _ := exportTestConfig(t)

	rr := postExport(t, cfg, ExportRequest{
		Selection: []string{"a1"},
		OutputDir: filepath.Join(t.TempDir(), "does-not-exist"),
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestExportCrops_MissingSourceFile(t *testing.T) {
	cfg, svc := exportTestConfig(t)
	svc.assets["gone"] = &catalog.Asset{ID: "gone", Type: catalog.AssetTypeImage}

	rr := postExport(t, cfg, ExportRequest{Selection: []string{"gone"}})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (stream already started)", rr.Code, http.StatusOK)
	}

	lines := decodeStream(t, rr)
	last := lines[len(lines)-1]
	if last.Error == "" {
		t.Fatal("terminal line should carry the error")
	}
	if last.Done {
		t.Error("failed run must not be marked done")
	}
}
