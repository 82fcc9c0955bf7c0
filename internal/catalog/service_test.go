package catalog

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/framecut/framecut-agent/internal/db"
)

func setupTestDB(t *testing.T) (*db.DB, Repository) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	repo := NewRepository(database.Conn())
	return database, repo
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()

	im := image.NewRGBA(image.Rect(0, 0, w, h))
	im.Set(0, 0, color.RGBA{R: 255, A: 255})

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, im); err != nil {
		t.Fatalf("failed to encode %s: %v", path, err)
	}
}

func TestService_AddFolder(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)

	tmpDir := t.TempDir()

	source, err := svc.AddFolder(context.Background(), tmpDir, "Test Folder")
	if err != nil {
		t.Fatalf("AddFolder() error = %v", err)
	}

	if source.ID == "" {
		t.Error("source.ID is empty")
	}
	if source.Path != tmpDir {
		t.Errorf("source.Path = %s, want %s", source.Path, tmpDir)
	}
	if source.DisplayName != "Test Folder" {
		t.Errorf("source.DisplayName = %s, want Test Folder", source.DisplayName)
	}
}

func TestService_AddFolder_InvalidPath(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)

	_, err := svc.AddFolder(context.Background(), "/nonexistent/path", "Test")
	if err == nil {
		t.Error("AddFolder() should return error for nonexistent path")
	}
}

func TestService_ExecuteScan(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	ctx := context.Background()

	tmpDir := t.TempDir()
	writePNG(t, filepath.Join(tmpDir, "photo.png"), 320, 240)
	if err := os.WriteFile(filepath.Join(tmpDir, "clip.mp4"), []byte("fake video content"), 0644); err != nil {
		t.Fatalf("failed to create test video: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "notes.txt"), []byte("not media"), 0644); err != nil {
		t.Fatalf("failed to create text file: %v", err)
	}

	source, err := svc.AddFolder(ctx, tmpDir, "Test")
	if err != nil {
		t.Fatalf("AddFolder() error = %v", err)
	}

	job, err := svc.ScanSource(ctx, source.ID)
	if err != nil {
		t.Fatalf("ScanSource() error = %v", err)
	}

	if err := svc.ExecuteScan(ctx, job.ID, source.ID, source.Path); err != nil {
		t.Fatalf("ExecuteScan() error = %v", err)
	}

	assets, err := svc.GetAssets(ctx, source.ID)
	if err != nil {
		t.Fatalf("GetAssets() error = %v", err)
	}

	if len(assets) != 2 {
		t.Fatalf("found %d assets, want 2 (txt skipped)", len(assets))
	}

	byName := map[string]*Asset{}
	for _, a := range assets {
		byName[a.Filename] = a
	}

	photo := byName["photo.png"]
	if photo == nil {
		t.Fatal("photo.png not cataloged")
	}
	if photo.Type != AssetTypeImage {
		t.Errorf("photo.Type = %s, want %s", photo.Type, AssetTypeImage)
	}
	if photo.Width != 320 || photo.Height != 240 {
		t.Errorf("photo dimensions = %dx%d, want 320x240", photo.Width, photo.Height)
	}

	clip := byName["clip.mp4"]
	if clip == nil {
		t.Fatal("clip.mp4 not cataloged")
	}
	if clip.Type != AssetTypeVideo {
		t.Errorf("clip.Type = %s, want %s", clip.Type, AssetTypeVideo)
	}
}

func TestService_ExecuteScan_SkipsHiddenDirs(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	ctx := context.Background()

	tmpDir := t.TempDir()

	writePNG(t, filepath.Join(tmpDir, "visible.png"), 10, 10)

	hiddenDir := filepath.Join(tmpDir, ".hidden")
	os.Mkdir(hiddenDir, 0755)
	writePNG(t, filepath.Join(hiddenDir, "hidden.png"), 10, 10)

	source, _ := svc.AddFolder(ctx, tmpDir, "Test")
	job, _ := svc.ScanSource(ctx, source.ID)
	svc.ExecuteScan(ctx, job.ID, source.ID, source.Path)

	assets, _ := svc.GetAssets(ctx, source.ID)

	if len(assets) != 1 {
		t.Errorf("found %d assets, want 1 (should skip hidden)", len(assets))
	}
}

func TestService_GetSelection_PreservesOrder(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	ctx := context.Background()

	tmpDir := t.TempDir()
	writePNG(t, filepath.Join(tmpDir, "a.png"), 10, 10)
	writePNG(t, filepath.Join(tmpDir, "b.png"), 10, 10)

	source, _ := svc.AddFolder(ctx, tmpDir, "Test")
	job, _ := svc.ScanSource(ctx, source.ID)
	svc.ExecuteScan(ctx, job.ID, source.ID, source.Path)

	assets, _ := svc.GetAssets(ctx, source.ID)
	if len(assets) != 2 {
		t.Fatalf("found %d assets, want 2", len(assets))
	}

	// Request in reverse of catalog order.
	ids := []string{assets[1].ID, assets[0].ID}
	selection, err := svc.GetSelection(ctx, ids)
	if err != nil {
		t.Fatalf("GetSelection() error = %v", err)
	}

	if selection[0].ID != ids[0] || selection[1].ID != ids[1] {
		t.Error("GetSelection() should preserve the caller's order")
	}
}

func TestService_GetSelection_UnknownID(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)

	if _, err := svc.GetSelection(context.Background(), []string{"missing"}); err == nil {
		t.Error("GetSelection() should fail for unknown asset IDs")
	}
}

func TestService_OriginalFile(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	ctx := context.Background()

	tmpDir := t.TempDir()
	photoPath := filepath.Join(tmpDir, "photo.png")
	writePNG(t, photoPath, 10, 10)

	source, _ := svc.AddFolder(ctx, tmpDir, "Test")
	job, _ := svc.ScanSource(ctx, source.ID)
	svc.ExecuteScan(ctx, job.ID, source.ID, source.Path)

	assets, _ := svc.GetAssets(ctx, source.ID)
	if len(assets) != 1 {
		t.Fatalf("found %d assets, want 1", len(assets))
	}

	path, err := svc.OriginalFile(ctx, assets[0].ID)
	if err != nil {
		t.Fatalf("OriginalFile() error = %v", err)
	}
	if path != photoPath {
		t.Errorf("OriginalFile() = %s, want %s", path, photoPath)
	}

	// Deleting the underlying file makes it unavailable.
	os.Remove(photoPath)
	path, err = svc.OriginalFile(ctx, assets[0].ID)
	if err != nil {
		t.Fatalf("OriginalFile() error = %v", err)
	}
	if path != "" {
		t.Errorf("OriginalFile() for deleted file = %q, want empty", path)
	}
}

func TestMediaType(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"photo.jpg", AssetTypeImage},
		{"photo.JPG", AssetTypeImage},
		{"shot.png", AssetTypeImage},
		{"clip.mp4", AssetTypeVideo},
		{"clip.MOV", AssetTypeVideo},
		{"notes.txt", AssetTypeOther},
		{"noextension", AssetTypeOther},
	}

	for _, tc := range tests {
		t.Run(tc.filename, func(t *testing.T) {
			if got := MediaType(tc.filename); got != tc.want {
				t.Errorf("MediaType(%s) = %s, want %s", tc.filename, got, tc.want)
			}
		})
	}
}
