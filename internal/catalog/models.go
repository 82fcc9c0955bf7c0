package catalog

import (
	"crypto/rand"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

type Source struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Path        string    `json:"path"`
	DisplayName string    `json:"display_name"`
	Present     bool      `json:"present"`
	CreatedAt   time.Time `json:"created_at"`
}

// Asset media types. Non-image assets pass through the export
// pipeline without any crop I/O.
const (
	AssetTypeImage = "image"
	AssetTypeVideo = "video"
	AssetTypeOther = "other"
)

type Asset struct {
	ID          string    `json:"id"`
	SourceID    string    `json:"source_id"`
	Path        string    `json:"path"`
	Filename    string    `json:"filename"`
	Type        string    `json:"type"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Size        int64     `json:"size"`
	Mtime       time.Time `json:"mtime"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsImage reports whether the asset is image-typed and therefore
// eligible for sampling and cropping.
func (a *Asset) IsImage() bool {
	return a.Type == AssetTypeImage
}

const (
	JobTypeScan = "scan"

	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

type Job struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	SourceID  string    `json:"source_id,omitempty"`
	Progress  int       `json:"progress"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ConfigEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".heic": true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
}

var videoExtensions = map[string]bool{
	".mp4": true,
	".mov": true,
	".mkv": true,
}

func NewID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}

// MediaType classifies a filename by extension.
func MediaType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case imageExtensions[ext]:
		return AssetTypeImage
	case videoExtensions[ext]:
		return AssetTypeVideo
	default:
		return AssetTypeOther
	}
}

// IsMediaFile reports whether the filename is an image or video the
// scanner should catalog.
func IsMediaFile(filename string) bool {
	return MediaType(filename) != AssetTypeOther
}
