package api

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/framecut/framecut-agent/internal/export"
	"github.com/framecut/framecut-agent/internal/imaging"
)

// exportCropsHandler runs a crop export over the requested selection
// and streams progress snapshots as NDJSON. The response stays open
// for the duration of the run; closing the connection cancels it.
func exportCropsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		baseDir := req.OutputDir
		if baseDir != "" {
			if err := export.ValidateOutputDir(baseDir); err != nil {
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
				return
			}
		} else {
			baseDir = cfg.ExportDir
			if err := os.MkdirAll(baseDir, 0755); err != nil {
				WriteError(w, http.StatusInternalServerError, "failed to create export directory", "INTERNAL_ERROR")
				return
			}
		}

		selection, err := cfg.AssetService.GetSelection(r.Context(), req.Selection)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		runDir := filepath.Join(baseDir, export.RunDirName(req.Label, time.Now()))
		transformer, err := imaging.NewFileTransformer(runDir, cfg.Logger)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to create run directory", "INTERNAL_ERROR")
			return
		}

		pipeline := export.NewPipeline(export.PipelineConfig{
			Store:         cfg.Controller.Store(),
			Selector:      cfg.Controller.Selector(),
			Files:         cfg.AssetService,
			Sampler:       transformer,
			Cropper:       transformer,
			PreferredSize: cfg.PreferredSize,
			Logger:        cfg.Logger,
		})

		w.Header().Set("Content-Type", "application/x-ndjson")
		w.WriteHeader(http.StatusOK)

		flusher, _ := w.(http.Flusher)
		enc := json.NewEncoder(w)

		for snapshot := range pipeline.ExportCropFiles(r.Context(), selection, req.SkipCrop) {
			if err := enc.Encode(SnapshotToStreamLine(snapshot)); err != nil {
				// Client went away; the context cancellation stops the
				// producer.
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}
