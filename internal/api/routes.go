package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/framecut/framecut-agent/internal/catalog"
	"github.com/framecut/framecut-agent/internal/config"
	"github.com/go-chi/chi/v5"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist())

	r.Get("/health", healthHandler(cfg))

	// Preview bypasses bearer auth: browser media elements cannot set
	// Authorization headers. Loopback clients only.
	r.With(LoopbackGuard()).Get("/preview/file", previewHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Get("/sources", listSourcesHandler(cfg))
		r.Post("/sources/folders", addFolderHandler(cfg))
		r.Delete("/sources/{id}", deleteSourceHandler(cfg))
		r.Get("/sources/{id}/assets", listAssetsHandler(cfg))
		r.Post("/scan", scanHandler(cfg))
		r.Get("/jobs", listJobsHandler(cfg))
		r.Get("/jobs/{id}", getJobHandler(cfg))

		r.Get("/crop/ratio", getRatioHandler(cfg))
		r.Post("/crop/ratio/advance", advanceRatioHandler(cfg))
		r.Get("/crop/params/{assetID}", getCropParamHandler(cfg))
		r.Post("/crop/change", cropChangeHandler(cfg))
		r.Delete("/crop/params", clearCropParamsHandler(cfg))

		r.Post("/export/crops", exportCropsHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  config.Version,
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sources, _ := cfg.AssetService.GetSources(ctx)
		assetsCount, _ := cfg.AssetService.CountAssets(ctx)
		jobs, _ := cfg.Repository.ListJobs(ctx, 10)

		state := "idle"
		var activeJob *JobResponse
		jobsRunning := 0
		lastError := ""

		if cfg.Runner != nil && cfg.Runner.IsPaused() {
			state = "paused"
		}

		for _, j := range jobs {
			if j.Status == catalog.JobStatusRunning {
				state = "scanning"
				resp := JobToResponse(j)
				activeJob = &resp
				jobsRunning++
			}
			if j.Status == catalog.JobStatusFailed && lastError == "" {
				lastError = j.Error
			}
		}

		if lastError != "" && state == "idle" {
			state = "error"
		}

		WriteJSON(w, http.StatusOK, StatusResponse{
			State:        state,
			LastError:    lastError,
			SourcesCount: len(sources),
			AssetsCount:  assetsCount,
			JobsRunning:  jobsRunning,
			ActiveJob:    activeJob,
			CropStored:   cfg.Controller.Store().Len(),
			AspectRatio:  cfg.Controller.Selector().Label(),
		})
	}
}

func listSourcesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sources, err := cfg.AssetService.GetSources(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list sources", "INTERNAL_ERROR")
			return
		}

		resp := SourcesResponse{Sources: make([]SourceResponse, len(sources))}
		for i, s := range sources {
			resp.Sources[i] = SourceToResponse(s)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func addFolderHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddFolderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if req.Path == "" {
			WriteError(w, http.StatusBadRequest, "path is required", "BAD_REQUEST")
			return
		}

		source, err := cfg.AssetService.AddFolder(r.Context(), req.Path, req.DisplayName)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusCreated, AddFolderResponse{SourceID: source.ID})
	}
}

func deleteSourceHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "source id required", "BAD_REQUEST")
			return
		}

		if err := cfg.AssetService.RemoveSource(r.Context(), id); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func listAssetsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sourceID := chi.URLParam(r, "id")
		if sourceID == "" {
			WriteError(w, http.StatusBadRequest, "source id required", "BAD_REQUEST")
			return
		}

		assets, err := cfg.AssetService.GetAssets(r.Context(), sourceID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		resp := AssetsResponse{Assets: make([]AssetResponse, len(assets))}
		for i, a := range assets {
			resp.Assets[i] = AssetToResponse(a)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func scanHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ScanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if req.SourceID == "" {
			sources, err := cfg.AssetService.GetSources(r.Context())
			if err != nil {
				WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
				return
			}
			if len(sources) == 0 {
				WriteError(w, http.StatusBadRequest, "no sources configured", "BAD_REQUEST")
				return
			}
			req.SourceID = sources[0].ID
		}

		job, err := cfg.AssetService.ScanSource(r.Context(), req.SourceID)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusAccepted, ScanResponse{JobID: job.ID})
	}
}

func listJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := cfg.Repository.ListJobs(r.Context(), 50)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list jobs", "INTERNAL_ERROR")
			return
		}

		resp := JobsResponse{Jobs: make([]JobResponse, len(jobs))}
		for i, j := range jobs {
			resp.Jobs[i] = JobToResponse(j)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "job id required", "BAD_REQUEST")
			return
		}

		job, err := cfg.Repository.GetJob(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if job == nil {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}

func previewHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assetID := r.URL.Query().Get("asset_id")
		if assetID == "" {
			WriteError(w, http.StatusBadRequest, "asset_id is required", "BAD_REQUEST")
			return
		}

		asset, err := cfg.AssetService.GetAsset(r.Context(), assetID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if asset == nil {
			WriteError(w, http.StatusNotFound, "asset not found", "NOT_FOUND")
			return
		}

		source, _ := cfg.AssetService.GetSource(r.Context(), asset.SourceID)
		if source != nil && !source.Present {
			WriteError(w, http.StatusNotFound,
				"asset not available - source '"+source.DisplayName+"' is disconnected",
				"SOURCE_DISCONNECTED")
			return
		}

		if err := cfg.PreviewServer.ServeFile(w, r, asset.Path); err != nil {
			cfg.Logger.Error("preview error", "error", err, "asset_id", assetID)
		}
	}
}
