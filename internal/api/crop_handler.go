package api

import (
	"encoding/json"
	"net/http"

	"github.com/framecut/framecut-agent/internal/crop"
	"github.com/go-chi/chi/v5"
)

func getRatioHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sel := cfg.Controller.Selector()
		WriteJSON(w, http.StatusOK, RatioResponse{
			Ratio:  sel.Current(),
			Label:  sel.Label(),
			Index:  sel.Index().Get(),
			Ratios: sel.Ratios(),
		})
	}
}

func advanceRatioHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sel := cfg.Controller.Selector()
		sel.Advance()
		WriteJSON(w, http.StatusOK, RatioResponse{
			Ratio:  sel.Current(),
			Label:  sel.Label(),
			Index:  sel.Index().Get(),
			Ratios: sel.Ratios(),
		})
	}
}

func getCropParamHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assetID := chi.URLParam(r, "assetID")
		if assetID == "" {
			WriteError(w, http.StatusBadRequest, "asset id required", "BAD_REQUEST")
			return
		}

		param, stored := cfg.Controller.Get(assetID)
		if !stored {
			param = crop.DefaultParameter(assetID)
		}
		WriteJSON(w, http.StatusOK, CropParamResponse{Parameter: param, Stored: stored})
	}
}

func cropChangeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CropChangeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if req.Parameter != nil {
			if err := req.Parameter.Validate(); err != nil {
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
				return
			}
		}

		cfg.Controller.OnChange(req.OutgoingID, req.Parameter, req.Selection)
		WriteJSON(w, http.StatusOK, CropChangeResponse{Stored: cfg.Controller.Store().Len()})
	}
}

func clearCropParamsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Controller.Clear()
		w.WriteHeader(http.StatusNoContent)
	}
}
