package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/couchcryptid/smart-irrigation-service/internal/domain"
	"github.com/couchcryptid/smart-irrigation-service/internal/farm"
	"github.com/couchcryptid/smart-irrigation-service/internal/pipeline"
)

const maxBodyBytes = 1 << 20

type indexResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	write(w, r, http.StatusOK, indexResponse{
		Message: "Smart Olive Irrigation API",
		Version: "1.0",
		Endpoints: map[string]string{
			"farms":      "/api/farms",
			"weather":    "/api/weather/{lat}/{lon}",
			"irrigation": "/api/calculate-irrigation",
			"ndvi":       "/api/farms/{id}/ndvi",
			"savings":    "/api/farms/{id}/savings",
		},
	})
}

type farmsResponse struct {
	Success bool        `json:"success"`
	Count   int         `json:"count"`
	Farms   []farm.Farm `json:"farms"`
}

func (s *Server) handleListFarms(w http.ResponseWriter, r *http.Request) {
	farms := s.deps.Farms.List()
	write(w, r, http.StatusOK, farmsResponse{Success: true, Count: len(farms), Farms: farms})
}

type farmResponse struct {
	Success bool      `json:"success"`
	Farm    farm.Farm `json:"farm"`
}

func (s *Server) handleGetFarm(w http.ResponseWriter, r *http.Request) {
	f, err := s.deps.Farms.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	write(w, r, http.StatusOK, farmResponse{Success: true, Farm: f})
}

type ndviResponse struct {
	Success bool `json:"success"`
	farm.NDVIReport
}

func (s *Server) handleFarmNDVI(w http.ResponseWriter, r *http.Request) {
	f, err := s.deps.Farms.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	write(w, r, http.StatusOK, ndviResponse{Success: true, NDVIReport: farm.BuildNDVIReport(f)})
}

type savingsResponse struct {
	Success bool   `json:"success"`
	FarmID  string `json:"farm_id"`
	domain.SeasonalReport
}

func (s *Server) handleFarmSavings(w http.ResponseWriter, r *http.Request) {
	f, err := s.deps.Farms.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	write(w, r, http.StatusOK, savingsResponse{
		Success:        true,
		FarmID:         f.ID,
		SeasonalReport: domain.SeasonalSavings(f.SizeHectares, s.deps.Rates),
	})
}

type weatherResponse struct {
	Success  bool `json:"success"`
	Fallback bool `json:"fallback"`
	domain.WeatherReport
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	lat, latErr := strconv.ParseFloat(chi.URLParam(r, "lat"), 64)
	lon, lonErr := strconv.ParseFloat(chi.URLParam(r, "lon"), 64)
	if latErr != nil || lonErr != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		writeError(w, r, http.StatusBadRequest, "Invalid lat/lon")
		return
	}

	report, fallback, err := s.deps.Advisor.Weather(r.Context(), lat, lon)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	write(w, r, http.StatusOK, weatherResponse{Success: true, Fallback: fallback, WeatherReport: report})
}

type adviceResponse struct {
	Success bool `json:"success"`
	pipeline.Advice
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.RequestID == "" {
		req.RequestID = RequestIDFrom(r.Context())
	}

	advice, err := s.deps.Advisor.Advise(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	write(w, r, http.StatusOK, adviceResponse{Success: true, Advice: advice})
}
