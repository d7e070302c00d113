package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/blackcape/expense-reporter/internal/common"
	"github.com/blackcape/expense-reporter/internal/trip"
)

func (s *Server) handleListTrips(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"trips": s.trips.List()})
}

func (s *Server) handleAddTrip(c *gin.Context) {
	t, err := s.trips.Add(c.Request.Context())
	if err != nil {
		s.logger.Error("failed to add trip", "error", err)
		respondError(c, http.StatusInternalServerError, "Failed to add trip")
		return
	}
	c.JSON(http.StatusCreated, t)
}

type fieldUpdateRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (s *Server) handleUpdateTrip(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid trip id")
		return
	}
	var req fieldUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	change, err := trip.ParseChange(req.Field, req.Value)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.trips.Update(c.Request.Context(), id, change); err != nil {
		switch {
		case errors.Is(err, common.ErrNotFound):
			respondError(c, http.StatusNotFound, "Trip not found")
		case errors.Is(err, common.ErrInvalidInput):
			respondError(c, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("failed to update trip", "trip_id", id, "error", err)
			respondError(c, http.StatusInternalServerError, "Failed to update trip")
		}
		return
	}
	t, _ := s.trips.Get(id)
	c.JSON(http.StatusOK, t)
}

// handleRemoveTrip deletes a trip. Expense items keep their tripId; the
// dangling reference reads as "no trip" everywhere downstream.
func (s *Server) handleRemoveTrip(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid trip id")
		return
	}
	if err := s.trips.Remove(c.Request.Context(), id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Trip not found")
			return
		}
		s.logger.Error("failed to remove trip", "trip_id", id, "error", err)
		respondError(c, http.StatusInternalServerError, "Failed to remove trip")
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": id})
}

// handleFetchRates runs the rate-fetch lifecycle synchronously and returns
// the trip as it stands afterwards. A fetch failure is not an HTTP failure:
// the error state lives on the trip itself. Invalid location input is the
// one case reported as a client error.
func (s *Server) handleFetchRates(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid trip id")
		return
	}
	fetchErr := s.trips.FetchRates(c.Request.Context(), id)
	if errors.Is(fetchErr, common.ErrNotFound) {
		respondError(c, http.StatusNotFound, "Trip not found")
		return
	}

	t, ok := s.trips.Get(id)
	if !ok {
		respondError(c, http.StatusNotFound, "Trip not found")
		return
	}
	if errors.Is(fetchErr, common.ErrInvalidInput) {
		c.JSON(http.StatusBadRequest, t)
		return
	}
	c.JSON(http.StatusOK, t)
}
