package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/blackcape/expense-reporter/internal/entity"
	"github.com/blackcape/expense-reporter/internal/gsa"
	"github.com/blackcape/expense-reporter/internal/report"
)

func (s *Server) handleReport(c *gin.Context) {
	rep := report.Project(s.items.List(""), s.receipts.List())
	c.JSON(http.StatusOK, rep)
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleReportDocument renders the report as a downloadable workbook. A
// render failure leaves all stores untouched and reports that no document is
// available; the JSON report endpoint keeps working regardless.
func (s *Server) handleReportDocument(c *gin.Context) {
	rep := report.Project(s.items.List(""), s.receipts.List())

	data, err := s.renderer.Render(c.Request.Context(), rep)
	if err != nil {
		s.logger.Error("report rendering failed", "error", err)
		respondError(c, http.StatusServiceUnavailable, "Report document unavailable")
		return
	}

	fileName := fmt.Sprintf("expense-report-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// handlePerDiem is a direct rate lookup, independent of any stored trip.
func (s *Server) handlePerDiem(c *gin.Context) {
	date := c.Query("startDate")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	loc := entity.Location{
		Zip:   c.Query("zip"),
		City:  c.Query("city"),
		State: c.Query("state"),
	}
	if !loc.Valid() {
		respondError(c, http.StatusBadRequest, "Please enter a ZIP code, or a city and state.")
		return
	}

	snapshot, err := s.rates.Lookup(c.Request.Context(), date, loc)
	if err != nil {
		if errors.Is(err, gsa.ErrNotFound) {
			respondError(c, http.StatusNotFound, "No per-diem rates found for that location")
			return
		}
		s.logger.Error("per-diem lookup failed", "error", err)
		respondError(c, http.StatusBadGateway, "Per-diem lookup failed")
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
