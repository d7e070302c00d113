package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/blackcape/expense-reporter/internal/common"
	"github.com/blackcape/expense-reporter/internal/ledger"
	"github.com/blackcape/expense-reporter/internal/perdiem"
)

func (s *Server) handleListItems(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": s.items.List(c.Query("tripId"))})
}

func (s *Server) handleAddItem(c *gin.Context) {
	it, err := s.items.AddBlank(c.Request.Context())
	if err != nil {
		s.logger.Error("failed to add expense item", "error", err)
		respondError(c, http.StatusInternalServerError, "Failed to add expense item")
		return
	}
	c.JSON(http.StatusCreated, it)
}

func (s *Server) handleSplitItem(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid item id")
		return
	}
	clone, err := s.items.Split(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Expense item not found")
			return
		}
		s.logger.Error("failed to split expense item", "item_id", id, "error", err)
		respondError(c, http.StatusInternalServerError, "Failed to split expense item")
		return
	}
	c.JSON(http.StatusCreated, clone)
}

func (s *Server) handleUpdateItem(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid item id")
		return
	}
	var req fieldUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	change, err := ledger.ParseChange(req.Field, req.Value)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.items.Update(c.Request.Context(), id, change); err != nil {
		switch {
		case errors.Is(err, common.ErrNotFound):
			respondError(c, http.StatusNotFound, "Expense item not found")
		default:
			// Enum membership failures surface here as plain errors.
			respondError(c, http.StatusBadRequest, err.Error())
		}
		return
	}
	it, _ := s.items.Get(id)
	c.JSON(http.StatusOK, it)
}

type setReceiptsRequest struct {
	ReceiptIDs []uuid.UUID `json:"receiptIds"`
}

// handleSetItemReceipts replaces an item's receipt linkage. Every id must
// name a stored receipt; a request referencing an unknown receipt changes
// nothing.
func (s *Server) handleSetItemReceipts(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid item id")
		return
	}
	var req setReceiptsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	for _, rid := range req.ReceiptIDs {
		if _, ok := s.receipts.Get(rid); !ok {
			respondError(c, http.StatusBadRequest, "Unknown receipt id: "+rid.String())
			return
		}
	}

	if err := s.items.Update(c.Request.Context(), id, ledger.SetReceiptIDs{ReceiptIDs: req.ReceiptIDs}); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Expense item not found")
			return
		}
		s.logger.Error("failed to set item receipts", "item_id", id, "error", err)
		respondError(c, http.StatusInternalServerError, "Failed to set item receipts")
		return
	}
	it, _ := s.items.Get(id)
	c.JSON(http.StatusOK, it)
}

// handleCommitAmount is the capping commit point: the raw amount is written,
// then lowered to the per-diem ceiling when one applies.
func (s *Server) handleCommitAmount(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid item id")
		return
	}
	var req struct {
		Amount string `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	if err := s.items.Update(ctx, id, ledger.SetAmount{Amount: req.Amount}); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Expense item not found")
			return
		}
		s.logger.Error("failed to write amount", "item_id", id, "error", err)
		respondError(c, http.StatusInternalServerError, "Failed to write amount")
		return
	}

	it, _ := s.items.Get(id)
	capped, didCap := perdiem.CapAmount(it, s.trips)
	if didCap {
		if err := s.items.Update(ctx, id, ledger.SetAmount{Amount: capped}); err != nil {
			s.logger.Error("failed to persist capped amount", "item_id", id, "error", err)
			respondError(c, http.StatusInternalServerError, "Failed to persist capped amount")
			return
		}
		it, _ = s.items.Get(id)
		s.logger.Info("amount capped at per-diem ceiling", "item_id", id, "amount", capped)
	}
	c.JSON(http.StatusOK, gin.H{"item": it, "capped": didCap})
}

// handleRemoveItem deletes the item and garbage-collects receipts no other
// item references. The ledger decides which receipts are orphaned; the store
// deletes them.
func (s *Server) handleRemoveItem(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid item id")
		return
	}
	ctx := c.Request.Context()
	orphaned, err := s.items.Remove(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Expense item not found")
			return
		}
		s.logger.Error("failed to remove expense item", "item_id", id, "error", err)
		respondError(c, http.StatusInternalServerError, "Failed to remove expense item")
		return
	}
	if len(orphaned) > 0 {
		if err := s.receipts.Remove(ctx, orphaned); err != nil {
			// The item is gone; orphaned receipts linger until the next sweep.
			s.logger.Warn("failed to remove orphaned receipts", "count", len(orphaned), "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"removed": id, "orphanedReceipts": orphaned})
}
