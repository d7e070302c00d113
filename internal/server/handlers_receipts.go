package server

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blackcape/expense-reporter/internal/entity"
	"github.com/blackcape/expense-reporter/internal/extract"
)

type parseReceiptRequest struct {
	Base64Image string `json:"base64Image"`
	FileName    string `json:"fileName"`
	MIMEType    string `json:"mimeType"`
}

type parseReceiptResponse struct {
	Status  string               `json:"status"`
	Data    entity.ParsedReceipt `json:"data"`
	Item    entity.ExpenseItem   `json:"item"`
	Receipt entity.Receipt       `json:"receipt"`
	Message string               `json:"message,omitempty"`
}

// handleParseReceipt stores the uploaded image and extracts its fields.
// Extraction failure still creates the line item with placeholder fields;
// only input errors (missing or undecodable image) abort before any state
// changes. Each request is an independent task: multiple in-flight uploads
// complete in any order and land keyed by their own receipt id.
func (s *Server) handleParseReceipt(c *gin.Context) {
	var req parseReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Base64Image == "" {
		respondError(c, http.StatusBadRequest, "Missing 'base64Image' in request")
		return
	}
	imageBytes, err := base64.StdEncoding.DecodeString(req.Base64Image)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Cannot decode base64")
		return
	}

	ctx := c.Request.Context()
	rec := entity.Receipt{ImageData: imageBytes, FileName: req.FileName}
	receiptID, err := s.receipts.Add(ctx, rec)
	if err != nil {
		s.logger.Error("failed to store receipt", "error", err)
		respondError(c, http.StatusInternalServerError, "Failed to store receipt")
		return
	}
	rec.ID = receiptID

	resp := parseReceiptResponse{Status: "success", Receipt: rec}
	parsed, extractErr := s.extractor.ExtractReceipt(ctx, extract.Request{Image: imageBytes, MIMEType: req.MIMEType})
	if extractErr != nil {
		s.logger.Warn("extraction failed, creating item with defaults", "receipt_id", receiptID, "error", extractErr)
		parsed = extract.DefaultFields()
		resp.Status = "error"
		resp.Message = extractErr.Error()
	}
	resp.Data = parsed

	item, err := s.items.AddFromParse(ctx, parsed, receiptID)
	if err != nil {
		s.logger.Error("failed to create expense item", "receipt_id", receiptID, "error", err)
		respondError(c, http.StatusInternalServerError, "Failed to create expense item")
		return
	}
	resp.Item = item

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListReceipts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"receipts": s.receipts.List()})
}
