package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tdnguyen-dev/recognition-be/internal/api/dto"
)

// PredictorHandler handles predictor catalog requests
type PredictorHandler struct {
	logger     *slog.Logger
	predictors PredictorReader
}

// NewPredictorHandler creates a new PredictorHandler instance
func NewPredictorHandler(deps *Dependencies) *PredictorHandler {
	return &PredictorHandler{
		logger:     deps.Logger,
		predictors: deps.Predictors,
	}
}

// ListPredictors handles GET /api/v1/predictors
// Lists the active recognition models and their per-job credit cost.
func (h *PredictorHandler) ListPredictors(c *gin.Context) {
	predictors, err := h.predictors.ListActivePredictors(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list predictors", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list predictors"})
		return
	}

	response := make([]dto.PredictorDTO, len(predictors))
	for i := range predictors {
		response[i] = dto.NewPredictorDTO(&predictors[i])
	}

	c.JSON(http.StatusOK, gin.H{"predictors": response})
}
