// Model administration handlers.
//
//   - POST /admin/retrain  (run one retraining pass synchronously)
//   - GET  /admin/model    (inspect the active generation and pipeline state)
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/carebook/go-booking-backend/internal/services"
)

// RetrainResponse reports the outcome of a successful retraining pass.
type RetrainResponse struct {
	Version     int       `json:"version"`
	TrainedRows int       `json:"trained_rows"`
	Accuracy    float64   `json:"accuracy"`
	TrainedAt   time.Time `json:"trained_at"`
}

// ModelInfoResponse describes the generation currently serving predictions.
type ModelInfoResponse struct {
	State       string     `json:"state"`
	Active      bool       `json:"active"`
	Version     int        `json:"version,omitempty"`
	TrainedRows int        `json:"trained_rows,omitempty"`
	Accuracy    float64    `json:"accuracy,omitempty"`
	TrainedAt   *time.Time `json:"trained_at,omitempty"`
}

// Retrain runs the full pipeline synchronously and reports the new
// generation. Expected pipeline outcomes map to distinct conflict responses
// so operators can script against them.
func (h *Handlers) Retrain(c *gin.Context) {
	gen, err := h.retrainSvc.Retrain(c.Request.Context(), time.Now().UTC())
	switch {
	case err == nil:
		ok(c, http.StatusOK, RetrainResponse{
			Version:     gen.Version,
			TrainedRows: gen.TrainedRows,
			Accuracy:    gen.Accuracy,
			TrainedAt:   gen.TrainedAt,
		})
	case errors.Is(err, services.ErrInsufficientData):
		fail(c, http.StatusConflict, ErrCodeInsufficientData, "not enough recommendation history to retrain")
	case errors.Is(err, services.ErrModelRegression):
		fail(c, http.StatusConflict, ErrCodeModelRegression, "new generation underperformed and was rolled back")
	case errors.Is(err, services.ErrRetrainInProgress):
		fail(c, http.StatusConflict, ErrCodeRetrainInProgress, "a retraining run is already in progress")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// ModelInfo reports the pipeline state and the active generation, if any.
// Before the first retrain the engine serves rule-only scores; Active is
// false in that case.
func (h *Handlers) ModelInfo(c *gin.Context) {
	resp := ModelInfoResponse{State: h.retrainSvc.State()}
	if gen := h.models.Active(); gen != nil {
		resp.Active = true
		resp.Version = gen.Version
		resp.TrainedRows = gen.TrainedRows
		resp.Accuracy = gen.Accuracy
		t := gen.TrainedAt
		resp.TrainedAt = &t
	}
	ok(c, http.StatusOK, resp)
}
