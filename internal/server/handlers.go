package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ibeckermayer/postlens/internal/apperr"
)

type handlers struct {
	svc    Service
	ping   func(context.Context) error
	logger *zap.Logger
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

var statusByKind = map[apperr.Kind]int{
	apperr.NotFound:             http.StatusNotFound,
	apperr.NoContent:            http.StatusNotFound,
	apperr.AnalysisBlocked:      http.StatusUnprocessableEntity,
	apperr.UpstreamUnavailable:  http.StatusBadGateway,
	apperr.AnalysisBackendError: http.StatusBadGateway,
	apperr.PersistenceError:     http.StatusInternalServerError,
}

func (h *handlers) analysis(c *gin.Context) {
	result, err := h.svc.Analyze(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) latestPost(c *gin.Context) {
	post, err := h.svc.LatestPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if post == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *handlers) health(c *gin.Context) {
	if err := h.ping(c.Request.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) writeError(c *gin.Context, err error) {
	e, ok := apperr.As(err)
	if !ok {
		if c.Request.Context().Err() != nil {
			// client went away; nothing useful to write
			c.Status(499)
			return
		}
		h.logger.Error("untyped pipeline error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorBody{Kind: "Internal", Message: err.Error()})
		return
	}

	status, ok := statusByKind[e.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	c.JSON(status, errorBody{Kind: string(e.Kind), Message: e.Error(), Reason: e.Reason})
}
