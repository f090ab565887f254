package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// MetricsHandler exposes the Prometheus scrape endpoint.
type MetricsHandler struct {
	logger  *logrus.Logger
	handler gin.HandlerFunc
}

func NewMetricsHandler(logger *logrus.Logger) *MetricsHandler {
	return &MetricsHandler{
		logger:  logger,
		handler: gin.WrapH(promhttp.Handler()),
	}
}

func (h *MetricsHandler) Scrape(c *gin.Context) {
	h.handler(c)
}
