package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/stylara/outfit-engine/internal/services"
)

type Handlers struct {
	Health  *HealthHandler
	Outfit  *OutfitHandler
	Metrics *MetricsHandler
}

func New(logger *logrus.Logger, services *services.Services) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(logger, services.Health),
		Outfit:  NewOutfitHandler(services.Orchestrator, services.Feedback, logger),
		Metrics: NewMetricsHandler(logger),
	}
}
