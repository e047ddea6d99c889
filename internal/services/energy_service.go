package services

import (
	"context"

	"github.com/AldairPetronilia/trading-project-sub002/internal/models"
	"github.com/AldairPetronilia/trading-project-sub002/internal/repository"
	"github.com/AldairPetronilia/trading-project-sub002/pkg/logging"
	"github.com/AldairPetronilia/trading-project-sub002/pkg/metrics"
)

// EnergyService handles read access to persisted energy data
type EnergyService struct {
	repo         repository.EnergyRepository
	progressRepo repository.BackfillProgressRepository
	logger       *logging.StructuredLogger
	metrics      *metrics.Collector
}

// NewEnergyService creates a new energy data read service
func NewEnergyService(
	repo repository.EnergyRepository,
	progressRepo repository.BackfillProgressRepository,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *EnergyService {
	return &EnergyService{
		repo:         repo,
		progressRepo: progressRepo,
		logger:       logger,
		metrics:      metricsCollector,
	}
}

// GetRecords retrieves canonical records with filtering
func (s *EnergyService) GetRecords(ctx context.Context, filter repository.RecordFilter) ([]*models.EnergyDataRecord, int, error) {
	return s.repo.GetRecords(ctx, filter)
}

// GetBackfillProgress retrieves every backfill cursor row
func (s *EnergyService) GetBackfillProgress(ctx context.Context) ([]*models.BackfillProgress, error) {
	return s.progressRepo.ListProgress(ctx)
}

// HealthCheck checks the persistence layer
func (s *EnergyService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}
