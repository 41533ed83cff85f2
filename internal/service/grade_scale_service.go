package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-results/internal/dto"
	"github.com/noah-isme/sma-adp-results/internal/engine"
	"github.com/noah-isme/sma-adp-results/internal/models"
	appErrors "github.com/noah-isme/sma-adp-results/pkg/errors"
)

type gradeScaleRepository interface {
	List(ctx context.Context, filter models.GradeScaleFilter) ([]models.GradeScale, error)
	FindByID(ctx context.Context, id string) (*models.GradeScale, error)
	FindDefault(ctx context.Context) (*models.GradeScale, error)
	Create(ctx context.Context, scale *models.GradeScale) error
	SetDefault(ctx context.Context, id string) error
}

// GradeScaleService manages versioned grade scales.
type GradeScaleService struct {
	repo      gradeScaleRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeScaleService constructs the service.
func NewGradeScaleService(repo gradeScaleRepository, validate *validator.Validate, logger *zap.Logger) *GradeScaleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeScaleService{repo: repo, validator: validate, logger: logger}
}

// List returns grade scales matching filter.
func (s *GradeScaleService) List(ctx context.Context, filter models.GradeScaleFilter) ([]models.GradeScale, error) {
	scales, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grade scales")
	}
	return scales, nil
}

// Get returns a grade scale by id.
func (s *GradeScaleService) Get(ctx context.Context, id string) (*models.GradeScale, error) {
	scale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade scale not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade scale")
	}
	return scale, nil
}

// Default returns the scale used for new computations.
func (s *GradeScaleService) Default(ctx context.Context) (*models.GradeScale, error) {
	scale, err := s.repo.FindDefault(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrConfiguration, "no default grade scale configured")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load default grade scale")
	}
	return scale, nil
}

// Create stores a new scale version. Bands must partition 0 to 100.
func (s *GradeScaleService) Create(ctx context.Context, req dto.CreateGradeScaleRequest, actorID string) (*models.GradeScale, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade scale payload")
	}
	if err := engine.ValidateBands(req.Bands); err != nil {
		return nil, engineError(err, "failed to validate grade scale")
	}

	scale := &models.GradeScale{
		Name:      req.Name,
		IsDefault: req.IsDefault,
		Bands:     models.GradeBands(req.Bands),
	}
	if actorID != "" {
		scale.CreatedBy = &actorID
	}
	if err := s.repo.Create(ctx, scale); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create grade scale")
	}
	s.logger.Info("grade scale created",
		zap.String("grade_scale_id", scale.ID),
		zap.String("name", scale.Name),
		zap.Int("version", scale.Version),
		zap.Bool("default", scale.IsDefault))
	return scale, nil
}

// SetDefault makes id the default scale.
func (s *GradeScaleService) SetDefault(ctx context.Context, id string) (*models.GradeScale, error) {
	if err := s.repo.SetDefault(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade scale not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set default grade scale")
	}
	return s.Get(ctx, id)
}
