package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-results/internal/dto"
	"github.com/noah-isme/sma-adp-results/internal/engine"
	"github.com/noah-isme/sma-adp-results/internal/models"
	appErrors "github.com/noah-isme/sma-adp-results/pkg/errors"
)

type promotionRuleRepository interface {
	List(ctx context.Context, fromLevel, toLevel string) ([]models.PromotionRule, error)
	FindByID(ctx context.Context, id string) (*models.PromotionRule, error)
	Create(ctx context.Context, rule *models.PromotionRule) error
	Activate(ctx context.Context, id string) error
}

// PromotionRuleService manages versioned promotion rules.
type PromotionRuleService struct {
	repo      promotionRuleRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPromotionRuleService constructs the service.
func NewPromotionRuleService(repo promotionRuleRepository, validate *validator.Validate, logger *zap.Logger) *PromotionRuleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromotionRuleService{repo: repo, validator: validate, logger: logger}
}

// List returns rules, optionally narrowed to a level pair.
func (s *PromotionRuleService) List(ctx context.Context, fromLevel, toLevel string) ([]models.PromotionRule, error) {
	rules, err := s.repo.List(ctx, fromLevel, toLevel)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list promotion rules")
	}
	return rules, nil
}

// Get returns a rule by id.
func (s *PromotionRuleService) Get(ctx context.Context, id string) (*models.PromotionRule, error) {
	rule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "promotion rule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load promotion rule")
	}
	return rule, nil
}

// Create validates and stores the next rule version for its level pair.
// Term weights must sum to 1 here so evaluation never sees bad weights.
func (s *PromotionRuleService) Create(ctx context.Context, req dto.CreatePromotionRuleRequest, actorID string) (*models.PromotionRule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid promotion rule payload")
	}

	rule := &models.PromotionRule{
		FromLevel:             req.FromLevel,
		ToLevel:               req.ToLevel,
		IsActive:              req.Activate,
		MinAnnualAverage:      req.MinAnnualAverage,
		UseTermWeights:        req.UseTermWeights,
		TermWeights:           pq.Float64Array(req.TermWeights),
		RequireCoreSubjects:   req.RequireCoreSubjects,
		CoreSubjectIDs:        pq.StringArray(req.CoreSubjectIDs),
		MinPassedSubjects:     req.MinPassedSubjects,
		MinSubjectPassPercent: req.MinSubjectPassPercent,
		MinAttendancePercent:  req.MinAttendancePercent,
		ConditionalBand:       req.ConditionalBand,
		RequiresApproval:      req.RequiresApproval,
	}
	if actorID != "" {
		rule.CreatedBy = &actorID
	}
	if err := engine.ValidateRule(*rule); err != nil {
		return nil, engineError(err, "failed to validate promotion rule")
	}

	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create promotion rule")
	}
	s.logger.Info("promotion rule created",
		zap.String("rule_id", rule.ID),
		zap.String("from_level", rule.FromLevel),
		zap.String("to_level", rule.ToLevel),
		zap.Int("version", rule.Version),
		zap.Bool("active", rule.IsActive))
	return rule, nil
}

// Activate makes id the active version for its level pair.
func (s *PromotionRuleService) Activate(ctx context.Context, id string) (*models.PromotionRule, error) {
	rule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := engine.ValidateRule(*rule); err != nil {
		return nil, engineError(err, "failed to validate promotion rule")
	}
	if err := s.repo.Activate(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "promotion rule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate promotion rule")
	}
	rule.IsActive = true
	return rule, nil
}
