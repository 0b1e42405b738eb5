package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumetric/attributor/internal/models"
	"github.com/lumetric/attributor/internal/storage"
)

// =============================================
// CAMPAIGN SERVICE
// =============================================

// CampaignService validates and persists campaign records.
type CampaignService struct {
	repo   storage.CampaignRepo
	logger *zap.Logger
}

func NewCampaignService(repo storage.CampaignRepo, logger *zap.Logger) *CampaignService {
	return &CampaignService{repo: repo, logger: logger}
}

func (s *CampaignService) List(ctx context.Context) ([]*models.Campaign, error) {
	return s.repo.ListCampaigns(ctx)
}

func (s *CampaignService) Get(ctx context.Context, id string) (*models.Campaign, error) {
	return s.repo.GetCampaign(ctx, id)
}

// Save validates and upserts a campaign. New campaigns get a generated
// ID and an active status unless one was supplied. The registry rejects
// a promo code already held by another campaign.
func (s *CampaignService) Save(ctx context.Context, c *models.Campaign) (*models.Campaign, error) {
	if c == nil {
		return nil, fmt.Errorf("campaign is required")
	}

	now := time.Now().UTC()
	if c.ID == "" {
		c.ID = uuid.New().String()
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	c.Slug = strings.TrimSpace(c.Slug)
	c.PromoCode = models.NormalizeCode(c.PromoCode)
	if c.Status == "" {
		c.Status = models.CampaignStatusActive
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.UpsertCampaign(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("campaign saved",
		zap.String("campaign_id", c.ID),
		zap.String("slug", c.Slug),
	)
	return c, nil
}

func (s *CampaignService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteCampaign(ctx, id); err != nil {
		return err
	}
	s.logger.Info("campaign deleted", zap.String("campaign_id", id))
	return nil
}

// =============================================
// INFLUENCER SERVICE
// =============================================

type InfluencerService struct {
	repo   storage.InfluencerRepo
	logger *zap.Logger
}

func NewInfluencerService(repo storage.InfluencerRepo, logger *zap.Logger) *InfluencerService {
	return &InfluencerService{repo: repo, logger: logger}
}

func (s *InfluencerService) List(ctx context.Context) ([]*models.Influencer, error) {
	return s.repo.ListInfluencers(ctx)
}

func (s *InfluencerService) Get(ctx context.Context, id string) (*models.Influencer, error) {
	return s.repo.GetInfluencer(ctx, id)
}

func (s *InfluencerService) Save(ctx context.Context, i *models.Influencer) (*models.Influencer, error) {
	if i == nil {
		return nil, fmt.Errorf("influencer is required")
	}

	now := time.Now().UTC()
	if i.ID == "" {
		i.ID = uuid.New().String()
		i.CreatedAt = now
	}
	i.UpdatedAt = now

	if err := i.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.UpsertInfluencer(ctx, i); err != nil {
		return nil, err
	}

	s.logger.Info("influencer saved",
		zap.String("influencer_id", i.ID),
		zap.String("handle", i.Handle),
	)
	return i, nil
}

func (s *InfluencerService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteInfluencer(ctx, id); err != nil {
		return err
	}
	s.logger.Info("influencer deleted", zap.String("influencer_id", id))
	return nil
}

// =============================================
// SETTINGS SERVICE
// =============================================

// SettingsService guards the single global rating-thresholds record.
type SettingsService struct {
	repo   storage.SettingsRepo
	logger *zap.Logger
}

func NewSettingsService(repo storage.SettingsRepo, logger *zap.Logger) *SettingsService {
	return &SettingsService{repo: repo, logger: logger}
}

func (s *SettingsService) GetRatingThresholds(ctx context.Context) (models.RatingThresholds, error) {
	return s.repo.GetRatingThresholds(ctx)
}

func (s *SettingsService) UpdateRatingThresholds(ctx context.Context, t models.RatingThresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := s.repo.PutRatingThresholds(ctx, t); err != nil {
		return err
	}
	s.logger.Info("rating thresholds updated",
		zap.Float64("star1_max", t.Star1Max),
		zap.Float64("star2_max", t.Star2Max),
		zap.Float64("star3_min", t.Star3Min),
	)
	return nil
}
