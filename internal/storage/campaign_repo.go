package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/lumetric/attributor/internal/models"
)

// ErrPromoCodeTaken is returned when an upsert would give two campaigns
// the same promo code. Shared codes make promo attribution ambiguous, so
// the registry rejects them at write time.
type ErrPromoCodeTaken struct {
	PromoCode  string
	CampaignID string
}

func (e *ErrPromoCodeTaken) Error() string {
	return fmt.Sprintf("promo code %q already used by campaign %s", e.PromoCode, e.CampaignID)
}

// InMemoryCampaignRepo is a thread-safe in-memory campaign registry.
type InMemoryCampaignRepo struct {
	mu        sync.RWMutex
	campaigns map[string]*models.Campaign
}

// NewInMemoryCampaignRepo creates a new empty in-memory campaign repo.
func NewInMemoryCampaignRepo() *InMemoryCampaignRepo {
	return &InMemoryCampaignRepo{
		campaigns: make(map[string]*models.Campaign),
	}
}

func (r *InMemoryCampaignRepo) ListCampaigns(ctx context.Context) ([]*models.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.Campaign, 0, len(r.campaigns))
	for _, c := range r.campaigns {
		cp := *c
		result = append(result, &cp)
	}
	return result, nil
}

func (r *InMemoryCampaignRepo) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.campaigns[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r *InMemoryCampaignRepo) GetCampaignBySlug(ctx context.Context, slug string) (*models.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.campaigns {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *InMemoryCampaignRepo) GetActiveCampaigns(ctx context.Context) ([]*models.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.Campaign, 0)
	for _, c := range r.campaigns {
		if c.Status == models.CampaignStatusActive {
			cp := *c
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (r *InMemoryCampaignRepo) UpsertCampaign(ctx context.Context, c *models.Campaign) error {
	if c == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if code := models.NormalizeCode(c.PromoCode); code != "" {
		for id, existing := range r.campaigns {
			if id != c.ID && models.NormalizeCode(existing.PromoCode) == code {
				return &ErrPromoCodeTaken{PromoCode: c.PromoCode, CampaignID: id}
			}
		}
	}

	cp := *c
	r.campaigns[c.ID] = &cp
	return nil
}

func (r *InMemoryCampaignRepo) DeleteCampaign(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.campaigns, id)
	return nil
}

// InMemoryInfluencerRepo is a thread-safe in-memory influencer store.
type InMemoryInfluencerRepo struct {
	mu          sync.RWMutex
	influencers map[string]*models.Influencer
}

// NewInMemoryInfluencerRepo creates a new empty in-memory influencer repo.
func NewInMemoryInfluencerRepo() *InMemoryInfluencerRepo {
	return &InMemoryInfluencerRepo{
		influencers: make(map[string]*models.Influencer),
	}
}

func (r *InMemoryInfluencerRepo) ListInfluencers(ctx context.Context) ([]*models.Influencer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.Influencer, 0, len(r.influencers))
	for _, i := range r.influencers {
		cp := *i
		result = append(result, &cp)
	}
	return result, nil
}

func (r *InMemoryInfluencerRepo) GetInfluencer(ctx context.Context, id string) (*models.Influencer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i, ok := r.influencers[id]; ok {
		cp := *i
		return &cp, nil
	}
	return nil, nil
}

func (r *InMemoryInfluencerRepo) UpsertInfluencer(ctx context.Context, i *models.Influencer) error {
	if i == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *i
	r.influencers[i.ID] = &cp
	return nil
}

func (r *InMemoryInfluencerRepo) DeleteInfluencer(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.influencers, id)
	return nil
}

// InMemorySettingsRepo holds the global rating thresholds in memory.
type InMemorySettingsRepo struct {
	mu         sync.RWMutex
	thresholds *models.RatingThresholds
}

// NewInMemorySettingsRepo creates a settings repo seeded with defaults.
func NewInMemorySettingsRepo() *InMemorySettingsRepo {
	return &InMemorySettingsRepo{}
}

func (r *InMemorySettingsRepo) GetRatingThresholds(ctx context.Context) (models.RatingThresholds, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.thresholds == nil {
		return models.DefaultRatingThresholds(), nil
	}
	return *r.thresholds, nil
}

func (r *InMemorySettingsRepo) PutRatingThresholds(ctx context.Context, t models.RatingThresholds) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := t
	r.thresholds = &cp
	return nil
}
