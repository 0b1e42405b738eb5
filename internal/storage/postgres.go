package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumetric/attributor/internal/models"
)

// PostgresEventStore implements EventStore using PostgreSQL. The
// events table carries an index on occurred_at so window queries prune
// at the database instead of scanning history in memory.
type PostgresEventStore struct {
	pool *pgxpool.Pool
}

func NewPostgresEventStore(pool *pgxpool.Pool) *PostgresEventStore {
	return &PostgresEventStore{pool: pool}
}

func (s *PostgresEventStore) SaveEvent(ctx context.Context, e *models.Event) error {
	if e == nil {
		return nil
	}

	var payload []byte
	if len(e.RawPayload) > 0 {
		var err error
		payload, err = json.Marshal(e.RawPayload)
		if err != nil {
			return fmt.Errorf("failed to marshal event payload: %w", err)
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO events (id, campaign_slug, event_type, session_id, revenue, geo_country, occurred_at, raw_payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, e.ID, nullString(e.CampaignSlug), string(e.Type), e.SessionID, e.Revenue, nullString(e.GeoCountry), e.OccurredAt, payload)

	if err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

func (s *PostgresEventStore) ListEventsInWindow(ctx context.Context, from, to time.Time) ([]*models.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, campaign_slug, event_type, session_id, revenue, geo_country, occurred_at
		FROM events
		WHERE occurred_at >= $1 AND occurred_at <= $2
		ORDER BY occurred_at
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		var e models.Event
		var slug, country *string
		var eventType string

		if err := rows.Scan(&e.ID, &slug, &eventType, &e.SessionID, &e.Revenue, &country, &e.OccurredAt); err != nil {
			return nil, err
		}
		e.Type = models.EventType(eventType)
		if slug != nil {
			e.CampaignSlug = *slug
		}
		if country != nil {
			e.GeoCountry = *country
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func (s *PostgresEventStore) CountEvents(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// PostgresOrderStore implements OrderStore using PostgreSQL.
type PostgresOrderStore struct {
	pool *pgxpool.Pool
}

func NewPostgresOrderStore(pool *pgxpool.Pool) *PostgresOrderStore {
	return &PostgresOrderStore{pool: pool}
}

func (s *PostgresOrderStore) UpsertOrder(ctx context.Context, o *models.Order) error {
	if o == nil {
		return nil
	}
	if o.ExternalOrderID == "" {
		return fmt.Errorf("external_order_id is required")
	}

	// Webhook retries land on the conflict branch: price and promo code
	// take the latest delivery, the internal id stays stable.
	_, err := s.pool.Exec(ctx, `
		INSERT INTO orders (id, external_order_id, total_price, currency, promo_code, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (external_order_id) DO UPDATE SET
			total_price = EXCLUDED.total_price,
			currency = EXCLUDED.currency,
			promo_code = EXCLUDED.promo_code
	`, o.ID, o.ExternalOrderID, o.TotalPrice, o.Currency, nullString(o.PromoCode), o.OccurredAt)

	if err != nil {
		return fmt.Errorf("failed to upsert order: %w", err)
	}
	return nil
}

func (s *PostgresOrderStore) ListOrdersInWindow(ctx context.Context, from, to time.Time) ([]*models.Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, external_order_id, total_price, currency, promo_code, occurred_at
		FROM orders
		WHERE occurred_at >= $1 AND occurred_at <= $2
		ORDER BY occurred_at
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		var o models.Order
		var promo *string

		if err := rows.Scan(&o.ID, &o.ExternalOrderID, &o.TotalPrice, &o.Currency, &promo, &o.OccurredAt); err != nil {
			return nil, err
		}
		if promo != nil {
			o.PromoCode = *promo
		}
		orders = append(orders, &o)
	}
	return orders, rows.Err()
}

func (s *PostgresOrderStore) GetOrderByExternalID(ctx context.Context, externalID string) (*models.Order, error) {
	var o models.Order
	var promo *string

	err := s.pool.QueryRow(ctx, `
		SELECT id, external_order_id, total_price, currency, promo_code, occurred_at
		FROM orders WHERE external_order_id = $1
	`, externalID).Scan(&o.ID, &o.ExternalOrderID, &o.TotalPrice, &o.Currency, &promo, &o.OccurredAt)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if promo != nil {
		o.PromoCode = *promo
	}
	return &o, nil
}

// PostgresCampaignRepo implements CampaignRepo using PostgreSQL. Promo
// code uniqueness is backed by a partial unique index on
// lower(trim(promo_code)); the conflict is translated into
// ErrPromoCodeTaken by a pre-check for a friendlier error.
type PostgresCampaignRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresCampaignRepo(pool *pgxpool.Pool) *PostgresCampaignRepo {
	return &PostgresCampaignRepo{pool: pool}
}

const campaignColumns = `id, influencer_id, name, slug, promo_code, target_type, product_url, fixed_cost, commission_percent, status, created_at, updated_at`

func scanCampaign(row pgx.Row) (*models.Campaign, error) {
	var c models.Campaign
	var influencerID, promoCode, productURL *string
	var targetType, status string

	err := row.Scan(
		&c.ID, &influencerID, &c.Name, &c.Slug, &promoCode, &targetType,
		&productURL, &c.FixedCost, &c.CommissionPercent, &status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.TargetType = models.TargetType(targetType)
	c.Status = models.CampaignStatus(status)
	if influencerID != nil {
		c.InfluencerID = *influencerID
	}
	if promoCode != nil {
		c.PromoCode = *promoCode
	}
	if productURL != nil {
		c.ProductURL = *productURL
	}
	return &c, nil
}

func (r *PostgresCampaignRepo) ListCampaigns(ctx context.Context) ([]*models.Campaign, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+campaignColumns+` FROM campaigns ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []*models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (r *PostgresCampaignRepo) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	c, err := scanCampaign(r.pool.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return c, nil
}

func (r *PostgresCampaignRepo) GetCampaignBySlug(ctx context.Context, slug string) (*models.Campaign, error) {
	c, err := scanCampaign(r.pool.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE slug = $1`, slug))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign by slug: %w", err)
	}
	return c, nil
}

func (r *PostgresCampaignRepo) GetActiveCampaigns(ctx context.Context) ([]*models.Campaign, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE status = 'active' ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []*models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (r *PostgresCampaignRepo) UpsertCampaign(ctx context.Context, c *models.Campaign) error {
	if c == nil {
		return nil
	}

	if code := models.NormalizeCode(c.PromoCode); code != "" {
		var takenBy string
		err := r.pool.QueryRow(ctx, `
			SELECT id FROM campaigns
			WHERE id <> $1 AND promo_code IS NOT NULL AND lower(trim(promo_code)) = $2
		`, c.ID, code).Scan(&takenBy)
		if err == nil {
			return &ErrPromoCodeTaken{PromoCode: c.PromoCode, CampaignID: takenBy}
		}
		if err != pgx.ErrNoRows {
			return fmt.Errorf("failed to check promo code: %w", err)
		}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO campaigns (`+campaignColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			influencer_id = EXCLUDED.influencer_id,
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			promo_code = EXCLUDED.promo_code,
			target_type = EXCLUDED.target_type,
			product_url = EXCLUDED.product_url,
			fixed_cost = EXCLUDED.fixed_cost,
			commission_percent = EXCLUDED.commission_percent,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`,
		c.ID, nullString(c.InfluencerID), c.Name, c.Slug, nullString(c.PromoCode),
		string(c.TargetType), nullString(c.ProductURL), c.FixedCost, c.CommissionPercent,
		string(c.Status), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert campaign: %w", err)
	}
	return nil
}

func (r *PostgresCampaignRepo) DeleteCampaign(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	return nil
}

// PostgresInfluencerRepo implements InfluencerRepo using PostgreSQL.
type PostgresInfluencerRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresInfluencerRepo(pool *pgxpool.Pool) *PostgresInfluencerRepo {
	return &PostgresInfluencerRepo{pool: pool}
}

func (r *PostgresInfluencerRepo) ListInfluencers(ctx context.Context) ([]*models.Influencer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, handle, platform, email, created_at, updated_at
		FROM influencers ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list influencers: %w", err)
	}
	defer rows.Close()

	var influencers []*models.Influencer
	for rows.Next() {
		var i models.Influencer
		var platform, email *string

		if err := rows.Scan(&i.ID, &i.Name, &i.Handle, &platform, &email, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		if platform != nil {
			i.Platform = *platform
		}
		if email != nil {
			i.Email = *email
		}
		influencers = append(influencers, &i)
	}
	return influencers, rows.Err()
}

func (r *PostgresInfluencerRepo) GetInfluencer(ctx context.Context, id string) (*models.Influencer, error) {
	var i models.Influencer
	var platform, email *string

	err := r.pool.QueryRow(ctx, `
		SELECT id, name, handle, platform, email, created_at, updated_at
		FROM influencers WHERE id = $1
	`, id).Scan(&i.ID, &i.Name, &i.Handle, &platform, &email, &i.CreatedAt, &i.UpdatedAt)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get influencer: %w", err)
	}
	if platform != nil {
		i.Platform = *platform
	}
	if email != nil {
		i.Email = *email
	}
	return &i, nil
}

func (r *PostgresInfluencerRepo) UpsertInfluencer(ctx context.Context, i *models.Influencer) error {
	if i == nil {
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO influencers (id, name, handle, platform, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			handle = EXCLUDED.handle,
			platform = EXCLUDED.platform,
			email = EXCLUDED.email,
			updated_at = EXCLUDED.updated_at
	`, i.ID, i.Name, i.Handle, nullString(i.Platform), nullString(i.Email), i.CreatedAt, i.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert influencer: %w", err)
	}
	return nil
}

func (r *PostgresInfluencerRepo) DeleteInfluencer(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM influencers WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete influencer: %w", err)
	}
	return nil
}

// PostgresSettingsRepo stores the single global rating-thresholds row.
type PostgresSettingsRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresSettingsRepo(pool *pgxpool.Pool) *PostgresSettingsRepo {
	return &PostgresSettingsRepo{pool: pool}
}

func (r *PostgresSettingsRepo) GetRatingThresholds(ctx context.Context) (models.RatingThresholds, error) {
	var t models.RatingThresholds
	err := r.pool.QueryRow(ctx, `
		SELECT star1_min, star1_max, star2_min, star2_max, star3_min, loss_text
		FROM rating_settings WHERE id = 1
	`).Scan(&t.Star1Min, &t.Star1Max, &t.Star2Min, &t.Star2Max, &t.Star3Min, &t.LossText)

	if err == pgx.ErrNoRows {
		return models.DefaultRatingThresholds(), nil
	}
	if err != nil {
		return models.RatingThresholds{}, fmt.Errorf("failed to get rating thresholds: %w", err)
	}
	return t, nil
}

func (r *PostgresSettingsRepo) PutRatingThresholds(ctx context.Context, t models.RatingThresholds) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO rating_settings (id, star1_min, star1_max, star2_min, star2_max, star3_min, loss_text)
		VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			star1_min = EXCLUDED.star1_min,
			star1_max = EXCLUDED.star1_max,
			star2_min = EXCLUDED.star2_min,
			star2_max = EXCLUDED.star2_max,
			star3_min = EXCLUDED.star3_min,
			loss_text = EXCLUDED.loss_text
	`, t.Star1Min, t.Star1Max, t.Star2Min, t.Star2Max, t.Star3Min, t.LossText)

	if err != nil {
		return fmt.Errorf("failed to save rating thresholds: %w", err)
	}
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
