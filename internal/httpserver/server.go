package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lumetric/attributor/internal/attribution"
	"github.com/lumetric/attributor/internal/beacon"
	"github.com/lumetric/attributor/internal/config"
	"github.com/lumetric/attributor/internal/database"
	"github.com/lumetric/attributor/internal/metrics"
	"github.com/lumetric/attributor/internal/models"
	"github.com/lumetric/attributor/internal/orderhook"
	"github.com/lumetric/attributor/internal/rollup"
	"github.com/lumetric/attributor/internal/service"
	"github.com/lumetric/attributor/internal/storage"
)

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	DB      *database.PostgresDB
	Redis   *database.RedisDB
	Archive storage.EventArchive
	Geo     beacon.GeoResolver
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Server wraps HTTP handlers and the attribution services.
type Server struct {
	beaconService     *beacon.Service
	orderService      *orderhook.Service
	campaignService   *service.CampaignService
	influencerService *service.InfluencerService
	settingsService   *service.SettingsService
	reportService     *service.ReportService
	rollups           *rollup.Service
	logger            *zap.Logger
	config            *config.Config
	metrics           *metrics.Metrics
}

// NewServer constructs a new http.Handler with all routes registered.
func NewServer(deps *Dependencies) http.Handler {
	// Initialize repositories (PostgreSQL-backed)
	eventStore := storage.NewPostgresEventStore(deps.DB.Pool)
	orderStore := storage.NewPostgresOrderStore(deps.DB.Pool)
	campaignRepo := storage.NewPostgresCampaignRepo(deps.DB.Pool)
	influencerRepo := storage.NewPostgresInfluencerRepo(deps.DB.Pool)
	settingsRepo := storage.NewPostgresSettingsRepo(deps.DB.Pool)

	// Daily counters (Redis-backed)
	rollups := rollup.NewService(deps.Redis.Client, deps.Logger)

	s := &Server{
		beaconService:     beacon.NewService(eventStore, deps.Archive, rollups, deps.Geo, deps.Metrics, deps.Logger),
		orderService:      orderhook.NewService(orderStore, deps.Logger),
		campaignService:   service.NewCampaignService(campaignRepo, deps.Logger),
		influencerService: service.NewInfluencerService(influencerRepo, deps.Logger),
		settingsService:   service.NewSettingsService(settingsRepo, deps.Logger),
		reportService:     service.NewReportService(campaignRepo, influencerRepo, eventStore, orderStore, settingsRepo, deps.Logger),
		rollups:           rollups,
		logger:            deps.Logger,
		config:            deps.Config,
		metrics:           deps.Metrics,
	}

	mux := http.NewServeMux()

	// Health check (no auth required)
	mux.HandleFunc("/health", s.handleHealth)

	// Beacon endpoints (no auth, hit from storefront pages)
	mux.HandleFunc("/track/pixel", s.handlePixel)
	mux.HandleFunc("/track/event", s.handleEvent)

	// Commerce webhook
	mux.HandleFunc("/webhooks/orders", s.handleOrderWebhook)

	// Campaign management (requires auth)
	mux.HandleFunc("/campaigns", s.handleCampaigns)
	mux.HandleFunc("/campaigns/", s.handleCampaignByID)

	// Influencers
	mux.HandleFunc("/influencers", s.handleInfluencers)
	mux.HandleFunc("/influencers/", s.handleInfluencerByID)

	// Rating settings
	mux.HandleFunc("/settings/rating", s.handleRatingSettings)

	// Reports
	mux.HandleFunc("/reports/dashboard", s.handleDashboard)
	mux.HandleFunc("/reports/campaigns", s.handleCampaignReports)
	mux.HandleFunc("/reports/influencers", s.handleInfluencerScorecards)
	mux.HandleFunc("/reports/time-series", s.handleTimeSeries)

	return mux
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ---- Beacon ----

// handlePixel serves the tracking pixel. The pixel is always returned
// with a 200, even when the hit could not be parsed or stored; a broken
// image on a shopper's page is never an acceptable failure mode.
func (s *Server) handlePixel(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		params := beacon.ParamsFromQuery(r.URL.Query())
		e, err := s.beaconService.Ingest(r.Context(), params, beacon.ClientIP(r))
		if err != nil {
			s.logger.Warn("pixel hit dropped", zap.Error(err))
			if s.metrics != nil {
				s.metrics.RecordEventRejected("parse")
			}
		} else if s.metrics != nil {
			s.metrics.RecordEventIngested(string(e.Type))
		}
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Write(beacon.TransparentPixel)
}

// handleEvent accepts a JSON beacon post. Unlike the pixel, callers get
// a real status code back.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var params beacon.EventParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}

	e, err := s.beaconService.Ingest(r.Context(), params, beacon.ClientIP(r))
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordEventRejected("parse")
		}
		s.errorResponse(w, "invalid event: "+err.Error(), http.StatusBadRequest)
		return
	}

	if s.metrics != nil {
		s.metrics.RecordEventIngested(string(e.Type))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"event_id": e.ID})
}

// ---- Order Webhook ----

func (s *Server) handleOrderWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		if s.metrics != nil {
			s.metrics.RecordOrderRejected()
		}
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}

	o, err := s.orderService.Ingest(r.Context(), raw)
	if err != nil {
		s.logger.Warn("order webhook rejected", zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordOrderRejected()
		}
		s.errorResponse(w, "invalid order: "+err.Error(), http.StatusBadRequest)
		return
	}

	if s.metrics != nil {
		s.metrics.RecordOrderUpserted(o.PromoCode != "", o.TotalPrice)
	}
	s.jsonResponse(w, map[string]string{"order_id": o.ID})
}

// ---- Campaigns CRUD ----

func (s *Server) handleCampaigns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.campaignService.List(r.Context())
		if err != nil {
			s.logger.Error("failed to list campaigns", zap.Error(err))
			s.errorResponse(w, "failed to list", http.StatusInternalServerError)
			return
		}
		s.jsonResponse(w, list)

	case http.MethodPost:
		var c models.Campaign
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			s.errorResponse(w, "invalid json", http.StatusBadRequest)
			return
		}
		saved, err := s.campaignService.Save(r.Context(), &c)
		if err != nil {
			s.errorResponse(w, "failed to save: "+err.Error(), http.StatusBadRequest)
			return
		}
		s.jsonResponse(w, saved)

	default:
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCampaignByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/campaigns/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		c, err := s.campaignService.Get(r.Context(), id)
		if err != nil {
			s.logger.Error("failed to get campaign", zap.Error(err))
			s.errorResponse(w, "error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if c == nil {
			http.NotFound(w, r)
			return
		}
		s.jsonResponse(w, c)

	case http.MethodDelete:
		if err := s.campaignService.Delete(r.Context(), id); err != nil {
			s.errorResponse(w, "failed to delete: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// ---- Influencers CRUD ----

func (s *Server) handleInfluencers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.influencerService.List(r.Context())
		if err != nil {
			s.errorResponse(w, "failed to list", http.StatusInternalServerError)
			return
		}
		s.jsonResponse(w, list)

	case http.MethodPost:
		var i models.Influencer
		if err := json.NewDecoder(r.Body).Decode(&i); err != nil {
			s.errorResponse(w, "invalid json", http.StatusBadRequest)
			return
		}
		saved, err := s.influencerService.Save(r.Context(), &i)
		if err != nil {
			s.errorResponse(w, "failed to save: "+err.Error(), http.StatusBadRequest)
			return
		}
		s.jsonResponse(w, saved)

	default:
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleInfluencerByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/influencers/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		i, err := s.influencerService.Get(r.Context(), id)
		if err != nil {
			s.errorResponse(w, "error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if i == nil {
			http.NotFound(w, r)
			return
		}
		s.jsonResponse(w, i)

	case http.MethodDelete:
		if err := s.influencerService.Delete(r.Context(), id); err != nil {
			s.errorResponse(w, "failed to delete: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// ---- Rating Settings ----

func (s *Server) handleRatingSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		t, err := s.settingsService.GetRatingThresholds(r.Context())
		if err != nil {
			s.errorResponse(w, "failed to load settings", http.StatusInternalServerError)
			return
		}
		s.jsonResponse(w, t)

	case http.MethodPut, http.MethodPost:
		var t models.RatingThresholds
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			s.errorResponse(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := s.settingsService.UpdateRatingThresholds(r.Context(), t); err != nil {
			s.errorResponse(w, "failed to save: "+err.Error(), http.StatusBadRequest)
			return
		}
		s.jsonResponse(w, t)

	default:
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// ---- Reports ----

// reportQuery parses the shared from/to/basis query params. An invalid
// window or basis is a client error, not a silent default.
func (s *Server) reportQuery(w http.ResponseWriter, r *http.Request) (attribution.Window, attribution.RevenueBasis, bool) {
	q := r.URL.Query()

	window, err := attribution.NormalizeWindow(q.Get("from"), q.Get("to"))
	if err != nil {
		s.errorResponse(w, "invalid window: "+err.Error(), http.StatusBadRequest)
		return attribution.Window{}, "", false
	}

	basis := attribution.RevenueBasis(q.Get("basis"))
	if basis == "" {
		basis = attribution.BasisUTM
	}
	if !attribution.ValidBasis(basis) {
		s.errorResponse(w, "invalid basis: must be utm or promo", http.StatusBadRequest)
		return attribution.Window{}, "", false
	}

	return window, basis, true
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	window, basis, ok := s.reportQuery(w, r)
	if !ok {
		return
	}

	start := time.Now()
	report, err := s.reportService.Dashboard(r.Context(), window, basis)
	if err != nil {
		s.logger.Error("dashboard failed", zap.Error(err))
		s.errorResponse(w, "failed to compute dashboard", http.StatusInternalServerError)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordReport("dashboard", string(basis), time.Since(start))
		active := 0
		for _, cr := range report.Campaigns {
			if cr.Campaign != nil && cr.Campaign.Status == models.CampaignStatusActive {
				active++
			}
		}
		s.metrics.UpdateActiveCampaigns(active)
	}
	s.jsonResponse(w, report)
}

func (s *Server) handleCampaignReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	window, basis, ok := s.reportQuery(w, r)
	if !ok {
		return
	}

	start := time.Now()
	reports, err := s.reportService.CampaignReports(r.Context(), window, basis)
	if err != nil {
		s.logger.Error("campaign reports failed", zap.Error(err))
		s.errorResponse(w, "failed to compute reports", http.StatusInternalServerError)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordReport("campaigns", string(basis), time.Since(start))
	}
	s.jsonResponse(w, reports)
}

func (s *Server) handleInfluencerScorecards(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	window, basis, ok := s.reportQuery(w, r)
	if !ok {
		return
	}

	start := time.Now()
	cards, err := s.reportService.InfluencerScorecards(r.Context(), window, basis)
	if err != nil {
		s.logger.Error("influencer scorecards failed", zap.Error(err))
		s.errorResponse(w, "failed to compute scorecards", http.StatusInternalServerError)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordReport("influencers", string(basis), time.Since(start))
	}
	s.jsonResponse(w, cards)
}

func (s *Server) handleTimeSeries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	slug := r.URL.Query().Get("campaign")
	if slug == "" {
		s.errorResponse(w, "campaign is required", http.StatusBadRequest)
		return
	}
	window, _, ok := s.reportQuery(w, r)
	if !ok {
		return
	}
	// An open lower bound would walk day keys since year zero.
	if window.From.IsZero() {
		window.From = window.To.AddDate(0, 0, -30)
	}

	points, err := s.rollups.GetTimeSeries(r.Context(), slug, window.From, window.To)
	if err != nil {
		s.logger.Error("time series failed", zap.Error(err), zap.String("campaign", slug))
		s.errorResponse(w, "failed to load time series", http.StatusInternalServerError)
		return
	}
	s.jsonResponse(w, points)
}

// ---- Helper Methods ----

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
