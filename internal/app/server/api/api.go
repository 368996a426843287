// Облачный бэкенд iReport:
// прием репортов от мобильных клиентов (публично);
// инкрементальная выдача изменений и прием правок статуса от консолей (auth);
// append-only история статусов;
// живая лента вставок и правок по websocket;
// медиафайлы репортов и подбор ближайшей станции.

package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"

	authAPI "ireport/internal/app/server/api/http/auth"
	feedAPI "ireport/internal/app/server/api/http/feed"
	healthAPI "ireport/internal/app/server/api/http/health"
	historyAPI "ireport/internal/app/server/api/http/history"
	incidentAPI "ireport/internal/app/server/api/http/incident"
	mediaAPI "ireport/internal/app/server/api/http/media"
	"ireport/internal/app/server/api/http/middleware"
	authMW "ireport/internal/app/server/api/http/middleware/auth"
	loggerMW "ireport/internal/app/server/api/http/middleware/logger"
	stationAPI "ireport/internal/app/server/api/http/station"
	"ireport/internal/app/server/config"
	"ireport/internal/domain/incident"
	"ireport/internal/domain/staff"
	"ireport/internal/infrastructure/storage/postgres"
)

type Handlers struct {
	Health   *healthAPI.Handler
	Auth     *authAPI.Handler
	Incident *incidentAPI.Handler
	History  *historyAPI.Handler
	Station  *stationAPI.Handler
	Media    *mediaAPI.Handler
}

// New создает *chi.Mux со всеми операциями через huma.Register плюс
// websocket-лента и отдача медиафайлов
func New(storage *postgres.Storage, cfg *config.Config, log *slog.Logger) (*chi.Mux, error) {
	mux := chi.NewMux()

	humaConfig := huma.DefaultConfig("iReport API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, humaConfig)

	h, hub, mediaDir, err := handlers(storage, cfg, log)
	if err != nil {
		return nil, err
	}
	h.Health.SetupRoutes(API)
	h.Auth.SetupRoutes(API)
	h.Incident.SetupRoutes(API)
	h.History.SetupRoutes(API)
	h.Station.SetupRoutes(API)
	h.Media.SetupRoutes(API)

	mux.Get("/api/v1/feed", hub.ServeHTTP)
	mux.Handle("/media/*", http.StripPrefix("/media/",
		http.FileServer(http.Dir(mediaDir))))

	return mux, nil
}

func handlers(storage *postgres.Storage, cfg *config.Config, log *slog.Logger) (*Handlers, *feedAPI.Hub, string, error) {
	sessionRepo := postgres.NewSessionRepository(storage.Pool(), log)
	sessionService := staff.NewSessionService(sessionRepo, log)
	authMiddleware := authMW.New(sessionService, log)
	loggerMiddleware := loggerMW.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMiddleware.Middleware())
	healthHandler := healthAPI.NewHandler(log, middlewares.GetAllAndClear())

	staffRepo := postgres.NewStaffRepository(storage.Pool(), log)
	staffService := staff.NewService(staffRepo, log)
	middlewares.Add(loggerMiddleware.Middleware())
	authHandler := authAPI.NewHandler(staffService, sessionService, log, middlewares.GetAllAndClear())

	hub := feedAPI.NewHub(sessionService, log)

	incidentRepo := postgres.NewIncidentRepository(storage.Pool(), log)
	historyRepo := postgres.NewHistoryRepository(storage.Pool(), log)
	stationRepo := postgres.NewStationRepository(storage.Pool(), log)
	incidentService := incident.NewService(incidentRepo, historyRepo, stationRepo, hub, log)

	middlewares.Add(authMiddleware.Middleware())
	middlewares.Add(loggerMiddleware.Middleware())
	protected := middlewares.GetAllAndClear()
	middlewares.Add(loggerMiddleware.Middleware())
	public := middlewares.GetAllAndClear()
	incidentHandler := incidentAPI.NewHandler(incidentService, log, protected, public)

	middlewares.Add(authMiddleware.Middleware())
	middlewares.Add(loggerMiddleware.Middleware())
	historyHandler := historyAPI.NewHandler(incidentService, log, middlewares.GetAllAndClear())

	middlewares.Add(loggerMiddleware.Middleware())
	stationHandler := stationAPI.NewHandler(incidentService, log, middlewares.GetAllAndClear())

	mediaStore, err := mediaAPI.NewStore(cfg.Media.Dir, cfg.Media.BaseURL)
	if err != nil {
		return nil, nil, "", err
	}
	middlewares.Add(loggerMiddleware.Middleware())
	mediaHandler := mediaAPI.NewHandler(mediaStore, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health:   healthHandler,
		Auth:     authHandler,
		Incident: incidentHandler,
		History:  historyHandler,
		Station:  stationHandler,
		Media:    mediaHandler,
	}, hub, mediaStore.Dir(), nil
}
