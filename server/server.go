package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"BeatStudio/cache"
	"BeatStudio/config"
	"BeatStudio/core/audio"
	"BeatStudio/core/session"
	"BeatStudio/core/songapi"
	"BeatStudio/core/tempo"
	"BeatStudio/db"
	"BeatStudio/logger"
	"BeatStudio/model"
	"BeatStudio/repository"
	"BeatStudio/storage"

	"github.com/gorilla/mux"
)

// App holds everything the HTTP layer needs. Beatmaps and Store are nil
// when MySQL or MinIO are unavailable.
type App struct {
	Cfg      *config.Config
	Manager  *session.Manager
	Hub      *session.Hub
	Songs    songapi.SongSource
	Defaults songapi.Defaults
	Catalog  *songapi.Catalog
	SongRepo repository.SongRepository
	Beatmaps repository.BeatmapRepository
	Store    *storage.Store
}

// NewRouter registers every route of the editor service.
func NewRouter(app *App) *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware)

	sessions := NewSessionHandler(app)
	songs := NewSongHandler(app)
	ws := NewEditorWSHandler(app)

	router.HandleFunc("/api/health", HealthHandler).Methods(http.MethodGet)

	router.HandleFunc("/api/songs", songs.ListHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/songs/{id}", songs.GetHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/songs/{id}/beatmaps", songs.ListBeatmapsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/beatmaps/{id}", songs.GetBeatmapHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/beatmaps/{id}", songs.DeleteBeatmapHandler).Methods(http.MethodDelete)

	router.HandleFunc("/api/sessions", sessions.CreateHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/sessions/{id}", sessions.GetHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/sessions/{id}", sessions.CloseHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/sessions/{id}/song", sessions.SelectSongHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/sessions/{id}/difficulty", sessions.SelectDifficultyHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/sessions/{id}/notes", sessions.NotesHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/sessions/{id}/export", sessions.ExportHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/sessions/{id}/import", sessions.ImportHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/sessions/{id}/save", sessions.SaveHandler).Methods(http.MethodPost)

	router.HandleFunc("/ws/sessions/{id}", ws.WebSocketHandler)

	if app.Store != nil {
		router.PathPrefix("/media/").Handler(NewMediaHandler(app.Store))
	}
	if app.Cfg != nil {
		router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(app.Cfg.StaticDir))))
		router.PathPrefix("/").Handler(http.FileServer(http.Dir(app.Cfg.WebAppDir)))
	}
	return router
}

// Start connects the backing services, serves HTTP and blocks until SIGINT
// or SIGTERM.
func Start(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := &App{Cfg: cfg}
	defaults := songapi.Defaults{NominalBPM: cfg.NominalBPM, FallbackDurationSec: cfg.FallbackDurationSec}
	app.Defaults = defaults

	// 后端服务均为可选，连接失败时降级运行
	var tempoCache tempo.Cache
	if err := cache.ConnectRedis(cfg); err != nil {
		logger.Warn("Redis 不可用，节拍检测结果不缓存", logger.ErrorField(err))
	} else {
		defer cache.CloseRedis()
		tempoCache = cache.NewTempoCache(cfg.TempoCacheTTL)
	}

	if err := db.ConnectDB(cfg); err != nil {
		logger.Warn("MySQL 不可用，歌曲库仅使用目录和接口", logger.ErrorField(err))
	} else {
		defer db.CloseDB()
		if err := db.InitDB(); err != nil {
			return err
		}
		app.SongRepo = repository.NewMySQLSongRepository()
	}

	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Warn("GORM 连接失败，无法保存谱面", logger.ErrorField(err))
	} else {
		defer db.CloseGormDB()
		if err := db.AutoMigrateModels(&model.BeatmapRecord{}); err != nil {
			return err
		}
		app.Beatmaps = repository.NewGormBeatmapRepository(db.GormDB)
	}

	var objects audio.Fetcher
	if err := storage.InitMinio(cfg); err != nil {
		logger.Warn("MinIO 不可用，对象存储资源无法加载", logger.ErrorField(err))
	} else {
		app.Store = storage.NewStore()
		objects = audio.NewObjectFetcher(app.Store)
	}

	app.Catalog = songapi.NewCatalog(cfg.CatalogPath, defaults)
	if err := app.Catalog.Load(); err != nil {
		logger.Warn("歌曲目录加载失败", logger.String("path", cfg.CatalogPath), logger.ErrorField(err))
	}
	go func() {
		if err := app.Catalog.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("歌曲目录监听停止", logger.ErrorField(err))
		}
	}()

	client := songapi.NewClient(cfg.SongAPIURL, cfg.SongAPITimeout)
	chain := songapi.Chain{app.Catalog}
	if app.SongRepo != nil {
		chain = append(chain, &repository.SongSource{Repo: app.SongRepo, Defaults: defaults})
	}
	chain = append(chain, &songapi.HTTPSource{Client: client, Defaults: defaults})
	app.Songs = chain

	fetcher := &audio.RoutingFetcher{HTTP: audio.NewHTTPFetcher(nil), Object: objects}
	var estimator tempo.Estimator = tempo.NewDetector(cfg.MinDetectBPM, cfg.MaxDetectBPM)
	if tempoCache != nil {
		estimator = tempo.NewCachedDetector(estimator, tempoCache)
	}
	deps := session.Deps{
		Songs:  app.Songs,
		Audio:  audio.NewPipeline(fetcher, audio.NewDefaultDecoder(cfg.FFmpegPath)),
		Tempo:  estimator,
		Assets: fetcher,
	}

	app.Hub = session.NewHub()
	if tempoCache != nil {
		app.Hub.SetPresence(cache.NewSessionCache())
	}
	go app.Hub.Run()
	defer app.Hub.Stop()

	app.Manager = session.NewManager(deps, session.OptionsFromConfig(cfg), cfg.SessionIdleTTL)
	app.Manager.SetClientCounter(app.Hub)
	app.Manager.Start()
	defer app.Manager.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      NewRouter(app),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 创建一个通道来接收操作系统信号
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errc := make(chan error, 1)
	go func() {
		logger.Info("Server starting", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-stop:
	}
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}
