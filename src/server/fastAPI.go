package server

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lucasbarnes96/truenorth-index/src/interfaces"
	"github.com/lucasbarnes96/truenorth-index/src/logger"
	"github.com/lucasbarnes96/truenorth-index/src/models"
	"github.com/lucasbarnes96/truenorth-index/src/storage"
	"github.com/lucasbarnes96/truenorth-index/src/utils"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// FastAPIServer
// -----------------------------------------------------------------------------

// FastAPIServer is the read-only query surface over the run store: published
// nowcasts, history, source health, release schedule and methodology. It never
// computes anything; the pipeline writes artifacts, the server serves them.
type FastAPIServer struct {
	Config     *models.MConfig
	Logger     *logger.Logger
	Store      *storage.RunStore
	ReleaseLog interfaces.IReleaseLog
	Calendar   *utils.ReleaseCalendar
	engine     *gin.Engine

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan *models.MLatestData // Strongly typed and Buffered Queue
	register   chan *Client
	unregister chan *Client
	quit       chan struct{}
	stopOnce   sync.Once

	// Local cache of the most recent snapshot, pushed to connecting clients
	latestState *models.MLatestData
	stateMutex  sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewFastAPIServer(cfg *models.MConfig, store *storage.RunStore, releaseLog interfaces.IReleaseLog, cal *utils.ReleaseCalendar, logger *logger.Logger) *FastAPIServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &FastAPIServer{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		ReleaseLog: releaseLog,
		Calendar:   cal,
		engine:     gin.Default(),
		clients:    make(map[*Client]struct{}),
		// Buffered channel to prevent lock/blocking
		// Queue size of 256 ensures we can handle bursts of updates
		broadcast:   make(chan *models.MLatestData, 256),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		quit:        make(chan struct{}),
		latestState: &models.MLatestData{Type: "INITIAL"},
	}

	// Pre-load the most recent run so clients connecting before the next
	// pipeline pass still receive a snapshot.
	if snapshot, err := store.LoadLatest(); err != nil {
		logger.Warning("Could not pre-load latest snapshot: %v", err)
	} else if snapshot != nil {
		s.latestState = &models.MLatestData{
			Type:      "INITIAL",
			Snapshot:  snapshot,
			Timestamp: time.Now().Unix(),
		}
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *FastAPIServer) setupRoutes() {
	// Liveness
	s.engine.GET("/api/health", s.getHealth)

	// Query surface
	v1 := s.engine.Group("/v1")
	v1.GET("/nowcast/latest", s.getNowcastLatest)
	v1.GET("/nowcast/history", s.getNowcastHistory)
	v1.GET("/sources/health", s.getSourcesHealth)
	v1.GET("/releases/latest", s.getReleaseLatest)
	v1.GET("/releases/next", s.getReleaseNext)
	v1.GET("/methodology", s.getMethodology)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *FastAPIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	go s.handleWebsockets()

	if err := s.watchArtifacts(); err != nil {
		// Clients still get snapshots on connect and subscribe; only the
		// live push degrades.
		s.Logger.Warning("Artifact watcher unavailable, live push disabled: %v", err)
	}

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) Stop() error {
	// Clean shutdown: the hub loop drops every client and exits, the
	// artifact watcher closes with it.
	s.stopOnce.Do(func() { close(s.quit) })
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *FastAPIServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	timestamp := s.latestState.Timestamp
	s.stateMutex.RUnlock()

	c.JSON(200, gin.H{
		"status":        "ok",
		"connections":   s.connectionCount(),
		"latest_update": timestamp,
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) connectionCount() int {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return len(s.clients)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getNowcastLatest(c *gin.Context) {
	snapshot, err := s.Store.LoadPublishedLatest()
	if err != nil {
		c.JSON(500, gin.H{"detail": err.Error()})
		return
	}
	if snapshot == nil {
		c.JSON(404, gin.H{"detail": "No published nowcast yet."})
		return
	}
	c.JSON(200, snapshot)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getNowcastHistory(c *gin.Context) {
	start := c.Query("start")
	end := c.Query("end")

	history, err := s.Store.LoadHistory()
	if err != nil {
		c.JSON(500, gin.H{"detail": err.Error()})
		return
	}

	entries := filterHistory(history, start, end)
	c.JSON(200, gin.H{
		"count":   len(entries),
		"entries": entries,
	})
}

// filterHistory returns entries within [start, end] in ascending date order.
// ISO dates compare lexically, so plain string comparison is enough.
func filterHistory(history models.MHistory, start, end string) []models.MHistoricalEntry {
	dates := make([]string, 0, len(history))
	for d := range history {
		if start != "" && d < start {
			continue
		}
		if end != "" && d > end {
			continue
		}
		dates = append(dates, d)
	}
	sort.Strings(dates)

	entries := make([]models.MHistoricalEntry, 0, len(dates))
	for _, d := range dates {
		entries = append(entries, history[d])
	}
	return entries
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getSourcesHealth(c *gin.Context) {
	snapshot, err := s.Store.LoadLatest()
	if err != nil {
		c.JSON(500, gin.H{"detail": err.Error()})
		return
	}
	if snapshot == nil {
		c.JSON(404, gin.H{"detail": "No runs recorded yet."})
		return
	}
	c.JSON(200, gin.H{
		"as_of_date": snapshot.AsOfDate,
		"run_id":     snapshot.RunID,
		"sources":    snapshot.SourceHealth,
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getReleaseLatest(c *gin.Context) {
	if s.ReleaseLog == nil {
		c.JSON(503, gin.H{"detail": "Release log not configured."})
		return
	}
	run, err := s.ReleaseLog.LatestRun()
	if err != nil {
		c.JSON(500, gin.H{"detail": err.Error()})
		return
	}
	if run == nil {
		c.JSON(404, gin.H{"detail": "No release runs logged yet."})
		return
	}
	c.JSON(200, run)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getReleaseNext(c *gin.Context) {
	events, err := s.Store.ReadReleaseEvents()
	if err != nil {
		s.Logger.Warning("Could not read release events, estimating instead: %v", err)
	}
	c.JSON(200, s.Calendar.NextRelease(events, time.Now()))
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getMethodology(c *gin.Context) {
	weights := make(map[string]float64, len(s.Config.Categories))
	for _, cat := range s.Config.Categories {
		weights[cat.Name] = cat.Weight
	}

	groups := make([]gin.H, 0, len(s.Config.Gate.SourceGroups))
	for _, group := range s.Config.Gate.SourceGroups {
		groups = append(groups, gin.H{"name": group.Name, "sources": group.Sources})
	}

	c.JSON(200, gin.H{
		"method": models.MMethod{
			Label:   utils.MethodLabel,
			Version: utils.MethodVersion,
		},
		"category_weights": weights,
		"gate": gin.H{
			"coverage_floor":        s.Config.Gate.CoverageFloor,
			"required_sources":      s.Config.Gate.RequiredSources,
			"alt_data_source":       s.Config.Gate.AltDataSource,
			"alt_data_max_age_days": s.Config.Gate.AltDataMaxAgeDays,
			"require_benchmark":     s.Config.Gate.RequireBenchmark,
			"source_groups":         groups,
		},
		"consensus_guardrails": gin.H{
			"min_plausible_pct": s.Config.Consensus.MinPlausiblePct,
			"max_plausible_pct": s.Config.Consensus.MaxPlausiblePct,
			"max_spread_pct":    s.Config.Consensus.MaxSpreadPct,
		},
	})
}
