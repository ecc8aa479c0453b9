package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clubconsole/internal/apiclient"
	"clubconsole/internal/auth"
	"clubconsole/internal/cache"
	"clubconsole/internal/config"
	"clubconsole/internal/debounce"
	"clubconsole/internal/export"
	"clubconsole/internal/history"
	"clubconsole/internal/httpmiddleware"
	"clubconsole/internal/queue"
	"clubconsole/internal/report"
	"clubconsole/internal/roster"
	"clubconsole/internal/session"
	"clubconsole/internal/submit"
	"clubconsole/internal/validate"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("console server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	tokens := auth.NewTokenStore(cfg.APIToken)
	client := apiclient.New(cfg.APIBaseURL, apiclient.BearerAuth(tokens.Token), apiclient.RequestID())
	client.OnUnauthorized = tokens.Clear

	var (
		store      cache.Store
		redisCache *cache.Redis
	)
	if cfg.CacheBackend == "redis" {
		redisCache = cache.NewRedis(cfg.RedisAddr)
		store = redisCache
	} else {
		store = cache.NewMemory()
	}

	loader := &roster.Loader{
		API:      client,
		Tokens:   tokens,
		Cache:    store,
		CacheTTL: cfg.RosterCacheTTL,
	}
	sessions := session.NewManager()
	controller := submit.NewController(client)
	controller.Attempts = cfg.SubmitAttempts
	controller.Backoff = cfg.SubmitBackoff
	hist := &history.Service{API: client}

	ctx := context.Background()
	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		mem := queue.NewInMemory(64)
		q = mem
		// No separate worker process with the memory backend: drain
		// report jobs in-process.
		jobs, _ := mem.Consume(ctx)
		go report.New(client, cfg.ReportDir).Run(ctx, jobs)
	} else {
		q = queue.NewRedisQueue(cache.NewRedis(cfg.RedisAddr).Client, "clubconsole:reports")
	}

	// Bursts of add-student calls coalesce into one roster refetch.
	refresher := debounce.New(debounce.DefaultWindow)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware(cfg.CORSOrigin))
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewRateLimiter(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		status := http.StatusOK
		redisHealthy := true
		if redisCache != nil {
			redisHealthy = redisCache.Healthy(c.Request.Context())
			if !redisHealthy {
				status = http.StatusServiceUnavailable
			}
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "loggedIn": tokens.Token() != ""})
	})

	v1 := r.Group("/v1")

	v1.GET("/me", func(c *gin.Context) {
		user, err := client.CurrentUser(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	})

	v1.GET("/clubs", func(c *gin.Context) {
		user, err := client.CurrentUser(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		clubs, err := loader.AuthorizedClubs(c.Request.Context(), user)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"clubs": clubs})
	})

	v1.GET("/clubs/:id/roster", func(c *gin.Context) {
		members, err := loader.Roster(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"members": members})
	})

	v1.GET("/clubs/:id/events", func(c *gin.Context) {
		events, err := client.ListEvents(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": events})
	})

	v1.GET("/clubs/:id/history", func(c *gin.Context) {
		entries, err := hist.Load(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"history": entries})
	})

	v1.GET("/clubs/:id/roster.csv", func(c *gin.Context) {
		clubID := c.Param("id")
		members, err := loader.Roster(c.Request.Context(), clubID)
		if err != nil {
			fail(c, err)
			return
		}
		marks := map[string]string{}
		_ = sessions.With(func(s *session.Session) error {
			if s.ClubID != clubID {
				return nil
			}
			members = s.Members()
			for _, m := range members {
				if st := s.StatusOf(m.ID); st != session.Unmarked {
					marks[m.ID] = st.String()
				}
			}
			return nil
		})
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", `attachment; filename="`+export.Filename(clubID, time.Now())+`"`)
		if err := export.WriteRoster(c.Writer, members, marks); err != nil {
			log.Printf("csv export for club %s failed: %v", clubID, err)
		}
	})

	v1.POST("/clubs/:id/students", func(c *gin.Context) {
		clubID := c.Param("id")
		var student apiclient.NewStudent
		if err := c.ShouldBindJSON(&student); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		member, err := loader.AddStudent(c.Request.Context(), clubID, student)
		if err != nil {
			fail(c, err)
			return
		}
		// The new student becomes markable immediately, no reload.
		_ = sessions.With(func(s *session.Session) error {
			if s.ClubID == clubID {
				s.AddMember(member)
			}
			return nil
		})
		refresher.Call(func() {
			if _, err := loader.Roster(context.Background(), clubID); err != nil {
				log.Printf("roster refresh for club %s failed: %v", clubID, err)
			}
		})
		c.JSON(http.StatusCreated, member)
	})

	v1.POST("/session", func(c *gin.Context) {
		var req struct {
			Kind    string `json:"kind" binding:"required"`
			ClubID  string `json:"clubId" binding:"required"`
			EventID string `json:"eventId"`
			Title   string `json:"title"`
			Date    string `json:"date"`
			RoomNo  string `json:"roomNo"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		kind := apiclient.RecordKind(req.Kind)
		if !kind.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be event or practice"})
			return
		}

		members, err := loader.Roster(c.Request.Context(), req.ClubID)
		if err != nil {
			fail(c, err)
			return
		}

		sess := session.Open(kind, req.ClubID, req.EventID, members)
		if kind == apiclient.KindEvent {
			events, err := client.ListEvents(c.Request.Context(), req.ClubID)
			if err != nil {
				fail(c, err)
				return
			}
			for _, ev := range events {
				if ev.ID == req.EventID {
					sess.Title = ev.Title
					sess.Date = ev.Date
					break
				}
			}
		} else {
			sess.Title = req.Title
			sess.Date = req.Date
			sess.RoomNo = req.RoomNo
		}
		sessions.Install(sess)
		c.JSON(http.StatusCreated, sessionView(sess))
	})

	v1.GET("/session", func(c *gin.Context) {
		var view gin.H
		err := sessions.With(func(s *session.Session) error {
			view = sessionView(s)
			return nil
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	})

	v1.POST("/session/toggle", func(c *gin.Context) {
		var req struct {
			MemberID string  `json:"memberId" binding:"required"`
			Status   *string `json:"status"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		err := sessions.With(func(s *session.Session) error {
			if req.Status != nil {
				st, ok := session.ParseStatus(*req.Status)
				if !ok {
					return validate.Failf("status", "Status must be present, absent or unmarked")
				}
				s.SetStatus(req.MemberID, st)
				return nil
			}
			s.Toggle(req.MemberID)
			return nil
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1.POST("/session/reset", func(c *gin.Context) {
		err := sessions.With(func(s *session.Session) error {
			s.Reset()
			return nil
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1.DELETE("/session", func(c *gin.Context) {
		sessions.Close()
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1.POST("/session/submit", func(c *gin.Context) {
		if err := sessions.BeginSubmit(); err != nil {
			fail(c, err)
			return
		}
		defer sessions.EndSubmit()

		// Snapshot under the lock, then validate and submit on the copy,
		// so toggles and reads stay responsive through the retries.
		var snap *session.Session
		if err := sessions.With(func(s *session.Session) error {
			snap = s.Snapshot()
			return nil
		}); err != nil {
			fail(c, err)
			return
		}

		var events []apiclient.Event
		if snap.Kind == apiclient.KindEvent {
			evs, err := client.ListEvents(c.Request.Context(), snap.ClubID)
			if err != nil {
				fail(c, err)
				return
			}
			events = evs
		}
		if err := controller.Validate(snap, events); err != nil {
			fail(c, err)
			return
		}
		receipt, err := controller.Submit(c.Request.Context(), snap)
		if err != nil {
			fail(c, err)
			return
		}
		clubID := snap.ClubID
		_ = sessions.With(func(s *session.Session) error {
			s.Reset()
			return nil
		})

		// Secondary effects: neither may hide the successful submission.
		entries, histErr := hist.Load(c.Request.Context(), clubID)
		if histErr != nil {
			log.Printf("history refresh for club %s failed: %v", clubID, histErr)
		}
		job := queue.Job{ID: uuid.NewString(), Kind: string(receipt.Kind), RecordID: receipt.ID}
		if err := q.Publish(c.Request.Context(), job); err != nil {
			log.Printf("report job publish failed: %v", err)
		}

		resp := gin.H{"record": receipt.ID, "kind": receipt.Kind, "report": job.ID}
		if histErr == nil {
			resp["history"] = entries
		}
		c.JSON(http.StatusCreated, resp)
	})

	v1.GET("/records/:kind/:id/present", func(c *gin.Context) {
		kind := apiclient.RecordKind(c.Param("kind"))
		if !kind.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be event or practice"})
			return
		}
		members, err := hist.PresentRoster(c.Request.Context(), kind, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"present": members})
	})

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("console listening on :%s (backend %s)", cfg.HTTPPort, cfg.APIBaseURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down console...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	log.Println("console exited")
	return nil
}

// sessionView renders the open session with per-member marks.
func sessionView(s *session.Session) gin.H {
	type row struct {
		apiclient.Member
		Status string `json:"status"`
	}
	members := s.Members()
	rows := make([]row, 0, len(members))
	for _, m := range members {
		rows = append(rows, row{Member: m, Status: s.StatusOf(m.ID).String()})
	}
	return gin.H{
		"club":     s.ClubID,
		"kind":     s.Kind,
		"eventId":  s.ReferenceID,
		"title":    s.Title,
		"date":     s.Date,
		"roomNo":   s.RoomNo,
		"complete": s.IsComplete(),
		"members":  rows,
	}
}

// fail maps workflow errors onto HTTP statuses. Every branch leaves
// the caller something actionable: retry, dismiss, or log back in.
func fail(c *gin.Context, err error) {
	var (
		authErr  *apiclient.AuthError
		noAccess *roster.NoAccessError
		valErr   *validate.Error
		notFound *apiclient.NotFoundError
		subErr   *submit.SubmissionError
		fetchErr *apiclient.FetchError
	)
	switch {
	case errors.As(err, &authErr):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "action": "login"})
	case errors.As(err, &noAccess):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "noClubsExist": noAccess.NoClubsExist})
	case errors.As(err, &valErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": valErr.Message, "field": valErr.Field})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrNoSession):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrSubmitInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &subErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": subErr.Error(), "retryable": true})
	case errors.As(err, &fetchErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": fetchErr.Error(), "retryable": true})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// corsMiddleware lets the operator UI at the configured origin call the
// console. Credentials are only allowed for a pinned origin.
func corsMiddleware(allowOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowOrigin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")
		if allowOrigin != "*" {
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Max-Age", "3600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
