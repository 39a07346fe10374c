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

	"picbook/internal/auth"
	"picbook/internal/generate"
	"picbook/internal/progress"
	"picbook/internal/provider"
	"picbook/internal/story"
	"picbook/internal/themes"
	"picbook/internal/workflow"
	"picbook/pkg/database"
	"picbook/pkg/utils"
)

func main() {
	cfg := database.DefaultConfig()
	db := database.MustOpen(cfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	router := gin.Default()

	// Optional: avoid “trusted all proxies” warning
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	// Progress hub: the creation screen subscribes here for generation
	// progress instead of polling.
	hub := progress.NewHub()
	router.GET("/ws", progress.WSHandler(hub))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "not_ready",
				"db_error":   err.Error(),
				"ws_clients": stats.Clients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"db":         "ok",
			"ws_clients": stats.Clients,
		})
	})

	// AI providers
	provCfg := utils.LoadProviderConfig()
	chatClient := provider.NewChatClient(provCfg)

	var imageClient provider.ImageClient = provider.NewImageClient(provCfg)
	if provCfg.MockImages {
		log.Println("[api-server] image provider running in mock mode")
		imageClient = provider.MockImageClient{}
	}

	// Theme suggestions (public)
	suggester := themes.NewSuggester(chatClient)
	themesHandler := themes.NewHandler(suggester)
	themesHandler.RegisterRoutes(router.Group("/themes"))

	// Auth
	authCfg := utils.LoadAuthConfig()
	tokenSvc := auth.TokenService{
		Secret:   []byte(authCfg.JWTSecret),
		Issuer:   authCfg.JWTIssuer,
		Duration: authCfg.JWTDuration,
	}
	authRepo := auth.NewRepo(db)
	authHandler := auth.NewHandler(authRepo, tokenSvc, authCfg)
	authHandler.RegisterRoutes(router.Group("/auth"))

	// Protected routes
	protected := router.Group("/users")
	protected.Use(auth.AuthMiddleware(tokenSvc, authRepo))

	protected.GET("/me", func(c *gin.Context) {
		claims := auth.MustGetClaims(c)
		c.JSON(http.StatusOK, gin.H{
			"id":    claims.UserID,
			"phone": claims.Phone,
		})
	})

	// Story shelf (protected)
	storyRepo := story.NewRepo(db)
	storyHandler := story.NewHandler(storyRepo)
	storyHandler.RegisterRoutes(protected)

	// Creation workflow (protected)
	generator := generate.NewGenerator(chatClient, provCfg.ChatTimeout)
	illustrator := generate.NewIllustrator(imageClient, provCfg.ImageTimeout)
	manager := workflow.NewManager(generator, illustrator, storyRepo, hub)
	workflowHandler := workflow.NewHandler(manager)
	workflowHandler.RegisterRoutes(protected)

	httpSrv := &http.Server{
		Addr:    ":8080",
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Println("HTTP API server listening on :8080")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}

	log.Println("server stopped")
}
