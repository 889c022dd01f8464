package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cropadvisor/controllers"
	"cropadvisor/services"
)

const shutdownTimeout = 10 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("port", "", "HTTP port (default 8080, or PORT)")
	serveCmd.Flags().Bool("discord", true, "run the Discord bot when DISCORD_BOT_TOKEN is set")

	viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("discord.enabled", serveCmd.Flags().Lookup("discord"))
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and chat front ends",
	Long: `Run the JSON API (prediction, chatbot, tips, history and utility endpoints)
and, when a bot token is configured, the Discord chat front end.

Examples:
  cropadvisor serve
  cropadvisor serve --port 9000 --discord=false`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func runServe(ctx context.Context) error {
	cfg := loadConfig()

	a, err := newApp(ctx, cfg, appOptions{knowledge: true, events: true})
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}
	defer a.close()

	discord := services.NewDiscordService(cfg.DiscordToken, cfg.DiscordPrefix, cfg.DiscordLanguage, a.chatbot)

	controller := controllers.NewController(controllers.Dependencies{
		Advisor:   a.pipeline,
		Chatbot:   a.chatbot,
		Districts: a.rainfall,
		Knowledge: a.knowledge,
		History:   a.history,
		Discord:   discord,
		Status:    a.statusReporters(),
	})

	if err := controller.StartServices(cfg.DiscordEnabled); err != nil {
		log.Printf("Warning: failed to start background services: %v", err)
	}

	go a.sessions.Run(ctx, cfg.SweepInterval)

	router := mux.NewRouter()
	controller.RegisterRoutes(router)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	port := cfg.Port
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	server := &http.Server{
		Addr:              port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on port %s", port)
		log.Printf("Allowed origins: %s", strings.Join(cfg.AllowedOrigins(), ", "))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Println("Shutdown signal received, stopping services...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if err := controller.StopServices(); err != nil {
		log.Printf("Error stopping services: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}
