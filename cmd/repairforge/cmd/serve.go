package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/entrepeneur4lyf/repairforge/internal/api"
	"github.com/entrepeneur4lyf/repairforge/internal/live"
	"github.com/entrepeneur4lyf/repairforge/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST and WebSocket API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, nil)
		if err != nil {
			return err
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(flushCtx); err != nil {
				log.Warn("Failed to flush traces", "error", err)
			}
		}()

		svc, err := newServices(ctx, cfg, serviceOptions{model: true, watch: cfg.I18n.Watch})
		if err != nil {
			return err
		}
		defer svc.Close()

		svc.drafts.Start()
		svc.cleanups = append(svc.cleanups, svc.drafts.Stop)

		server := api.NewServer(api.Options{
			Addr:           cfg.Server.Addr,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			RateLimit:      cfg.Server.RateLimit,
			RateBurst:      cfg.Server.RateBurst,
			RequestTimeout: cfg.Server.RequestTimeout,
			Controller:     svc.ctrl,
			Locales:        svc.locales,
			Media:          svc.media,
			LiveDialer:     live.NewGenAIDialer(svc.clients.GenAI, cfg.Gemini.LiveModel),
			Live:           cfg.Live,
		})

		printBanner(cfg.Server.Addr)

		errc := make(chan error, 1)
		go func() { errc <- server.Start() }()

		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
		}

		log.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop server: %w", err)
		}
		return <-errc
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	_ = v.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	serveCmd.Flags().String("trace-exporter", "", "Trace exporter: none, stdout or otlp (overrides telemetry.exporter)")
	_ = v.BindPFlag("telemetry.exporter", serveCmd.Flags().Lookup("trace-exporter"))
	rootCmd.AddCommand(serveCmd)
}

var (
	bannerTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F59E0B"))
	bannerLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")).Width(11)
	bannerValue = lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA"))
)

func printBanner(addr string) {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	lines := []string{
		bannerTitle.Render("RepairForge API"),
		bannerLabel.Render("Server") + bannerValue.Render("http://"+host),
		bannerLabel.Render("Health") + bannerValue.Render("http://"+host+"/api/v1/health"),
		bannerLabel.Render("State") + bannerValue.Render("ws://"+host+"/api/v1/ws"),
		bannerLabel.Render("Live") + bannerValue.Render("ws://"+host+"/api/v1/live"),
	}
	fmt.Println(strings.Join(lines, "\n"))
}
