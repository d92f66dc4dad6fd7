package cli

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"lojaonline/internal/config"
	"lojaonline/internal/database"
	"lojaonline/internal/events"
	"lojaonline/internal/handlers"
	"lojaonline/internal/metrics"
	"lojaonline/internal/services"
	"lojaonline/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the storefront HTTP server",
		Long: `Start the storefront.

Settings come from the optional --config file and the environment
(PORT, DATABASE_DRIVER, DATABASE_URL, REDIS_ADDR, EVENTS_BACKEND, ...).

Example:
  loja serve
  PORT=8080 REDIS_ADDR=localhost:6379 loja serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootOpts.ConfigPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
	return cmd
}

// app holds everything the server owns and must release on shutdown.
type app struct {
	db        *database.Database
	redis     *redis.Client
	publisher events.Publisher
	audit     *services.SecurityLogger
	checkout  *services.CheckoutService
	router    *gin.Engine
}

func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	gin.SetMode(cfg.GinMode)

	db, err := database.NewDatabase(ctx, strings.ToLower(cfg.Database.Driver), cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	a := &app{db: db}

	var sessions session.Store
	if cfg.Session.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.close()
			return nil, fmt.Errorf("connect to redis %s: %w", cfg.Session.RedisAddr, err)
		}
		sessions = session.NewRedisStore(a.redis, cfg.Session.TTL)
		log.Printf("serve - sessions stored in redis at %s", cfg.Session.RedisAddr)
	} else {
		sessions = session.NewMemoryStore(cfg.Session.TTL)
		log.Printf("serve - sessions stored in memory")
	}

	a.publisher, err = newPublisher(cfg.Events)
	if err != nil {
		a.close()
		return nil, err
	}

	email := services.NewEmailService(services.SMTPConfig{
		Host: cfg.SMTP.Host,
		Port: cfg.SMTP.Port,
		User: cfg.SMTP.User,
		Pass: cfg.SMTP.Pass,
		From: cfg.SMTP.From,
	})
	a.audit = services.NewSecurityLogger(cfg.SecurityLog)
	a.checkout = services.NewCheckoutService(db, a.publisher, email)

	h := handlers.NewHandler(handlers.Deps{
		Catalog:      services.NewCatalogService(db, cfg.FeaturedLimit),
		Carts:        services.NewCartService(db),
		Customers:    services.NewCustomerService(db, email, a.audit),
		Checkout:     a.checkout,
		Orders:       db,
		Sessions:     sessions,
		Metrics:      metrics.NewServerMetrics("web"),
		SessionTTL:   cfg.Session.TTL,
		SecureCookie: cfg.Session.SecureCookie || cfg.TLS.SelfSigned,
	})
	renderer, err := handlers.DefaultRenderer()
	if err != nil {
		a.close()
		return nil, err
	}
	a.router = handlers.NewRouter(h, renderer)
	if _, err := os.Stat("./static"); err == nil {
		a.router.Static("/static", "./static")
	}
	return a, nil
}

func newPublisher(cfg config.EventsConfig) (events.Publisher, error) {
	switch cfg.Backend {
	case events.BackendKafka:
		brokers := events.SplitBrokers(cfg.KafkaBrokers)
		log.Printf("serve - publishing order events to kafka %v", brokers)
		return events.NewKafkaPublisher(events.NewKafkaWriter(brokers, cfg.KafkaTopic)), nil
	case events.BackendRabbitMQ:
		conn, ch, err := events.DialRabbit(cfg.AMQPURL, 5)
		if err != nil {
			return nil, err
		}
		log.Printf("serve - publishing order events to rabbitmq exchange %s", events.ExchangeName)
		return events.NewRabbitPublisher(ch, conn), nil
	default:
		return events.NopPublisher{}, nil
	}
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	if a.checkout != nil {
		a.checkout.Wait()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			log.Printf("serve - closing publisher: %v", err)
		}
	}
	if a.audit != nil {
		a.audit.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

func runServe(ctx context.Context, cfg config.Config) error {
	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	servers := []*http.Server{}
	errCh := make(chan error, 2)

	if cfg.TLS.SelfSigned {
		cert, err := loadCertificate(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		if err != nil {
			return fmt.Errorf("tls certificate: %w", err)
		}
		httpsServer := &http.Server{
			Addr:      ":" + cfg.TLS.HTTPSPort,
			Handler:   a.router,
			TLSConfig: &tls.Config{Certificates: []tls.Certificate{cert}},
		}
		httpServer := &http.Server{Addr: ":" + cfg.Port, Handler: httpsRedirect(cfg.TLS.HTTPSPort)}
		servers = append(servers, httpsServer, httpServer)

		log.Printf("serve - HTTPS on https://localhost:%s", cfg.TLS.HTTPSPort)
		go func() { errCh <- httpsServer.ListenAndServeTLS("", "") }()
		log.Printf("serve - HTTP on :%s redirects to HTTPS", cfg.Port)
		go func() { errCh <- httpServer.ListenAndServe() }()
	} else {
		httpServer := &http.Server{Addr: ":" + cfg.Port, Handler: a.router}
		servers = append(servers, httpServer)
		log.Printf("serve - HTTP on http://localhost:%s", cfg.Port)
		go func() { errCh <- httpServer.ListenAndServe() }()
	}

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Printf("serve - shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("serve - shutdown %s: %v", srv.Addr, err)
		}
	}
	return nil
}
