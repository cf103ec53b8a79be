package main // Entry point package

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/tintd/salon-dispatch/internal/catalog"
	"github.com/tintd/salon-dispatch/internal/config"
	"github.com/tintd/salon-dispatch/internal/database"
	"github.com/tintd/salon-dispatch/internal/gateway"
	"github.com/tintd/salon-dispatch/internal/handler"
	"github.com/tintd/salon-dispatch/internal/memstore"
	"github.com/tintd/salon-dispatch/internal/middleware"
	"github.com/tintd/salon-dispatch/internal/push"
	"github.com/tintd/salon-dispatch/internal/queue"
	"github.com/tintd/salon-dispatch/internal/repository"
	"github.com/tintd/salon-dispatch/internal/router"
	"github.com/tintd/salon-dispatch/internal/service"
)

// stores is one storage backend for every service.
type stores struct {
	bookings      service.BookingStore
	partners      service.PartnerDirectory
	notifications service.NotificationStore
	payments      service.PaymentStore
	sequences     service.Sequencer
	catalog       catalog.Source
	close         func()
}

func main() {
	cfg, err := config.Load() // Load environment config
	if err != nil {
		stdlog.Fatal(err)
	}
	logger := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}
	defer st.close()

	sender := push.LogSender{Logger: logger}
	var pushQueue service.PushQueue
	switch cfg.PushDriver {
	case config.PushInline:
		pushQueue = queue.NewInline(sender)
	default:
		pub := queue.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.PushQueue)
		defer pub.Close()
		pushQueue = pub
		consumer := queue.NewConsumer(cfg.RabbitMQ.URL, cfg.RabbitMQ.PushQueue, sender, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorj(log.JSON{"event": "push_consumer.stopped", "error": err.Error()})
			}
		}()
	}

	gw := gateway.NewWithOrders(gateway.Sandbox{}, cfg.Gateway.Secret, cfg.Gateway.Timeout)
	if cfg.Gateway.Driver == config.GatewayRazorpay {
		gw = gateway.NewRazorpay(cfg.Gateway.Key, cfg.Gateway.Secret, cfg.Gateway.Timeout)
	}

	notifier := service.NewNotifier(st.partners, st.notifications, pushQueue, logger)
	cat := catalog.NewCached(st.catalog, cfg.Catalog.Size, cfg.Catalog.TTL)
	bookings := service.NewBookingService(st.bookings, st.partners, st.payments, cat, notifier, logger,
		service.WithCurrency(cfg.Gateway.Currency))
	payments := service.NewPaymentService(st.payments, gw, bookings, cfg.Gateway.Currency, logger)
	partners := service.NewPartnerService(st.partners, st.notifications, st.sequences, logger)

	var rateLimit echo.MiddlewareFunc
	if rdb := config.NewRedisClient(cfg.Redis); rdb != nil {
		defer rdb.Close()
		rateLimit = middleware.NewTokenBucket(cfg.RateLimit, rdb)
	} else if cfg.RateLimit.Enabled {
		logger.Warnj(log.JSON{"event": "ratelimit.disabled", "reason": "redis unreachable", "addr": cfg.Redis.Addr})
	}

	e := router.New(logger, router.API{
		JWTSecret:   cfg.JWTSecret,
		RateLimit:   rateLimit,
		Bookings:    handler.NewBookingHandler(bookings),
		Payments:    handler.NewPaymentHandler(payments),
		Partners:    handler.NewPartnerHandler(partners, bookings),
		Admin:       handler.NewAdminHandler(bookings, partners),
		PartnerGate: partners,
	})

	addr := ":" + cfg.Port
	logger.Infoj(log.JSON{"event": "server.start", "addr": addr, "env": cfg.Env, "storage": cfg.StorageDriver, "push": cfg.PushDriver})
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorj(log.JSON{"event": "server.shutdown_failed", "error": err.Error()})
	}
	if err := bookings.Drain(shutdownCtx); err != nil {
		logger.Warnj(log.JSON{"event": "notifications.dropped", "error": err.Error()})
	}
}

func openStores(ctx context.Context, cfg config.Config, logger *log.Logger) (stores, error) {
	if cfg.StorageDriver == config.StorageMemory {
		m := memstore.New()
		m.SeedDemo()
		logger.Warnj(log.JSON{"event": "storage.memory", "message": "data is lost on restart"})
		return stores{
			bookings:      m.Bookings,
			partners:      m.Partners,
			notifications: m.Notifications,
			payments:      m.Payments,
			sequences:     m.Sequences,
			catalog:       m.Catalog,
			close:         func() {},
		}, nil
	}

	db, err := database.Open(cfg.DB.User, cfg.DB.Pass, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name)
	if err != nil {
		return stores{}, err
	}
	if cfg.DB.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return stores{}, err
		}
	}
	seq := repository.NewSequenceRepo(db)
	return stores{
		bookings:      repository.NewBookingRepo(db, seq),
		partners:      repository.NewPartnerRepo(db),
		notifications: repository.NewNotificationRepo(db),
		payments:      repository.NewPaymentRepo(db),
		sequences:     seq,
		catalog:       repository.NewCatalogRepo(db),
		close:         func() { _ = db.Close() },
	}, nil
}

func newLogger(level string) *log.Logger {
	l := log.New("salon-dispatch")
	l.SetHeader(`{"time":"${time_rfc3339}","level":"${level}","prefix":"${prefix}"}`)
	switch strings.ToLower(level) {
	case "debug":
		l.SetLevel(log.DEBUG)
	case "warn":
		l.SetLevel(log.WARN)
	case "error":
		l.SetLevel(log.ERROR)
	default:
		l.SetLevel(log.INFO)
	}
	return l
}
