package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"shorestay/internal/app/commands"
	bookingapp "shorestay/internal/app/handlers/booking"
	meapp "shorestay/internal/app/handlers/me"
	"shorestay/internal/app/middleware"
	"shorestay/internal/app/policies"
	"shorestay/internal/app/queries"
	"shorestay/internal/app/services/sweeper"
	"shorestay/internal/domain/listings"
	"shorestay/internal/domain/pricing"
	domainreservation "shorestay/internal/domain/reservation"
	"shorestay/internal/domain/shared/daterange"
	"shorestay/internal/domain/shared/money"
	"shorestay/internal/infra/broker/kafka"
	"shorestay/internal/infra/config"
	"shorestay/internal/infra/db/mongo"
	ginserver "shorestay/internal/infra/http/gin"
	"shorestay/internal/infra/notify"
	"shorestay/internal/infra/obs"
	"shorestay/internal/infra/payments/paypal"
	"shorestay/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("using fallback configuration", "error", err)
		cfg.Env = env
		cfg.HTTPAddr = getenv("HTTP_ADDR", ":8080")
		cfg.Currency = getenv("CURRENCY", "USD")
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	fixturesPath := getenv("LISTINGS_FIXTURES", "")
	if fixturesPath == "" {
		fixturesPath = defaultListingFixturesPath()
	}
	if err := app.loadListingFixtures(ctx, fixturesPath, cfg.Currency, logger); err != nil {
		logger.Warn("listing fixtures load failed", "error", err, "path", fixturesPath)
	}

	go func() {
		if err := app.sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("sweeper stopped", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	sweeper  *sweeper.Sweeper
	listings listings.Repository
	mongo    *mongo.Client
	producer *kafka.Producer
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{}

	var (
		listingRepo     listings.Repository
		reservationRepo domainreservation.Repository
	)
	if cfg.MongoURI != "" {
		client, err := mongo.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		app.mongo = client
		reservations := mongo.NewReservationRepository(client.DB)
		if err := reservations.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		listingRepo = mongo.NewListingRepository(client.DB)
		reservationRepo = reservations
	} else {
		logger.Warn("MONGO_URI not set, using in-memory storage")
		listingRepo = memory.NewListingRepository()
		reservationRepo = memory.NewReservationRepository()
	}
	app.listings = listingRepo

	var (
		sink     policies.EventSink
		notifier policies.Notifier
	)
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return nil, fmt.Errorf("kafka connect: %w", err)
		}
		app.producer = producer
		sink = &kafka.EventSink{Producer: producer, TopicPrefix: cfg.KafkaTopicPrefix}
		notifier = &notify.Notifier{
			Producer: producer,
			Topic:    cfg.NotifyTopic,
			Attempts: cfg.NotifyAttempts,
			Logger:   logger,
		}
	} else {
		logger.Warn("KAFKA_BROKERS not set, events and notifications disabled")
	}

	gateway := paypal.New(paypal.Config{
		BaseURL:   cfg.PaypalBaseURL,
		ClientID:  cfg.PaypalClientID,
		Secret:    cfg.PaypalSecret,
		WebhookID: cfg.PaypalWebhookID,
		Timeout:   cfg.GatewayTimeout,
	}, nil, logger)

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, bookingapp.RequestBookingCommand{}.Key(), &bookingapp.RequestBookingHandler{
		Listings:     listingRepo,
		Reservations: reservationRepo,
		Gateway:      gateway,
		Events:       sink,
		Logger:       logger,
		ReturnURL:    cfg.PaymentReturnURL,
		CancelURL:    cfg.PaymentCancelURL,
	})
	commands.RegisterHandler(commandBus, bookingapp.CapturePaymentCommand{}.Key(), &bookingapp.CapturePaymentHandler{
		Listings:     listingRepo,
		Reservations: reservationRepo,
		Gateway:      gateway,
		Notifier:     notifier,
		Events:       sink,
		Logger:       logger,
	})
	commands.RegisterHandler(commandBus, bookingapp.ProcessWebhookCommand{}.Key(), &bookingapp.ProcessWebhookHandler{
		Listings:     listingRepo,
		Reservations: reservationRepo,
		Notifier:     notifier,
		Events:       sink,
		Logger:       logger,
	})
	commands.RegisterHandler(commandBus, bookingapp.CancelBookingCommand{}.Key(), &bookingapp.CancelBookingHandler{
		Reservations: reservationRepo,
		Gateway:      gateway,
		Events:       sink,
		Logger:       logger,
	})
	commands.RegisterHandler(commandBus, bookingapp.OverrideStatusCommand{}.Key(), &bookingapp.OverrideStatusHandler{
		Reservations: reservationRepo,
		Events:       sink,
		Logger:       logger,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, meapp.ListGuestBookingsQuery{}.Key(), &meapp.ListGuestBookingsHandler{
		Reservations: reservationRepo,
		Logger:       logger,
	})
	queries.RegisterHandler(queryBus, bookingapp.ListListingBookingsQuery{}.Key(), &bookingapp.ListListingBookingsHandler{
		Reservations: reservationRepo,
	})
	queries.RegisterHandler(queryBus, bookingapp.GetReservationQuery{}.Key(), &bookingapp.GetReservationHandler{
		Reservations: reservationRepo,
	})

	idempStore := memory.NewIdempotencyStore()
	idempStore.TTL = cfg.IdempotencyTTL
	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Idempotency(idempStore, nil, replayableErrors()...),
		middleware.CommandLogging(logger),
	)
	queryBusWithMiddleware := middleware.ChainQueries(queryBus)

	app.sweeper = &sweeper.Sweeper{
		Reservations: reservationRepo,
		Gateway:      gateway,
		Events:       sink,
		Logger:       logger,
		Interval:     cfg.SweepInterval,
		TTL:          cfg.PendingTTL,
	}

	app.handlers = ginserver.Handlers{
		Booking: ginserver.BookingHandler{
			Commands: commandBusWithMiddleware,
			Queries:  queryBusWithMiddleware,
			Logger:   logger,
		},
		Payment: ginserver.PaymentHandler{
			Commands: commandBusWithMiddleware,
			Logger:   logger,
		},
		Webhook: ginserver.WebhookHandler{
			Commands: commandBusWithMiddleware,
			Verifier: gateway,
			Logger:   logger,
		},
		Admin: ginserver.AdminHandler{
			Commands: commandBusWithMiddleware,
			Logger:   logger,
		},
		Me: &ginserver.MeHandler{
			Queries: queryBusWithMiddleware,
			Logger:  logger,
		},
	}
	return app, nil
}

// replayableErrors lists the sentinels a repeated Idempotency-Key must
// surface unchanged so the HTTP layer maps the same status on replay.
func replayableErrors() []error {
	return []error{
		domainreservation.ErrDatesConflict,
		domainreservation.ErrDuplicateTransaction,
		domainreservation.ErrOrderAlreadyAttached,
		domainreservation.ErrNotFound,
		domainreservation.ErrInvalidGuests,
		domainreservation.ErrInvalidOccupancy,
		domainreservation.ErrContactRequired,
		domainreservation.ErrInvalidState,
		listings.ErrListingNotFound,
		daterange.ErrInvalidRange,
		pricing.ErrInvalidDateRange,
		pricing.ErrHouseRuleViolated,
		pricing.ErrInvalidRate,
		policies.ErrOrderNotApproved,
	}
}

func (a *application) ready() error {
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return a.mongo.Ping(ctx)
	}
	return nil
}

func (a *application) close(logger *slog.Logger) {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			logger.Warn("kafka close failed", "error", err)
		}
	}
}

func (a *application) loadListingFixtures(ctx context.Context, path, currency string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("listing fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}

	var fixtures []listingFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now()
	for _, fx := range fixtures {
		listing, err := fx.toListing(currency, now)
		if err != nil {
			logger.Error("fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		if err := a.listings.Save(ctx, listing); err != nil {
			logger.Error("cannot store fixture listing", "listing_id", fx.ID, "error", err)
			continue
		}
		logger.Info("listing fixture imported", "listing_id", listing.ID)
	}
	return nil
}

type listingFixture struct {
	ID               string `json:"id"`
	Host             string `json:"host"`
	Title            string `json:"title"`
	Location         string `json:"location"`
	NightlyRateCents int64  `json:"nightly_rate_cents"`
	Currency         string `json:"currency"`
	Timezone         string `json:"timezone"`
	CheckInAfter     string `json:"check_in_after"`
	CheckOutBefore   string `json:"check_out_before"`
}

func (fx listingFixture) toListing(defaultCurrency string, now time.Time) (*listings.Listing, error) {
	currency := fx.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	rate, err := money.New(fx.NightlyRateCents, currency)
	if err != nil {
		return nil, err
	}
	tz := fx.Timezone
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, listings.ErrBadTimezone
	}
	rules := listings.HouseRules{}
	if fx.CheckInAfter != "" {
		if rules.CheckInAfter, err = listings.ParseTimeOfDay(fx.CheckInAfter); err != nil {
			return nil, err
		}
	}
	if fx.CheckOutBefore != "" {
		if rules.CheckOutBefore, err = listings.ParseTimeOfDay(fx.CheckOutBefore); err != nil {
			return nil, err
		}
	} else {
		rules.CheckOutBefore = listings.TimeOfDay(24*60 - 1)
	}
	return &listings.Listing{
		ID:          listings.ListingID(fx.ID),
		Host:        listings.HostID(fx.Host),
		Title:       fx.Title,
		Location:    fx.Location,
		NightlyRate: rate,
		Timezone:    tz,
		HouseRules:  rules,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func defaultListingFixturesPath() string {
	return filepath.Join("data", "listings.json")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
