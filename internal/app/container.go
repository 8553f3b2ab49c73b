package app

import (
	"context"
	"fmt"
	"net/http"
	"os"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cartservice/internal/auth"
	"cartservice/internal/cart"
	"cartservice/internal/config"
	"cartservice/internal/events"
	"cartservice/internal/httpapi"
	"cartservice/internal/inventory"
	"cartservice/internal/platform/kafka"
	"cartservice/internal/platform/observability"
	"cartservice/internal/store"
)

// Container holds expensive-to-create singleton resources and dependencies.
type Container struct {
	config            *config.Config
	logger            *zap.Logger
	tracer            trace.Tracer
	producer          kafka.Producer
	store             *store.MemoryStore
	carts             *cart.Service
	sweeper           *cart.Sweeper
	httpServer        *http.Server
	otelLogShutdown   func(context.Context) error
	otelTraceShutdown func(context.Context) error
}

// NewContainer creates and initializes all infrastructure components.
func NewContainer(ctx context.Context) (*Container, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	container := &Container{
		config: cfg,
	}

	if err := container.setupLogger(); err != nil {
		return nil, err
	}
	if err := container.setupObservability(ctx); err != nil {
		return nil, err
	}
	if err := container.setupDomain(); err != nil {
		return nil, err
	}

	return container, nil
}

func (c *Container) setupLogger() error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	c.logger = logger
	return nil
}

// setupObservability configures OpenTelemetry logging and tracing.
func (c *Container) setupObservability(ctx context.Context) error {
	otelLogShutdown, err := observability.SetupLoggingSDK(ctx, c.config)
	if err != nil {
		c.logger.Error("Failed to setup OpenTelemetry logging", zap.Error(err))
	}
	c.otelLogShutdown = otelLogShutdown

	tp, otelTraceShutdown, err := observability.SetupTracingSDK(ctx, c.config)
	if err != nil {
		c.logger.Error("Failed to setup OpenTelemetry tracing", zap.Error(err))
	}
	c.otelTraceShutdown = otelTraceShutdown

	c.reinitializeLoggerWithOTel()
	c.tracer = otel.Tracer(config.ServiceName)

	if c.config.KafkaBroker != "" {
		tracerProvider := otel.GetTracerProvider()
		if tp != nil {
			tracerProvider = tp
		}
		if err := c.setupKafkaWithTracer(tracerProvider); err != nil {
			return err
		}
	}

	return nil
}

// reinitializeLoggerWithOTel creates a new logger with OpenTelemetry integration.
func (c *Container) reinitializeLoggerWithOTel() {
	logProvider := global.GetLoggerProvider()
	otelZapCore := otelzap.NewCore(config.ServiceName+".manual",
		otelzap.WithLoggerProvider(logProvider),
	)

	consoleEncoderConfig := zap.NewProductionEncoderConfig()
	consoleEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(consoleEncoderConfig),
		zapcore.Lock(os.Stdout),
		zap.InfoLevel,
	)

	finalCore := zapcore.NewTee(otelZapCore, consoleCore)
	c.logger = zap.New(finalCore,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service.name", config.ServiceName)),
	)
}

// setupKafkaWithTracer initializes the reservation-event writer with
// OpenTelemetry trace propagation in message headers.
func (c *Container) setupKafkaWithTracer(tp trace.TracerProvider) error {
	baseWriter := &kafkago.Writer{
		Addr:         kafkago.TCP(c.config.KafkaBroker),
		Topic:        config.ReservationTopic,
		Balancer:     &kafkago.LeastBytes{},
		BatchTimeout: config.BatchTimeout,
		BatchSize:    config.BatchSize,
	}

	writer, err := otelkafka.NewWriter(baseWriter,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes(
			[]attribute.KeyValue{
				semconv.MessagingDestinationNameKey.String(config.ReservationTopic),
				attribute.String("messaging.kafka.client_id", config.ServiceName),
			},
		),
	)
	if err != nil {
		return err
	}
	c.producer = writer
	return nil
}

// setupDomain wires the store, ledger, engine, sweeper, and HTTP server.
func (c *Container) setupDomain() error {
	memStore := store.NewMemoryStore()
	if err := store.Seed(memStore); err != nil {
		return fmt.Errorf("failed to seed store: %w", err)
	}
	c.store = memStore

	var publisher events.Publisher = events.NopPublisher{}
	if c.producer != nil {
		publisher = events.NewKafkaPublisher(c.producer, c.logger)
	}

	ledger := inventory.NewLedger(memStore, c.logger)
	c.carts = cart.NewService(memStore, ledger, publisher, c.logger, c.tracer)
	c.sweeper = cart.NewSweeper(memStore, c.carts,
		c.config.CartExpiration, c.config.SweepInterval, c.logger, c.tracer)

	authService := auth.NewService(memStore, c.config.JWTSecret, c.config.JWTIssuer, c.config.TokenTTL)
	handler := httpapi.NewHandler(c.carts, memStore, authService, c.logger)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	c.httpServer = &http.Server{
		Addr:    c.config.HTTPAddr,
		Handler: mux,
	}

	return nil
}

// Shutdown gracefully shuts down all container components.
func (c *Container) Shutdown(ctx context.Context) {
	c.logger.Info("Shutting down container...")

	if c.producer != nil {
		if err := c.producer.Close(); err != nil {
			c.logger.Error("Failed to close kafka producer", zap.Error(err))
		}
	}

	if c.otelTraceShutdown != nil {
		if err := c.otelTraceShutdown(ctx); err != nil {
			c.logger.Error("Failed to shutdown OTel tracing", zap.Error(err))
		}
	}
	if c.otelLogShutdown != nil {
		if err := c.otelLogShutdown(ctx); err != nil {
			c.logger.Error("Failed to shutdown OTel logging", zap.Error(err))
		}
	}

	if err := c.logger.Sync(); err != nil {
		// Can't log this error since the logger might be closed.
		fmt.Printf("Failed to sync logger: %v\n", err)
	}
}

func (c *Container) Logger() *zap.Logger    { return c.logger }
func (c *Container) Sweeper() *cart.Sweeper { return c.sweeper }
func (c *Container) HTTPServer() *http.Server {
	return c.httpServer
}
