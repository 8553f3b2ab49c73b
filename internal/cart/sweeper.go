package cart

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"cartservice/internal/store"
)

// Sweeper reclaims reservations from carts nobody touched within the
// expiration threshold. It runs as a single goroutine, so one slow sweep
// delays the next tick instead of stacking a second sweep on top of it.
type Sweeper struct {
	store               store.Store
	service             *Service
	expirationThreshold time.Duration
	pollInterval        time.Duration
	logger              *zap.Logger
	tracer              trace.Tracer
}

func NewSweeper(st store.Store, service *Service, expirationThreshold, pollInterval time.Duration, logger *zap.Logger, tracer trace.Tracer) *Sweeper {
	return &Sweeper{
		store:               st,
		service:             service,
		expirationThreshold: expirationThreshold,
		pollInterval:        pollInterval,
		logger:              logger,
		tracer:              tracer,
	}
}

// Start loops until ctx is cancelled, sleeping pollInterval between passes.
func (w *Sweeper) Start(ctx context.Context) {
	w.logger.Info("abandoned-cart sweeper started",
		zap.Duration("poll_interval", w.pollInterval),
		zap.Duration("expiration_threshold", w.expirationThreshold),
	)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("abandoned-cart sweeper stopping")
			return
		case <-ticker.C:
			w.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single scan-and-release pass. A failure on one line is
// logged and the pass continues; one bad record must not block reclaiming
// the rest.
func (w *Sweeper) SweepOnce(ctx context.Context) {
	ctx, span := w.tracer.Start(ctx, "cart_sweep")
	defer span.End()

	cutoff := time.Now().Add(-w.expirationThreshold)
	stale, err := w.store.GetCartLinesOlderThan(cutoff)
	if err != nil {
		w.logger.Error("failed to scan for abandoned cart lines", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}

	span.SetAttributes(attribute.Int("sweep.stale_lines", len(stale)))
	if len(stale) == 0 {
		span.SetStatus(codes.Ok, "nothing stale")
		return
	}

	removed := 0
	for _, line := range stale {
		if ctx.Err() != nil {
			break
		}
		ok, err := w.service.Remove(ctx, line.UserID, line.ProductID)
		if err != nil {
			w.logger.Error("failed to remove abandoned cart line",
				zap.Error(err),
				zap.Int64("user_id", line.UserID),
				zap.Int64("product_id", line.ProductID),
			)
			continue
		}
		if ok {
			removed++
		}
	}

	w.logger.Info("sweep pass finished",
		zap.Int("stale_lines", len(stale)),
		zap.Int("removed", removed),
	)
	span.SetAttributes(attribute.Int("sweep.removed", removed))
	span.SetStatus(codes.Ok, "sweep complete")
}
