package cart

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"cartservice/internal/domain"
	"cartservice/internal/events"
	"cartservice/internal/inventory"
	"cartservice/internal/store"
)

// ItemView is the read projection of one cart line joined with the
// product's current name and price. When the product has been deleted the
// product fields stay zero rather than failing the whole listing.
type ItemView struct {
	UserID      int64           `json:"user_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// Service is the reservation engine: it turns a user intent (add N, set to
// N, remove) into one consistent (CartLine, Product) transition. Every
// mutating operation holds the product's lock across its whole
// read-compute-write sequence, so two callers racing for the last unit of
// stock can never both pass the availability check.
type Service struct {
	store     store.Store
	ledger    *inventory.Ledger
	publisher events.Publisher
	logger    *zap.Logger
	tracer    trace.Tracer
}

func NewService(st store.Store, ledger *inventory.Ledger, publisher events.Publisher, logger *zap.Logger, tracer trace.Tracer) *Service {
	return &Service{
		store:     st,
		ledger:    ledger,
		publisher: publisher,
		logger:    logger,
		tracer:    tracer,
	}
}

// AddOrUpdate adds quantityDelta units to whatever the user already holds
// for the product (zero when absent), reserving the increase against
// available stock. A result of zero or less deletes the line and releases
// its reservation, since a line with quantity <= 0 must not exist.
func (s *Service) AddOrUpdate(ctx context.Context, userID, productID int64, quantityDelta int) error {
	ctx, span := s.tracer.Start(ctx, "cart_add_or_update")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("cart.user_id", userID),
		attribute.Int64("cart.product_id", productID),
		attribute.Int("cart.quantity_delta", quantityDelta),
	)

	s.ledger.Locks.Lock(productID)
	defer s.ledger.Locks.Unlock(productID)

	if _, err := s.ledger.GetAvailable(productID); err != nil {
		return s.fail(span, err)
	}

	existing, err := s.loadLine(userID, productID)
	if err != nil {
		return s.fail(span, err)
	}

	current := 0
	if existing != nil {
		current = existing.Quantity
	}
	newQuantity := current + quantityDelta
	delta := newQuantity - current

	if newQuantity <= 0 {
		if existing == nil {
			span.SetStatus(codes.Ok, "nothing to add")
			return nil
		}
		if _, err := s.removeLine(ctx, existing); err != nil {
			return s.fail(span, err)
		}
		span.SetStatus(codes.Ok, "line removed")
		return nil
	}

	reserved, err := s.ledger.Reserve(productID, delta)
	if err != nil {
		return s.fail(span, err)
	}

	now := time.Now()
	line := existing
	if line != nil {
		line.Quantity = newQuantity
		line.LastUpdatedAt = now
	} else {
		line = &domain.CartLine{
			UserID:        userID,
			ProductID:     productID,
			Quantity:      newQuantity,
			CreatedAt:     now,
			LastUpdatedAt: now,
		}
	}

	if err := s.store.SaveCartLine(line); err != nil {
		s.compensate(productID, -delta)
		return s.fail(span, &domain.PersistenceError{Op: "save cart line", Err: err})
	}

	span.SetAttributes(attribute.Int("inventory.reserved", reserved))
	span.SetStatus(codes.Ok, "reservation updated")
	s.publishChange(ctx, userID, productID, delta, reserved)
	return nil
}

// SetQuantity sets the line to an absolute quantity. The line must already
// exist. A target of zero or less releases the full reservation and
// deletes the line. A target equal to the current quantity does the same,
// which is how the update endpoint has always treated an unchanged value.
func (s *Service) SetQuantity(ctx context.Context, userID, productID int64, targetQuantity int) error {
	ctx, span := s.tracer.Start(ctx, "cart_set_quantity")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("cart.user_id", userID),
		attribute.Int64("cart.product_id", productID),
		attribute.Int("cart.target_quantity", targetQuantity),
	)

	s.ledger.Locks.Lock(productID)
	defer s.ledger.Locks.Unlock(productID)

	if _, err := s.ledger.GetAvailable(productID); err != nil {
		return s.fail(span, err)
	}

	existing, err := s.loadLine(userID, productID)
	if err != nil {
		return s.fail(span, err)
	}
	if existing == nil {
		return s.fail(span, domain.ErrCartLineNotFound)
	}

	if targetQuantity <= 0 || targetQuantity == existing.Quantity {
		if _, err := s.removeLine(ctx, existing); err != nil {
			return s.fail(span, err)
		}
		span.SetStatus(codes.Ok, "line removed")
		return nil
	}

	delta := targetQuantity - existing.Quantity
	reserved, err := s.ledger.Reserve(productID, delta)
	if err != nil {
		return s.fail(span, err)
	}

	existing.Quantity = targetQuantity
	existing.LastUpdatedAt = time.Now()
	if err := s.store.SaveCartLine(existing); err != nil {
		s.compensate(productID, -delta)
		return s.fail(span, &domain.PersistenceError{Op: "save cart line", Err: err})
	}

	span.SetAttributes(attribute.Int("inventory.reserved", reserved))
	span.SetStatus(codes.Ok, "quantity updated")
	s.publishChange(ctx, userID, productID, delta, reserved)
	return nil
}

// Remove deletes the user's line for the product and releases its
// reservation. Removing an absent line is not an error; the result reports
// whether anything was removed.
func (s *Service) Remove(ctx context.Context, userID, productID int64) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "cart_remove")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("cart.user_id", userID),
		attribute.Int64("cart.product_id", productID),
	)

	s.ledger.Locks.Lock(productID)
	defer s.ledger.Locks.Unlock(productID)

	existing, err := s.loadLine(userID, productID)
	if err != nil {
		return false, s.fail(span, err)
	}
	if existing == nil {
		span.SetStatus(codes.Ok, "nothing removed")
		return false, nil
	}

	removed, err := s.removeLine(ctx, existing)
	if err != nil {
		return false, s.fail(span, err)
	}
	span.SetStatus(codes.Ok, "line removed")
	return removed, nil
}

// ListForUser returns the user's cart joined with current product data.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]ItemView, error) {
	_, span := s.tracer.Start(ctx, "cart_list")
	defer span.End()
	span.SetAttributes(attribute.Int64("cart.user_id", userID))

	lines, err := s.store.GetCartLinesForUser(userID)
	if err != nil {
		return nil, s.fail(span, &domain.PersistenceError{Op: "list cart lines", Err: err})
	}

	items := make([]ItemView, 0, len(lines))
	for _, line := range lines {
		item := ItemView{
			UserID:    line.UserID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		}
		product, err := s.store.GetProduct(line.ProductID)
		switch {
		case err == nil:
			item.ProductName = product.Name
			item.Price = product.Price
		case errors.Is(err, store.ErrNotFound):
			// Product deleted from the catalog; keep the line with
			// zeroed product fields.
		default:
			return nil, s.fail(span, &domain.PersistenceError{Op: "load product", Err: err})
		}
		items = append(items, item)
	}

	span.SetStatus(codes.Ok, "")
	return items, nil
}

// removeLine releases the line's full reservation and deletes it. Caller
// holds the product lock. A missing product is tolerated: the line is
// still deleted, there is just no reservation left to release.
func (s *Service) removeLine(ctx context.Context, line *domain.CartLine) (bool, error) {
	reserved, err := s.ledger.Reserve(line.ProductID, -line.Quantity)
	productGone := errors.Is(err, domain.ErrProductNotFound)
	if err != nil && !productGone {
		return false, err
	}

	if err := s.store.DeleteCartLine(line.UserID, line.ProductID); err != nil {
		if !productGone {
			s.compensate(line.ProductID, line.Quantity)
		}
		return false, &domain.PersistenceError{Op: "delete cart line", Err: err}
	}

	if !productGone {
		s.publishChange(ctx, line.UserID, line.ProductID, -line.Quantity, reserved)
	}
	return true, nil
}

func (s *Service) loadLine(userID, productID int64) (*domain.CartLine, error) {
	line, err := s.store.GetCartLine(userID, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, &domain.PersistenceError{Op: "load cart line", Err: err}
	}
	return line, nil
}

// compensate rolls a ledger delta back after the paired cart-line write
// failed, keeping reservedQuantity equal to the sum of live lines.
func (s *Service) compensate(productID int64, delta int) {
	if delta == 0 {
		return
	}
	if _, err := s.ledger.Reserve(productID, delta); err != nil {
		s.logger.Error("failed to roll back reservation after write failure",
			zap.Error(err),
			zap.Int64("product_id", productID),
			zap.Int("delta", delta),
		)
	}
}

func (s *Service) publishChange(ctx context.Context, userID, productID int64, delta, reserved int) {
	if delta == 0 {
		return
	}
	s.publisher.ReservationChanged(ctx, domain.ReservationChangedEvent{
		UserID:        userID,
		ProductID:     productID,
		QuantityDelta: delta,
		Reserved:      reserved,
		OccurredAt:    time.Now(),
	})
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
