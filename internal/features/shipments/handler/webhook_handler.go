package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"shipsync/internal/core/logger"
	"shipsync/internal/features/shipments/ports"
	"shipsync/internal/features/shipments/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// WebhookHandler ingests provider push payloads. It is deliberately thin:
// auth, identifier resolution, one reconciliation pass, conditional
// persist. Delivery retries are the provider's job, so the handler must
// answer quickly and treat no-ops as success.
type WebhookHandler struct {
	store      ports.OrderStore
	reconciler *service.Reconciler
	notifier   ports.TransitionNotifier
	token      string
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(store ports.OrderStore, reconciler *service.Reconciler, notifier ports.TransitionNotifier, token string) *WebhookHandler {
	return &WebhookHandler{
		store:      store,
		reconciler: reconciler,
		notifier:   notifier,
		token:      token,
	}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

// HandleTracking godoc
// @Summary Ingest a provider tracking push
// @Description Accepts a shipment tracking webhook, reconciles it into the stored shipment state and returns 200 even when the payload is a no-op.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param x-api-key header string true "Shared webhook secret"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /webhooks/tracking [post]
func (h *WebhookHandler) HandleTracking(c *fiber.Ctx) error {
	rayID, _ := c.Locals("requestid").(string)

	if subtle.ConstantTimeCompare([]byte(c.Get("x-api-key")), []byte(h.token)) != 1 {
		return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
			Message: "invalid webhook token",
			RayID:   rayID,
		})
	}

	payload, err := service.ParsePayload(c.Body())
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   rayID,
		})
	}

	ids := payload.Identifiers()
	if len(ids) == 0 {
		// Nothing to key the record by. Accepted, nothing to do.
		return c.JSON(fiber.Map{"message": "accepted"})
	}

	ctx := c.Context()
	rec := h.resolveOrCreate(ctx, ids)

	res := h.reconciler.Reconcile(rec.OrderKey, rec.State, payload, time.Now().UTC())
	if res.Changed {
		if err := h.persist(ctx, rec, payload, res); err != nil {
			logger.Get().Error("Failed to persist webhook reconciliation",
				zap.String("order_key", rec.OrderKey),
				zap.String("ray_id", rayID),
				zap.Error(err),
			)
			return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
				Message: "failed to persist shipment state",
				RayID:   rayID,
			})
		}
	}

	return c.JSON(fiber.Map{"message": "accepted"})
}

// resolveOrCreate finds the record behind any of the payload identifiers,
// or returns an empty record keyed by the most specific identifier so the
// shipment is created implicitly on first contact.
func (h *WebhookHandler) resolveOrCreate(ctx context.Context, ids []string) *ports.Record {
	for _, id := range ids {
		rec, err := h.store.FindByIdentifier(ctx, id)
		if err == nil {
			return rec
		}
		if !errors.Is(err, ports.ErrNotFound) {
			logger.Get().Warn("Identifier lookup failed",
				zap.String("identifier", id),
				zap.Error(err),
			)
		}
	}
	return &ports.Record{OrderKey: ids[0], Version: 0}
}

// persist applies the reconciliation result with one conflict retry: on a
// version conflict the fresh row is re-read and the payload reconciled
// again, so the losing writer folds its observation into the winner's.
func (h *WebhookHandler) persist(ctx context.Context, rec *ports.Record, payload *service.TrackingPayload, res service.Result) error {
	err := h.store.CompareAndSwap(ctx, rec.OrderKey, rec.Version, res.State)
	if errors.Is(err, ports.ErrVersionConflict) {
		fresh, getErr := h.store.Get(ctx, rec.OrderKey)
		if getErr != nil {
			return getErr
		}
		res = h.reconciler.Reconcile(fresh.OrderKey, fresh.State, payload, time.Now().UTC())
		if !res.Changed {
			return nil
		}
		err = h.store.CompareAndSwap(ctx, fresh.OrderKey, fresh.Version, res.State)
	}
	if err != nil {
		return err
	}

	if res.StatusChanged && h.notifier != nil {
		// Fire-and-forget; webhook responses never wait on notification fan-out.
		go h.notifier.StatusChanged(context.WithoutCancel(ctx), rec.OrderKey, res.From, res.To)
	}
	return nil
}

// GetShipment godoc
// @Summary Read the reconciled shipment state for an order
// @Description Resolves a provider order id, AWB or shipment id to its stored shipment state.
// @Tags shipments
// @Produce json
// @Param id path string true "Order id, AWB or shipment id"
// @Success 200 {object} ports.Record
// @Failure 404 {object} ErrorResponse
// @Router /shipments/{id} [get]
func (h *WebhookHandler) GetShipment(c *fiber.Ctx) error {
	rayID, _ := c.Locals("requestid").(string)

	rec, err := h.store.FindByIdentifier(c.Context(), c.Params("id"))
	if errors.Is(err, ports.ErrNotFound) {
		return c.Status(http.StatusNotFound).JSON(ErrorResponse{
			Message: "shipment not found",
			RayID:   rayID,
		})
	}
	if err != nil {
		logger.Get().Error("Failed to load shipment", zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Message: "internal server error",
			RayID:   rayID,
		})
	}

	return c.JSON(rec)
}

// Health godoc
// @Summary Store connectivity check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /healthz [get]
func (h *WebhookHandler) Health(c *fiber.Ctx) error {
	if err := h.store.Ping(c.Context()); err != nil {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
