package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/card-ledger/card_ledger/internal/purchase"
)

// RegisterPurchaseRoutes wires purchase endpoints.
func RegisterPurchaseRoutes(r fiber.Router, h *purchase.Handler) {
	r.Get("/purchases", h.List)
	r.Get("/purchases/:id", h.Get)
	r.Post("/purchases", h.Create)
}
