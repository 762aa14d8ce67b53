package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/card-ledger/card_ledger/internal/card"
	"github.com/card-ledger/card_ledger/internal/purchase"
	"github.com/card-ledger/card_ledger/internal/transaction"
)

// RegisterCardRoutes wires card endpoints and the per-card listings.
func RegisterCardRoutes(r fiber.Router, h *card.Handler, txs *transaction.Handler, purchases *purchase.Handler) {
	r.Get("/cards", h.List)
	r.Post("/cards", h.Create)
	r.Get("/cards/user", h.ByOwner)
	r.Get("/cards/:id", h.Get)
	r.Get("/cards/:id/transactions", txs.ListForCard)
	r.Get("/cards/:id/purchases", purchases.ListForCard)
}
