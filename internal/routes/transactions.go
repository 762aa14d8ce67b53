package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/card-ledger/card_ledger/internal/transaction"
)

// RegisterTransactionRoutes wires transaction endpoints.
func RegisterTransactionRoutes(r fiber.Router, h *transaction.Handler) {
	r.Post("/transactions", h.Create)
}
