package transaction

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/card-ledger/card_ledger/internal/apperr"
	"github.com/card-ledger/card_ledger/internal/domain"
)

// Handler exposes transaction HTTP endpoints.
type Handler struct {
	factory *Factory
}

// NewHandler builds a transaction HTTP handler.
func NewHandler(factory *Factory) *Handler {
	return &Handler{factory: factory}
}

type createRequest struct {
	GlobalID          string `json:"globalId"`
	Currency          string `json:"currency"`
	CardID            string `json:"cardId"`
	TransactionTypeID string `json:"transactionTypeId"`
	Amount            string `json:"amount"`
	Description       string `json:"description"`
}

// Response is the wire form of a transaction.
type Response struct {
	ID                int64     `json:"id"`
	GlobalID          string    `json:"globalId"`
	TransactionTypeID string    `json:"transactionTypeId"`
	Amount            string    `json:"amount"`
	CurrencyID        int64     `json:"currencyId"`
	CardID            int64     `json:"cardId"`
	PurchaseID        *int64    `json:"purchaseId,omitempty"`
	Submitted         bool      `json:"submitted"`
	DueDate           time.Time `json:"dueDate"`
	Description       string    `json:"description,omitempty"`
	LastUpdated       time.Time `json:"lastUpdated"`
	LastUpdatedBy     string    `json:"lastUpdatedBy"`
}

// ToResponse renders a transaction for the API.
func ToResponse(t domain.Transaction) Response {
	return Response{
		ID:                t.ID,
		GlobalID:          t.GlobalID,
		TransactionTypeID: t.TypeID,
		Amount:            t.Amount.String(),
		CurrencyID:        t.CurrencyID,
		CardID:            t.CardID,
		PurchaseID:        t.PurchaseID,
		Submitted:         t.Submitted,
		DueDate:           t.DueDate,
		Description:       t.Description,
		LastUpdated:       t.LastUpdated,
		LastUpdatedBy:     t.LastUpdatedBy,
	}
}

// ToResponses renders a list of transactions.
func ToResponses(txs []domain.Transaction) []Response {
	out := make([]Response, 0, len(txs))
	for _, t := range txs {
		out = append(out, ToResponse(t))
	}
	return out
}

// Create records a standalone transaction.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.New(apperr.KindValidation, err.Error())
	}
	tx, err := h.factory.Create(c.UserContext(), CreateInput{
		GlobalID:    req.GlobalID,
		Currency:    req.Currency,
		CardID:      req.CardID,
		TypeID:      req.TransactionTypeID,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(ToResponse(tx))
}

// ListForCard returns the transactions of the :id card.
func (h *Handler) ListForCard(c *fiber.Ctx) error {
	txs, err := h.factory.ListForCard(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(ToResponses(txs))
}
