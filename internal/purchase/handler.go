package purchase

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/card-ledger/card_ledger/internal/apperr"
	"github.com/card-ledger/card_ledger/internal/domain"
	"github.com/card-ledger/card_ledger/internal/transaction"
)

// Handler exposes purchase HTTP endpoints.
type Handler struct {
	scheduler *Scheduler
}

// NewHandler builds a purchase HTTP handler.
func NewHandler(scheduler *Scheduler) *Handler {
	return &Handler{scheduler: scheduler}
}

type createRequest struct {
	GlobalID    string `json:"globalId"`
	ShopID      string `json:"shopId"`
	Currency    string `json:"currency"`
	CardID      string `json:"cardId"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

type response struct {
	ID            int64                  `json:"id"`
	GlobalID      string                 `json:"globalId"`
	ShopID        string                 `json:"shopId"`
	Amount        string                 `json:"amount"`
	CurrencyID    int64                  `json:"currencyId"`
	CardID        int64                  `json:"cardId"`
	Description   string                 `json:"description,omitempty"`
	LastUpdated   time.Time              `json:"lastUpdated"`
	LastUpdatedBy string                 `json:"lastUpdatedBy"`
	Transactions  []transaction.Response `json:"transactions"`
}

func toResponse(p domain.Purchase) response {
	return response{
		ID:            p.ID,
		GlobalID:      p.GlobalID,
		ShopID:        p.ShopID,
		Amount:        p.Amount.String(),
		CurrencyID:    p.CurrencyID,
		CardID:        p.CardID,
		Description:   p.Description,
		LastUpdated:   p.LastUpdated,
		LastUpdatedBy: p.LastUpdatedBy,
		Transactions:  transaction.ToResponses(p.Transactions),
	}
}

func toResponses(list []domain.Purchase) []response {
	out := make([]response, 0, len(list))
	for _, p := range list {
		out = append(out, toResponse(p))
	}
	return out
}

// Create records a purchase and its installments.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.New(apperr.KindValidation, err.Error())
	}
	p, err := h.scheduler.Create(c.UserContext(), CreateInput{
		GlobalID:    req.GlobalID,
		ShopID:      req.ShopID,
		Currency:    req.Currency,
		CardID:      req.CardID,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(toResponse(p))
}

// Get returns the :id purchase.
func (h *Handler) Get(c *fiber.Ctx) error {
	p, err := h.scheduler.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(toResponse(p))
}

// List returns every purchase.
func (h *Handler) List(c *fiber.Ctx) error {
	list, err := h.scheduler.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(toResponses(list))
}

// ListForCard returns the purchases of the :id card.
func (h *Handler) ListForCard(c *fiber.Ctx) error {
	list, err := h.scheduler.ListForCard(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(toResponses(list))
}
