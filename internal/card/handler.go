package card

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/card-ledger/card_ledger/internal/apperr"
	"github.com/card-ledger/card_ledger/internal/domain"
)

// Handler exposes card HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a card HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	UserID   string `json:"userId"`
	Currency string `json:"currency"`
}

// CurrencyResponse is the wire form of a currency.
type CurrencyResponse struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	LastUpdatedBy string `json:"lastUpdatedBy"`
}

// Response is the wire form of a card.
type Response struct {
	ID            int64            `json:"id"`
	OwnerID       string           `json:"ownerId"`
	Currency      CurrencyResponse `json:"currency"`
	Balance       string           `json:"balance"`
	LastUpdated   time.Time        `json:"lastUpdated"`
	LastUpdatedBy string           `json:"lastUpdatedBy"`
}

// ToResponse renders a card for the API.
func ToResponse(c domain.Card) Response {
	return Response{
		ID:      c.ID,
		OwnerID: c.OwnerID,
		Currency: CurrencyResponse{
			ID:            c.Currency.ID,
			Name:          c.Currency.Name,
			LastUpdatedBy: c.Currency.LastUpdatedBy,
		},
		Balance:       c.Balance.String(),
		LastUpdated:   c.LastUpdated,
		LastUpdatedBy: c.LastUpdatedBy,
	}
}

func toResponses(cards []domain.Card) []Response {
	out := make([]Response, 0, len(cards))
	for _, c := range cards {
		out = append(out, ToResponse(c))
	}
	return out
}

// Create provisions a card.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.New(apperr.KindValidation, err.Error())
	}
	card, err := h.service.Create(c.UserContext(), CreateInput{OwnerID: req.UserID, Currency: req.Currency})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(ToResponse(card))
}

// Get returns a single card.
func (h *Handler) Get(c *fiber.Ctx) error {
	card, err := h.service.Find(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(ToResponse(card))
}

// ByOwner returns the cards of the userId query parameter.
func (h *Handler) ByOwner(c *fiber.Ctx) error {
	cards, err := h.service.FindByOwner(c.UserContext(), c.Query("userId"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(toResponses(cards))
}

// List returns every card.
func (h *Handler) List(c *fiber.Ctx) error {
	cards, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(toResponses(cards))
}
