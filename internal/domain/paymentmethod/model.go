package paymentmethod

import (
	"strings"
	"time"

	"github.com/flexprice/subscriptions/internal/types"
)

// Card identifies a card on file. Two cards are the same card when all
// three fields match for the same user.
type Card struct {
	CardType   string `json:"card_type" validate:"required,max=50"`
	Last4      string `json:"last4" validate:"required,len=4,numeric"`
	ExpiryDate string `json:"expiry_date" validate:"required,len=5"`
}

// Normalize trims whitespace and upper cases the card type so lookups are exact
func (c Card) Normalize() Card {
	return Card{
		CardType:   strings.ToUpper(strings.TrimSpace(c.CardType)),
		Last4:      strings.TrimSpace(c.Last4),
		ExpiryDate: strings.TrimSpace(c.ExpiryDate),
	}
}

// ExpiresBefore reports whether the card's MM/YY expiry month ends before t.
// Unparseable dates are treated as not expired.
func (c Card) ExpiresBefore(t time.Time) bool {
	exp, err := time.Parse("01/06", c.ExpiryDate)
	if err != nil {
		return false
	}
	return exp.AddDate(0, 1, 0).Before(t)
}

type PaymentMethod struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	CardType   string    `db:"card_type" json:"card_type"`
	Last4      string    `db:"last4" json:"last4"`
	ExpiryDate string    `db:"expiry_date" json:"expiry_date"`
	IsDefault  bool      `db:"is_default" json:"is_default"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// New builds a payment method for userID. IsDefault is decided by the repository.
func New(userID string, card Card) *PaymentMethod {
	card = card.Normalize()
	now := time.Now().UTC()
	return &PaymentMethod{
		ID:         types.NewID(types.IDPrefixPaymentMethod),
		UserID:     userID,
		CardType:   card.CardType,
		Last4:      card.Last4,
		ExpiryDate: card.ExpiryDate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (pm *PaymentMethod) Card() Card {
	return Card{
		CardType:   pm.CardType,
		Last4:      pm.Last4,
		ExpiryDate: pm.ExpiryDate,
	}
}

// Matches reports whether pm is the given card
func (pm *PaymentMethod) Matches(card Card) bool {
	return pm.Card() == card.Normalize()
}
