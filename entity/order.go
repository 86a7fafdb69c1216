package entity

import "github.com/shopspring/decimal"

// OrderItem is the subscription being renewed.
type OrderItem struct {
	Name            string `json:"name"`
	Cycle           string `json:"cycle"`
	NextBillingDate string `json:"nextBillingDate"`
}

// Order is a renewal the user confirmed they paid for.
type Order struct {
	Email      string           `json:"email"`
	Time       string           `json:"time"`
	Item       OrderItem        `json:"item"`
	PrevExpiry string           `json:"prevExpiry"`
	Total      *decimal.Decimal `json:"total"`
}

// ConfirmRequest represents the payment confirmation request
type ConfirmRequest struct {
	Order *Order `json:"order" validate:"required"`
}

// ConfirmResponse wraps the bot's reply
type ConfirmResponse struct {
	OK     bool        `json:"ok"`
	Result interface{} `json:"result"`
}
