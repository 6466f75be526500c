// Package payments is the boundary to the external payment collaborator.
// Card processing itself happens elsewhere; the engine only asks for a
// charge and records the outcome.
package payments

import (
	"context"
	"errors"
	"strings"
	"unicode"
)

// ErrDeclined is reported when the collaborator refuses the charge.
var ErrDeclined = errors.New("charge declined")

// Processor charges the buyer for an order.
type Processor interface {
	Charge(ctx context.Context, orderID string, amount float64, method, cardNumber string) error
}

// GatewayStub stands in for the real gateway in development. It accepts any
// well-formed card number and declines the rest, which is enough to exercise
// the decline path end to end.
type GatewayStub struct{}

func (GatewayStub) Charge(_ context.Context, _ string, amount float64, method, cardNumber string) error {
	if amount <= 0 {
		return ErrDeclined
	}
	if method == "" {
		return ErrDeclined
	}
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, cardNumber)
	if len(digits) < 12 || len(digits) > 19 {
		return ErrDeclined
	}
	return nil
}
