package orderhandler

type ProcessPaymentBody struct {
	OrderID       string `json:"orderId"       binding:"required"`
	PaymentMethod string `json:"paymentMethod" binding:"required,oneof=CreditCard DebitCard"`
	CardNumber    string `json:"cardNumber"    binding:"required"`
}
