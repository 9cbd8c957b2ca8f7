package entity

// PurchaseRequest is the body of POST /purchase. It lives only for the
// duration of the request and is never stored.
type PurchaseRequest struct {
	GigID              string `json:"gigId"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	NameOnCard         string `json:"nameOnCard"`
	CardNumber         string `json:"cardNumber"`
	CardExpiryMonth    string `json:"cardExpiryMonth"`
	CardExpiryYear     string `json:"cardExpiryYear"`
	CardCVC            string `json:"cardCVC"`
	DisclaimerAccepted bool   `json:"disclaimerAccepted"`
}

// Record drops the payment details and attaches the issued ticket.
func (r PurchaseRequest) Record(ticketID string) PurchaseRecord {
	return PurchaseRecord{
		Name:     r.Name,
		Email:    r.Email,
		GigID:    r.GigID,
		TicketID: ticketID,
	}
}

// PurchaseRecord is the queued work item consumed by the ticket e-mail worker.
type PurchaseRecord struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	GigID    string `json:"gigId"`
	TicketID string `json:"ticketId"`
}
