package model

// Transaction is a single transfer record carried by a block. Nothing about the
// sender, the receiver or the amount is validated.
type Transaction struct {
	// Who sends the value.
	Sender string `json:"sender"`
	// Who receives the value.
	Receiver string `json:"receiver"`
	// How much value is moved.
	Amount uint64 `json:"amount"`
}
