package pi

import (
	"encoding/json"
	"errors"
	"strings"
)

// PaymentStatus mirrors the provider's status flags.
type PaymentStatus struct {
	DeveloperApproved   bool `json:"developer_approved"`
	TransactionVerified bool `json:"transaction_verified"`
	DeveloperCompleted  bool `json:"developer_completed"`
	Cancelled           bool `json:"cancelled"`
	UserCancelled       bool `json:"user_cancelled"`
}

type Transaction struct {
	TxID     string `json:"txid"`
	Verified bool   `json:"verified"`
	Link     string `json:"_link"`
}

// Payment is the provider's payment record.
type Payment struct {
	Identifier  string          `json:"identifier"`
	UserUID     string          `json:"user_uid"`
	Amount      float64         `json:"amount"`
	Memo        string          `json:"memo"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	FromAddress string          `json:"from_address,omitempty"`
	ToAddress   string          `json:"to_address,omitempty"`
	Direction   string          `json:"direction,omitempty"`
	Network     string          `json:"network,omitempty"`
	CreatedAt   string          `json:"created_at,omitempty"`
	Status      PaymentStatus   `json:"status"`
	Transaction *Transaction    `json:"transaction"`
}

// DecodePayment parses a provider payment body. Some call sites wrap the
// record as {"payment": {...}}; both shapes are accepted.
func DecodePayment(body []byte) (Payment, error) {
	var wrapped struct {
		Payment *Payment `json:"payment"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Payment != nil && wrapped.Payment.Identifier != "" {
		return *wrapped.Payment, nil
	}

	var payment Payment
	if err := json.Unmarshal(body, &payment); err != nil {
		return Payment{}, err
	}
	if strings.TrimSpace(payment.Identifier) == "" {
		return Payment{}, errors.New("payment identifier missing")
	}
	return payment, nil
}

// TxID returns the blockchain transaction id, if any.
func (p Payment) TxID() string {
	if p.Transaction == nil {
		return ""
	}
	return p.Transaction.TxID
}
