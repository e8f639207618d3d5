package models

import "time"

type Review struct {
	ID        string     `json:"id"`
	OrderID   FlexibleID `json:"orderId"`
	Rating    int        `json:"rating"`
	Comment   string     `json:"comment,omitempty"`
	Username  string     `json:"username"`
	CreatedAt time.Time  `json:"createdAt"`
}
