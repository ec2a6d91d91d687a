package model

import (
	"encoding/json"
	"fmt"
)

// Order event types
const (
	EventOrderCreated = "order.created"
	EventOrderUpdated = "order.updated"
	EventOrderDeleted = "order.deleted"
)

type Order struct {
	Base
	Customer   string      `json:"customer" db:"customer"`
	Amount     int64       `json:"amount" db:"amount"`
	Price      string      `json:"price" db:"price"`
	Notes      string      `json:"notes" db:"notes"`
	Deleted    bool        `json:"deleted" db:"deleted"`
	NumberYear int         `json:"-" db:"number_year"`
	NumberSeq  int         `json:"-" db:"number_seq"`
	UserID     int64       `json:"-" db:"user_id"`
	User       UserSummary `json:"user" db:"user"`
}

// Number is the human facing order number, "sequence/year".
func (o Order) Number() string {
	if o.NumberYear == 0 {
		return ""
	}
	return fmt.Sprintf("%d/%d", o.NumberSeq, o.NumberYear)
}

func (o Order) MarshalJSON() ([]byte, error) {
	type alias Order
	return json.Marshal(struct {
		alias
		Number string `json:"number"`
	}{alias(o), o.Number()})
}

// OrderInput is the write schema for orders. Nil fields were not sent.
type OrderInput struct {
	Customer *string `json:"customer" validate:"required,notblank,max=255"`
	Amount   *int64  `json:"amount" validate:"required,gte=0,lte=2147483647"`
	Price    *string `json:"price" validate:"required,decimal=10:2"`
	Notes    *string `json:"notes" validate:"required,notblank"`
	Deleted  *bool   `json:"deleted"`
	UserID   *int64  `json:"user_id" validate:"omitempty,gt=0"`
}

// IsEmpty reports whether no field was sent.
func (in OrderInput) IsEmpty() bool {
	return in.Customer == nil && in.Amount == nil && in.Price == nil &&
		in.Notes == nil && in.Deleted == nil && in.UserID == nil
}

// NewOrder builds an order from a fully validated input.
func (in OrderInput) NewOrder() *Order {
	o := &Order{UserID: DefaultUserID}
	in.Apply(o)
	return o
}

// Apply copies every sent field onto o.
func (in OrderInput) Apply(o *Order) {
	if in.Customer != nil {
		o.Customer = *in.Customer
	}
	if in.Amount != nil {
		o.Amount = *in.Amount
	}
	if in.Price != nil {
		o.Price = *in.Price
	}
	if in.Notes != nil {
		o.Notes = *in.Notes
	}
	if in.Deleted != nil {
		o.Deleted = *in.Deleted
	}
	if in.UserID != nil {
		o.UserID = *in.UserID
	}
}

// RestoresOnly reports whether the input does nothing but clear the deleted flag.
func (in OrderInput) RestoresOnly() bool {
	return in.Deleted != nil && !*in.Deleted &&
		in.Customer == nil && in.Amount == nil && in.Price == nil &&
		in.Notes == nil && in.UserID == nil
}
