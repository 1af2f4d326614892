package model

import "time"

// Status is the order lifecycle status as reported by the upstream order
// service. The set below is closed under normal operation, but values outside
// it are kept verbatim so a snapshot never fails to decode.
type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusReady          Status = "ready"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
)

// Known reports whether s is one of the recognized lifecycle statuses.
func (s Status) Known() bool {
	switch s {
	case StatusPendingPayment, StatusPending, StatusConfirmed,
		StatusPreparing, StatusReady, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is expected from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ActiveStatuses is the board-facing subset: every status still moving
// through the kitchen.
var ActiveStatuses = []Status{
	StatusPendingPayment,
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusReady,
}

type ServiceMode string

const (
	ServiceDineIn   ServiceMode = "dine_in"
	ServicePickup   ServiceMode = "pickup"
	ServiceDelivery ServiceMode = "delivery"
)

type PaymentMethod string

const (
	PaymentCard         PaymentMethod = "card"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCash         PaymentMethod = "cash"
)

// CancelReasonPaymentRejected marks a cancellation caused by a failed payment
// verification, rendered differently from an ordinary cancellation.
const CancelReasonPaymentRejected = "payment_rejected"

type LineItem struct {
	MenuItemID string   `json:"menuItemId"`
	Name       string   `json:"name"`
	Quantity   int32    `json:"quantity"`
	Variant    *string  `json:"variant,omitempty"`
	Extras     []string `json:"extras,omitempty"`
	Note       *string  `json:"note,omitempty"`
	LineTotal  float64  `json:"lineTotal"`
}

// DineInDetails, PickupDetails and DeliveryDetails are the three service-mode
// shapes. Exactly one of them is meaningful on a snapshot, selected by
// ServiceMode.

type DineInDetails struct {
	TableNumber string `json:"tableNumber"`
}

type PickupDetails struct {
	CustomerName  string  `json:"customerName"`
	CustomerPhone string  `json:"customerPhone"`
	PickupTime    *string `json:"pickupTime,omitempty"`
}

type DeliveryDetails struct {
	CustomerName  string `json:"customerName"`
	CustomerPhone string `json:"customerPhone"`
	Address       string `json:"address"`
}

// OrderSnapshot is a complete point-in-time copy of one order as observed by
// any client surface. It carries no behavior: reconciliation replaces it
// wholesale, projections read it.
type OrderSnapshot struct {
	ID           string      `json:"id"`
	RestaurantID string      `json:"restaurantId"`
	Status       Status      `json:"status"`
	ServiceMode  ServiceMode `json:"serviceMode"`

	DineIn   *DineInDetails   `json:"dineIn,omitempty"`
	Pickup   *PickupDetails   `json:"pickup,omitempty"`
	Delivery *DeliveryDetails `json:"delivery,omitempty"`

	Items []LineItem `json:"items"`

	// Totals are recomputed upstream and treated as opaque here.
	Subtotal    float64 `json:"subtotal"`
	Tax         float64 `json:"tax"`
	DeliveryFee float64 `json:"deliveryFee"`
	Total       float64 `json:"total"`

	SpecialInstructions *string `json:"specialInstructions,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	// Kitchen timing metadata. When both are set they take precedence over
	// the static per-status wait bands.
	CookingStartedAt *time.Time `json:"cookingStartedAt,omitempty"`
	EstimatedMinutes *int       `json:"estimatedMinutes,omitempty"`

	PaymentMethod  PaymentMethod `json:"paymentMethod,omitempty"`
	PaymentSlipURL *string       `json:"paymentSlipUrl,omitempty"`
	CancelReason   *string       `json:"cancelReason,omitempty"`
}

// AwaitingVerification reports whether the order sits in pending_payment with
// an offline payment method and uploaded evidence, i.e. the customer already
// paid and the restaurant has not verified the slip yet.
func (o *OrderSnapshot) AwaitingVerification() bool {
	return o.Status == StatusPendingPayment &&
		o.PaymentMethod == PaymentBankTransfer &&
		o.PaymentSlipURL != nil && *o.PaymentSlipURL != ""
}

// PaymentRejected reports whether the order was cancelled because its payment
// could not be verified.
func (o *OrderSnapshot) PaymentRejected() bool {
	return o.Status == StatusCancelled &&
		o.CancelReason != nil && *o.CancelReason == CancelReasonPaymentRejected
}

// KitchenEstimate returns the kitchen timing pair when both halves are
// present.
func (o *OrderSnapshot) KitchenEstimate() (start time.Time, minutes int, ok bool) {
	if o.CookingStartedAt == nil || o.EstimatedMinutes == nil || *o.EstimatedMinutes <= 0 {
		return time.Time{}, 0, false
	}
	return *o.CookingStartedAt, *o.EstimatedMinutes, true
}
