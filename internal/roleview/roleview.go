// Package roleview renders one shared order snapshot for a specific actor
// role: which fields are visible and which next transition, if any, the
// surface may offer. It layers over the snapshot only; the legality of a
// transition stays with the upstream order service.
package roleview

import (
	"time"

	"dinesync/internal/model"
	"dinesync/internal/projection"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleWaiter   Role = "waiter"
	RoleChef     Role = "chef"
	RoleCashier  Role = "cashier"
)

func ParseRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleCustomer, RoleWaiter, RoleChef, RoleCashier:
		return Role(value), true
	}
	return "", false
}

// Action is one status transition a surface may offer for an order. It is a
// request affordance, not a grant: the order service still decides.
type Action struct {
	Label  string       `json:"label"`
	Target model.Status `json:"target"`
}

// OfferedActions returns the transitions the role's surface shows for an
// order in the given status. Customer and cashier surfaces are read-only.
func OfferedActions(role Role, status model.Status) []Action {
	switch role {
	case RoleWaiter, RoleChef:
	default:
		return nil
	}

	switch status {
	case model.StatusPending:
		return []Action{
			{Label: "Start preparing", Target: model.StatusPreparing},
			{Label: "Cancel order", Target: model.StatusCancelled},
		}
	case model.StatusPreparing:
		return []Action{
			{Label: "Mark ready", Target: model.StatusReady},
		}
	case model.StatusReady:
		return []Action{
			{Label: "Complete", Target: model.StatusCompleted},
		}
	}
	return nil
}

// MayRequest reports whether the role's surface offers the given transition
// from the given status.
func MayRequest(role Role, from, to model.Status) bool {
	for _, a := range OfferedActions(role, from) {
		if a.Target == to {
			return true
		}
	}
	return false
}

// OrderView is the role-filtered rendering of one snapshot. Optional blocks
// are nil for roles that must not see them.
type OrderView struct {
	ID           string                  `json:"id"`
	RestaurantID string                  `json:"restaurantId"`
	Status       model.Status            `json:"status"`
	Presentation projection.Presentation `json:"presentation"`
	ServiceMode  model.ServiceMode       `json:"serviceMode"`

	DineIn   *model.DineInDetails   `json:"dineIn,omitempty"`
	Pickup   *model.PickupDetails   `json:"pickup,omitempty"`
	Delivery *model.DeliveryDetails `json:"delivery,omitempty"`

	Items []model.LineItem `json:"items,omitempty"`

	SpecialInstructions *string `json:"specialInstructions,omitempty"`

	Totals *Totals `json:"totals,omitempty"`

	Estimate *projection.Estimate `json:"estimate,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	CookingStartedAt *time.Time `json:"cookingStartedAt,omitempty"`
	EstimatedMinutes *int       `json:"estimatedMinutes,omitempty"`

	Payment *PaymentView `json:"payment,omitempty"`

	Actions []Action `json:"actions,omitempty"`
}

type Totals struct {
	Subtotal    float64 `json:"subtotal"`
	Tax         float64 `json:"tax"`
	DeliveryFee float64 `json:"deliveryFee"`
	Total       float64 `json:"total"`
}

type PaymentView struct {
	Method       model.PaymentMethod `json:"method,omitempty"`
	SlipUploaded bool                `json:"slipUploaded"`
	CancelReason *string             `json:"cancelReason,omitempty"`
}

// View renders one snapshot for a role at a given instant. The instant feeds
// the wait estimate on customer-facing views; staff boards show the raw
// kitchen timing fields instead.
func View(o *model.OrderSnapshot, role Role, now time.Time) OrderView {
	v := OrderView{
		ID:           o.ID,
		RestaurantID: o.RestaurantID,
		Status:       o.Status,
		Presentation: projection.ProjectStatus(o),
		ServiceMode:  o.ServiceMode,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
		CompletedAt:  o.CompletedAt,
	}

	switch o.ServiceMode {
	case model.ServiceDineIn:
		v.DineIn = o.DineIn
	case model.ServicePickup:
		v.Pickup = o.Pickup
	case model.ServiceDelivery:
		v.Delivery = o.Delivery
	}

	switch role {
	case RoleCustomer:
		v.Items = o.Items
		v.SpecialInstructions = o.SpecialInstructions
		v.Totals = totalsOf(o)
		if !o.Status.Terminal() {
			est := projection.EstimateWait(o, now)
			v.Estimate = &est
		}
		v.Payment = paymentOf(o)

	case RoleWaiter:
		v.Items = o.Items
		v.SpecialInstructions = o.SpecialInstructions
		v.Totals = totalsOf(o)
		v.CookingStartedAt = o.CookingStartedAt
		v.EstimatedMinutes = o.EstimatedMinutes
		v.Payment = paymentOf(o)
		v.Actions = OfferedActions(role, o.Status)

	case RoleChef:
		// Kitchen display: items, notes and timing only, no money.
		v.Items = o.Items
		v.SpecialInstructions = o.SpecialInstructions
		v.CookingStartedAt = o.CookingStartedAt
		v.EstimatedMinutes = o.EstimatedMinutes
		v.Actions = OfferedActions(role, o.Status)

	case RoleCashier:
		// Read-only financial rollup.
		v.Totals = totalsOf(o)
		v.Payment = paymentOf(o)
	}

	return v
}

// ViewList renders a board list for a role.
func ViewList(orders []model.OrderSnapshot, role Role, now time.Time) []OrderView {
	views := make([]OrderView, 0, len(orders))
	for i := range orders {
		views = append(views, View(&orders[i], role, now))
	}
	return views
}

func totalsOf(o *model.OrderSnapshot) *Totals {
	return &Totals{
		Subtotal:    o.Subtotal,
		Tax:         o.Tax,
		DeliveryFee: o.DeliveryFee,
		Total:       o.Total,
	}
}

func paymentOf(o *model.OrderSnapshot) *PaymentView {
	if o.PaymentMethod == "" && o.PaymentSlipURL == nil && o.CancelReason == nil {
		return nil
	}
	return &PaymentView{
		Method:       o.PaymentMethod,
		SlipUploaded: o.PaymentSlipURL != nil && *o.PaymentSlipURL != "",
		CancelReason: o.CancelReason,
	}
}
