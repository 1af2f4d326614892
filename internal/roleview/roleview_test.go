package roleview

import (
	"testing"
	"time"

	"dinesync/internal/model"
)

func strPtr(s string) *string { return &s }

func TestOfferedActionsMatrix(t *testing.T) {
	cases := []struct {
		name    string
		role    Role
		status  model.Status
		targets []model.Status
	}{
		{"waiter on pending", RoleWaiter, model.StatusPending, []model.Status{model.StatusPreparing, model.StatusCancelled}},
		{"chef on pending", RoleChef, model.StatusPending, []model.Status{model.StatusPreparing, model.StatusCancelled}},
		{"waiter on preparing", RoleWaiter, model.StatusPreparing, []model.Status{model.StatusReady}},
		{"waiter on ready", RoleWaiter, model.StatusReady, []model.Status{model.StatusCompleted}},
		{"waiter on completed", RoleWaiter, model.StatusCompleted, nil},
		{"waiter on cancelled", RoleWaiter, model.StatusCancelled, nil},
		{"waiter on pending_payment", RoleWaiter, model.StatusPendingPayment, nil},
		{"cashier never mutates", RoleCashier, model.StatusPending, nil},
		{"customer never mutates", RoleCustomer, model.StatusPending, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			actions := OfferedActions(tc.role, tc.status)
			if len(actions) != len(tc.targets) {
				t.Fatalf("expected %d actions, got %d (%+v)", len(tc.targets), len(actions), actions)
			}
			for i, target := range tc.targets {
				if actions[i].Target != target {
					t.Fatalf("action %d: expected target %q, got %q", i, target, actions[i].Target)
				}
			}
		})
	}
}

func TestMayRequest(t *testing.T) {
	if !MayRequest(RoleWaiter, model.StatusPending, model.StatusPreparing) {
		t.Fatal("waiter must be offered pending → preparing")
	}
	if MayRequest(RoleWaiter, model.StatusPending, model.StatusCompleted) {
		t.Fatal("pending → completed is not an offered shortcut")
	}
	if MayRequest(RoleCashier, model.StatusReady, model.StatusCompleted) {
		t.Fatal("cashier surface is read-only")
	}
}

func TestViewRejectedPaymentOffersNoActions(t *testing.T) {
	order := model.OrderSnapshot{
		ID:           "ord-1",
		RestaurantID: "rest-1",
		Status:       model.StatusCancelled,
		CancelReason: strPtr(model.CancelReasonPaymentRejected),
	}

	v := View(&order, RoleWaiter, time.Now())
	if len(v.Actions) != 0 {
		t.Fatalf("cancelled order must offer no actions, got %+v", v.Actions)
	}
	if v.Presentation.Label != "Payment Rejected" {
		t.Fatalf("expected rejection-specific label, got %q", v.Presentation.Label)
	}
}

func TestViewFieldScoping(t *testing.T) {
	note := "extra spicy"
	order := model.OrderSnapshot{
		ID:           "ord-2",
		RestaurantID: "rest-1",
		Status:       model.StatusPreparing,
		ServiceMode:  model.ServiceDineIn,
		DineIn:       &model.DineInDetails{TableNumber: "12"},
		Items: []model.LineItem{
			{MenuItemID: "m-1", Name: "Pad Thai", Quantity: 2, LineTotal: 25.8},
		},
		SpecialInstructions: &note,
		Subtotal:            25.8,
		Tax:                 3.87,
		Total:               29.67,
		PaymentMethod:       model.PaymentCash,
	}

	now := time.Now()

	chef := View(&order, RoleChef, now)
	if chef.Totals != nil {
		t.Fatal("kitchen display must not see money")
	}
	if len(chef.Items) != 1 || chef.SpecialInstructions == nil {
		t.Fatal("kitchen display needs items and notes")
	}

	cashier := View(&order, RoleCashier, now)
	if cashier.Totals == nil || cashier.Totals.Total != 29.67 {
		t.Fatalf("cashier needs the financial rollup, got %+v", cashier.Totals)
	}
	if len(cashier.Items) != 0 {
		t.Fatal("cashier summary does not list line items")
	}
	if len(cashier.Actions) != 0 {
		t.Fatal("cashier surface is read-only")
	}

	customer := View(&order, RoleCustomer, now)
	if customer.Estimate == nil {
		t.Fatal("customer view of a live order carries a wait estimate")
	}
	if len(customer.Actions) != 0 {
		t.Fatal("customer surface is read-only")
	}
	if customer.DineIn == nil || customer.DineIn.TableNumber != "12" {
		t.Fatal("dine-in details must survive for the selected service mode")
	}
}

func TestViewTerminalOrderDropsEstimate(t *testing.T) {
	order := model.OrderSnapshot{ID: "ord-3", Status: model.StatusCompleted}
	v := View(&order, RoleCustomer, time.Now())
	if v.Estimate != nil {
		t.Fatal("terminal orders do not show a wait estimate")
	}
}

func TestViewSelectsExactlyOneServiceShape(t *testing.T) {
	order := model.OrderSnapshot{
		ID:          "ord-4",
		Status:      model.StatusPending,
		ServiceMode: model.ServiceDelivery,
		// Upstream glitch: more than one shape populated.
		DineIn:   &model.DineInDetails{TableNumber: "4"},
		Delivery: &model.DeliveryDetails{CustomerName: "Ann", CustomerPhone: "021", Address: "1 Quay St"},
	}

	v := View(&order, RoleCustomer, time.Now())
	if v.DineIn != nil || v.Pickup != nil {
		t.Fatal("only the shape selected by service mode may render")
	}
	if v.Delivery == nil {
		t.Fatal("delivery shape expected")
	}
}

func TestParseRole(t *testing.T) {
	if _, ok := ParseRole("waiter"); !ok {
		t.Fatal("waiter is a valid role")
	}
	if _, ok := ParseRole("admin"); ok {
		t.Fatal("admin is not a board role")
	}
}
