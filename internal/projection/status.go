package projection

import "dinesync/internal/model"

// Presentation is the display tuple for one order status: what the surfaces
// render, never what the order service decides. The mapping is total: any
// status value, recognized or not, yields a usable tuple.
type Presentation struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	ColorClass  string `json:"colorClass"`
	IconClass   string `json:"iconClass"`
}

// ProjectStatus maps a snapshot's status plus its payment side-flags to a
// presentation. Two side-flag cases override the plain status mapping:
// an offline payment with uploaded evidence renders as verification rather
// than awaiting payment, and a cancellation caused by payment rejection
// renders as a distinct error from an ordinary cancellation.
func ProjectStatus(o *model.OrderSnapshot) Presentation {
	if o.AwaitingVerification() {
		return Presentation{
			Label:       "Verifying Payment",
			Description: "Your payment slip has been submitted and is being verified by the restaurant",
			ColorClass:  "blue",
			IconClass:   "clock",
		}
	}
	if o.PaymentRejected() {
		return Presentation{
			Label:       "Payment Rejected",
			Description: "Your payment could not be verified. Please contact the restaurant or place a new order.",
			ColorClass:  "red",
			IconClass:   "x-circle",
		}
	}

	switch o.Status {
	case model.StatusPendingPayment:
		return Presentation{
			Label:       "Awaiting Payment",
			Description: "Please complete your payment to confirm the order",
			ColorClass:  "orange",
			IconClass:   "clock",
		}
	case model.StatusPending:
		return Presentation{
			Label:       "Order Sent",
			Description: "Your order has been sent to the restaurant and is waiting to be confirmed",
			ColorClass:  "blue",
			IconClass:   "check-circle",
		}
	case model.StatusConfirmed:
		return Presentation{
			Label:       "Confirmed",
			Description: "Your order has been confirmed and will be prepared soon",
			ColorClass:  "blue",
			IconClass:   "check-circle",
		}
	case model.StatusPreparing:
		return Presentation{
			Label:       "Preparing",
			Description: "The kitchen is preparing your order",
			ColorClass:  "orange",
			IconClass:   "utensils",
		}
	case model.StatusReady:
		return Presentation{
			Label:       "Ready for Pickup",
			Description: "Your order is ready! Please come to collect it",
			ColorClass:  "green",
			IconClass:   "package",
		}
	case model.StatusCompleted:
		return Presentation{
			Label:       "Completed",
			Description: "Your order has been completed. Thank you!",
			ColorClass:  "gray",
			IconClass:   "check-circle-2",
		}
	case model.StatusCancelled:
		return Presentation{
			Label:       "Cancelled",
			Description: "This order has been cancelled",
			ColorClass:  "red",
			IconClass:   "x-circle",
		}
	default:
		return Presentation{
			Label:       "Unknown",
			Description: "Unknown status",
			ColorClass:  "gray",
			IconClass:   "clock",
		}
	}
}
