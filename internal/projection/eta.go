package projection

import (
	"fmt"
	"time"

	"dinesync/internal/model"
)

// EstimateKind tells the surface whether the text is a moving countdown, a
// static wait band, or a terminal marker, so it can decide whether to show a
// timer chip at all.
type EstimateKind string

const (
	EstimateCountdown EstimateKind = "countdown"
	EstimateBand      EstimateKind = "band"
	EstimateMarker    EstimateKind = "marker"
)

type Estimate struct {
	Text string       `json:"text"`
	Kind EstimateKind `json:"kind"`

	// KitchenSet distinguishes "Kitchen estimate: ..." from the generic
	// "Estimated time: ..." prefix on the tracking page.
	KitchenSet bool `json:"kitchenSet"`
}

// EstimateWait derives the human-facing wait estimate for an order at a given
// instant. A kitchen-supplied (cooking started, estimated minutes) pair wins
// over the static per-status bands; once the pair's deadline has passed the
// countdown is clamped to an "almost ready" marker instead of going negative.
func EstimateWait(o *model.OrderSnapshot, now time.Time) Estimate {
	if start, minutes, ok := o.KitchenEstimate(); ok {
		end := start.Add(time.Duration(minutes) * time.Minute)
		remaining := int(end.Sub(now).Minutes())
		if end.Sub(now) > time.Duration(remaining)*time.Minute {
			remaining++ // ceil
		}
		if remaining <= 0 {
			return Estimate{Text: "Almost ready!", Kind: EstimateMarker, KitchenSet: true}
		}
		return Estimate{
			Text:       fmt.Sprintf("~%d minutes", remaining),
			Kind:       EstimateCountdown,
			KitchenSet: true,
		}
	}

	switch o.Status {
	case model.StatusPending, model.StatusPendingPayment, model.StatusConfirmed:
		return Estimate{Text: "15-30 minutes", Kind: EstimateBand}
	case model.StatusPreparing:
		return Estimate{Text: "10-20 minutes", Kind: EstimateBand}
	case model.StatusReady:
		return Estimate{Text: "Ready now!", Kind: EstimateMarker}
	case model.StatusCompleted:
		return Estimate{Text: "Completed", Kind: EstimateMarker}
	case model.StatusCancelled:
		return Estimate{Text: "Cancelled", Kind: EstimateMarker}
	default:
		return Estimate{Text: "15-30 minutes", Kind: EstimateBand}
	}
}
