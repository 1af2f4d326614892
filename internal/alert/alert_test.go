package alert

import (
	"testing"

	"dinesync/internal/model"
)

func TestDetectorFiresOnlyOnIncrease(t *testing.T) {
	counts := []int{2, 2, 5, 3, 3, 6}
	expected := []bool{false, false, true, false, false, true}

	var d Detector
	for i, count := range counts {
		if got := d.Observe(count); got != expected[i] {
			t.Fatalf("observation %d (count %d): expected fire=%v, got %v", i, count, expected[i], got)
		}
	}
}

func TestDetectorNeverFiresOnFirstLoad(t *testing.T) {
	var d Detector
	if d.Observe(10) {
		t.Fatal("first observation must not fire")
	}
}

func TestDetectorResetSeedsAgain(t *testing.T) {
	var d Detector
	d.Observe(1)
	if !d.Observe(2) {
		t.Fatal("expected fire on increase")
	}

	d.Reset()
	if d.Observe(5) {
		t.Fatal("observation after reset is a first load and must not fire")
	}
}

func TestCountNeedsAttention(t *testing.T) {
	orders := []model.OrderSnapshot{
		{Status: model.StatusPending},
		{Status: model.StatusPreparing},
		{Status: model.StatusPending},
		{Status: model.StatusReady},
		{Status: model.StatusCancelled},
	}
	if got := CountNeedsAttention(orders); got != 2 {
		t.Fatalf("expected 2 pending orders, got %d", got)
	}
}
