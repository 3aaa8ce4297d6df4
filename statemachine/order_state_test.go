package statemachine

import (
	"testing"

	"shophand/models"
)

func TestCanTransition(t *testing.T) {
	allowed := map[models.OrderStatus][]models.OrderStatus{
		models.StatusPending:        {models.StatusConfirmed, models.StatusCancelled},
		models.StatusConfirmed:      {models.StatusPickedUp, models.StatusCancelled},
		models.StatusPickedUp:       {models.StatusOutForDelivery, models.StatusCancelled},
		models.StatusOutForDelivery: {models.StatusDelivered, models.StatusCancelled},
		models.StatusDelivered:      {},
		models.StatusCancelled:      {},
	}
	for _, from := range models.AllStatuses {
		for _, to := range models.AllStatuses {
			want := from == to
			for _, ok := range allowed[from] {
				want = want || ok == to
			}
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestDescribeValidFrom(t *testing.T) {
	if got := DescribeValidFrom(models.StatusPickedUp); got != "out_for_delivery, cancelled" {
		t.Errorf("picked_up: %q", got)
	}
	if got := DescribeValidFrom(models.StatusDelivered); got != "none (terminal state)" {
		t.Errorf("delivered: %q", got)
	}
}

func TestGetAllTransitionsIsACopy(t *testing.T) {
	all := GetAllTransitions()
	all[0].To = models.StatusDelivered
	if !CanTransition(models.StatusPending, models.StatusConfirmed) || GetAllTransitions()[0].To != models.StatusConfirmed {
		t.Fatal("caller mutated the state machine")
	}
}
