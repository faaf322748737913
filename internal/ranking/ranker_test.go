package ranking

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/zapisly/booking-core/internal/model"
)

var now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func mkSlot(centerID uuid.UUID, startOffset time.Duration, price int64, status model.SlotStatus) model.Slot {
	start := now.Add(startOffset)
	return model.Slot{
		ID:        uuid.New(),
		CenterID:  centerID,
		ServiceID: uuid.New(),
		StartsAt:  start,
		EndsAt:    start.Add(30 * time.Minute),
		Price:     price,
		Status:    status,
	}
}

func mkCenter(rating float64) model.Center {
	return model.Center{ID: uuid.New(), Name: "center", City: "spb", Rating: rating}
}

//
// Детерминированность: два прогона на одном входе — одинаковый порядок.
//

func TestRank_Deterministic(t *testing.T) {
	c1 := mkCenter(4.5)
	c2 := mkCenter(3.0)
	slots := []model.Slot{
		mkSlot(c1.ID, 2*time.Hour, 5000, model.SlotStatusOpen),
		mkSlot(c2.ID, time.Hour, 5000, model.SlotStatusOpen),
		mkSlot(c1.ID, 3*time.Hour, 4000, model.SlotStatusOpen),
		mkSlot(c2.ID, 4*time.Hour, 6000, model.SlotStatusHeld),
	}
	centers := []model.Center{c1, c2}

	first := Rank(slots, centers, DefaultWeights(), now)
	second := Rank(slots, centers, DefaultWeights(), now)

	if len(first) != len(second) {
		t.Fatalf("length mismatch: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("order differs at %d: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}
}

func TestRank_ExcludesBookedExpiredAndPast(t *testing.T) {
	c := mkCenter(4.0)
	booked := mkSlot(c.ID, time.Hour, 5000, model.SlotStatusBooked)
	expired := mkSlot(c.ID, 2*time.Hour, 5000, model.SlotStatusExpired)
	past := mkSlot(c.ID, -time.Hour, 5000, model.SlotStatusOpen)
	open := mkSlot(c.ID, time.Hour, 5000, model.SlotStatusOpen)
	held := mkSlot(c.ID, time.Hour, 5000, model.SlotStatusHeld)

	ranked := Rank(
		[]model.Slot{booked, expired, past, open, held},
		[]model.Center{c},
		DefaultWeights(),
		now,
	)

	if len(ranked) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(ranked))
	}
	for _, s := range ranked {
		if s.ID == booked.ID || s.ID == expired.ID || s.ID == past.ID {
			t.Fatalf("excluded slot %s leaked into output", s.ID)
		}
	}
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	c := mkCenter(4.0)
	slots := []model.Slot{
		mkSlot(c.ID, 3*time.Hour, 9000, model.SlotStatusOpen),
		mkSlot(c.ID, time.Hour, 1000, model.SlotStatusOpen),
	}
	origFirst := slots[0].ID

	_ = Rank(slots, []model.Center{c}, DefaultWeights(), now)

	if slots[0].ID != origFirst {
		t.Fatalf("input slice was reordered")
	}
}

// Чувствительность к весам: при весе только по цене побеждает дешёвый,
// при весе только по рейтингу — слот лучшего центра.
func TestRank_WeightSensitivity(t *testing.T) {
	good := mkCenter(5.0)
	bad := mkCenter(1.0)

	cheapBad := mkSlot(bad.ID, time.Hour, 1000, model.SlotStatusOpen)
	priceyGood := mkSlot(good.ID, time.Hour, 9000, model.SlotStatusOpen)
	slots := []model.Slot{priceyGood, cheapBad}
	centers := []model.Center{good, bad}

	byPrice := Rank(slots, centers, Weights{Price: 1}, now)
	if byPrice[0].ID != cheapBad.ID {
		t.Fatalf("price-only ranking must put cheap slot first")
	}

	byRating := Rank(slots, centers, Weights{Rating: 1}, now)
	if byRating[0].ID != priceyGood.ID {
		t.Fatalf("rating-only ranking must put top-center slot first")
	}

	byProximity := Rank(
		[]model.Slot{mkSlot(good.ID, 5*time.Hour, 5000, model.SlotStatusOpen), cheapBad},
		centers, Weights{Proximity: 1}, now,
	)
	if byProximity[0].ID != cheapBad.ID {
		t.Fatalf("proximity-only ranking must put sooner slot first")
	}
}

// Равный счёт: порядок по StartsAt, затем по ID.
func TestRank_TieBreak(t *testing.T) {
	c := mkCenter(4.0)
	early := mkSlot(c.ID, time.Hour, 5000, model.SlotStatusOpen)
	late := mkSlot(c.ID, 2*time.Hour, 5000, model.SlotStatusOpen)

	// Proximity=0 — оба получают одинаковый счёт.
	ranked := Rank([]model.Slot{late, early}, []model.Center{c}, Weights{Price: 1}, now)
	if ranked[0].ID != early.ID {
		t.Fatalf("tie must break by ascending StartsAt")
	}

	a := early
	b := early
	a.ID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b.ID = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	ranked = Rank([]model.Slot{b, a}, []model.Center{c}, Weights{Price: 1}, now)
	if ranked[0].ID != a.ID {
		t.Fatalf("equal StartsAt must break by ascending ID")
	}
}

// Мусор на входе зажимается, а не отбрасывается.
func TestRank_ClampsMalformedInput(t *testing.T) {
	c := mkCenter(7.5) // рейтинг вне шкалы
	s := mkSlot(c.ID, time.Hour, -100, model.SlotStatusOpen)

	ranked := Rank([]model.Slot{s}, []model.Center{c}, DefaultWeights(), now)
	if len(ranked) != 1 {
		t.Fatalf("malformed slot must still rank, got %d", len(ranked))
	}
}

func TestRank_EmptyInput(t *testing.T) {
	if got := Rank(nil, nil, DefaultWeights(), now); len(got) != 0 {
		t.Fatalf("expected empty output, got %d", len(got))
	}
}
