package hold

import (
	"context"
	"sync"
	"testing"
	"time"
)

//
// TTL: hold жив при T-ε и отсутствует при T+ε.
//

func TestMemoryStore_TTLBoundary(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	s := NewMemoryStoreAt(func() time.Time { return now })
	ctx := context.Background()

	ok, err := s.SetIfAbsent(ctx, "slot-1", "booking-1", 600*time.Second)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if !ok {
		t.Fatalf("expected acquire on empty store")
	}

	now = base.Add(600*time.Second - time.Millisecond)
	if v, err := s.Get(ctx, "slot-1"); err != nil || v != "booking-1" {
		t.Fatalf("expected live hold before deadline, got v=%q err=%v", v, err)
	}

	now = base.Add(600*time.Second + time.Millisecond)
	if _, err := s.Get(ctx, "slot-1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after deadline, got %v", err)
	}

	// После истечения ключ снова свободен.
	ok, err = s.SetIfAbsent(ctx, "slot-1", "booking-2", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected reacquire after expiry, got ok=%v err=%v", ok, err)
	}
}

func TestMemoryStore_SetIfAbsentConflict(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if ok, _ := s.SetIfAbsent(ctx, "s1", "b1", time.Minute); !ok {
		t.Fatalf("first acquire must succeed")
	}
	if ok, _ := s.SetIfAbsent(ctx, "s1", "b2", time.Minute); ok {
		t.Fatalf("second acquire must conflict")
	}
	if v, err := s.Get(ctx, "s1"); err != nil || v != "b1" {
		t.Fatalf("hold must stay with first owner, got v=%q err=%v", v, err)
	}
}

// Два конкурирующих захвата одного слота: побеждает ровно один.
func TestMemoryStore_ConcurrentAcquire(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const goroutines = 32
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ok, err := s.SetIfAbsent(ctx, "slot-X", "booking-"+string(rune('a'+n)), time.Minute)
			if err != nil {
				t.Errorf("set: %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestMemoryStore_DeleteIfValueEquals(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.SetIfAbsent(ctx, "s1", "b1", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	// Чужой владелец — удаление не проходит, hold остаётся.
	if ok, _ := s.DeleteIfValueEquals(ctx, "s1", "b2"); ok {
		t.Fatalf("delete by non-owner must fail")
	}
	if v, err := s.Get(ctx, "s1"); err != nil || v != "b1" {
		t.Fatalf("hold must survive non-owner delete, got v=%q err=%v", v, err)
	}

	// Владелец — удаление проходит.
	if ok, _ := s.DeleteIfValueEquals(ctx, "s1", "b1"); !ok {
		t.Fatalf("delete by owner must succeed")
	}
	if _, err := s.Get(ctx, "s1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// Отсутствующий ключ.
	if ok, _ := s.DeleteIfValueEquals(ctx, "missing", "b1"); ok {
		t.Fatalf("delete of missing key must report false")
	}
}
