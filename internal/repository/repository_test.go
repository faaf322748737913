package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/zapisly/booking-core/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Минимальная sqlite-совместимая схема (постгресовые дефолты
	// вроде gen_random_uuid() тут не работают).
	schema := []string{
		`CREATE TABLE centers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			area_hint TEXT,
			city TEXT NOT NULL,
			rating REAL NOT NULL DEFAULT 0,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE slots (
			id TEXT PRIMARY KEY,
			center_id TEXT NOT NULL,
			service_id TEXT NOT NULL,
			starts_at DATETIME NOT NULL,
			ends_at DATETIME NOT NULL,
			price INTEGER NOT NULL,
			turnaround_hours INTEGER NOT NULL DEFAULT 24,
			status TEXT NOT NULL,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE bookings (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			slot_id TEXT NOT NULL,
			center_id TEXT NOT NULL,
			service_id TEXT NOT NULL,
			amount INTEGER NOT NULL,
			fee INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			payment_ref TEXT,
			failure_reason TEXT,
			payment_payload TEXT,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE events (
			id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			created_at DATETIME,
			booking_id TEXT,
			slot_id TEXT,
			details TEXT
		);`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func seedCenterSlot(t *testing.T, db *gorm.DB, city string, start time.Time) (model.Center, model.Slot) {
	t.Helper()
	ctx := context.Background()

	centers := NewGormCenterRepository(db)
	slots := NewGormSlotRepository(db)

	c := model.Center{ID: uuid.New(), Name: "Центр на Невском", AreaHint: "у метро", City: city, Rating: 4.5}
	if err := centers.Create(ctx, &c); err != nil {
		t.Fatalf("create center: %v", err)
	}

	s := model.Slot{
		ID:              uuid.New(),
		CenterID:        c.ID,
		ServiceID:       uuid.New(),
		StartsAt:        start,
		EndsAt:          start.Add(30 * time.Minute),
		Price:           5000,
		TurnaroundHours: 24,
		Status:          model.SlotStatusOpen,
	}
	if err := slots.Create(ctx, &s); err != nil {
		t.Fatalf("create slot: %v", err)
	}
	return c, s
}

func TestGormBookingRepository_UpdateStatusIfCurrent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewGormBookingRepository(db)

	_, slot := seedCenterSlot(t, db, "spb", time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	b := model.Booking{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		SlotID:    slot.ID,
		CenterID:  slot.CenterID,
		ServiceID: slot.ServiceID,
		Amount:    5000,
		Status:    model.BookingStatusPending,
	}
	if err := repo.Create(ctx, &b); err != nil {
		t.Fatalf("create booking: %v", err)
	}

	// CAS из верного статуса проходит.
	ok, err := repo.UpdateStatusIfCurrent(ctx, b.ID,
		model.BookingStatusPending, model.BookingStatusConfirmed,
		map[string]any{"payment_ref": "pay-1"})
	if err != nil {
		t.Fatalf("cas: %v", err)
	}
	if !ok {
		t.Fatalf("expected cas to win")
	}

	got, err := repo.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.BookingStatusConfirmed {
		t.Fatalf("status: got %s", got.Status)
	}
	if got.PaymentRef == nil || *got.PaymentRef != "pay-1" {
		t.Fatalf("payment_ref not written: %v", got.PaymentRef)
	}

	// Повторный CAS из pending обязан проиграть: строка уже confirmed.
	ok, err = repo.UpdateStatusIfCurrent(ctx, b.ID,
		model.BookingStatusPending, model.BookingStatusFailed, nil)
	if err != nil {
		t.Fatalf("cas: %v", err)
	}
	if ok {
		t.Fatalf("cas from stale status must lose")
	}
	got, _ = repo.GetByID(ctx, b.ID)
	if got.Status != model.BookingStatusConfirmed {
		t.Fatalf("lost cas must not mutate row, got %s", got.Status)
	}

	// Несуществующая строка — false без ошибки.
	ok, err = repo.UpdateStatusIfCurrent(ctx, uuid.New(),
		model.BookingStatusPending, model.BookingStatusFailed, nil)
	if err != nil || ok {
		t.Fatalf("missing row: ok=%v err=%v", ok, err)
	}
}

func TestGormBookingRepository_GetByID_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormBookingRepository(db)

	if _, err := repo.GetByID(context.Background(), uuid.New()); err != ErrBookingNotFound {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}

func TestGormSlotRepository_ListByCityServiceRange(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	slots := NewGormSlotRepository(db)

	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	_, inWindow := seedCenterSlot(t, db, "spb", day.Add(10*time.Hour))
	_, otherCity := seedCenterSlot(t, db, "msk", day.Add(11*time.Hour))
	_, nextDay := seedCenterSlot(t, db, "spb", day.Add(30*time.Hour))

	got, err := slots.ListByCityServiceRange(ctx, "spb", uuid.Nil, day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != inWindow.ID {
		t.Fatalf("expected only in-window spb slot, got %d", len(got))
	}
	for _, s := range got {
		if s.ID == otherCity.ID || s.ID == nextDay.ID {
			t.Fatalf("filter leak: %s", s.ID)
		}
	}

	// Фильтр по услуге.
	got, err = slots.ListByCityServiceRange(ctx, "spb", inWindow.ServiceID, day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("list by service: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 slot for its service, got %d", len(got))
	}
	got, err = slots.ListByCityServiceRange(ctx, "spb", uuid.New(), day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("list by unknown service: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("unknown service must match nothing, got %d", len(got))
	}
}

func TestGormSlotRepository_UpdateStatusIfCurrent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	slots := NewGormSlotRepository(db)

	_, s := seedCenterSlot(t, db, "spb", time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	ok, err := slots.UpdateStatusIfCurrent(ctx, s.ID, model.SlotStatusOpen, model.SlotStatusHeld)
	if err != nil || !ok {
		t.Fatalf("open->held: ok=%v err=%v", ok, err)
	}
	ok, err = slots.UpdateStatusIfCurrent(ctx, s.ID, model.SlotStatusOpen, model.SlotStatusBooked)
	if err != nil {
		t.Fatalf("stale cas: %v", err)
	}
	if ok {
		t.Fatalf("cas from stale slot status must lose")
	}

	got, err := slots.GetByID(ctx, s.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.SlotStatusHeld {
		t.Fatalf("status: got %s", got.Status)
	}
}

func TestGormEventRepository_Append(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	events := NewGormEventRepository(db)

	bookingID := uuid.New()
	for i := 0; i < 3; i++ {
		err := events.Append(ctx, &model.Event{
			EventType: model.EventTypeBookingCreated,
			BookingID: &bookingID,
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	var count int64
	if err := db.Model(&model.Event{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 events, got %d", count)
	}
}

// Фейковый леджер обязан повторять семантику CAS продового.
func TestMemoryBookingRepository_MatchesGormSemantics(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBookingRepository()

	b := model.Booking{
		ID:     uuid.New(),
		UserID: uuid.New(),
		SlotID: uuid.New(),
		Amount: 5000,
		Status: model.BookingStatusPending,
	}
	if err := repo.Create(ctx, &b); err != nil {
		t.Fatalf("create: %v", err)
	}

	ok, err := repo.UpdateStatusIfCurrent(ctx, b.ID,
		model.BookingStatusPending, model.BookingStatusConfirmed,
		map[string]any{"payment_ref": "pay-1"})
	if err != nil || !ok {
		t.Fatalf("cas: ok=%v err=%v", ok, err)
	}

	ok, err = repo.UpdateStatusIfCurrent(ctx, b.ID,
		model.BookingStatusPending, model.BookingStatusFailed, nil)
	if err != nil {
		t.Fatalf("stale cas: %v", err)
	}
	if ok {
		t.Fatalf("stale cas must lose")
	}

	got, err := repo.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.BookingStatusConfirmed {
		t.Fatalf("status: got %s", got.Status)
	}
	if got.PaymentRef == nil || *got.PaymentRef != "pay-1" {
		t.Fatalf("payment_ref: got %v", got.PaymentRef)
	}

	if _, err := repo.GetByID(ctx, uuid.New()); err != ErrBookingNotFound {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}
