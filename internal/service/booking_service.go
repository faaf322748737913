package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/zapisly/booking-core/internal/calendar"
	"github.com/zapisly/booking-core/internal/model"
	"github.com/zapisly/booking-core/internal/notify"
	"github.com/zapisly/booking-core/internal/payment"
	"github.com/zapisly/booking-core/internal/ranking"
	"github.com/zapisly/booking-core/internal/repository"
	"github.com/zapisly/booking-core/internal/reservation"
)

var (
	// Hold на слот уже держит другое бронирование. Ожидаемый исход,
	// пользователю предлагается выбрать другой слот; не ретраится.
	ErrSlotConflict = errors.New("slot is no longer available")
	// Слот нельзя инициировать: прошёл либо уже выкуплен.
	ErrSlotUnavailable = errors.New("slot is not open for booking")
)

const (
	reasonBadSignature = "payment signature rejected"
	reasonHoldLost     = "hold missing or owned by another booking"
	reasonHoldExpired  = "hold expired before payment"
)

// PaymentCallback — разобранный callback платёжного шлюза.
// Идентификатором заказа служит ID бронирования.
type PaymentCallback struct {
	BookingID uuid.UUID `json:"booking_id"`
	PaymentID string    `json:"payment_id"`
	Signature string    `json:"signature"`
}

// BookingService — оркестрация поиска, резервирования и финализации.
// Владеет переходами статусов бронирования: точка compare-and-swap —
// условный апдейт в леджере, а не блокировка вокруг операции.
type BookingService struct {
	slots    repository.SlotRepository
	centers  repository.CenterRepository
	bookings repository.BookingRepository
	events   repository.EventRepository
	holds    *reservation.Manager
	verifier payment.Verifier
	notifier notify.Dispatcher

	weights ranking.Weights
	fee     int64
	now     func() time.Time
}

type Option func(*BookingService)

// WithClock подменяет источник времени (тесты).
func WithClock(now func() time.Time) Option {
	return func(s *BookingService) { s.now = now }
}

// WithServiceFee — сервисный сбор в минорных единицах поверх цены слота.
func WithServiceFee(fee int64) Option {
	return func(s *BookingService) {
		if fee >= 0 {
			s.fee = fee
		}
	}
}

// WithWeights — веса ранжирования вместо дефолтных.
func WithWeights(w ranking.Weights) Option {
	return func(s *BookingService) { s.weights = w }
}

func NewBookingService(
	slots repository.SlotRepository,
	centers repository.CenterRepository,
	bookings repository.BookingRepository,
	events repository.EventRepository,
	holds *reservation.Manager,
	verifier payment.Verifier,
	notifier notify.Dispatcher,
	opts ...Option,
) *BookingService {
	s := &BookingService{
		slots:    slots,
		centers:  centers,
		bookings: bookings,
		events:   events,
		holds:    holds,
		verifier: verifier,
		notifier: notifier,
		weights:  ranking.DefaultWeights(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SearchSlots — каталог города по услуге за день, ранжированный и
// постранично. Каталог может быть несвежим, движок его не освежает.
func (s *BookingService) SearchSlots(
	ctx context.Context,
	city string,
	serviceID uuid.UUID,
	day time.Time,
	page, pageSize int,
) (calendar.Page[model.Slot], error) {
	var empty calendar.Page[model.Slot]

	if city == "" {
		return empty, fmt.Errorf("city is required")
	}

	now := s.now().UTC()
	from, to, err := calendar.DayWindow(day, now)
	if err != nil {
		return empty, err
	}

	slots, err := s.slots.ListByCityServiceRange(ctx, city, serviceID, from, to)
	if err != nil {
		return empty, fmt.Errorf("list slots: %w", err)
	}
	centers, err := s.centers.ListByCity(ctx, city)
	if err != nil {
		return empty, fmt.Errorf("list centers: %w", err)
	}

	ranked := ranking.Rank(slots, centers, s.weights, now)
	return calendar.Paginate(ranked, page, pageSize), nil
}

// InitiateBooking захватывает hold на слот и создаёт бронирование
// в статусе pending. Conflict — ErrSlotConflict без авторетрая.
func (s *BookingService) InitiateBooking(
	ctx context.Context,
	userID, slotID uuid.UUID,
) (*model.Booking, error) {
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, err
	}

	if slot.Status == model.SlotStatusBooked || slot.Status == model.SlotStatusExpired {
		return nil, ErrSlotUnavailable
	}
	if !slot.StartsAt.After(s.now().UTC()) {
		return nil, ErrSlotUnavailable
	}

	// Hold берём до вставки в леджер: pending-строка без hold'а
	// никому не нужна, а hold без строки сам истечёт по TTL.
	bookingID := uuid.New()
	res, err := s.holds.Acquire(ctx, slot.ID, bookingID)
	if err != nil {
		return nil, fmt.Errorf("acquire hold: %w", err)
	}
	if res == reservation.Conflict {
		return nil, ErrSlotConflict
	}

	booking := &model.Booking{
		ID:        bookingID,
		UserID:    userID,
		SlotID:    slot.ID,
		CenterID:  slot.CenterID,
		ServiceID: slot.ServiceID,
		Amount:    slot.Price,
		Fee:       s.fee,
		Status:    model.BookingStatusPending,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		s.releaseHold(ctx, slot.ID, bookingID)
		return nil, fmt.Errorf("insert booking: %w", err)
	}

	s.appendEvent(ctx, model.EventTypeBookingCreated, booking.ID, slot.ID, map[string]any{
		"user_id": userID,
		"amount":  booking.Amount + booking.Fee,
	})

	return booking, nil
}

// ConfirmPayment — финализация по callback'у шлюза.
//
// Доставка у шлюза at-least-once: повторный callback по уже
// терминальному бронированию — no-op с тем же ответом, без повторных
// побочных эффектов и без второй нотификации. Перепроверять hold после
// того, как победитель его снял, нельзя — это дало бы ложный failed.
func (s *BookingService) ConfirmPayment(ctx context.Context, cb PaymentCallback) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, cb.BookingID)
	if err != nil {
		return nil, err
	}
	if b.Status.IsTerminal() {
		return b, nil
	}

	// Подпись против исходного заказа: суммы с комиссией.
	if !s.verifier.Verify(b.ID.String(), cb.PaymentID, cb.Signature, b.Amount+b.Fee) {
		return s.failPending(ctx, b, reasonBadSignature)
	}

	// Hold обязан существовать и принадлежать этому бронированию.
	// Исчезнувший hold — failed, даже при валидной подписи: слот мог
	// уже уйти другому. Чужой hold не трогаем.
	owns, err := s.holds.Owns(ctx, b.SlotID, b.ID)
	if err != nil {
		return nil, fmt.Errorf("check hold: %w", err)
	}
	if !owns {
		return s.failPending(ctx, b, reasonHoldLost)
	}

	payload, _ := json.Marshal(cb)
	ok, err := s.bookings.UpdateStatusIfCurrent(ctx, b.ID,
		model.BookingStatusPending, model.BookingStatusConfirmed,
		map[string]any{
			"payment_ref":     cb.PaymentID,
			"payment_payload": datatypes.JSON(payload),
		})
	if err != nil {
		return nil, fmt.Errorf("confirm booking: %w", err)
	}
	if !ok {
		// Проиграли гонку параллельному callback'у: победитель уже
		// выполнил побочные эффекты. Перечитываем и отдаём его исход.
		return s.bookings.GetByID(ctx, b.ID)
	}

	// Побочные эффекты выполняет только победитель CAS.
	s.releaseHold(ctx, b.SlotID, b.ID)
	s.markSlotBooked(ctx, b.SlotID)
	s.appendEvent(ctx, model.EventTypeBookingConfirmed, b.ID, b.SlotID, map[string]any{
		"payment_ref": cb.PaymentID,
	})
	s.dispatchConfirmation(ctx, b, cb.PaymentID)

	return s.bookings.GetByID(ctx, b.ID)
}

// CancelBooking — явная отмена ещё не оплаченного бронирования.
// Терминальные статусы не трогает: возвращает их как есть.
func (s *BookingService) CancelBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ok, err := s.bookings.UpdateStatusIfCurrent(ctx, id,
		model.BookingStatusPending, model.BookingStatusCancelled, nil)
	if err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}
	if ok {
		// Снимаем hold, только если он наш; чужой остаётся жить.
		s.releaseHold(ctx, b.SlotID, b.ID)
		s.appendEvent(ctx, model.EventTypeBookingCancelled, b.ID, b.SlotID, nil)
	}

	return s.bookings.GetByID(ctx, id)
}

// GetBookingStatus — статус с ленивой фиксацией истечения: pending без
// hold'а переводится в expired прямо при чтении, фонового подметания нет.
func (s *BookingService) GetBookingStatus(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != model.BookingStatusPending {
		return b, nil
	}

	owns, err := s.holds.Owns(ctx, b.SlotID, b.ID)
	if err != nil {
		return nil, fmt.Errorf("check hold: %w", err)
	}
	if owns {
		return b, nil
	}

	ok, err := s.bookings.UpdateStatusIfCurrent(ctx, id,
		model.BookingStatusPending, model.BookingStatusExpired,
		map[string]any{"failure_reason": reasonHoldExpired})
	if err != nil {
		return nil, fmt.Errorf("expire booking: %w", err)
	}
	if ok {
		// Витринный статус окна возвращаем вручную: пассивное истечение
		// в Hold Store зеркало не поправит.
		if _, err := s.slots.UpdateStatusIfCurrent(ctx, b.SlotID, model.SlotStatusHeld, model.SlotStatusOpen); err != nil {
			log.Printf("[booking] reopen slot %s after expiry: %v", b.SlotID, err)
		}
		s.appendEvent(ctx, model.EventTypeBookingExpired, b.ID, b.SlotID, nil)
	}

	return s.bookings.GetByID(ctx, id)
}

// ListUserBookings — история бронирований пользователя.
func (s *BookingService) ListUserBookings(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]model.Booking, int64, error) {
	return s.bookings.ListByUser(ctx, userID, limit, offset)
}

// failPending переводит pending-бронирование в failed с причиной.
// Hold не трогается: он может принадлежать другой, легитимной брони,
// а собственный досидит свой TTL и слот освободится сам.
func (s *BookingService) failPending(ctx context.Context, b *model.Booking, reason string) (*model.Booking, error) {
	ok, err := s.bookings.UpdateStatusIfCurrent(ctx, b.ID,
		model.BookingStatusPending, model.BookingStatusFailed,
		map[string]any{"failure_reason": reason})
	if err != nil {
		return nil, fmt.Errorf("fail booking: %w", err)
	}
	if ok {
		s.appendEvent(ctx, model.EventTypeBookingFailed, b.ID, b.SlotID, map[string]any{
			"reason": reason,
		})
	}
	return s.bookings.GetByID(ctx, b.ID)
}

// releaseHold снимает hold бронирования. Чужой hold — no-op для
// вызывающего, но в журнал аудита пишется аномалия: легитимный сценарий
// (наш hold истёк, слот перезахвачен), который стоит видеть в трейле.
func (s *BookingService) releaseHold(ctx context.Context, slotID, bookingID uuid.UUID) {
	res, err := s.holds.Release(ctx, slotID, bookingID)
	if err != nil {
		log.Printf("[booking] release hold for %s: %v", bookingID, err)
		return
	}
	if res == reservation.NotOwner {
		s.appendEvent(ctx, model.EventTypeHoldReleaseAnomaly, bookingID, slotID, nil)
	}
}

func (s *BookingService) markSlotBooked(ctx context.Context, slotID uuid.UUID) {
	// Обычный путь held→booked; open→booked подбирает случай, когда
	// зеркальный статус не успел выставиться.
	ok, err := s.slots.UpdateStatusIfCurrent(ctx, slotID, model.SlotStatusHeld, model.SlotStatusBooked)
	if err != nil {
		log.Printf("[booking] mark slot %s booked: %v", slotID, err)
		return
	}
	if !ok {
		if _, err := s.slots.UpdateStatusIfCurrent(ctx, slotID, model.SlotStatusOpen, model.SlotStatusBooked); err != nil {
			log.Printf("[booking] mark slot %s booked: %v", slotID, err)
		}
	}
}

func (s *BookingService) dispatchConfirmation(ctx context.Context, b *model.Booking, paymentRef string) {
	event := notify.ConfirmationEvent{
		BookingID:    b.ID,
		UserID:       b.UserID,
		ServiceID:    b.ServiceID,
		Amount:       b.Amount + b.Fee,
		Instructions: "Приходите за 10 минут до начала, возьмите паспорт. Для анализов натощак — не ешьте 8–12 часов.",
	}

	if slot, err := s.slots.GetByID(ctx, b.SlotID); err == nil {
		event.SlotStartsAt = slot.StartsAt
		event.TurnaroundHours = slot.TurnaroundHours
	}
	if center, err := s.centers.GetByID(ctx, b.CenterID); err == nil {
		event.CenterName = center.Name
	}

	// Fire-and-forget: диспетчер ошибок не возвращает, сбой канала
	// подтверждение не откатывает.
	s.notifier.Dispatch(ctx, event)
}

func (s *BookingService) appendEvent(
	ctx context.Context,
	eventType model.EventType,
	bookingID, slotID uuid.UUID,
	details map[string]any,
) {
	if s.events == nil {
		return
	}

	var raw datatypes.JSON
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			raw = datatypes.JSON(b)
		}
	}

	err := s.events.Append(ctx, &model.Event{
		EventType: eventType,
		BookingID: &bookingID,
		SlotID:    &slotID,
		Details:   raw,
	})
	if err != nil {
		log.Printf("[booking] append audit event %s for %s: %v", eventType, bookingID, err)
	}
}
