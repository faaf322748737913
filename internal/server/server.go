package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/zapisly/booking-core/internal/repository"
	"github.com/zapisly/booking-core/internal/service"
)

// Server — HTTP-обвязка поверх BookingService. Вся доменная логика
// живёт в сервисе, здесь только разбор запросов и коды ответов.
type Server struct {
	booking *service.BookingService
	engine  *gin.Engine
}

func New(booking *service.BookingService) *Server {
	s := &Server{
		booking: booking,
		engine:  gin.New(),
	}
	s.engine.Use(gin.Recovery())
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.engine.Group("/api/v1")
	{
		api.GET("/slots", s.searchSlots)
		api.POST("/bookings", s.createBooking)
		api.GET("/bookings/:id", s.getBooking)
		api.POST("/bookings/:id/cancel", s.cancelBooking)
		api.GET("/users/:id/bookings", s.listUserBookings)
		api.POST("/payments/callback", s.paymentCallback)
	}
}

// GET /api/v1/slots?city=spb&service_id=...&day=2025-06-01&page=1&page_size=20
func (s *Server) searchSlots(c *gin.Context) {
	city := c.Query("city")
	if city == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "city is required"})
		return
	}

	var serviceID uuid.UUID
	if raw := c.Query("service_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid service_id"})
			return
		}
		serviceID = id
	}

	var day time.Time
	if raw := c.Query("day"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid day, expected YYYY-MM-DD"})
			return
		}
		day = parsed
	}

	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 20)

	result, err := s.booking.SearchSlots(c.Request.Context(), city, serviceID, day, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to search slots"})
		return
	}
	c.JSON(http.StatusOK, result)
}

type createBookingRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	SlotID uuid.UUID `json:"slot_id" binding:"required"`
}

// POST /api/v1/bookings
func (s *Server) createBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and slot_id are required"})
		return
	}

	booking, err := s.booking.InitiateBooking(c.Request.Context(), req.UserID, req.SlotID)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, booking)
	case errors.Is(err, service.ErrSlotConflict):
		// Слот уже под hold'ом другого бронирования. Ретраить нечего,
		// пользователь выбирает другой слот.
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrSlotUnavailable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrSlotNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create booking"})
	}
}

// GET /api/v1/bookings/:id — статус с ленивой фиксацией истечения.
func (s *Server) getBooking(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	booking, err := s.booking.GetBookingStatus(c.Request.Context(), id)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, booking)
	case errors.Is(err, repository.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load booking"})
	}
}

// POST /api/v1/bookings/:id/cancel
func (s *Server) cancelBooking(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	booking, err := s.booking.CancelBooking(c.Request.Context(), id)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, booking)
	case errors.Is(err, repository.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel booking"})
	}
}

// GET /api/v1/users/:id/bookings?limit=20&offset=0
func (s *Server) listUserBookings(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	limit := queryInt(c, "limit", 20)
	offset := queryInt(c, "offset", 0)

	bookings, total, err := s.booking.ListUserBookings(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list bookings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": bookings, "total": total})
}

type paymentCallbackRequest struct {
	OrderID   uuid.UUID `json:"order_id" binding:"required"`
	PaymentID string    `json:"payment_id" binding:"required"`
	Signature string    `json:"signature" binding:"required"`
}

// POST /api/v1/payments/callback
//
// Шлюз доставляет at-least-once и ретраит всё, что не 2xx. Поэтому
// разрешённые доменные исходы (включая failed по плохой подписи или
// потерянному hold'у) отвечают 200 с телом бронирования; 4xx/5xx
// остаются за нераспарсенным запросом и сбоями инфраструктуры.
func (s *Server) paymentCallback(c *gin.Context) {
	var req paymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_id, payment_id and signature are required"})
		return
	}

	booking, err := s.booking.ConfirmPayment(c.Request.Context(), service.PaymentCallback{
		BookingID: req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	switch {
	case err == nil:
		c.JSON(http.StatusOK, booking)
	case errors.Is(err, repository.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process callback"})
	}
}

func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
