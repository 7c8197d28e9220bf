package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/escapehq/escape/internal/adapters/mongo"
	redisadapter "github.com/escapehq/escape/internal/adapters/redis"
	"github.com/escapehq/escape/internal/booking"
	"github.com/escapehq/escape/internal/catalog"
	"github.com/escapehq/escape/internal/config"
	"github.com/escapehq/escape/internal/domain"
	"github.com/escapehq/escape/internal/idempotency"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handlers struct {
	cfg     *config.Config
	manager *booking.Manager
	catalog catalog.Catalog
	users   *mongo.UserStore
	audit   *mongo.AuditLogger
	cache   *redisadapter.Cache
	idemp   *idempotency.Idempotency
}

func NewHandlers(cfg *config.Config, manager *booking.Manager, cat catalog.Catalog, users *mongo.UserStore, audit *mongo.AuditLogger, cache *redisadapter.Cache, idemp *idempotency.Idempotency) *Handlers {
	return &Handlers{
		cfg:     cfg,
		manager: manager,
		catalog: cat,
		users:   users,
		audit:   audit,
		cache:   cache,
		idemp:   idemp,
	}
}

type bookingResponse struct {
	ID           uuid.UUID `json:"id"`
	ExperienceID uuid.UUID `json:"experience_id"`
	SlotID       uuid.UUID `json:"slot_id"`
	UserID       uuid.UUID `json:"user_id"`
	Status       string    `json:"status"`
	Participants int       `json:"participants"`
	TotalAmount  float64   `json:"total_amount"`
	OrderRef     string    `json:"order_ref,omitempty"`
	PaymentRef   string    `json:"payment_ref,omitempty"`
	CreatedAt    string    `json:"created_at"`
	ExpiresAt    string    `json:"expires_at"`
}

func toBookingResponse(b domain.Booking) bookingResponse {
	return bookingResponse{
		ID:           b.ID,
		ExperienceID: b.ExperienceID,
		SlotID:       b.SlotID,
		UserID:       b.UserID,
		Status:       string(b.Status),
		Participants: b.Participants,
		TotalAmount:  b.TotalAmount,
		OrderRef:     b.OrderRef,
		PaymentRef:   b.PaymentRef,
		CreatedAt:    b.CreatedAt.Format(time.RFC3339),
		ExpiresAt:    b.ExpiresAt.Format(time.RFC3339),
	}
}

func (h *Handlers) ReserveBooking(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	var req struct {
		UserID       uuid.UUID `json:"user_id"`
		ExperienceID uuid.UUID `json:"experience_id"`
		SlotID       uuid.UUID `json:"slot_id"`
		Participants int       `json:"participants"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b, err := h.manager.Reserve(r.Context(), req.UserID, req.ExperienceID, req.SlotID, req.Participants)
	if errors.Is(err, domain.ErrInvalidInput) {
		http.Error(w, "participants must be at least 1", http.StatusBadRequest)
		return
	}
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "experience or slot not found", http.StatusNotFound)
		return
	}
	if errors.Is(err, domain.ErrCapacityExceeded) {
		http.Error(w, "not enough seats available", http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if h.audit != nil {
		h.audit.LogReservation(r.Context(), b)
	}
	if h.cache != nil {
		h.cache.InvalidateExperience(r.Context(), b.ExperienceID.String())
	}

	data, _ := json.Marshal(toBookingResponse(b))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write(data)

	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data})
}

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	orderRef, err := h.manager.CreateOrder(r.Context(), id, req.Amount)
	if errors.Is(err, domain.ErrBookingNotFound) {
		http.Error(w, "booking not found", http.StatusNotFound)
		return
	}
	if errors.Is(err, domain.ErrConflict) {
		http.Error(w, "booking is no longer tentative", http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"order_ref": orderRef})
}

func (h *Handlers) ValidatePayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method  domain.PaymentMethod `json:"method"`
		Details struct {
			UPIID      string `json:"upi_id"`
			CardNumber string `json:"card_number"`
			CardName   string `json:"card_name"`
			Expiry     string `json:"expiry"`
			CVV        string `json:"cvv"`
			Bank       string `json:"bank"`
			CustomerID string `json:"customer_id"`
		} `json:"details"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	valid := h.manager.ValidatePaymentDetails(req.Method, domain.PaymentDetails{
		UPIID:      req.Details.UPIID,
		CardNumber: req.Details.CardNumber,
		CardName:   req.Details.CardName,
		Expiry:     req.Details.Expiry,
		CVV:        req.Details.CVV,
		Bank:       req.Details.Bank,
		CustomerID: req.Details.CustomerID,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"valid": valid})
}

func (h *Handlers) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req struct {
		PaymentRef string `json:"payment_ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b, err := h.manager.Confirm(r.Context(), id, req.PaymentRef)
	if errors.Is(err, domain.ErrBookingNotFound) {
		http.Error(w, "booking not found", http.StatusNotFound)
		return
	}
	if errors.Is(err, domain.ErrConflict) {
		http.Error(w, "booking is no longer tentative", http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if h.audit != nil {
		h.audit.LogConfirmation(r.Context(), b)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toBookingResponse(b))
}

func (h *Handlers) GetUserBookings(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	bookings, err := h.manager.GetUserBookings(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (h *Handlers) GetPartitionedBookings(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	parts, err := h.manager.PartitionBookings(r.Context(), userID, time.Now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	upcoming := make([]bookingResponse, 0, len(parts.Upcoming))
	for _, b := range parts.Upcoming {
		upcoming = append(upcoming, toBookingResponse(b))
	}
	past := make([]bookingResponse, 0, len(parts.Past))
	for _, b := range parts.Past {
		past = append(past, toBookingResponse(b))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"upcoming": upcoming, "past": past})
}

func (h *Handlers) ListExperiences(w http.ResponseWriter, r *http.Request) {
	experiences, err := h.catalog.GetExperiences(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(experiences)
}

func (h *Handlers) GetExperience(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if h.cache != nil {
		if cached, err := h.cache.GetExperience(r.Context(), idStr); err == nil && cached != nil {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(cached)
			return
		}
	}

	exp, err := h.catalog.GetExperience(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "experience not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if h.cache != nil {
		h.cache.SetExperience(r.Context(), exp, time.Minute)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(exp)
}

func (h *Handlers) UpsertUser(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if h.users == nil {
		http.Error(w, "user store not configured", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Name      string            `json:"name"`
		Email     string            `json:"email"`
		Avatar    string            `json:"avatar"`
		Interests []domain.Category `json:"interests"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	existing, err := h.users.GetUser(r.Context(), userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	user := domain.User{
		ID:        userID,
		Name:      req.Name,
		Email:     req.Email,
		Avatar:    req.Avatar,
		Interests: req.Interests,
	}
	if existing != nil {
		user.Favorites = existing.Favorites
		user.Following = existing.Following
	}

	if err := h.users.UpsertUser(r.Context(), user); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

func (h *Handlers) GetFavorites(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if h.users == nil {
		http.Error(w, "user store not configured", http.StatusServiceUnavailable)
		return
	}

	user, err := h.users.GetUser(r.Context(), userID)
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]domain.Experience, 0, len(user.Favorites))
	for _, expID := range user.Favorites {
		exp, err := h.catalog.GetExperience(r.Context(), expID)
		if err != nil {
			continue
		}
		out = append(out, *exp)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (h *Handlers) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	experienceID, err := uuid.Parse(chi.URLParam(r, "experienceId"))
	if err != nil {
		http.Error(w, "invalid experience id", http.StatusBadRequest)
		return
	}
	if h.users == nil {
		http.Error(w, "user store not configured", http.StatusServiceUnavailable)
		return
	}

	favorite, err := h.users.ToggleFavorite(r.Context(), userID, experienceID)
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"favorite": favorite})
}

func (h *Handlers) ToggleFollow(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if h.users == nil {
		http.Error(w, "user store not configured", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Host string `json:"host"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Host == "" {
		http.Error(w, "host is required", http.StatusBadRequest)
		return
	}

	following, err := h.users.ToggleFollow(r.Context(), userID, req.Host)
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"following": following})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
