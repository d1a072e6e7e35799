package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/habitbot/habitbot/internal/domain"
	"github.com/habitbot/habitbot/internal/errs"
	"github.com/habitbot/habitbot/internal/http/middleware"
	"github.com/habitbot/habitbot/internal/http/response"
	"github.com/habitbot/habitbot/internal/repository"
)

const dateLayout = "2006-01-02"

type HabitHandler struct {
	users  repository.UserRepository
	habits repository.HabitRepository
	logs   repository.HabitLogRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewHabitHandler(users repository.UserRepository, habits repository.HabitRepository, logs repository.HabitLogRepository, logger *slog.Logger) *HabitHandler {
	return &HabitHandler{users: users, habits: habits, logs: logs, logger: logger, now: time.Now}
}

type createHabitRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	TargetDays  int    `json:"target_days"`
	StartDate   string `json:"start_date"`
	IsTracked   bool   `json:"is_tracked"`
}

type updateHabitRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	TargetDays  *int    `json:"target_days"`
	StreakDays  *int    `json:"streak_days"`
	StartDate   *string `json:"start_date"`
	IsTracked   *bool   `json:"is_tracked"`
}

type createLogRequest struct {
	LogDate   string `json:"log_date"`
	Completed bool   `json:"completed"`
}

func (h *HabitHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	habits, err := h.habits.ListByUser(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("list habits failed", "error", err)
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not list habits")
		return
	}
	response.JSON(w, r, http.StatusOK, habits)
}

func (h *HabitHandler) Unlogged(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	asOf := h.now()
	if v := r.URL.Query().Get("as_of"); v != "" {
		parsed, err := time.Parse(dateLayout, v)
		if err != nil {
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid as_of date")
			return
		}
		asOf = parsed
	}
	habits, err := h.habits.ListUnlogged(r.Context(), user.ID, asOf)
	if err != nil {
		h.logger.Error("list unlogged habits failed", "error", err)
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not list habits")
		return
	}
	response.JSON(w, r, http.StatusOK, habits)
}

func (h *HabitHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	var req createHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if req.Name == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "name is required")
		return
	}
	startDate := domain.Day(h.now())
	if req.StartDate != "" {
		parsed, err := time.Parse(dateLayout, req.StartDate)
		if err != nil {
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid start_date")
			return
		}
		startDate = domain.Day(parsed)
	}
	targetDays := req.TargetDays
	if targetDays <= 0 {
		targetDays = 21
	}
	habit := &domain.Habit{
		UserID:      user.ID,
		Name:        req.Name,
		Description: req.Description,
		TargetDays:  targetDays,
		StreakDays:  targetDays,
		StartDate:   startDate,
		IsTracked:   req.IsTracked,
	}
	if err := h.habits.Create(r.Context(), habit); err != nil {
		h.logger.Error("create habit failed", "error", err)
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not create habit")
		return
	}
	response.JSON(w, r, http.StatusCreated, habit)
}

func (h *HabitHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	habit, ok := h.ownedHabit(w, r, user)
	if !ok {
		return
	}
	var req updateHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	upd := repository.HabitUpdate{
		Name:        req.Name,
		Description: req.Description,
		TargetDays:  req.TargetDays,
		StreakDays:  req.StreakDays,
		IsTracked:   req.IsTracked,
	}
	if req.StartDate != nil {
		parsed, err := time.Parse(dateLayout, *req.StartDate)
		if err != nil {
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid start_date")
			return
		}
		day := domain.Day(parsed)
		upd.StartDate = &day
	}
	updated, err := h.habits.Update(r.Context(), habit.ID, upd)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "habit not found")
			return
		}
		h.logger.Error("update habit failed", "error", err)
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not update habit")
		return
	}
	response.JSON(w, r, http.StatusOK, updated)
}

func (h *HabitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	habit, ok := h.ownedHabit(w, r, user)
	if !ok {
		return
	}
	if err := h.habits.Delete(r.Context(), habit.ID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "habit not found")
			return
		}
		h.logger.Error("delete habit failed", "error", err)
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not delete habit")
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *HabitHandler) CreateLog(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	habit, ok := h.ownedHabit(w, r, user)
	if !ok {
		return
	}
	var req createLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	logDate := h.now()
	if req.LogDate != "" {
		parsed, err := time.Parse(dateLayout, req.LogDate)
		if err != nil {
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid log_date")
			return
		}
		logDate = parsed
	}
	log, err := h.logs.Create(r.Context(), habit.ID, logDate, req.Completed)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrAlreadyExists):
			response.Error(w, r, http.StatusConflict, "CONFLICT", "log already exists for this date")
		case errors.Is(err, errs.ErrNotFound):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "habit not found")
		default:
			h.logger.Error("create habit log failed", "error", err)
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not create log")
		}
		return
	}
	response.JSON(w, r, http.StatusCreated, log)
}

func (h *HabitHandler) currentUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	subject, ok := middleware.SubjectFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token")
		return nil, false
	}
	user, err := h.users.FindByUsername(r.Context(), subject)
	if err != nil {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "unknown subject")
		return nil, false
	}
	return user, true
}

// ownedHabit resolves the {id} parameter and enforces that the habit belongs
// to the authenticated user. Foreign habits render as 404, not 403.
func (h *HabitHandler) ownedHabit(w http.ResponseWriter, r *http.Request, user *domain.User) (*domain.Habit, bool) {
	id64, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid habit id")
		return nil, false
	}
	habit, err := h.habits.Get(r.Context(), uint(id64))
	if err != nil || habit.UserID != user.ID {
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "habit not found")
		return nil, false
	}
	return habit, true
}
