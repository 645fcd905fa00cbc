package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ahmadyateem/meeting-room-reservation/internal/apperror"
	"github.com/ahmadyateem/meeting-room-reservation/internal/cache"
	"github.com/ahmadyateem/meeting-room-reservation/internal/model"
	"github.com/ahmadyateem/meeting-room-reservation/internal/repository"
	"github.com/ahmadyateem/meeting-room-reservation/internal/validator"
)

// RoomHandler serves room CRUD and search. Reads go through the
// read-through cache; every mutation drops the rooms scope before
// replying.
type RoomHandler struct {
	Rooms   *repository.RoomRepo
	Reviews *repository.ReviewRepo
	Cache   *cache.Cache
}

func NewRoomHandler(r *repository.RoomRepo, rv *repository.ReviewRepo, c *cache.Cache) *RoomHandler {
	return &RoomHandler{Rooms: r, Reviews: rv, Cache: c}
}

type roomReq struct {
	Name       string   `json:"name" validate:"required,max=100"`
	Capacity   int      `json:"capacity" validate:"required"`
	Floor      *int     `json:"floor"`
	Building   *string  `json:"building" validate:"omitempty,max=100"`
	Location   *string  `json:"location" validate:"omitempty,max=255"`
	Equipment  []string `json:"equipment"`
	Amenities  []string `json:"amenities"`
	Status     string   `json:"status"`
	HourlyRate *uint32  `json:"hourly_rate_cents"`
	ImageURL   *string  `json:"image_url" validate:"omitempty,url"`
}

type roomResp struct {
	ID         uint64    `json:"id"`
	Name       string    `json:"name"`
	Capacity   int       `json:"capacity"`
	Floor      *int      `json:"floor,omitempty"`
	Building   *string   `json:"building,omitempty"`
	Location   *string   `json:"location,omitempty"`
	Equipment  []string  `json:"equipment"`
	Amenities  []string  `json:"amenities"`
	Status     string    `json:"status"`
	HourlyRate *uint32   `json:"hourly_rate_cents,omitempty"`
	ImageURL   *string   `json:"image_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toRoomResp(r model.Room) roomResp {
	return roomResp{
		ID:         r.ID,
		Name:       r.Name,
		Capacity:   r.Capacity,
		Floor:      r.Floor,
		Building:   r.Building,
		Location:   r.Location,
		Equipment:  r.Equipment,
		Amenities:  r.Amenities,
		Status:     r.Status,
		HourlyRate: r.HourlyRate,
		ImageURL:   r.ImageURL,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func (h *RoomHandler) validateRoomInput(req roomReq) error {
	if verr := validator.RoomCapacity(req.Capacity); verr != nil {
		return verr
	}
	if req.Status != "" {
		if verr := validator.RoomStatus(req.Status); verr != nil {
			return verr
		}
	}
	return nil
}

// Create adds a room. Facility managers and admins only.
func (h *RoomHandler) Create(c echo.Context) error {
	var req roomReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	if err := h.validateRoomInput(req); err != nil {
		return err
	}

	rm := model.Room{
		Name:       req.Name,
		Capacity:   req.Capacity,
		Floor:      req.Floor,
		Building:   req.Building,
		Location:   req.Location,
		Equipment:  req.Equipment,
		Amenities:  req.Amenities,
		Status:     req.Status,
		HourlyRate: req.HourlyRate,
		ImageURL:   req.ImageURL,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Rooms.Create(ctx, &rm); err != nil {
		if err == repository.ErrConflict {
			return apperror.Conflict("A room with this name already exists")
		}
		return apperror.Internal("room creation failed", err)
	}
	h.Cache.InvalidatePrefix(ctx, "rooms")
	return c.JSON(http.StatusCreated, toRoomResp(rm))
}

// Get returns one room, including its review summary.
func (h *RoomHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	key := cache.Key("rooms", id)
	var cached roomDetailResp
	if h.Cache.Get(ctx, key, &cached) {
		return c.JSON(http.StatusOK, cached)
	}

	rm, err := h.Rooms.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return apperror.NotFound("Room")
		}
		return apperror.Internal("room lookup failed", err)
	}
	summary, err := h.Reviews.SummaryByRoom(ctx, id)
	if err != nil {
		return apperror.Internal("review summary failed", err)
	}

	resp := roomDetailResp{roomResp: toRoomResp(rm), Reviews: summary}
	h.Cache.Set(ctx, key, resp)
	return c.JSON(http.StatusOK, resp)
}

type roomDetailResp struct {
	roomResp
	Reviews repository.RoomSummary `json:"reviews"`
}

// List returns rooms matching the query filters. Supports min_capacity,
// building, floor, status, equipment (comma separated) and q (name or
// location substring).
func (h *RoomHandler) List(c echo.Context) error {
	limit, offset := pagination(c)
	f := repository.RoomFilter{
		Building: c.QueryParam("building"),
		Status:   c.QueryParam("status"),
		Query:    c.QueryParam("q"),
		Limit:    limit,
		Offset:   offset,
	}
	if raw := c.QueryParam("min_capacity"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return apperror.Validation("invalid min_capacity")
		}
		f.MinCapacity = n
	}
	if raw := c.QueryParam("floor"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return apperror.Validation("invalid floor")
		}
		f.Floor = &n
	}
	if raw := c.QueryParam("equipment"); raw != "" {
		f.Equipment = splitCommaList(raw)
	}
	if f.Status != "" {
		if verr := validator.RoomStatus(f.Status); verr != nil {
			return verr
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	floor := ""
	if f.Floor != nil {
		floor = strconv.Itoa(*f.Floor)
	}
	key := cache.Key("rooms", "list", f.MinCapacity, f.Building, floor, f.Status,
		strings.Join(f.Equipment, "+"), f.Query, f.Limit, f.Offset)
	var resp roomListResp
	if h.Cache.Get(ctx, key, &resp) {
		return c.JSON(http.StatusOK, resp)
	}

	rooms, err := h.Rooms.List(ctx, f)
	if err != nil {
		return apperror.Internal("room list failed", err)
	}
	out := make([]roomResp, 0, len(rooms))
	for _, rm := range rooms {
		out = append(out, toRoomResp(rm))
	}
	resp = roomListResp{Rooms: out, Count: len(out)}
	h.Cache.Set(ctx, key, resp)
	return c.JSON(http.StatusOK, resp)
}

type roomListResp struct {
	Rooms []roomResp `json:"rooms"`
	Count int        `json:"count"`
}

// Update overwrites a room's fields. Facility managers and admins only.
func (h *RoomHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req roomReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	if err := h.validateRoomInput(req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rm, err := h.Rooms.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return apperror.NotFound("Room")
		}
		return apperror.Internal("room lookup failed", err)
	}

	rm.Name = req.Name
	rm.Capacity = req.Capacity
	rm.Floor = req.Floor
	rm.Building = req.Building
	rm.Location = req.Location
	rm.Equipment = req.Equipment
	rm.Amenities = req.Amenities
	if req.Status != "" {
		rm.Status = req.Status
	}
	rm.HourlyRate = req.HourlyRate
	rm.ImageURL = req.ImageURL

	if err := h.Rooms.Update(ctx, &rm); err != nil {
		if err == repository.ErrConflict {
			return apperror.Conflict("A room with this name already exists")
		}
		if err == repository.ErrNotFound {
			return apperror.NotFound("Room")
		}
		return apperror.Internal("room update failed", err)
	}
	h.Cache.InvalidatePrefix(ctx, "rooms")
	return c.JSON(http.StatusOK, toRoomResp(rm))
}

type roomStatusReq struct {
	Status string `json:"status" validate:"required"`
}

// UpdateStatus flips the operational status flag only, e.g. to take a
// room into maintenance without touching its description.
func (h *RoomHandler) UpdateStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req roomStatusReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	if verr := validator.RoomStatus(req.Status); verr != nil {
		return verr
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Rooms.UpdateStatus(ctx, id, req.Status); err != nil {
		if err == repository.ErrNotFound {
			return apperror.NotFound("Room")
		}
		return apperror.Internal("room status update failed", err)
	}
	h.Cache.InvalidatePrefix(ctx, "rooms")
	return c.JSON(http.StatusOK, echo.Map{"message": "Room status updated", "status": req.Status})
}

// Delete removes a room. Refused while active bookings reference it.
func (h *RoomHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Rooms.Delete(ctx, id); err != nil {
		switch err {
		case repository.ErrConflict:
			return apperror.Conflict("Cannot delete room with active bookings")
		case repository.ErrNotFound:
			return apperror.NotFound("Room")
		default:
			return apperror.Internal("room deletion failed", err)
		}
	}
	h.Cache.InvalidatePrefix(ctx, "rooms")
	return c.JSON(http.StatusOK, echo.Map{"message": "Room deleted successfully"})
}
