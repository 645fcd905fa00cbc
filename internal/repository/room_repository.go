package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/ahmadyateem/meeting-room-reservation/internal/model"
)

// RoomRepo provides CRUD operations for meeting rooms. Equipment and
// amenities are stored as JSON arrays in TEXT columns so that search
// filters can match them without a join table. All timestamp fields
// are assumed to be stored in UTC.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo returns a new RoomRepo bound to the given database.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

// RoomFilter narrows List/Search results. Zero values mean "no filter".
type RoomFilter struct {
	MinCapacity int
	Building    string
	Floor       *int
	Status      string
	Equipment   []string // every listed item must be present
	Query       string   // substring match on name or location
	Limit       int
	Offset      int
}

const roomColumns = "id, name, capacity, floor, building, location, equipment, amenities, status, hourly_rate_cents, image_url, created_at, updated_at"

func scanRoom(scan func(dest ...any) error) (model.Room, error) {
	var (
		rm         model.Room
		floor      sql.NullInt64
		building   sql.NullString
		location   sql.NullString
		equipment  sql.NullString
		amenities  sql.NullString
		hourlyRate sql.NullInt64
		imageURL   sql.NullString
	)
	err := scan(&rm.ID, &rm.Name, &rm.Capacity, &floor, &building, &location,
		&equipment, &amenities, &rm.Status, &hourlyRate, &imageURL, &rm.CreatedAt, &rm.UpdatedAt)
	if err != nil {
		return rm, err
	}
	if floor.Valid {
		f := int(floor.Int64)
		rm.Floor = &f
	}
	if building.Valid {
		b := building.String
		rm.Building = &b
	}
	if location.Valid {
		l := location.String
		rm.Location = &l
	}
	if equipment.Valid && equipment.String != "" {
		_ = json.Unmarshal([]byte(equipment.String), &rm.Equipment)
	}
	if amenities.Valid && amenities.String != "" {
		_ = json.Unmarshal([]byte(amenities.String), &rm.Amenities)
	}
	if hourlyRate.Valid {
		hr := uint32(hourlyRate.Int64)
		rm.HourlyRate = &hr
	}
	if imageURL.Valid {
		u := imageURL.String
		rm.ImageURL = &u
	}
	return rm, nil
}

func marshalList(items []string) any {
	if len(items) == 0 {
		return nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil
	}
	return string(b)
}

// Create inserts a new room and populates the generated ID and timestamps
// on the provided struct. Duplicate names map to ErrConflict.
func (r *RoomRepo) Create(ctx context.Context, rm *model.Room) error {
	const q = `INSERT INTO rooms (name, capacity, floor, building, location, equipment, amenities, status, hourly_rate_cents, image_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	status := rm.Status
	if status == "" {
		status = model.RoomAvailable
	}
	res, err := r.db.ExecContext(ctx, q,
		rm.Name, rm.Capacity, rm.Floor, rm.Building, rm.Location,
		marshalList(rm.Equipment), marshalList(rm.Amenities), status, rm.HourlyRate, rm.ImageURL)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rm.ID = uint64(id)
	got, err := r.GetByID(ctx, rm.ID)
	if err != nil {
		return err
	}
	*rm = got
	return nil
}

// GetByID fetches a room by id. Missing rows map to ErrNotFound.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (model.Room, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+roomColumns+" FROM rooms WHERE id=? LIMIT 1", id)
	rm, err := scanRoom(row.Scan)
	if err == sql.ErrNoRows {
		return rm, ErrNotFound
	}
	return rm, err
}

// List returns rooms matching the filter, ordered by id. Equipment
// filtering happens in Go after the SQL narrowing because the items
// are stored as a JSON array.
func (r *RoomRepo) List(ctx context.Context, f RoomFilter) ([]model.Room, error) {
	var (
		where []string
		args  []any
	)
	if f.MinCapacity > 0 {
		where = append(where, "capacity >= ?")
		args = append(args, f.MinCapacity)
	}
	if f.Building != "" {
		where = append(where, "building = ?")
		args = append(args, f.Building)
	}
	if f.Floor != nil {
		where = append(where, "floor = ?")
		args = append(args, *f.Floor)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Query != "" {
		where = append(where, "(name LIKE ? OR location LIKE ?)")
		pat := "%" + f.Query + "%"
		args = append(args, pat, pat)
	}

	q := "SELECT " + roomColumns + " FROM rooms"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id"
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q += " LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Room
	for rows.Next() {
		rm, err := scanRoom(rows.Scan)
		if err != nil {
			return nil, err
		}
		if !hasAllItems(rm.Equipment, f.Equipment) {
			continue
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

func hasAllItems(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if strings.EqualFold(h, w) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Update overwrites the mutable fields of a room.
func (r *RoomRepo) Update(ctx context.Context, rm *model.Room) error {
	const q = `UPDATE rooms SET name=?, capacity=?, floor=?, building=?, location=?,
		equipment=?, amenities=?, status=?, hourly_rate_cents=?, image_url=? WHERE id=?`
	res, err := r.db.ExecContext(ctx, q,
		rm.Name, rm.Capacity, rm.Floor, rm.Building, rm.Location,
		marshalList(rm.Equipment), marshalList(rm.Amenities), rm.Status, rm.HourlyRate, rm.ImageURL, rm.ID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish "no such row" from "no change": the latter is fine.
		if _, err := r.GetByID(ctx, rm.ID); err != nil {
			return err
		}
	}
	return nil
}

// UpdateStatus flips only the operational status flag.
func (r *RoomRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE rooms SET status=? WHERE id=?", status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a room. Deletion is refused with ErrConflict while any
// pending or confirmed booking still references the room, so history
// for completed bookings is preserved by cancelling instead.
func (r *RoomRepo) Delete(ctx context.Context, id uint64) error {
	var active int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bookings WHERE room_id=? AND status IN ('pending','confirmed')", id).Scan(&active)
	if err != nil {
		return err
	}
	if active > 0 {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM rooms WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// IDs returns the ids of all rooms matching the filter. Used by the
// fleet-wide availability search.
func (r *RoomRepo) IDs(ctx context.Context, f RoomFilter) ([]uint64, error) {
	f.Limit = 1000
	rooms, err := r.List(ctx, f)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(rooms))
	for _, rm := range rooms {
		ids = append(ids, rm.ID)
	}
	return ids, nil
}
