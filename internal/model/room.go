package model

import "time"

// Valid room statuses. Status is a manual operational flag set by
// facility managers; it is independent of whether the room currently
// has bookings.
const (
	RoomAvailable    = "available"
	RoomBooked       = "booked"
	RoomMaintenance  = "maintenance"
	RoomOutOfService = "out_of_service"
)

// Room mirrors the `rooms` table. A room accepts new bookings only
// while Status is RoomAvailable. Rooms are referenced, not owned, by
// bookings and reviews: deleting a room is refused while active
// bookings reference it.
//
// Fields:
//  ID         – primary key identifier.
//  Name       – unique room name.
//  Capacity   – maximum number of people, in (0, 1000].
//  Floor      – floor number (nullable).
//  Building   – building name (nullable).
//  Location   – detailed location description (nullable).
//  Equipment  – available equipment, stored as a JSON array.
//  Amenities  – amenities, stored as a JSON array.
//  Status     – one of the Room* status constants.
//  HourlyRate – cost per hour in cents (nullable).
//  ImageURL   – URL to a room image (nullable).
type Room struct {
	ID         uint64    // rooms.id
	Name       string    // rooms.name
	Capacity   int       // rooms.capacity
	Floor      *int      // rooms.floor (nullable)
	Building   *string   // rooms.building (nullable)
	Location   *string   // rooms.location (nullable)
	Equipment  []string  // rooms.equipment (JSON)
	Amenities  []string  // rooms.amenities (JSON)
	Status     string    // rooms.status
	HourlyRate *uint32   // rooms.hourly_rate_cents (nullable)
	ImageURL   *string   // rooms.image_url (nullable)
	CreatedAt  time.Time // rooms.created_at
	UpdatedAt  time.Time // rooms.updated_at
}

// IsAvailable reports whether the room accepts new bookings.
func (r *Room) IsAvailable() bool { return r.Status == RoomAvailable }
