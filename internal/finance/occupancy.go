package finance

import (
	"slices"

	"hostel/internal/core"
)

// Occupancy is the per-room view of a set of reservations.
type Occupancy struct {
	// Counts is the number of reservations that include each room.
	Counts map[string]int
	// Revenue splits each reservation's total evenly across its rooms.
	Revenue map[string]core.Money
	// Nights is the nights each room was booked. A multi-room stay books
	// every one of its rooms for the whole stay, so nights are not split.
	Nights map[string]int
}

// Breakdown explodes multi-room reservations into one entry per room.
// Revenue is split in whole cents; the leftover cents go one each to the
// rooms that sort first, so per-room revenue always sums to the gross.
func Breakdown(rs []core.Reservation) Occupancy {
	o := Occupancy{
		Counts:  map[string]int{},
		Revenue: map[string]core.Money{},
		Nights:  map[string]int{},
	}
	for _, r := range rs {
		rooms := slices.Clone(r.Rooms)
		slices.Sort(rooms)
		rooms = slices.Compact(rooms)
		n := int64(len(rooms))
		if n == 0 {
			continue
		}
		share, rem := r.Total.Cents/n, r.Total.Cents%n
		nights := r.Nights()
		for i, room := range rooms {
			cents := share
			if int64(i) < rem {
				cents++
			}
			o.Counts[room]++
			o.Revenue[room] = o.Revenue[room].Add(core.Money{Cents: cents})
			o.Nights[room] += nights
		}
	}
	return o
}

// Rooms lists the rooms present in o in sorted order.
func (o Occupancy) Rooms() []string {
	rooms := make([]string, 0, len(o.Counts))
	for room := range o.Counts {
		rooms = append(rooms, room)
	}
	slices.Sort(rooms)
	return rooms
}

// WithRooms adds a zero entry for every configured room missing from o, so
// idle rooms still show up in reports.
func (o Occupancy) WithRooms(rooms core.RoomSet) Occupancy {
	for _, room := range rooms {
		if _, ok := o.Counts[room]; !ok {
			o.Counts[room] = 0
			o.Revenue[room] = core.Money{}
			o.Nights[room] = 0
		}
	}
	return o
}
