package chat

import "time"

// RoomDefinition describes a room provisioned at startup.
type RoomDefinition struct {
	Name          string
	Description   string
	AdminPassword string
	Display       DisplayAttributes

	// LogSize bounds the room-wide log. Zero uses DefaultRoomLogSize.
	LogSize int
}

// Registry is the process-wide table of rooms. It is filled once by
// NewRegistry and only read afterwards, so lookups need no locking.
type Registry struct {
	rooms map[string]*Room
	order []*Room
}

// NewRegistry builds a registry from the ordered room definitions. Empty or
// duplicated names are rejected.
func NewRegistry(defs []RoomDefinition, clock func() time.Time) (*Registry, error) {
	reg := &Registry{
		rooms: make(map[string]*Room, len(defs)),
		order: make([]*Room, 0, len(defs)),
	}
	for _, def := range defs {
		if def.Name == "" {
			return nil, ErrInvalidRoom
		}
		if _, ok := reg.rooms[def.Name]; ok {
			return nil, ErrDuplicateRoom
		}
		room := NewRoom(def, clock)
		reg.rooms[def.Name] = room
		reg.order = append(reg.order, room)
	}
	return reg, nil
}

// Lookup returns the room called name, or ErrInvalidRoom.
func (reg *Registry) Lookup(name string) (*Room, error) {
	if name == "" {
		return nil, ErrInvalidRoom
	}
	room, ok := reg.rooms[name]
	if !ok {
		return nil, ErrInvalidRoom
	}
	return room, nil
}

// List returns the rooms in provisioning order.
func (reg *Registry) List() []*Room {
	return append([]*Room(nil), reg.order...)
}
