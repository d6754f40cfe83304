package chat

// ChatError is the error type for this package.
type ChatError uint

const (
	// ErrInvalidRoom is returned when a room name is empty or unknown.
	ErrInvalidRoom ChatError = iota
	// ErrDuplicateRoom is returned when two room definitions share a name.
	ErrDuplicateRoom
	// ErrNotMember is returned when a nickname isn't in the room.
	ErrNotMember
)

func (c ChatError) Error() string {
	switch c {
	case ErrInvalidRoom:
		return "Invalid room"
	case ErrDuplicateRoom:
		return "Room already exists"
	case ErrNotMember:
		return "User is not a member of the room"
	default:
		return "Unknown error"
	}
}

// Status is the soft, user-facing outcome of a join or rename.
type Status int

const (
	// Added means the user is now a member.
	Added Status = iota
	// AlreadyExists means the nickname is taken in the room.
	AlreadyExists
	// Banned means the user's IP address is banned from the room.
	Banned
	// InvalidRoom means the room parameter was missing or unknown.
	InvalidRoom
	// AliasExhausted means every suffixed nickname retry collided.
	AliasExhausted
	// NotMember means the user to act upon isn't in the room.
	NotMember
	// InvalidNickname means the nickname was empty.
	InvalidNickname
)

func (s Status) String() string {
	switch s {
	case Added:
		return "added"
	case AlreadyExists:
		return "already_exists"
	case Banned:
		return "banned"
	case InvalidRoom:
		return "invalid_room"
	case AliasExhausted:
		return "alias_exhausted"
	case NotMember:
		return "not_member"
	case InvalidNickname:
		return "invalid_nickname"
	default:
		return "unknown"
	}
}
