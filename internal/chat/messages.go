package chat

// Messages looks up a localized message template by symbolic name and
// substitutes up to three positional arguments: {0} the acting nickname,
// {1} the target user, {2} a free comment.
type Messages interface {
	Format(name string, args ...string) string
}

// Symbolic message names used by the core.
const (
	MsgOp                 = "op"
	MsgQuit               = "quit"
	MsgEnter              = "enter"
	MsgTopic              = "topic"
	MsgAway               = "away"
	MsgComeback           = "comeback"
	MsgNick               = "nick"
	MsgKick               = "kick"
	MsgKicked             = "kicked"
	MsgBan                = "ban"
	MsgBanned             = "banned"
	MsgDeban              = "deban"
	MsgMode               = "mode"
	MsgCommandDenied      = "command.denied"
	MsgCommandInvalidArgs = "command.invalid.params"
	MsgCommandInvalidUser = "command.invalid.user"
	MsgCommandUnknown     = "command.unknown"
	MsgInvalidNick        = "invalid.nick"
	MsgExit               = "exit"
	MsgBannedListTitle    = "banned.list.title"
	MsgBannedListTable    = "banned.list.table"
	MsgWhoisTitle         = "users.infos.title"
	MsgWhoisIP            = "users.infos.ip"
	MsgWhoisLastAccess    = "users.infos.last.access"
	MsgWhoisEntrance      = "users.infos.entrance"
)

// Replies handed back to the caller of a join, submit or poll rather than
// queued as entries.
const (
	MsgMessageReceived       = "message.received"
	MsgConnectionEstablished = "connection.established"
	MsgConnectionFailed      = "connection.failed"
	MsgInvalidRoom           = "invalid.room"
	MsgUserBanned            = "user.banned"
	MsgUserAlreadyExists     = "user.already.exist"
	MsgAliasExhausted        = "alias.exhausted"
	MsgUserKicked            = "user.kicked"
)
