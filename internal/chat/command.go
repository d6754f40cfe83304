package chat

import (
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Layouts used when reporting user times to operators.
const (
	whoisTimeLayout   = time.UnixDate
	banlistTimeLayout = "02/01/2006 15:04"
)

// command is a parsed slash command. arg1 and arg2 split args once on its
// first space; arg2 keeps every remaining space.
type command struct {
	name string
	args string
	arg1 string
	arg2 string
}

// parseCommand splits raw into a command. It returns false for plain chat
// lines, i.e. anything not starting with a slash.
func parseCommand(raw string) (command, bool) {
	if !strings.HasPrefix(raw, "/") {
		return command{}, false
	}

	name, args, found := strings.Cut(raw, " ")
	if !found {
		return command{name: strings.ToUpper(raw)}, true
	}

	cmd := command{name: strings.ToUpper(name), args: args}
	cmd.arg1, cmd.arg2, _ = strings.Cut(args, " ")
	return cmd, true
}

// commandContext carries everything a handler may touch. Handlers run with
// the room's lock held.
type commandContext struct {
	proc *Processor
	room *Room
	user *User

	// sender is the member-table key the user was found under. It differs
	// from user.nickname after a failed rename.
	sender string

	cmd command
}

// commandHandler handles one slash command.
type commandHandler interface {
	Handle(*commandContext)
}

// commandHandlerFunc is an adapter to use an ordinary function as a
// commandHandler.
type commandHandlerFunc func(*commandContext)

// Handle calls f(ctx).
func (f commandHandlerFunc) Handle(ctx *commandContext) {
	f(ctx)
}

var anyoneCommands map[string]commandHandler   // Usable whatever the sender's mode
var operatorCommands map[string]commandHandler // Usable by operators only

func init() {
	anyoneCommands = map[string]commandHandler{
		"/AWAY": cmdAway,
		"/QUIT": cmdQuit,
		"/PART": cmdPart,
	}

	operatorCommands = map[string]commandHandler{
		"/MODE":    cmdMode,
		"/WHOIS":   cmdWhois,
		"/KICK":    cmdKick,
		"/NICK":    cmdNick,
		"/TOPIC":   cmdTopic,
		"/MSG":     cmdMsg,
		"/ME":      cmdMe,
		"/BANLIST": cmdBanlist,
	}
}

// Processor turns submitted text into chat lines or command effects.
type Processor struct {
	messages Messages
	clock    func() time.Time
}

// NewProcessor creates a processor formatting notices with messages.
func NewProcessor(messages Messages, clock func() time.Time) *Processor {
	if clock == nil {
		clock = time.Now
	}
	return &Processor{messages: messages, clock: clock}
}

// Dispatch processes rawText sent by senderNickname in room. Unknown senders
// and empty text are ignored.
func (p *Processor) Dispatch(rawText string, room *Room, senderNickname string) {
	room.lock.Lock()
	defer room.lock.Unlock()

	u, ok := room.members[senderNickname]
	if !ok {
		return
	}
	p.dispatchUnsafe(rawText, room, senderNickname, u)
}

func (p *Processor) dispatchUnsafe(rawText string, room *Room, sender string, u *User) {
	if rawText == "" {
		return
	}

	cmd, isCommand := parseCommand(rawText)
	if !isCommand {
		room.broadcastUnsafe(NewMessage(u.nickname, rawText, p.clock()), "")
		u.RecordSentBytes(rawText)
		return
	}

	ctx := &commandContext{proc: p, room: room, user: u, sender: sender, cmd: cmd}

	if handler, ok := anyoneCommands[cmd.name]; ok {
		commandsTotal.WithLabelValues(cmd.name).Inc()
		handler.Handle(ctx)
		return
	}

	if u.mode != ModeOperator {
		if cmd.name == "/OP" {
			commandsTotal.WithLabelValues(cmd.name).Inc()
			cmdOp(ctx)
			return
		}
		log.WithFields(log.Fields{"room": room.name, "nickname": u.nickname, "command": cmd.name}).Debug("Command denied")
		denied := p.format(MsgCommandDenied, u.nickname)
		ctx.notifySender(denied)
		u.RecordSentBytes(denied)
		return
	}

	handler, ok := operatorCommands[cmd.name]
	if !ok {
		commandsTotal.WithLabelValues("unknown").Inc()
		unknown := p.format(MsgCommandUnknown, u.nickname)
		ctx.notifySender(unknown)
		u.RecordSentBytes(unknown)
		return
	}
	commandsTotal.WithLabelValues(cmd.name).Inc()
	handler.Handle(ctx)
}

func (p *Processor) format(name string, args ...string) string {
	return p.messages.Format(name, args...)
}

// notifyRoom broadcasts a system notice to every member.
func (ctx *commandContext) notifyRoom(text string) {
	ctx.room.broadcastUnsafe(NewNotification("", text, ctx.proc.clock()), "")
}

// notifySender sends a system notice to the command's issuer only.
func (ctx *commandContext) notifySender(text string) {
	ctx.room.deliverUnsafe(ctx.user, NewNotification("", text, ctx.proc.clock()))
}

// lookupTarget returns the member called nickname, or tells the issuer the
// user is invalid and returns nil.
func (ctx *commandContext) lookupTarget(nickname string) *User {
	target, ok := ctx.room.members[nickname]
	if !ok {
		ctx.notifySender(ctx.proc.format(MsgCommandInvalidUser, ctx.user.nickname, nickname, ""))
		return nil
	}
	return target
}

// cmdAway marks the sender away. Operators drop to voice while away.
var cmdAway commandHandlerFunc = func(ctx *commandContext) {
	u := ctx.user
	if u.mode == ModeOperator {
		u.SetMode(ModeVoice)
	}

	comment := ctx.cmd.args
	if comment == "" {
		u.SetAway(true)
	} else {
		u.SetAwayComment(comment)
	}
	notice := ctx.proc.format(MsgAway, u.nickname, "", comment)
	ctx.notifyRoom(notice)
	u.RecordSentBytes(notice)
}

// cmdQuit announces the sender's departure and marks them for removal.
var cmdQuit commandHandlerFunc = func(ctx *commandContext) {
	quit(ctx, ctx.cmd.args)
}

// cmdPart is /QUIT without a comment.
var cmdPart commandHandlerFunc = func(ctx *commandContext) {
	quit(ctx, "")
}

func quit(ctx *commandContext, comment string) {
	ctx.notifyRoom(ctx.proc.format(MsgQuit, ctx.user.nickname, "", comment))
	ctx.user.Kick(ctx.proc.format(MsgExit))
}

// cmdOp promotes a non-operator who knows the room's admin password. A wrong
// password is silently ignored.
var cmdOp commandHandlerFunc = func(ctx *commandContext) {
	if !ctx.room.checkAdminPassword(ctx.cmd.args) {
		return
	}
	u := ctx.user
	u.SetMode(ModeOperator)
	ctx.room.broadcastUnsafe(NewNotification(u.nickname, ctx.proc.format(MsgOp, u.nickname), ctx.proc.clock()), "")
	log.WithFields(log.Fields{"room": ctx.room.name, "nickname": u.nickname}).Info("User promoted to operator")
}

// modeDirective is what a /MODE symbol asks for.
type modeDirective int

const (
	directiveInvalid modeDirective = iota
	directiveMode
	directiveBan
	directiveUnban
)

// parseModeSymbol maps +O, +V, -O, -V, +B and -B. The symbol is
// case-insensitive.
func parseModeSymbol(symbol string) (modeDirective, Mode) {
	switch strings.ToUpper(symbol) {
	case "+O":
		return directiveMode, ModeOperator
	case "+V":
		return directiveMode, ModeVoice
	case "-O", "-V":
		return directiveMode, ModeNormal
	case "+B":
		return directiveBan, ModeNormal
	case "-B":
		return directiveUnban, ModeNormal
	default:
		return directiveInvalid, ModeNormal
	}
}

// cmdMode changes a member's mode, bans a member, or lifts a ban by IP.
var cmdMode commandHandlerFunc = func(ctx *commandContext) {
	op := ctx.user
	symbol, targetName := ctx.cmd.arg1, ctx.cmd.arg2
	directive, mode := parseModeSymbol(symbol)

	switch directive {
	case directiveMode:
		target := ctx.lookupTarget(targetName)
		if target == nil {
			return
		}
		target.SetMode(mode)
		ctx.notifyRoom(ctx.proc.format(MsgMode, op.nickname, target.nickname, strings.ToUpper(symbol)))
	case directiveBan:
		target := ctx.lookupTarget(targetName)
		if target == nil {
			return
		}
		ctx.room.banUserUnsafe(targetName, ctx.proc.format(MsgBanned))
		ctx.notifyRoom(ctx.proc.format(MsgBan, op.nickname, target.nickname, ""))
	case directiveUnban:
		ctx.room.unbanUserUnsafe(targetName)
		ctx.notifySender(ctx.proc.format(MsgDeban, "", targetName, ""))
	default:
		ctx.notifySender(ctx.proc.format(MsgCommandInvalidArgs, "", targetName, ""))
	}
}

// cmdWhois sends the operator what is known about a member.
var cmdWhois commandHandlerFunc = func(ctx *commandContext) {
	target := ctx.lookupTarget(ctx.cmd.args)
	if target == nil {
		return
	}

	p := ctx.proc
	var b strings.Builder
	b.WriteString(p.format(MsgWhoisTitle) + target.nickname + "\n")
	b.WriteString(p.format(MsgWhoisIP) + " (" + target.ip + ") " + target.host + "\n")
	b.WriteString(p.format(MsgWhoisLastAccess) + target.lastAccess.Format(whoisTimeLayout) + "\n")
	b.WriteString(p.format(MsgWhoisEntrance) + target.joined.Format(whoisTimeLayout))
	ctx.notifySender(b.String())
}

// cmdKick announces the kick and marks the target for removal on its next
// poll.
var cmdKick commandHandlerFunc = func(ctx *commandContext) {
	targetName, comment := ctx.cmd.arg1, ctx.cmd.arg2
	target := ctx.lookupTarget(targetName)
	if target == nil {
		return
	}

	op := ctx.user.nickname
	ctx.notifyRoom(ctx.proc.format(MsgKick, op, targetName, comment))
	target.Kick(ctx.proc.format(MsgKicked, op, targetName, comment))
	log.WithFields(log.Fields{"room": ctx.room.name, "nickname": targetName, "by": op}).Info("User kicked")
}

// cmdNick renames the invoking operator.
var cmdNick commandHandlerFunc = func(ctx *commandContext) {
	u := ctx.user
	oldNick := u.nickname
	if ctx.room.changeNicknameUnsafe(ctx.sender, ctx.cmd.args) != Added {
		invalid := ctx.proc.format(MsgInvalidNick, ctx.cmd.args)
		ctx.notifySender(invalid)
		u.RecordSentBytes(invalid)
		return
	}
	notice := ctx.proc.format(MsgNick, oldNick, "", u.nickname)
	ctx.notifyRoom(notice)
	u.RecordSentBytes(notice)
}

// cmdTopic replaces the room description.
var cmdTopic commandHandlerFunc = func(ctx *commandContext) {
	ctx.room.description = ctx.cmd.args
	ctx.notifyRoom(ctx.proc.format(MsgTopic, ctx.user.nickname, "", ctx.cmd.args))
}

// cmdMsg delivers a private line to the target and echoes it to the
// operator.
var cmdMsg commandHandlerFunc = func(ctx *commandContext) {
	targetName, text := ctx.cmd.arg1, ctx.cmd.arg2
	target := ctx.lookupTarget(targetName)
	if target == nil {
		return
	}

	op := ctx.user
	from := "<" + op.nickname + ">"
	now := ctx.proc.clock()
	ctx.room.deliverUnsafe(target, NewMessage(from, text, now))
	ctx.room.deliverUnsafe(op, NewMessage(from, text, now))
	op.RecordSentBytes(text)
}

// cmdMe broadcasts an action attributed to the sender.
var cmdMe commandHandlerFunc = func(ctx *commandContext) {
	u := ctx.user
	ctx.room.broadcastUnsafe(NewNotification(u.nickname, ctx.cmd.args, ctx.proc.clock()), "")
	u.RecordSentBytes(ctx.cmd.args)
}

// cmdBanlist sends the operator every ban record.
var cmdBanlist commandHandlerFunc = func(ctx *commandContext) {
	p := ctx.proc
	var b strings.Builder
	b.WriteString(p.format(MsgBannedListTitle) + "\n")
	b.WriteString(p.format(MsgBannedListTable) + "\n")
	for _, banned := range ctx.room.bannedUsersUnsafe() {
		b.WriteString(banned.IP)
		b.WriteString("    ")
		b.WriteString(banned.LastAccess.Format(banlistTimeLayout))
		b.WriteString("        ")
		b.WriteString(banned.Nickname)
		b.WriteString("\n")
	}
	ctx.notifySender(b.String())
}
