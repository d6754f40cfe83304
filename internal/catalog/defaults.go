package catalog

// defaults are the English templates used when the properties file has no
// entry for a name.
var defaults = map[string]string{
	"op":                      "*** {0} is now an operator",
	"quit":                    "*** {0} has left the room {2}",
	"enter":                   "*** {0} has joined the room",
	"topic":                   "*** {0} changed the topic to: {2}",
	"away":                    "*** {0} is away {2}",
	"comeback":                "*** {0} is back",
	"nick":                    "*** {0} is now known as {2}",
	"kick":                    "*** {1} was kicked by {0} {2}",
	"kicked":                  "You were kicked by {0} {2}",
	"ban":                     "*** {1} was banned by {0}",
	"banned":                  "You are banned from this room",
	"deban":                   "*** {1} is no longer banned",
	"mode":                    "*** {0} sets mode {2} on {1}",
	"command.denied":          "*** {0}, you are not allowed to use this command",
	"command.invalid.params":  "*** Invalid parameters: {1}",
	"command.invalid.user":    "*** Unknown user: {1}",
	"command.unknown":         "*** {0}, unknown command",
	"invalid.nick":            "*** Invalid nickname: {0}",
	"exit":                    "You have left the room",
	"banned.list.title":       "*** Banned users",
	"banned.list.table":       "IP address    Date                Nickname",
	"users.infos.title":       "*** User: ",
	"users.infos.ip":          "Address:",
	"users.infos.last.access": "Last access: ",
	"users.infos.entrance":    "Entered: ",
	"message.received":        "Message received",
	"connection.established":  "Connection established",
	"connection.failed":       "Connection failed",
	"invalid.room":            "Invalid room",
	"user.banned":             "You are banned from this room",
	"user.already.exist":      "This nickname is already in use",
	"alias.exhausted":         "No free nickname could be found",
	"user.kicked":             "You are no longer in this room",
}
