package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	joinsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_joins_total",
			Help: "Join attempts by outcome.",
		},
		[]string{"status"},
	)
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_commands_total",
			Help: "Slash commands dispatched, by command name.",
		},
		[]string{"command"},
	)
	entriesDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_entries_delivered_total",
			Help: "Entries appended to user queues.",
		},
	)
	sweeperEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_sweeper_evictions_total",
			Help: "Users evicted for inactivity.",
		},
	)
	sweeperFloodBans = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_sweeper_flood_bans_total",
			Help: "Users kicked and banned for flooding.",
		},
	)
	roomMembers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chat_room_members",
			Help: "Current members per room, refreshed every sweep.",
		},
		[]string{"room"},
	)
)

func init() {
	prometheus.MustRegister(joinsTotal)
	prometheus.MustRegister(commandsTotal)
	prometheus.MustRegister(entriesDelivered)
	prometheus.MustRegister(sweeperEvictions)
	prometheus.MustRegister(sweeperFloodBans)
	prometheus.MustRegister(roomMembers)
}
