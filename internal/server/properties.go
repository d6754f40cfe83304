// Package server reads the chat properties file and provisions the chat
// service from it.
package server

import (
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/Tyrowin/roomchat/internal/catalog"
	"github.com/Tyrowin/roomchat/internal/chat"
)

// Property keys and their defaults.
const (
	propInactivity       = "chat.users.max.inactivity.seconds"
	propFloodDelay       = "chat.flood.delay.seconds"
	propFloodMaxSize     = "chat.flood.max.data.size"
	propFloodBotName     = "chat.flood.bot.name"
	propFloodBotMessage  = "chat.flood.bot.message"
	propNicknameRetries  = "chat.nickname.max.retries"
	propRoomLogSize      = "chat.room.log.size"
	propRoomPrefix       = "chat.room"
	defaultRoomName      = "Lobby"
	defaultRoomTopic     = "Welcome to the lobby"
	defaultAdminPassword = "chatadmin"
)

var defaultDisplay = chat.DisplayAttributes{
	BgColor:       "DDDDDD",
	ButtonBgColor: "555555",
	ButtonFgColor: "FFFFFF",
	FieldBgColor:  "FFFFFF",
}

// LoadProperties reads the java-properties file at path. An empty path
// yields the defaults only. Keys keep their dots: they are never split into
// nested sections.
func LoadProperties(path string) (*viper.Viper, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigType("properties")

	sweeper := chat.DefaultSweeperConfig()
	v.SetDefault(propInactivity, sweeper.InactivityTimeout)
	v.SetDefault(propFloodDelay, sweeper.FloodWindow)
	v.SetDefault(propFloodMaxSize, sweeper.FloodMaxBytes)
	v.SetDefault(propFloodBotName, sweeper.SupervisorName)
	v.SetDefault(propFloodBotMessage, sweeper.SupervisorMessage)
	v.SetDefault(propNicknameRetries, chat.DefaultNicknameRetries)
	v.SetDefault(propRoomLogSize, chat.DefaultRoomLogSize)

	if path == "" {
		return v, nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading properties %s: %w", path, err)
	}
	return v, nil
}

func stringOr(v *viper.Viper, key, fallback string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return fallback
}

// RoomDefinitions reads chat.room1.*, chat.room2.*, ... until a room has no
// name. Without any room, a default lobby is returned.
func RoomDefinitions(v *viper.Viper) []chat.RoomDefinition {
	logSize := v.GetInt(propRoomLogSize)

	var defs []chat.RoomDefinition
	for i := 1; ; i++ {
		prefix := propRoomPrefix + strconv.Itoa(i) + "."
		name := v.GetString(prefix + "name")
		if name == "" {
			break
		}
		defs = append(defs, chat.RoomDefinition{
			Name:          name,
			Description:   v.GetString(prefix + "description"),
			AdminPassword: stringOr(v, prefix+"admin.password", defaultAdminPassword),
			Display: chat.DisplayAttributes{
				BgColor:       stringOr(v, prefix+"bgcolor", defaultDisplay.BgColor),
				ButtonBgColor: stringOr(v, prefix+"btbgcolor", defaultDisplay.ButtonBgColor),
				ButtonFgColor: stringOr(v, prefix+"btfgcolor", defaultDisplay.ButtonFgColor),
				FieldBgColor:  stringOr(v, prefix+"fdbgcolor", defaultDisplay.FieldBgColor),
			},
			LogSize: logSize,
		})
	}

	if len(defs) == 0 {
		log.Infof("No rooms configured, provisioning %q", defaultRoomName)
		defs = append(defs, chat.RoomDefinition{
			Name:          defaultRoomName,
			Description:   defaultRoomTopic,
			AdminPassword: defaultAdminPassword,
			Display:       defaultDisplay,
			LogSize:       logSize,
		})
	}
	return defs
}

// ChatConfig reads the sweeper thresholds and the join policy.
func ChatConfig(v *viper.Viper) chat.Config {
	return chat.Config{
		Sweeper: chat.SweeperConfig{
			Interval:          time.Second,
			InactivityTimeout: v.GetInt(propInactivity),
			FloodWindow:       v.GetInt(propFloodDelay),
			FloodMaxBytes:     v.GetInt(propFloodMaxSize),
			SupervisorName:    v.GetString(propFloodBotName),
			SupervisorMessage: v.GetString(propFloodBotMessage),
		},
		NicknameRetries: v.GetInt(propNicknameRetries),
	}
}

// NewChatService builds a stopped chat service from cfg.PropertiesFile.
func NewChatService(cfg *Config) (*chat.Service, error) {
	v, err := LoadProperties(cfg.PropertiesFile)
	if err != nil {
		return nil, err
	}

	defs := RoomDefinitions(v)
	registry, err := chat.NewRegistry(defs, nil)
	if err != nil {
		return nil, fmt.Errorf("provisioning rooms: %w", err)
	}

	log.WithField("rooms", len(defs)).Info("Rooms provisioned")
	return chat.NewService(registry, catalog.FromViper(v), ChatConfig(v), nil), nil
}
