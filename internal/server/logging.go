// Package server configures the process-wide logger from the server
// configuration.
package server

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ConfigureLogging sets the level and output format of the standard logger.
// Unknown levels fall back to info.
func ConfigureLogging(cfg *Config) {
	log.SetOutput(os.Stdout)

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithError(err).Warnf("Unknown log level %q, using info", cfg.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	switch strings.ToLower(cfg.LogFormat) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
