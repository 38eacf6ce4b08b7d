package utils

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the application logger. Production gets JSON lines,
// development gets colored text; the level comes from configuration.
func NewLogger(level, appEnv string) *logrus.Logger {
	log := logrus.New()

	if appEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)

	return log
}
