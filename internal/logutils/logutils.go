package logutils

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide logger. InitLogger must be called once at startup;
// until then the logrus defaults apply.
var Log = logrus.New()

func InitLogger(level string) {
	parsedLevel, err := logrus.ParseLevel(level)
	if err != nil {
		Log.Warnf("Invalid log level '%s', defaulting to 'info'", level)
		parsedLevel = logrus.InfoLevel
	}
	Log.SetLevel(parsedLevel)
	Log.SetOutput(os.Stdout)
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}
