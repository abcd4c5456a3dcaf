package cmd

import (
	"io"

	"github.com/sirupsen/logrus"
)

// log is the host process logger. Tool diagnostics never go through it;
// they are captured in each run's transcript.
var log = logrus.New()

func configureLogging(out io.Writer, verbose bool) {
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp:       true,
		DisableLevelTruncation: true,
	})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}
}
