// Package logging builds the logrus handle stored on the orchestrator
// (adapter.Orchestrator.Log) from configuration. Only the adapter package
// logs through that handle; the config, dispatch, event, schedule and
// workerpool packages log through logrus's package-level standard logger,
// which this handle does not configure.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/fieldlink/adapter-sdk/config"
)

// New builds a *logrus.Logger from the adapter's logging configuration: a
// text formatter with millisecond timestamps, the configured level, and
// (when set) a file sink in addition to stderr.
func New(cfg config.LoggingConfig) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02T15:04:05.999Z07:00",
	})

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	var writers []io.Writer
	writers = append(writers, os.Stderr)

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		writers = append(writers, f)
	}

	if len(writers) > 1 {
		log.SetOutput(io.MultiWriter(writers...))
	}

	// cfg.RemoteURL (a remote syslog-style sink) is a recognized
	// configuration key but is not wired to a concrete transport here; the
	// adapter logs this explicitly rather than silently ignoring it.
	if cfg.RemoteURL != "" {
		log.WithField("remoteUrl", cfg.RemoteURL).Warn(
			"[logging] remote log URL configured but no remote sink is wired; logging locally only",
		)
	}

	return log, nil
}
