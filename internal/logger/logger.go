package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/HamedShams/agile-delay/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// levelTag renders zerolog levels as the console severities of the pipeline.
func levelTag(i any) string {
	lvl, _ := i.(string)
	switch lvl {
	case zerolog.LevelInfoValue:
		return "[OK]"
	case zerolog.LevelWarnValue:
		return "[WARNING]"
	case zerolog.LevelErrorValue, zerolog.LevelFatalValue, zerolog.LevelPanicValue:
		return "[ERROR]"
	case zerolog.LevelDebugValue, zerolog.LevelTraceValue:
		return "[DEBUG]"
	default:
		return fmt.Sprintf("[%v]", i)
	}
}

func New(cfg config.Config) zerolog.Logger {
	return NewWithWriter(cfg, os.Stderr)
}

func NewWithWriter(cfg config.Config, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		lvl = zerolog.InfoLevel
	}
	if cfg.AppEnv == "dev" {
		output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true, FormatLevel: levelTag}
		logger := zerolog.New(output).Level(lvl).With().Timestamp().Logger()
		log.Logger = logger
		return logger
	}
	zerolog.TimeFieldFormat = time.RFC3339
	logger := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}
