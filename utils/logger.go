package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"modbot/model"
)

// SetupLogger routes the standard logger to stdout and a rotating log
// file under cfg.Directory.
func SetupLogger(cfg model.LoggerConfig) error {
	if cfg.Directory == "" {
		cfg.Directory = "logs"
	}
	if err := os.MkdirAll(cfg.Directory, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	rotating := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Directory, fmt.Sprintf("modbot-%s.log", time.Now().Format("2006-01-02"))),
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	log.SetOutput(io.MultiWriter(os.Stdout, rotating))
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	return nil
}
