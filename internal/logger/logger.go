package logger

import (
	"io"
	"log"
	"os"
)

var DebugMode bool

// Init configures the standard logger. Output is discarded by default so log
// lines cannot corrupt the TUI; callers redirect it to a file in debug mode.
func Init() {
	if os.Getenv("DEBUG") == "true" {
		DebugMode = true
	} else {
		log.SetOutput(io.Discard)
	}
}

// SetOutput sets the output destination for the standard logger
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func Debug(format string, v ...interface{}) {
	if DebugMode {
		log.Printf("[DEBUG] "+format, v...)
	}
}

func Info(format string, v ...interface{}) {
	log.Printf("[INFO] "+format, v...)
}
