// Package applog is a thin wrapper around the standard library's log
// package, grounded on update_music_db/update_music_db.go and
// update_music/scan.go, both of which log plainly via the stdlib logger
// rather than a structured logging library.
package applog

import (
	"io"
	"log"
	"os"
)

var std = log.New(os.Stderr, "", log.LstdFlags)

// SetOutput redirects all applog output, used by tests that want to
// capture or silence log lines.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

func Infof(format string, args...interface{}) { std.Printf("INFO "+format, args...) }
func Warnf(format string, args...interface{}) { std.Printf("WARN "+format, args...) }
func Errorf(format string, args...interface{}) { std.Printf("ERROR "+format, args...) }

// Fatalf logs the message and terminates the process, matching
// update_music_db.go's log.Fatal convention for unrecoverable startup
// errors.
func Fatalf(format string, args...interface{}) { std.Fatalf("FATAL "+format, args...) }
