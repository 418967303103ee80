// Package service exposes the mk1 controller over HTTP, OSC and MIDI.
package service

import (
	"github.com/ingyamilmolinar/mk1/core/looper"
	"github.com/ingyamilmolinar/mk1/internal/mk1"
)

// Controller is the part of mk1.Controller the transports drive.
type Controller interface {
	Exec(cmd mk1.Command) (any, error)
	Status() mk1.Status
	Looper() *looper.Looper
}

func num(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
