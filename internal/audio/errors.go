package audio

import "errors"

var (
	ErrUnknownParam      = errors.New("unknown parameter")
	ErrUnknownInstrument = errors.New("unknown instrument")
	ErrSampleRate        = errors.New("sample rate mismatch")
	ErrNotWAV            = errors.New("not a wav file")
	ErrBadValue          = errors.New("value is not a finite number")
)
