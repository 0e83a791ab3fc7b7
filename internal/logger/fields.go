package logger

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Block tags a log line with a map block id.
func Block(id string) zap.Field {
	return zap.String("block", id)
}

// State tags a log line with a bake state.
func State(s fmt.Stringer) zap.Field {
	return zap.Stringer("state", s)
}

// Elapsed tags a log line with a duration rounded to milliseconds.
func Elapsed(d time.Duration) zap.Field {
	return zap.Duration("elapsed", d.Round(time.Millisecond))
}

// Asset tags a log line with a numeric asset id.
func Asset(id uint32) zap.Field {
	return zap.String("asset", fmt.Sprintf("%08x", id))
}
