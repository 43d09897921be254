package logging

import (
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Domain fields

func Component(name string) Field {
	return String("component", name)
}

func TopologyID(id string) Field {
	return String("topology_id", id)
}

func ElementID(id string) Field {
	return String("element_id", id)
}

func Operation(op string) Field {
	return String("operation", op)
}

func Status(status string) Field {
	return String("status", status)
}

func ReturnCode(code int) Field {
	return Int("return_code", code)
}

func Revision(rev uint64) Field {
	return Uint64("revision", rev)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}

func RequestID(id string) Field {
	return String("request_id", id)
}

func Recovery(outcome string) Field {
	return String("recovery", outcome)
}
