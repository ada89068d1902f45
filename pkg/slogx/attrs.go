package slogx

import "log/slog"

// Error returns a slog.Attr for the provided error under the "error" key.
//
// Parameters:
//   - err: The error to be converted into a slog.Attr.
//
// Returns:
//   - slog.Attr: An attribute with the key "error" and the error's message as the value.
func Error(err error) slog.Attr {
	return slog.String("error", err.Error())
}

// ByteString creates a slog.Attr with the given key and the byte slice
// rendered as a string. Useful for logging wire payloads without an extra
// conversion at every call site.
//
// Parameters:
//   - key: The key for the attribute.
//   - value: The byte slice to be rendered as a string.
func ByteString(key string, value []byte) slog.Attr {
	return slog.String(key, string(value))
}

const (
	// KeyLoggerName is the attribute key naming the component a log record
	// originates from.
	KeyLoggerName = "logger"
)

// LoggerName returns an attribute carrying the component name for a logger.
// The attribute key is defined by KeyLoggerName.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}
