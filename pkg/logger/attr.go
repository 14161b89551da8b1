package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records a component name under the key "component".
func Component(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("component", name)
}

// UserID records the user identifier under the key "user_id".
func UserID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("user_id", id)
}

// ShimKey records the provider key under the key "shim".
func ShimKey(key string) slog.Attr {
	if key == "" {
		return slog.Attr{}
	}
	return slog.String("shim", key)
}

// StateToken records the correlation token under the key "state_token".
// Tokens are opaque and single-use, so logging them does not leak secrets.
func StateToken(token string) slog.Attr {
	if token == "" {
		return slog.Attr{}
	}
	return slog.String("state_token", token)
}
