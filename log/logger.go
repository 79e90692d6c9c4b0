package log

import "context"

// Logger defines a standard interface for logging.
// Hosts embedding the token lifecycle engine can bridge it to their own
// logging stack; the provided zerolog adapter is the default.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	With(fields map[string]interface{}) Logger // Returns a new logger with added structured fields
}
