package core

// Logger is the application-wide leveled logger. Implementations may forward to an
// error-reporting backend; Enable toggles that forwarding.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
