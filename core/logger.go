package core

// Logger is any service able to log messages of different levels.
// args are the extra values attached to the message (errors, maps, the current user).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
