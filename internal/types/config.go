package types

type RunMode string

const (
	// ModeLocal runs both the ops API server and the billing scheduler
	ModeLocal RunMode = "local"
	// ModeAPI runs just the ops API server
	ModeAPI RunMode = "api"
	// ModeScheduler runs just the billing scheduler
	ModeScheduler RunMode = "scheduler"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
