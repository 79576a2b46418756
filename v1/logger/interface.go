package logger

// Logger is the logging contract implemented by *LoggerClient.
//
// Consumers should declare their own interface with the subset they need
// (usually the same four or five methods) instead of importing this one,
// which keeps packages decoupled from the zap implementation.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	Fatal(msg string, err error, fields ...map[string]interface{})
}

var _ Logger = (*LoggerClient)(nil)
