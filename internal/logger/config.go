// internal/logger/config.go
package logger

// Config controls where logs go and how verbose they are.
type Config struct {
	// LogFile receives JSON logs with rotation. Empty disables the file sink.
	LogFile    string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size_mb"` // megabytes
	MaxAge     int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
	// Development enables debug level, which includes every quote calculation.
	Development bool `mapstructure:"debug"`
	// Console selects the console sink: "pretty", "plain" or "none".
	Console string `mapstructure:"console"`
}

const (
	ConsolePretty = "pretty"
	ConsolePlain  = "plain"
	ConsoleNone   = "none"
)

// DefaultConfig returns the default logging configuration.
func DefaultConfig() *Config {
	return &Config{
		LogFile:    "curvelaunch.log",
		MaxSize:    100,
		MaxAge:     7,
		MaxBackups: 3,
		Compress:   true,
		Console:    ConsolePretty,
	}
}
