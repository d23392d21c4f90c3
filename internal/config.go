package internal

import "time"

type Config struct {
	LogLevel string `env:"LOG_LEVEL,required=true"`
	Host     string `env:"HOST"`
	Port     int    `env:"PORT,required=true"`

	WhiteboardSaveDir    string `env:"WHITEBOARD_SAVE_DIR,required=true"`
	WhiteboardMaxActions int    `env:"WHITEBOARD_MAX_ACTIONS,required=true"`

	FileStorageDir string `env:"FILE_STORAGE_DIR,required=true"`
	FileTempDir    string `env:"FILE_TEMP_DIR,required=true"`
	MaxFileSize    int64  `env:"MAX_FILE_SIZE,required=true"`
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`

	DeliveryQueueSize int           `env:"DELIVERY_QUEUE_SIZE,required=true"`
	DeliveryTimeout   time.Duration `env:"DELIVERY_TIMEOUT,required=true"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,required=true"`
	MetricInterval    time.Duration `env:"METRIC_INTERVAL,required=true"`

	// HistoryLimit caps the default /api/chat/history page; zero means the
	// whole log.
	HistoryLimit int `env:"HISTORY_LIMIT"`

	// DebugPort serves the read-only inspect page; zero disables it.
	DebugPort int `env:"DEBUG_PORT"`
}
