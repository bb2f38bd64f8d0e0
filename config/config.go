package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the process needs from its environment.
// Every field has a working default so a bare `depthbook feed` runs
// with no .env at all.
type Config struct {
	SinkKind          string // "file" or "kafka"
	SinkPath          string
	OutboxDir         string
	KafkaBrokers      []string
	KafkaTopic        string
	BroadcastInterval time.Duration
	SnapshotDepth     int
	LogLevel          string
}

// Load reads envFile (if it exists) and then the process environment.
// A missing env file is not an error; env vars win over defaults.
func Load(envFile string) Config {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	return Config{
		SinkKind:          getenv("SINK_KIND", "file"),
		SinkPath:          getenv("SINK_PATH", "./data/instructions.log"),
		OutboxDir:         getenv("OUTBOX_DIR", "./data/outbox"),
		KafkaBrokers:      splitList(getenv("KAFKA_BROKERS", "")),
		KafkaTopic:        getenv("KAFKA_TOPIC", "depthbook.instructions"),
		BroadcastInterval: getduration("BROADCAST_INTERVAL", 250*time.Millisecond),
		SnapshotDepth:     getint("SNAPSHOT_DEPTH", 10),
		LogLevel:          getenv("LOG_LEVEL", "info"),
	}
}

// Broadcast reports whether Kafka broadcasting is configured at all.
func (c Config) Broadcast() bool {
	return len(c.KafkaBrokers) > 0
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getduration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
