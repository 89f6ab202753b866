package settings

import (
	"fmt"
	"time"

	env "github.com/Netflix/go-env"
)

// Config is the environment-driven configuration for the daemon. Every knob
// has a workable default so a bare environment still boots.
type Config struct {
	ListenAddr  string `env:"FTSD_ADDR,default=:9090"`
	APIToken    string `env:"FTSD_API_TOKEN"`
	DownloadDir string `env:"FTSD_DOWNLOAD_DIR,default=/var/lib/ftsd/files"`

	// ChunkBytes bounds pause/cancel latency: the engine checks its flags
	// once per chunk.
	ChunkBytes      int    `env:"FTSD_CHUNK_BYTES,default=65536"`
	CollisionPolicy string `env:"FTSD_COLLISION_POLICY,default=rename"`

	// HTTPTimeout applies to signaling calls, not to the download itself.
	HTTPTimeout time.Duration `env:"FTSD_HTTP_TIMEOUT,default=3s"`

	JournalPath       string `env:"FTSD_JOURNAL_PATH,default=ftsd-journal.log"`
	JournalMaxSizeMB  int    `env:"FTSD_JOURNAL_MAX_SIZE_MB,default=50"`
	JournalMaxBackups int    `env:"FTSD_JOURNAL_MAX_BACKUPS,default=3"`
	// JournalDSN switches the journal to Postgres when set.
	JournalDSN string `env:"FTSD_JOURNAL_DSN"`

	// SignalingURL is the gateway for out-of-band delivery reports. Empty
	// means reports that miss the in-session path are logged and dropped.
	SignalingURL string `env:"FTSD_SIGNALING_URL"`

	// SendDisplayedReports enables the "displayed" report on successful
	// one-to-one transfers.
	SendDisplayedReports bool `env:"FTSD_SEND_DISPLAYED_REPORTS,default=true"`

	LogLevel string `env:"FTSD_LOG_LEVEL,default=info"`
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	var c Config
	if _, err := env.UnmarshalFromEnviron(&c); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	return c, nil
}
