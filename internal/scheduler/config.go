package scheduler

import (
	"strconv"
	"time"

	"github.com/sadopc/log15/internal/store"
)

// AwayLabel is the sentinel recorded when the auto-away timeout fires.
const AwayLabel = "Away from workspace"

type Config struct {
	// IntervalMinutes is the nominal interval length. The final interval
	// of a workblock absorbs the remaining minutes.
	IntervalMinutes int
	// AwayTimeout runs from interval start (when the prompt is shown),
	// independent of interval length.
	AwayTimeout time.Duration
	// LabelMaxChars bounds stored label length; longer input is truncated.
	LabelMaxChars int
}

func DefaultConfig() Config {
	return Config{
		IntervalMinutes: 15,
		AwayTimeout:     10 * time.Minute,
		LabelMaxChars:   50,
	}
}

// LoadConfig reads scheduler settings from the store, falling back to
// defaults for missing or malformed values.
func LoadConfig(s *store.Store) Config {
	cfg := DefaultConfig()
	if n, ok := settingInt(s, "interval_minutes"); ok && n > 0 {
		cfg.IntervalMinutes = n
	}
	if n, ok := settingInt(s, "away_timeout_minutes"); ok && n > 0 {
		cfg.AwayTimeout = time.Duration(n) * time.Minute
	}
	if n, ok := settingInt(s, "label_max_chars"); ok && n > 0 {
		cfg.LabelMaxChars = n
	}
	return cfg
}

func settingInt(s *store.Store, key string) (int, bool) {
	v, err := s.GetSetting(key)
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
