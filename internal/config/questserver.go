package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath overrides the config path given on the command line.
const EnvConfigPath = "QUESTD_CONFIG"

// LogFile configures the rotating log file. An empty Path disables it.
type LogFile struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Quest holds quest core settings.
type Quest struct {
	TemplatesPath     string        `yaml:"templates_path"`
	TickInterval      time.Duration `yaml:"tick_interval"`
	SaveInterval      time.Duration `yaml:"save_interval"`
	MoneyMaxLevelRate float64       `yaml:"money_max_level_rate"`
	StrictInvariants  bool          `yaml:"strict_invariants"`
}

// Reset places periodic quest resets in wall-clock time.
type Reset struct {
	Timezone   string `yaml:"timezone"`
	DailyHour  int    `yaml:"daily_hour"`
	WeeklyDay  string `yaml:"weekly_day"`
	MonthlyDay int    `yaml:"monthly_day"`
}

// Location resolves the reset timezone.
func (r Reset) Location() (*time.Location, error) {
	if r.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", r.Timezone, err)
	}
	return loc, nil
}

// Weekday parses WeeklyDay ("wednesday", "Wed").
func (r Reset) Weekday() (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(r.WeeklyDay))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || name == full[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", r.WeeklyDay)
}

// Event is one occurrence of a holiday. Seasonal quest cooldowns of the
// event earned before Start are dropped once Start passes.
type Event struct {
	ID    int32     `yaml:"id"`
	Start time.Time `yaml:"start"`
}

// Mail configures the mail outbox.
type Mail struct {
	QueueSize int `yaml:"queue_size"`
}

// QuestServer holds all configuration for the quest daemon.
type QuestServer struct {
	LogLevel string         `yaml:"log_level"` // debug|info|warn|error
	LogFile  LogFile        `yaml:"log_file"`
	Database DatabaseConfig `yaml:"database"`
	Quest    Quest          `yaml:"quest"`
	Reset    Reset          `yaml:"reset"`
	Mail     Mail           `yaml:"mail"`
	Events   []Event        `yaml:"events"`
}

// DefaultQuestServer returns QuestServer config with sensible defaults.
func DefaultQuestServer() QuestServer {
	return QuestServer{
		LogLevel: "info",
		LogFile: LogFile{
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "questd",
			Password: "questd",
			DBName:   "questd",
			SSLMode:  "disable",
		},
		Quest: Quest{
			TemplatesPath:     "data/quests.yaml",
			TickInterval:      100 * time.Millisecond,
			SaveInterval:      5 * time.Minute,
			MoneyMaxLevelRate: 1,
		},
		Reset: Reset{
			Timezone:   "UTC",
			DailyHour:  6,
			WeeklyDay:  "wednesday",
			MonthlyDay: 1,
		},
		Mail: Mail{QueueSize: 256},
	}
}

// Validate checks value ranges that YAML cannot express.
func (c QuestServer) Validate() error {
	var errs []error
	if c.Quest.TickInterval <= 0 {
		errs = append(errs, errors.New("quest.tick_interval must be positive"))
	}
	if c.Quest.SaveInterval <= 0 {
		errs = append(errs, errors.New("quest.save_interval must be positive"))
	}
	if c.Reset.DailyHour < 0 || c.Reset.DailyHour > 23 {
		errs = append(errs, fmt.Errorf("reset.daily_hour %d out of range 0..23", c.Reset.DailyHour))
	}
	if c.Reset.MonthlyDay < 1 || c.Reset.MonthlyDay > 28 {
		errs = append(errs, fmt.Errorf("reset.monthly_day %d out of range 1..28", c.Reset.MonthlyDay))
	}
	if _, err := c.Reset.Weekday(); err != nil {
		errs = append(errs, fmt.Errorf("reset.weekly_day: %w", err))
	}
	if _, err := c.Reset.Location(); err != nil {
		errs = append(errs, fmt.Errorf("reset.timezone: %w", err))
	}
	for i, ev := range c.Events {
		if ev.ID <= 0 {
			errs = append(errs, fmt.Errorf("events[%d]: id must be positive", i))
		}
		if ev.Start.IsZero() {
			errs = append(errs, fmt.Errorf("events[%d]: start is required", i))
		}
	}
	return errors.Join(errs...)
}

// ResolvePath returns the config path, honouring the QUESTD_CONFIG override.
func ResolvePath(flagPath string) string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return flagPath
}

// LoadQuestServer loads quest daemon config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadQuestServer(path string) (QuestServer, error) {
	cfg := DefaultQuestServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}
