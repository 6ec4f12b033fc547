package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Settings holds every knob the bot reads from the environment.
type Settings struct {
	BotToken string

	// Database. DBType selects the sqlx driver ("sqlite" or "postgres").
	DBType       string
	DatabasePath string // sqlite file path
	DatabaseURL  string // postgres DSN

	// Local time zone for calendar days and the daily push.
	TZ string

	// Grading thresholds (0-100 similarity).
	SimilarityOK     int
	SimilarityAlmost int

	// SRS tuning.
	LearningStepsMinutes []int
	LearningGraduateDays int
	WatchTarget          int
	DefaultNewPerDay     int

	// Schedulers.
	DailyPushHour        int
	LearningPollInterval time.Duration

	// Subtitle translation.
	TranslateEnabled    bool
	TranslateSourceLang string
	TranslateTargetLang string
	TranslateMaxRetries int
	TranslateBaseDelay  time.Duration
	TranslateMaxDelay   time.Duration

	AdminIDs map[int64]bool
}

// Load reads settings from the environment. A .env file is honored when
// present, matching how the bot is run in development.
func Load() (*Settings, error) {
	_ = godotenv.Load()

	token := os.Getenv("BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("BOT_TOKEN environment variable is not set")
	}

	steps, err := getIntList("LEARNING_STEPS_MINUTES", "1,10")
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("LEARNING_STEPS_MINUTES must not be empty")
	}

	s := &Settings{
		BotToken:             token,
		DBType:               getString("DB_TYPE", "sqlite"),
		DatabasePath:         getString("DATABASE_PATH", "data/listenbot.db"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		TZ:                   getString("TZ", "Europe/Kyiv"),
		SimilarityOK:         getInt("SIMILARITY_OK", 93),
		SimilarityAlmost:     getInt("SIMILARITY_ALMOST", 85),
		LearningStepsMinutes: steps,
		LearningGraduateDays: getInt("LEARNING_GRADUATE_DAYS", 1),
		WatchTarget:          getInt("WATCH_TARGET", 2),
		DefaultNewPerDay:     getInt("NEW_PER_DAY", 10),
		DailyPushHour:        getInt("DAILY_PUSH_HOUR", 7),
		LearningPollInterval: time.Duration(getInt("LEARNING_POLL_INTERVAL_SECONDS", 45)) * time.Second,
		TranslateEnabled:     getBool("SUBTITLE_TRANSLATE_ENABLED", true),
		TranslateSourceLang:  getString("SUBTITLE_TRANSLATE_SOURCE_LANG", "auto"),
		TranslateTargetLang:  getString("SUBTITLE_TRANSLATE_TARGET_LANG", "uk"),
		TranslateMaxRetries:  getInt("TRANSLATE_MAX_RETRIES", 30),
		TranslateBaseDelay:   time.Duration(getInt("TRANSLATE_BASE_DELAY_MS", 750)) * time.Millisecond,
		TranslateMaxDelay:    time.Duration(getInt("TRANSLATE_MAX_DELAY_MS", 60000)) * time.Millisecond,
		AdminIDs:             map[int64]bool{},
	}

	if s.DailyPushHour < 0 || s.DailyPushHour > 23 {
		return nil, fmt.Errorf("DAILY_PUSH_HOUR out of range: %d", s.DailyPushHour)
	}

	for _, part := range strings.Split(os.Getenv("ADMIN_IDS"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid admin user id %q: %w", part, err)
		}
		s.AdminIDs[id] = true
	}

	return s, nil
}

// Location resolves the configured time zone.
func (s *Settings) Location() (*time.Location, error) {
	return time.LoadLocation(s.TZ)
}

func getString(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func getInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getBool(name string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func getIntList(name, defCSV string) ([]int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		raw = defCSV
	}
	var out []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid int in %s: %q", name, part)
		}
		out = append(out, n)
	}
	return out, nil
}
