package preferences

import (
	"focusmatrix/internal/core/model"
)

// Settings defines editable user preferences.
type Settings struct {
	WorkMinutes           int
	ShortBreakMinutes     int
	LongBreakMinutes      int
	CyclesBeforeLongBreak int

	// ServerURL is the session service base URL. Empty runs the timer local-only.
	ServerURL string
	Token     string
	TaskID    string

	Notifications bool
}

// DefaultSettings returns the classic 25/5/15 schedule with a long break every fourth cycle.
func DefaultSettings() Settings {
	config := model.DefaultTimerConfig()
	return Settings{
		WorkMinutes:           config.WorkMinutes,
		ShortBreakMinutes:     config.ShortBreakMinutes,
		LongBreakMinutes:      config.LongBreakMinutes,
		CyclesBeforeLongBreak: config.CyclesBeforeLongBreak,
		ServerURL:             "http://127.0.0.1:8080",
		Notifications:         true,
	}
}

// TimerConfig converts settings to the engine configuration.
func (settings Settings) TimerConfig() model.TimerConfig {
	return model.TimerConfig{
		WorkMinutes:           settings.WorkMinutes,
		ShortBreakMinutes:     settings.ShortBreakMinutes,
		LongBreakMinutes:      settings.LongBreakMinutes,
		CyclesBeforeLongBreak: settings.CyclesBeforeLongBreak,
	}
}

// Synced reports whether sessions should be mirrored to a server.
func (settings Settings) Synced() bool {
	return settings.ServerURL != ""
}
