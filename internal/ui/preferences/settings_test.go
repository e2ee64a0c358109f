package preferences

import "testing"

func TestDefaultSettingsProduceValidConfig(t *testing.T) {
	settings := DefaultSettings()
	if err := settings.TimerConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if !settings.Synced() {
		t.Fatal("default settings should target a server")
	}
}

func TestParsePositiveInt(t *testing.T) {
	tests := []struct {
		input string
		want  int
		ok    bool
	}{
		{"25", 25, true},
		{" 5 ", 5, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := parsePositiveInt(tt.input)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parsePositiveInt(%q) = %d, %v; want %d, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}
