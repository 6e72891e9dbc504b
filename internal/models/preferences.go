package models

// Preferences holds the user-facing settings that survive restarts.
type Preferences struct {
	DarkMode bool `json:"darkMode" yaml:"dark_mode"`
}
