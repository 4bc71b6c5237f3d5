package todo

import "strings"

const (
	DefaultServerURL = "http://127.0.0.1:8200"
	// EnvServerURL is read once by the host and passed to ResolveServerURL.
	EnvServerURL = "OPENCLAW_TODO_URL"
	// ConfigServerURL is the plugin config key.
	ConfigServerURL = "serverUrl"
)

// Source records where the server URL came from.
type Source string

const (
	SourceConfig  Source = "config"
	SourceEnv     Source = "env"
	SourceDefault Source = "default"
)

// ResolveServerURL picks the first non-blank of configURL, envURL and the
// default.
func ResolveServerURL(configURL string, envURL string) (string, Source) {
	if v := strings.TrimSpace(configURL); v != "" {
		return v, SourceConfig
	}
	if v := strings.TrimSpace(envURL); v != "" {
		return v, SourceEnv
	}
	return DefaultServerURL, SourceDefault
}
