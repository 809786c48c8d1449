package config

// Application constants
const (
	AppName    = "txanomaly"
	AppVersion = "1.0.0"

	// ConfigFileEnv names the environment variable that points at an
	// explicit YAML config file.
	ConfigFileEnv = EnvPrefix + "_CONFIG"
)
