package engine

type ApplicationConfig struct {
	// The application name used in log output.
	Name string
	// Path of the TOML engine configuration. Empty uses the defaults.
	ConfigPath string
}
