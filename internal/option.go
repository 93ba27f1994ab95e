package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithVaultPath overrides the configured vault directory, mostly for
// ad-hoc runs against a different vault.
func WithVaultPath(path string) Option {
	return func(a *application) {
		if a.config != nil && path != "" {
			a.config.Vault.Path = path
		}
	}
}
