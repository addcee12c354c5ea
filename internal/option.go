package internal

import "io"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	logOutput io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogOutput redirects the JSON logger. Defaults to stdout.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}
