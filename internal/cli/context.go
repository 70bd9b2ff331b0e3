// Package cli provides the command-line interface for the pulse crawler.
package cli

import (
	"github.com/campaignpulse/pulse/internal/app"
)

// Global reference set by the root command's pre-run; cobra's own context
// plumbing does not survive subcommand re-entry cleanly.
var globalApp *app.Application

// SetApp stores the Application for commands to access.
func SetApp(a *app.Application) {
	globalApp = a
}

// GetApp retrieves the Application.
func GetApp() *app.Application {
	return globalApp
}
