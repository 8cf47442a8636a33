// Package logging provides structured logging for the fish feeder daemon.
//
// It wraps go.uber.org/zap with a package-level logger so every component
// logs through one configuration. Verbosity is controlled by the
// FEEDER_LOG_LEVEL environment variable or an explicit level passed to
// Initialize; when neither is set the logger is a nop, keeping the
// appliance silent in normal operation.
package logging
