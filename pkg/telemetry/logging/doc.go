// Package logging configures the process-wide structured logger.
//
// Mercury logs through log/slog everywhere; Setup translates the
// logging section of the configuration into a JSON or text handler at
// the configured level and installs it as the slog default.
package logging
