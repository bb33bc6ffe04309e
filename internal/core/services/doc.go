// Package services implements the driving port interfaces.
//
// ChatOrchestrator answers questions over the shared vector index and
// threads each session's history. IngestService is the write path that
// feeds that index. SessionService and SettingsService manage the session
// registry and the configuration.
//
// Services depend only on ports. Adapters are wired in by cmd/ragchat.
package services
