// Package state keeps per-user conversation sessions for Telegram bots.
// It knows nothing about the sessions it stores.
package state
