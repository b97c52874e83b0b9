package model

// Version constants for the engine and its persisted document format.
const (
	// EngineVersion is the application version reported by the CLI.
	EngineVersion = "0.2.0"
)
