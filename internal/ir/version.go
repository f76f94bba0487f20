package ir

// Version constants for the trace schema and engine.
const (
	// TraceVersion is the observation schema version.
	TraceVersion = "1"

	// EngineVersion is the formsignal engine version.
	EngineVersion = "0.1.0"
)
