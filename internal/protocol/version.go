package protocol

// Version constants.
const (
	// LatestSchemaVersion is the newest protocol schema the command sets support.
	LatestSchemaVersion = 4

	// EngineVersion is the labrun dispatcher version recorded with each run.
	EngineVersion = "0.1.0"
)
