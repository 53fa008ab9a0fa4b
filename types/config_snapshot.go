package types

// RunConfigSnapshot records the run configuration that produced a result document
type RunConfigSnapshot struct {
	TestDir         string `json:"testDir"`
	ConfigFile      string `json:"configFile,omitempty"`
	LogDir          string `json:"logDir"`
	TimestampReport bool   `json:"timestampReport"`
	ReservedSuffix  string `json:"reservedSuffix"`
}
