package model

// ReplayError records a request that failed during batch replay.
type ReplayError struct {
	Line      uint64 `json:"line"`
	Pool      string `json:"pool,omitempty"`
	Owner     string `json:"owner,omitempty"`
	TickLower int32  `json:"tick_lower"`
	TickUpper int32  `json:"tick_upper"`
	Class     string `json:"class"`
	Error     string `json:"error"`
}
