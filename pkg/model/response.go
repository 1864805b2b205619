package model

// Status of a convergence check.
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusPending Status = "pending"
	StatusReady   Status = "ready"
	StatusRepeat  Status = "repeat"
)

// ResponseKey namespaces a ConvergenceResponse in check output.
const ResponseKey = "dns"

// ConvergenceResponse echoes the declared records next to what they currently
// resolve to, so tooling never needs to re-read the configuration file.
type ConvergenceResponse struct {
	Declared  map[string]Declaration `json:"declared"`
	Resolving map[string][]string    `json:"resolving"`
	Status    Status                 `json:"status"`
	Required  *bool                  `json:"required,omitempty"`
}

func NewConvergenceResponse() *ConvergenceResponse {
	return &ConvergenceResponse{
		Declared:  map[string]Declaration{},
		Resolving: map[string][]string{},
		Status:    StatusUnknown,
	}
}

// Namespaced wraps the response under ResponseKey.
func (c *ConvergenceResponse) Namespaced() map[string]*ConvergenceResponse {
	return map[string]*ConvergenceResponse{ResponseKey: c}
}

// EnsureRequest is the body of the generic HTTP adapter's POST /ensure.
type EnsureRequest struct {
	Profile string   `json:"profile"`
	Records []Record `json:"records"`
}

type ErrorResponse struct {
	Status  int         `json:"status,omitempty"`
	Message string      `json:"msg,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
