package types

// ObjectRef identifies a stored object: the handle returned by writes.
type ObjectRef struct {
	Container string `json:"container"`
	Path      string `json:"path"`
}

// ObjectInfo describes a stored object in listings and stat responses.
type ObjectInfo struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// APIResponse is the envelope for all gateway responses.
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Error     string      `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}
