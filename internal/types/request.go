package types

// RequestType classifies an API request for logging and error context
type RequestType string

const (
	RequestTypeListFolder RequestType = "ListFolder"
	RequestTypeDownload   RequestType = "Download"
	RequestTypeResolve    RequestType = "Resolve"
)

// RequestContext carries metadata about a single API operation
type RequestContext struct {
	Profile     string      `json:"profile"`
	Backend     string      `json:"backend"`
	RemotePath  string      `json:"remotePath,omitempty"`
	RequestType RequestType `json:"requestType"`
	TraceID     string      `json:"traceId"`
}
