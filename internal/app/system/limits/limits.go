// internal/app/system/limits/limits.go
package limits

// Request size limits.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MaxJSONBody is the maximum size of a JSON request body.
	MaxJSONBody = 1 << 20 // 1 MB

	// MaxRequestIDLen caps a client-supplied X-Request-ID before it is logged.
	MaxRequestIDLen = 64
)
