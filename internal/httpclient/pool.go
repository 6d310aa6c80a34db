// Package httpclient provides the pooled HTTP client shared by the
// recognizer adapters.
package httpclient

import "net/http"
import "time"

// NewPooled creates an http.Client with connection pooling and a tuned
// transport, sized for poolSize concurrent recognizer calls.
func NewPooled(poolSize int, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:          poolSize,
			MaxIdleConnsPerHost:   poolSize,
			IdleConnTimeout:       90 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			ForceAttemptHTTP2:     true,
		},
	}
}
