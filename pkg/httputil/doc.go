// Package httputil provides HTTP utilities shared by the feed client and
// the networked snapshot stores.
//
// # Retry
//
// [Retry] re-runs an operation with exponential backoff. Only errors
// wrapped with [Retryable] are retried, so callers decide which failures
// are transient:
//
//	err := httputil.Retry(ctx, 5, 500*time.Millisecond, func() error {
//	    conn, resp, err := dialer.DialContext(ctx, url, header)
//	    if err != nil && (resp == nil || resp.StatusCode >= 500) {
//	        return httputil.Retryable(err)
//	    }
//	    ...
//	})
//
// # Authentication
//
// [BasicAuth] builds the Authorization header used by the remote model
// endpoint.
package httputil
