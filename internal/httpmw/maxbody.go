package httpmw

import "net/http"

// MaxBody caps request bodies at n bytes. The blog only serves GET and HEAD,
// so anything larger than a few KiB is noise. Reads past the cap fail and the
// server answers 413.
func MaxBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}
