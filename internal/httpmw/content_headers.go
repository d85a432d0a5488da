package httpmw

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ContentInfo reports which content snapshot is being served.
// content.Manager satisfies it.
type ContentInfo interface {
	ContentVersion() string
	ContentHash() string
}

const shortHashLen = 12

// ContentHeaders stamps responses with the active content version and a
// shortened content hash, and copies both onto the request span. Nothing is
// added while no snapshot is loaded.
func ContentHeaders(info ContentInfo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if info == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			version, hash := info.ContentVersion(), info.ContentHash()
			span := trace.SpanFromContext(r.Context())
			recording := span.IsRecording()

			if version != "" {
				w.Header().Set("X-Content-Version", version)
				if recording {
					span.SetAttributes(attribute.String("content.version", version))
				}
			}
			if hash != "" {
				short := hash
				if len(short) > shortHashLen {
					short = short[:shortHashLen]
				}
				w.Header().Set("X-Content-Hash", short)
				if recording {
					span.SetAttributes(attribute.String("content.hash", hash))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
