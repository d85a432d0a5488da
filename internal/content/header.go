package content

// Header is the parsed key/value block at the top of a content file.
// Keys keep the order they first appeared in; setting an existing key
// replaces its value in place. The zero value is an empty header.
type Header struct {
	keys []string
	vals map[string]string
}

// Set stores v under k. A repeated key keeps its original position.
func (h *Header) Set(k, v string) {
	if h.vals == nil {
		h.vals = make(map[string]string)
	}
	if _, ok := h.vals[k]; !ok {
		h.keys = append(h.keys, k)
	}
	h.vals[k] = v
}

// Get returns the value for k and whether it was present.
func (h Header) Get(k string) (string, bool) {
	v, ok := h.vals[k]
	return v, ok
}

// Value returns the value for k, or "" when absent.
func (h Header) Value(k string) string { return h.vals[k] }

// Len returns the number of distinct keys.
func (h Header) Len() int { return len(h.keys) }

// Keys returns the keys in insertion order. The slice is a copy.
func (h Header) Keys() []string {
	out := make([]string, len(h.keys))
	copy(out, h.keys)
	return out
}

// Map returns a copy of the header as a plain map.
func (h Header) Map() map[string]string {
	out := make(map[string]string, len(h.vals))
	for k, v := range h.vals {
		out[k] = v
	}
	return out
}
