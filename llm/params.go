package llm

import "strings"

// DefaultTemperature is applied when a vendor forbids simultaneous
// temperature and top_p and the request specifies neither.
const DefaultTemperature = 1.0

// ResolveSampling maps canonical sampling parameters for vendors that reject
// temperature and top_p together. Temperature wins when both are present;
// otherwise top_p is used; with neither, temperature defaults to 1.0.
// Exactly one of the returned pointers is non-nil.
func ResolveSampling(req *Request) (temperature, topP *float64) {
	if req.Temperature != nil {
		return req.Temperature, nil
	}
	if req.TopP != nil {
		return nil, req.TopP
	}
	def := DefaultTemperature
	return &def, nil
}

// MimeSupported reports whether mime matches the supported list. Entries may
// be exact ("image/png") or a wildcard family ("image/*").
func MimeSupported(mime string, supported []string) bool {
	mime = normalizeMime(mime)
	for _, s := range supported {
		s = normalizeMime(s)
		if s == mime {
			return true
		}
		if family, ok := strings.CutSuffix(s, "/*"); ok && strings.HasPrefix(mime, family+"/") {
			return true
		}
	}
	return false
}

// IsTextMime reports whether an attachment can be decoded into inline text
// for vendors without binary attachment support.
func IsTextMime(mime string) bool {
	mime = normalizeMime(mime)
	if strings.HasPrefix(mime, "text/") {
		return true
	}
	switch mime {
	case "application/json", "application/xml", "application/yaml",
		"application/x-yaml", "application/javascript":
		return true
	}
	return false
}

func normalizeMime(mime string) string {
	// Strip parameters such as "; charset=utf-8".
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}
