package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// MaxBodyLogged limits what we read. 1 << 20 = 1 MiB.
const MaxBodyLogged = 1 << 20

// loggedHeaders are echoed as-is. Credential headers are not listed: they are
// logged as present but masked.
var loggedHeaders = map[string]bool{
	"content-type":   true,
	"content-length": true,
	"user-agent":     true,
	"x-request-id":   true,
	"x-trace-id":     true,
	"traceparent":    true,
}

// CaptureBody reads r.Body up to MaxBodyLogged bytes and puts an equivalent reader back.
func CaptureBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyLogged))
	if err != nil {
		return nil, err
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

// headerAttrs serves both http.Header and metadata.MD.
func headerAttrs(prefix string, hdr map[string][]string) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(loggedHeaders))
	for name, values := range hdr {
		lower := strings.ToLower(name)
		switch {
		case isSensitive(lower):
			attrs = append(attrs, slog.String(prefix+lower, redacted))
		case loggedHeaders[lower]:
			attrs = append(attrs, slog.String(prefix+lower, strings.Join(values, ", ")))
		}
	}
	return attrs
}

// queryAttrs logs the price filter and any other parameter under http.query.*.
func queryAttrs(q url.Values) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(q))
	for key, values := range q {
		if len(values) == 0 {
			continue
		}
		attrs = append(attrs, slog.String("http.query."+key, redact(key, strings.Join(values, ","))))
	}
	return attrs
}

// bodyAttrs flattens JSON bodies. The API speaks JSON only, so anything else is
// recorded by content type and size.
func bodyAttrs(contentType string, body []byte) []slog.Attr {
	if len(body) == 0 {
		return nil
	}
	ct, _, _ := mime.ParseMediaType(contentType)
	if ct == "application/json" || strings.HasSuffix(ct, "+json") {
		return jsonAttrs("http.body", body)
	}
	return []slog.Attr{
		slog.String("http.body.content_type", contentType),
		slog.Int("http.body.size_bytes", len(body)),
	}
}

func jsonAttrs(prefix string, b []byte) []slog.Attr {
	var data any
	if err := json.Unmarshal(b, &data); err != nil {
		return []slog.Attr{
			slog.String(prefix+".error", "invalid json"),
			slog.Int(prefix+".size_bytes", len(b)),
		}
	}
	attrs := make([]slog.Attr, 0, 8)
	flattenJSON(prefix, "", data, &attrs)
	return attrs
}

// flattenJSON walks v, naming leaves by their dotted path. key is the name of
// the nearest object field and drives redaction, so {"password": ...} is masked
// whatever its value. Arrays, such as a product listing, are summarised by their
// length and first element.
func flattenJSON(prefix, key string, v any, dst *[]slog.Attr) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			flattenJSON(prefix+"."+k, k, child, dst)
		}
	case []any:
		*dst = append(*dst, slog.Int(prefix+".count", len(t)))
		if len(t) > 0 {
			flattenJSON(prefix+".0", key, t[0], dst)
		}
	case nil:
	default:
		if isSensitive(key) {
			*dst = append(*dst, slog.String(prefix, redacted))
			return
		}
		switch leaf := t.(type) {
		case string:
			*dst = append(*dst, slog.String(prefix, leaf))
		case float64:
			*dst = append(*dst, slog.Float64(prefix, leaf))
		case bool:
			*dst = append(*dst, slog.Bool(prefix, leaf))
		}
	}
}

// LogHTTPRequest builds attributes for an incoming request, including its body.
func LogHTTPRequest(r *http.Request, direction string) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("http.direction", direction),
		slog.String("http.remote_addr", r.RemoteAddr),
		slog.String("http.method", r.Method),
		slog.String("http.path", r.URL.Path),
	}

	attrs = append(attrs, headerAttrs("http.header.", r.Header)...)
	attrs = append(attrs, queryAttrs(r.URL.Query())...)

	body, err := CaptureBody(r)
	if err != nil {
		return append(attrs, slog.String("http.body.error", err.Error()))
	}
	return append(attrs, bodyAttrs(r.Header.Get("Content-Type"), body)...)
}

// LogHTTPResponse builds attributes for the response written to req.
func LogHTTPResponse(req *http.Request, header http.Header, status int, body []byte, duration time.Duration, direction string) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("http.direction", direction),
		slog.String("http.remote_addr", req.RemoteAddr),
		slog.String("http.method", req.Method),
		slog.String("http.path", req.URL.Path),
		slog.Int("http.status", status),
		slog.Int64("duration_ms", duration.Milliseconds()),
	}

	attrs = append(attrs, headerAttrs("http.header.", header)...)
	return append(attrs, bodyAttrs(header.Get("Content-Type"), body)...)
}
