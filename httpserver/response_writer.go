package httpserver

import (
	"bufio"
	"bytes"
	"errors"
	"net"
	"net/http"
)

const maxRequestBody = 1 << 20

var errTrailingData = errors.New("request body must contain a single JSON value")

// responseWriter wraps http.ResponseWriter to capture the status code,
// the bytes written and, optionally, a bounded copy of the body.
type responseWriter struct {
	http.ResponseWriter
	status       int
	bytesWritten int
	wroteHeader  bool

	body        *bytes.Buffer
	maxBodySize int
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{
		ResponseWriter: w,
		status:         http.StatusOK,
	}
}

// captureBody makes the writer keep up to maxSize bytes of the body.
func (rw *responseWriter) captureBody(maxSize int) {
	rw.body = &bytes.Buffer{}
	rw.maxBodySize = maxSize
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n

	if rw.body != nil {
		if room := rw.maxBodySize - rw.body.Len(); room > 0 {
			rw.body.Write(b[:min(n, room)])
		}
	}
	return n, err
}

func (rw *responseWriter) Status() int {
	return rw.status
}

func (rw *responseWriter) BytesWritten() int {
	return rw.bytesWritten
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}
