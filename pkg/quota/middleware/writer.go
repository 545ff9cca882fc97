package middleware

import (
	"net/http"
	"sync"
)

// chargingWriter wraps http.ResponseWriter and runs onHeader exactly once,
// immediately before the status line is committed. If the handler writes
// nothing, finish runs it after the handler returns.
type chargingWriter struct {
	http.ResponseWriter
	onHeader func(http.Header)
	once     sync.Once
}

func newChargingWriter(w http.ResponseWriter, onHeader func(http.Header)) *chargingWriter {
	return &chargingWriter{
		ResponseWriter: w,
		onHeader:       onHeader,
	}
}

func (cw *chargingWriter) charge() {
	cw.once.Do(func() {
		cw.onHeader(cw.ResponseWriter.Header())
	})
}

// WriteHeader charges before writing the status code.
func (cw *chargingWriter) WriteHeader(code int) {
	// 1xx responses do not commit the final header.
	if code >= 100 && code < 200 && code != http.StatusSwitchingProtocols {
		cw.ResponseWriter.WriteHeader(code)
		return
	}
	cw.charge()
	cw.ResponseWriter.WriteHeader(code)
}

// Write charges before the implicit 200 status.
func (cw *chargingWriter) Write(b []byte) (int, error) {
	cw.charge()
	return cw.ResponseWriter.Write(b)
}

// Flush implements http.Flusher.
func (cw *chargingWriter) Flush() {
	cw.charge()
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap supports http.ResponseController.
func (cw *chargingWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}

func (cw *chargingWriter) finish() {
	cw.charge()
}
