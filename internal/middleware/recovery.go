package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

const panicBody = `{"error":"internal server error"}`

// Recovery turns a handler panic into a JSON 500 and reports the request to
// onPanic, which may be nil. A panic after the response has started, or after
// a websocket upgrade took over the connection, can only be logged.
func Recovery(logger *slog.Logger, onPanic func(r *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := wrap(w)
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				if err == http.ErrAbortHandler {
					panic(err)
				}

				logger.Error("handler panic",
					slog.Any("error", err),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Bool("upgraded", rw.hijacked),
					slog.Bool("response_started", rw.wroteHeader),
					slog.String("stack", string(debug.Stack())),
				)
				if onPanic != nil {
					onPanic(r)
				}
				if rw.hijacked || rw.wroteHeader {
					return
				}

				rw.Header().Set("Content-Type", "application/json")
				rw.WriteHeader(http.StatusInternalServerError)
				_, _ = rw.Write([]byte(panicBody))
			}()

			next.ServeHTTP(rw, r)
		})
	}
}
