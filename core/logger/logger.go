// Package logger provides request scoped logrus loggers.
//
// Every request handled by the backend gets a logger carrying a request ID. The ID is
// taken from the X-Request-Id request header if the caller sent one, otherwise a new
// one is generated, and it is echoed in the response. The fields of a request logger
// can be serialized, so that consumers of change notifications log with the ID of the
// request that caused the change.
package logger

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// RequestIDHeader is the request and response header carrying the request ID
const RequestIDHeader = "X-Request-Id"

// log field names
const (
	fieldRequestID = "requestID"
	fieldRoute     = "route"
)

type contextKey struct{}

// fields are the serializable fields of a request logger
type fields struct {
	RequestID string `json:"requestID"`
	Route     string `json:"route,omitempty"`
}

func (f fields) entry() *logrus.Entry {
	rlog := logrus.WithField(fieldRequestID, f.RequestID)
	if f.Route != "" {
		rlog = rlog.WithField(fieldRoute, f.Route)
	}
	return rlog
}

func (f fields) attach(ctx context.Context) (context.Context, *logrus.Entry) {
	rlog := f.entry()
	return context.WithValue(ctx, contextKey{}, rlog), rlog
}

// InitLogger sets up the text formatter with full timestamps and the log level
func InitLogger(logLevel logrus.Level) {
	logrus.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	})
	logrus.SetLevel(logLevel)
}

// ParseLevel parses a textual log level. Empty or unknown levels fall back to info.
func ParseLevel(level string) logrus.Level {
	l, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return l
}

// AddRequestID installs a middleware giving every request a logger with a request ID
// and the matched route template
func AddRequestID(router *mux.Router) {
	router.Use(func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			f := fields{RequestID: r.Header.Get(RequestIDHeader)}
			if _, err := uuid.Parse(f.RequestID); err != nil {
				f.RequestID = uuid.New().String()
			}
			if route := mux.CurrentRoute(r); route != nil {
				f.Route, _ = route.GetPathTemplate()
			}
			ctx, _ := f.attach(r.Context())
			w.Header().Set(RequestIDHeader, f.RequestID)
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	})
}

// Default returns a logger without a request ID
func Default() *logrus.Entry {
	return logrus.NewEntry(logrus.StandardLogger())
}

// ContextWithLogger returns ctx and its logger. If ctx has no logger yet, a logger
// with a new request ID is added.
func ContextWithLogger(ctx context.Context) (context.Context, *logrus.Entry) {
	if ctx == nil {
		ctx = context.Background()
	}
	if rlog := fromContext(ctx); rlog != nil {
		return ctx, rlog
	}
	return fields{RequestID: uuid.New().String()}.attach(ctx)
}

// ContextWithLoggerFromData returns a context with a logger restored from data, which
// was produced by SerializeLoggerContext. An existing logger in ctx is kept. Invalid
// data yields a logger with a new request ID.
func ContextWithLoggerFromData(ctx context.Context, data []byte) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if fromContext(ctx) != nil {
		return ctx
	}
	var f fields
	if err := json.Unmarshal(data, &f); err != nil || f.RequestID == "" {
		ctx, _ = ContextWithLogger(ctx)
		return ctx
	}
	ctx, _ = f.attach(ctx)
	return ctx
}

func fromContext(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return nil
	}
	rlog, _ := ctx.Value(contextKey{}).(*logrus.Entry)
	return rlog
}

// FromContext returns the request logger of ctx, or the default logger
func FromContext(ctx context.Context) *logrus.Entry {
	if rlog := fromContext(ctx); rlog != nil {
		return rlog
	}
	return Default()
}

func fieldsOf(ctx context.Context) fields {
	var f fields
	if rlog := fromContext(ctx); rlog != nil {
		f.RequestID, _ = rlog.Data[fieldRequestID].(string)
		f.Route, _ = rlog.Data[fieldRoute].(string)
	}
	return f
}

// SerializeLoggerContext returns the fields of the request logger of ctx as JSON, or
// {} if ctx has none
func SerializeLoggerContext(ctx context.Context) []byte {
	f := fieldsOf(ctx)
	if f.RequestID == "" {
		return []byte("{}")
	}
	data, err := json.Marshal(f)
	if err != nil {
		return []byte("{}")
	}
	return data
}

// RequestIDFromContext returns the request ID of ctx, or an empty string
func RequestIDFromContext(ctx context.Context) string {
	return fieldsOf(ctx).RequestID
}
