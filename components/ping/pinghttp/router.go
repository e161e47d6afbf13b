package pinghttp

import (
	"io"
	"net/http"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"go.uber.org/zap/zapio"

	"github.com/open-control-systems/ping-monitor/components/core"
)

// NewRouter builds the operator API with access logging and panic recovery.
func NewRouter(handler *TargetHandler) http.Handler {
	router := mux.NewRouter()
	handler.Register(router)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
		handlers.PrintRecoveryStack(true),
	)

	return handlers.LoggingHandler(&lockedWriter{
		w: &zapio.Writer{
			Log:   core.LogInf.Desugar(),
			Level: zap.InfoLevel,
		},
	}, recovery(router))
}

// lockedWriter serializes access log lines, zapio.Writer isn't safe for concurrent use.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.w.Write(p)
}

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	core.LogErr.Error(v...)
}
