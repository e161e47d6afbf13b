package pinghttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/open-control-systems/ping-monitor/components/http/htcore"
	"github.com/open-control-systems/ping-monitor/components/ping"
	"github.com/open-control-systems/ping-monitor/components/ping/pingtarget"
	"github.com/open-control-systems/ping-monitor/components/status"
)

// DefaultResultLimit is used when the results request has no limit.
const DefaultResultLimit = 100

// Service is the target lifecycle exposed over HTTP.
type Service interface {
	Create(ctx context.Context, params pingtarget.CreateParams) (ping.Target, error)
	Get(ctx context.Context, deviceID string) (pingtarget.Status, error)
	List(ctx context.Context) ([]pingtarget.Status, error)
	Results(ctx context.Context, deviceID string, limit int) ([]ping.Result, error)
	StartMonitoring(ctx context.Context, deviceID string) error
	StopMonitoring(ctx context.Context, deviceID string) error
	UpdateAddress(ctx context.Context, deviceID string, addr ping.Address) error
	IngestResult(ctx context.Context, deviceID string, outcome ping.Outcome) error
	Delete(ctx context.Context, deviceID string) error
}

// TargetHandler allows to inspect and control monitoring targets over HTTP API.
type TargetHandler struct {
	service Service
}

// NewTargetHandler is an initialization of TargetHandler.
//
// Parameters:
//   - service to execute lifecycle commands.
func NewTargetHandler(service Service) *TargetHandler {
	return &TargetHandler{service: service}
}

// Register registers all target endpoints on the router.
func (h *TargetHandler) Register(router *mux.Router) {
	api := router.PathPrefix("/api/v1/targets").Subrouter()

	api.HandleFunc("", h.HandleList).Methods(http.MethodGet)
	api.HandleFunc("", h.HandleCreate).Methods(http.MethodPost)
	api.HandleFunc("/{id}", h.HandleGet).Methods(http.MethodGet)
	api.HandleFunc("/{id}", h.HandleDelete).Methods(http.MethodDelete)
	api.HandleFunc("/{id}/results", h.HandleResults).Methods(http.MethodGet)
	api.HandleFunc("/{id}/results", h.HandleIngest).Methods(http.MethodPost)
	api.HandleFunc("/{id}/start", h.HandleStart).Methods(http.MethodPost)
	api.HandleFunc("/{id}/stop", h.HandleStop).Methods(http.MethodPost)
	api.HandleFunc("/{id}/address", h.HandleAddress).Methods(http.MethodPut)
}

// HandleList returns the status of all targets.
func (h *TargetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.service.List(r.Context())
	if err != nil {
		htcore.WriteError(w, err)

		return
	}

	htcore.WriteJSON(w, http.StatusOK, statuses)
}

// HandleGet returns the status of a single target.
func (h *TargetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		htcore.WriteError(w, err)

		return
	}

	htcore.WriteJSON(w, http.StatusOK, st)
}

// HandleCreate creates an unmonitored target.
func (h *TargetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(w, r, &req); err != nil {
		htcore.WriteError(w, err)

		return
	}

	target, err := h.service.Create(r.Context(), pingtarget.CreateParams{
		DeviceID: req.DeviceID,
		Name:     req.Name,
		Address: ping.Address{
			IPAddress: req.IPAddress,
			Hostname:  req.Hostname,
		},
		IntervalSeconds: req.IntervalSeconds,
	})
	if err != nil {
		htcore.WriteError(w, err)

		return
	}

	htcore.WriteJSON(w, http.StatusCreated, target)
}

// HandleResults returns the most recent probe results of the target.
func (h *TargetHandler) HandleResults(w http.ResponseWriter, r *http.Request) {
	limit := DefaultResultLimit

	if str := r.URL.Query().Get("limit"); str != "" {
		n, err := strconv.Atoi(str)
		if err != nil || n < 1 {
			htcore.WriteError(w, fmt.Errorf("invalid limit=%q: %w", str, status.StatusInvalidArg))

			return
		}

		limit = n
	}

	results, err := h.service.Results(r.Context(), mux.Vars(r)["id"], limit)
	if err != nil {
		htcore.WriteError(w, err)

		return
	}

	if results == nil {
		results = []ping.Result{}
	}

	htcore.WriteJSON(w, http.StatusOK, results)
}

// HandleIngest runs an externally produced probe outcome through result tracking.
func (h *TargetHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decodeBody(w, r, &req); err != nil {
		htcore.WriteError(w, err)

		return
	}

	st, err := ping.ParseStatus(req.Status)
	if err != nil {
		htcore.WriteError(w, fmt.Errorf("%v: %w", err, status.StatusInvalidArg))

		return
	}

	outcome := ping.Outcome{
		Status: st,
		RTT:    time.Duration(req.RTTMs * float64(time.Millisecond)),
	}

	if err := h.service.IngestResult(r.Context(), mux.Vars(r)["id"], outcome); err != nil {
		htcore.WriteError(w, err)

		return
	}

	htcore.WriteText(w, "OK")
}

// HandleStart starts monitoring the target.
func (h *TargetHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	h.handleCommand(w, r, h.service.StartMonitoring)
}

// HandleStop stops monitoring the target.
func (h *TargetHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	h.handleCommand(w, r, h.service.StopMonitoring)
}

// HandleDelete removes the target with all its data.
func (h *TargetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	h.handleCommand(w, r, h.service.Delete)
}

// HandleAddress changes the address the target is probed at.
func (h *TargetHandler) HandleAddress(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if err := decodeBody(w, r, &req); err != nil {
		htcore.WriteError(w, err)

		return
	}

	addr := ping.Address{
		IPAddress: req.IPAddress,
		Hostname:  req.Hostname,
	}

	if err := h.service.UpdateAddress(r.Context(), mux.Vars(r)["id"], addr); err != nil {
		htcore.WriteError(w, err)

		return
	}

	htcore.WriteText(w, "OK")
}

func (h *TargetHandler) handleCommand(
	w http.ResponseWriter,
	r *http.Request,
	cmd func(ctx context.Context, deviceID string) error,
) {
	if err := cmd(r.Context(), mux.Vars(r)["id"]); err != nil {
		htcore.WriteError(w, err)

		return
	}

	htcore.WriteText(w, "OK")
}

type createRequest struct {
	DeviceID        string `json:"device_id"`
	Name            string `json:"device_name"`
	IPAddress       string `json:"ip_address"`
	Hostname        string `json:"hostname"`
	IntervalSeconds int    `json:"ping_interval_seconds"`
}

type addressRequest struct {
	IPAddress string `json:"ip_address"`
	Hostname  string `json:"hostname"`
}

type ingestRequest struct {
	Status string  `json:"status"`
	RTTMs  float64 `json:"rtt_ms"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %v: %w", err, status.StatusInvalidArg)
	}

	return nil
}
