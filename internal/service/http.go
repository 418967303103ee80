package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ingyamilmolinar/mk1/core/looper"
	"github.com/ingyamilmolinar/mk1/internal/log"
	"github.com/ingyamilmolinar/mk1/internal/mk1"
)

const maxBody = 64 << 10

// HTTP serves the JSON command API.
type HTTP struct {
	ctl Controller
	log *log.Logger
	mux *http.ServeMux
}

func NewHTTP(ctl Controller, logger *log.Logger) *HTTP {
	if logger == nil {
		logger = log.Discard()
	}
	h := &HTTP{ctl: ctl, log: logger.With("http"), mux: http.NewServeMux()}
	h.mux.HandleFunc("POST /cmd", h.handleCmd)
	h.mux.HandleFunc("POST /line", h.handleLine)
	h.mux.HandleFunc("GET /status", h.handleStatus)
	h.mux.HandleFunc("GET /loops/{slot}/events", h.handleLoopEvents)
	h.mux.HandleFunc("GET /loops/{slot}/audio", h.handleLoopAudio)
	return h
}

// ServeHTTP applies CORS and answers preflight requests before routing.
func (h *HTTP) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	// Allow any origin
	if origin := req.Header.Get("Origin"); origin != "" {
		rw.Header().Set("Access-Control-Allow-Origin", origin)
		rw.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		rw.Header().Set("Access-Control-Allow-Headers",
			"Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")
	}
	if req.Method == http.MethodOptions {
		rw.WriteHeader(http.StatusNoContent)
		return
	}
	h.mux.ServeHTTP(rw, req)
}

// ListenAndServe serves on addr until ctx is done.
func (h *HTTP) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return h.Serve(ctx, ln)
}

func (h *HTTP) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()
	h.log.Infof("listening on %s", ln.Addr())
	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (h *HTTP) handleCmd(rw http.ResponseWriter, req *http.Request) {
	var cmd mk1.Command
	dec := json.NewDecoder(io.LimitReader(req.Body, maxBody))
	if err := dec.Decode(&cmd); err != nil {
		writeError(rw, http.StatusBadRequest, fmt.Errorf("couldn't parse json: %w", err))
		return
	}
	h.exec(rw, cmd)
}

func (h *HTTP) handleLine(rw http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(io.LimitReader(req.Body, maxBody))
	if err != nil {
		writeError(rw, http.StatusBadRequest, err)
		return
	}
	cmd, err := mk1.ParseLine(strings.TrimSpace(string(body)))
	if err != nil {
		writeError(rw, http.StatusBadRequest, err)
		return
	}
	h.exec(rw, cmd)
}

func (h *HTTP) exec(rw http.ResponseWriter, cmd mk1.Command) {
	if cmd.Source == "" {
		cmd.Source = looper.SourceLive
	}
	resp, err := h.ctl.Exec(cmd)
	if err != nil {
		h.log.Debugf("%s: %v", cmd.Action, err)
		writeError(rw, statusFor(err), err)
		return
	}
	writeJSON(rw, http.StatusOK, resp)
}

func (h *HTTP) handleStatus(rw http.ResponseWriter, _ *http.Request) {
	writeJSON(rw, http.StatusOK, h.ctl.Status())
}

func (h *HTTP) handleLoopEvents(rw http.ResponseWriter, req *http.Request) {
	i, err := looper.ParseSlot(req.PathValue("slot"))
	if err != nil {
		writeError(rw, http.StatusNotFound, err)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	if err := h.ctl.Looper().ExportEvents(i, rw); err != nil {
		writeError(rw, http.StatusInternalServerError, err)
	}
}

func (h *HTTP) handleLoopAudio(rw http.ResponseWriter, req *http.Request) {
	slot := req.PathValue("slot")
	i, err := looper.ParseSlot(slot)
	if err != nil {
		writeError(rw, http.StatusNotFound, err)
		return
	}
	f, err := os.CreateTemp("", "mk1-loop-*.wav")
	if err != nil {
		writeError(rw, http.StatusInternalServerError, err)
		return
	}
	defer os.Remove(f.Name())
	defer f.Close()
	if err := h.ctl.Looper().ExportWAV(i, f); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, looper.ErrSlotEmpty) {
			code = http.StatusNotFound
		}
		writeError(rw, code, err)
		return
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		writeError(rw, http.StatusInternalServerError, err)
		return
	}
	rw.Header().Set("Content-Type", "audio/wav")
	http.ServeContent(rw, req, "loop-"+strings.ToUpper(slot)+".wav", time.Time{}, f)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, mk1.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, mk1.ErrUnknownAction), errors.Is(err, mk1.ErrBadArgs):
		return http.StatusBadRequest
	}
	var ce *mk1.CommandError
	if errors.As(err, &ce) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(rw http.ResponseWriter, code int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)
	if err := json.NewEncoder(rw).Encode(v); err != nil {
		fmt.Fprintf(rw, "error encoding response object %+v: %s", v, err)
	}
}

func writeError(rw http.ResponseWriter, code int, err error) {
	writeJSON(rw, code, map[string]string{"error": err.Error()})
}
