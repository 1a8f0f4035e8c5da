// Package server exposes one Lad Maker session over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/manash/ladmaker/internal/blob"
	"github.com/manash/ladmaker/internal/image"
	"github.com/manash/ladmaker/internal/security"
	"github.com/manash/ladmaker/internal/session"
	"github.com/manash/ladmaker/internal/share"
	"github.com/manash/ladmaker/pkg/models"
)

const (
	uploadField = "image"
	maxWait     = 60 * time.Second
)

type Options struct {
	MaxUploadBytes int64
}

type Server struct {
	machine   *session.Machine
	blobs     *blob.Store
	files     *image.Saver
	comp      *share.Compositor
	maxUpload int64
	log       *zap.SugaredLogger
	router    *mux.Router
}

func New(machine *session.Machine, blobs *blob.Store, files *image.Saver, comp *share.Compositor, opts Options, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 64 << 20
	}
	s := &Server{
		machine:   machine,
		blobs:     blobs,
		files:     files,
		comp:      comp,
		maxUpload: opts.MaxUploadBytes,
		log:       log.Named("server"),
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)
	api.HandleFunc("/reset", s.handleReset).Methods(http.MethodPost)
	api.HandleFunc("/blobs/{id}", s.handleBlob).Methods(http.MethodGet)
	api.HandleFunc("/download", s.handleDownload).Methods(http.MethodGet)
	api.HandleFunc("/share/{layout}", s.handleShare).Methods(http.MethodGet)
	return r
}

// Serve runs the server on addr until ctx is done, then shuts it down.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Infow("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleState returns the current state. With ?wait=<duration> it blocks
// until the state differs from ?since=<kind> or the wait expires.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	wait, err := parseWait(r.URL.Query().Get("wait"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	since := r.URL.Query().Get("since")
	if wait == 0 || since == "" {
		writeJSON(w, http.StatusOK, s.machine.State())
		return
	}

	updates, cancel := s.machine.Subscribe()
	defer cancel()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	current := s.machine.State()
	for current.Kind.String() == since {
		select {
		case st, ok := <-updates:
			if !ok {
				writeJSON(w, http.StatusOK, current)
				return
			}
			current = st
		case <-timer.C:
			writeJSON(w, http.StatusOK, current)
			return
		case <-r.Context().Done():
			return
		}
	}
	writeJSON(w, http.StatusOK, current)
}

func parseWait(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		secs, serr := strconv.Atoi(raw)
		if serr != nil {
			return 0, fmt.Errorf("invalid wait %q", raw)
		}
		d = time.Duration(secs) * time.Second
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid wait %q", raw)
	}
	return min(d, maxWait), nil
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", s.maxUpload))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing %q file field: %w", uploadField, err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	img := models.NewUploadedImage(
		security.SanitizeFilename(header.Filename),
		header.Header.Get("Content-Type"),
		data,
	)
	if err := s.machine.ImageSelected(img); err != nil {
		status := http.StatusConflict
		if errors.Is(err, session.ErrClosed) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.machine.State())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.machine.Reset()
	writeJSON(w, http.StatusOK, s.machine.State())
}

func (s *Server) handleBlob(w http.ResponseWriter, r *http.Request) {
	b, err := s.blobs.GetByID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.Header().Set("Content-Type", b.MIMEType)
	w.Header().Set("Cache-Control", "no-store")
	w.Write(b.Data)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	st, ok := s.result(w)
	if !ok {
		return
	}
	s.sendGenerated(w, r, st.Generated)
}

// handleShare renders a composite for the client to share. When rendering
// fails the plain generated image is sent instead.
func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	layout, err := share.ParseLayout(mux.Vars(r)["layout"])
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	st, ok := s.result(w)
	if !ok {
		return
	}

	data, err := s.comp.Render(r.Context(), layout, st.Original, st.Generated)
	if err != nil {
		s.log.Warnw("composite failed, sending generated image", "layout", layout, "error", err)
		s.sendGenerated(w, r, st.Generated)
		return
	}

	w.Header().Set("X-Share-Title", share.Title)
	w.Header().Set("X-Share-Text", share.Text)
	attach(w, models.MIMEPNG, layout.Filename())
	w.Write(data)
}

func (s *Server) result(w http.ResponseWriter) (session.State, bool) {
	st := s.machine.State()
	if st.Kind != session.KindResult {
		writeError(w, http.StatusConflict, fmt.Errorf("no result to download (state %s)", st.Kind))
		return st, false
	}
	return st, true
}

func (s *Server) sendGenerated(w http.ResponseWriter, r *http.Request, ref models.ImageRef) {
	data, err := s.files.Fetch(r.Context(), ref)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	attach(w, models.MIMEPNG, image.DownloadFilename)
	w.Write(data)
}

func attach(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debugw("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"took", time.Since(start).Round(time.Millisecond),
		)
	})
}
