package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/route-cli/internal/export"
	"github.com/sells-group/route-cli/internal/geocoding"
	"github.com/sells-group/route-cli/internal/model"
	"github.com/sells-group/route-cli/internal/ocr"
	"github.com/sells-group/route-cli/internal/pipeline"
)

var servePort int

// planner is the part of pipeline.Pipeline the server needs.
type planner interface {
	Codes(lines []string) ([]string, map[string]int, error)
	Run(ctx context.Context, req pipeline.Request, progress geocoding.Progress) (*pipeline.Result, error)
}

type server struct {
	planner     planner
	extractor   ocr.Extractor
	format      export.Format
	labelPrefix string
	dedupe      bool
	maxUpload   int64

	// runSlot serializes runs so the geocoding rate policy holds across
	// concurrent requests. Waiting for it honors the request context.
	runSlot chan struct{}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP planning server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		p, err := pipeline.FromConfig(cfg)
		if err != nil {
			return err
		}
		extractor, err := ocr.NewExtractor(cfg.OCR)
		if err != nil {
			return err
		}
		format, err := export.ParseFormat(cfg.Export.Format)
		if err != nil {
			return err
		}

		s := &server{
			planner:     p,
			extractor:   extractor,
			format:      format,
			labelPrefix: cfg.Export.LabelPrefix,
			dedupe:      cfg.Pipeline.Dedupe,
			maxUpload:   int64(cfg.Server.MaxUploadMB) << 20,
			runSlot:     make(chan struct{}, 1),
		}

		return startServer(ctx, s.routes(), resolvePort(servePort, cfg.Server.Port))
	},
}

func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Disposition", "X-Run-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/v1", func(r chi.Router) {
		r.Post("/codes", s.handleCodes)
		r.Post("/plans", s.handlePlan)
	})
	return r
}

func (s *server) handleCodes(w http.ResponseWriter, r *http.Request) {
	lines, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	codes, counts, err := s.planner.Codes(lines)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"outcome": pipeline.OutcomeOf(err),
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"codes": codes, "counts": counts})
}

func (s *server) handlePlan(w http.ResponseWriter, r *http.Request) {
	lines, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	req, format, err := s.parsePlanForm(r, lines)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	select {
	case s.runSlot <- struct{}{}:
	case <-r.Context().Done():
		zap.L().Info("plan request abandoned while queued", zap.Error(r.Context().Err()))
		writeError(w, http.StatusServiceUnavailable, eris.Wrap(r.Context().Err(), "request canceled while queued"))
		return
	}
	res, err := func() (*pipeline.Result, error) {
		defer func() { <-s.runSlot }()
		return s.planner.Run(r.Context(), req, nil)
	}()

	if outcome := pipeline.OutcomeOf(err); outcome != "" && outcome != pipeline.OutcomeRouted {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"outcome":    outcome,
			"error":      outcomeMessage(outcome),
			"counts":     res.Counts,
			"unresolved": res.Unresolved,
		})
		return
	}
	if err != nil {
		zap.L().Error("plan request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	body, err := export.Render(format, res.Route(s.labelPrefix))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.DefaultFileName(time.Now(), format)))
	w.Header().Set("X-Run-ID", res.RunID)
	w.Header().Set("X-Route-Distance-Meters", strconv.FormatInt(res.DistanceMeters, 10))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *server) parsePlanForm(r *http.Request, lines []string) (pipeline.Request, export.Format, error) {
	req := pipeline.Request{
		Lines:  lines,
		Codes:  splitCodes(r.Form["codes"]),
		City:   strings.TrimSpace(r.FormValue("city")),
		Dedupe: s.dedupe,
	}

	var err error
	if req.Origin, err = parseOrigin(r.FormValue("origin_lat"), r.FormValue("origin_lng")); err != nil {
		return req, "", err
	}
	if v := r.FormValue("dedupe"); v != "" {
		if req.Dedupe, err = strconv.ParseBool(v); err != nil {
			return req, "", eris.Errorf("invalid dedupe %q", v)
		}
	}

	format := s.format
	if v := r.FormValue("format"); v != "" {
		if format, err = export.ParseFormat(v); err != nil {
			return req, "", err
		}
	}
	return req, format, nil
}

func parseOrigin(lat, lng string) (model.Point, error) {
	var p model.Point
	var err error
	if lat != "" {
		if p.Lat, err = strconv.ParseFloat(lat, 64); err != nil {
			return p, eris.Errorf("invalid origin_lat %q", lat)
		}
	}
	if lng != "" {
		if p.Lng, err = strconv.ParseFloat(lng, 64); err != nil {
			return p, eris.Errorf("invalid origin_lng %q", lng)
		}
	}
	return p, nil
}

// readUpload stores the "manifest" part in a temporary file, keeping its
// extension so the extractor picks the right reader, and extracts its lines.
func (s *server) readUpload(w http.ResponseWriter, r *http.Request) ([]string, error) {
	if s.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, eris.Wrap(err, "parse multipart form")
	}

	file, header, err := r.FormFile("manifest")
	if err != nil {
		return nil, eris.Wrap(err, "manifest file is required")
	}
	defer file.Close() //nolint:errcheck

	tmp, err := os.CreateTemp("", "manifest-*"+strings.ToLower(filepath.Ext(header.Filename)))
	if err != nil {
		return nil, eris.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := io.Copy(tmp, file); err != nil {
		_ = tmp.Close()
		return nil, eris.Wrap(err, "store upload")
	}
	if err := tmp.Close(); err != nil {
		return nil, eris.Wrap(err, "store upload")
	}

	return s.extractor.ExtractLines(r.Context(), tmp.Name())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// startServer serves handler until ctx is done, then shuts down gracefully.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
