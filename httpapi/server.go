// Package httpapi serves device sessions and command dispatch over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.viam.com/rdk/logging"

	"github.com/viam-modules/onvifcore/device"
	"github.com/viam-modules/onvifcore/dispatch"
	"github.com/viam-modules/onvifcore/gosoap"
	"github.com/viam-modules/onvifcore/mdns"
	"github.com/viam-modules/onvifcore/metrics"
	"github.com/viam-modules/onvifcore/profile"
	"github.com/viam-modules/onvifcore/session"
	"github.com/viam-modules/onvifcore/store"
)

var (
	// ErrSessionNotFound means no session has the requested id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidXaddr means an open request named an xaddr that is not an absolute device url.
	ErrInvalidXaddr = errors.New("invalid xaddr")
)

// Options configures a Server. Everything but Registry is optional.
type Options struct {
	Registry    *profile.Registry
	Store       *store.Store
	Announcer   *mdns.Announcer
	Metrics     *metrics.Collector
	StepTimeout time.Duration
}

// Server holds bootstrapped sessions and serves them over HTTP.
type Server struct {
	opts     Options
	logger   logging.Logger
	gatherer prometheus.Gatherer

	mu      sync.RWMutex
	routers map[string]*dispatch.Router
}

// NewServer returns a Server with no sessions.
func NewServer(opts Options, logger logging.Logger) (*Server, error) {
	if opts.Registry == nil {
		opts.Registry = profile.NewDefaultRegistry(logger)
	}
	reg := prometheus.NewRegistry()
	if opts.Metrics != nil {
		if err := reg.Register(opts.Metrics); err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
	}
	return &Server{
		opts:     opts,
		logger:   logger,
		gatherer: reg,
		routers:  map[string]*dispatch.Router{},
	}, nil
}

// OpenRequest describes a device to open a session on.
type OpenRequest struct {
	Xaddr                    string `json:"xaddr"`
	Username                 string `json:"username,omitempty"`
	Password                 string `json:"password,omitempty"`
	SkipLocalTLSVerification bool   `json:"skip_local_tls_verification,omitempty"`
	// Cached restores a stored snapshot of the device instead of bootstrapping, when there is one.
	Cached bool `json:"cached,omitempty"`
}

// Open bootstraps a session on the device, or restores it from the store when req.Cached is set.
// A session that failed to bootstrap is returned with the error and is not kept.
func (s *Server) Open(ctx context.Context, req OpenRequest) (*session.Session, error) {
	u, err := url.Parse(req.Xaddr)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidXaddr, req.Xaddr, err)
	}
	params := device.Params{
		Xaddr:                    u,
		Username:                 req.Username,
		Password:                 req.Password,
		SkipLocalTLSVerification: req.SkipLocalTLSVerification,
	}
	var recorder metrics.Recorder = metrics.Nop{}
	if s.opts.Metrics != nil {
		recorder = s.opts.Metrics
	}
	params.Metrics = recorder

	dev, err := device.NewDevice(params, s.logger.Sublogger("device"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidXaddr, err)
	}

	var sess *session.Session
	if req.Cached && s.opts.Store != nil {
		if snap, err := s.opts.Store.GetByXaddr(dev.Xaddr().String()); err == nil {
			s.logger.Debugf("restoring session %s for %s from store", snap.ID, snap.Xaddr)
			sess = session.Restore(dev, snap)
		}
	}
	if sess == nil {
		b := session.NewBootstrapper(dev, session.Options{StepTimeout: s.opts.StepTimeout, Metrics: recorder}, s.logger.Sublogger("bootstrap"))
		sess, err = b.Run(ctx)
		if err != nil {
			return sess, err
		}
		if s.opts.Store != nil {
			if err := s.opts.Store.Put(sess.Snapshot()); err != nil {
				s.logger.Warnf("failed to store session %s: %v", sess.ID(), err)
			}
		}
	}
	if !sess.Ready() {
		return sess, fmt.Errorf("%w: %v", dispatch.ErrSessionNotReady, sess.Err())
	}

	s.add(sess)
	if s.opts.Announcer != nil {
		if hostname, err := s.opts.Announcer.AnnounceSession(sess); err != nil {
			s.logger.Debugf("not announcing %s over mdns: %v", dev.Xaddr(), err)
		} else {
			s.logger.Infof("announcing %s as %s.local", dev.Xaddr(), hostname)
		}
	}
	return sess, nil
}

func (s *Server) add(sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// one session per device
	for id, r := range s.routers {
		if r.Session().Device().Xaddr().String() == sess.Device().Xaddr().String() {
			delete(s.routers, id)
		}
	}
	s.routers[sess.ID()] = dispatch.NewRouter(s.opts.Registry, sess, s.logger.Sublogger("dispatch"))
	s.updateGauge()
}

// Router returns the router of session id.
func (s *Server) Router(id string) (*dispatch.Router, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.routers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return r, nil
}

// Sessions returns the snapshots of every held session, ordered by xaddr.
func (s *Server) Sessions() []session.Snapshot {
	s.mu.RLock()
	out := make([]session.Snapshot, 0, len(s.routers))
	for _, r := range s.routers {
		out = append(out, r.Session().Snapshot())
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b session.Snapshot) int {
		return strings.Compare(a.Xaddr, b.Xaddr)
	})
	return out
}

// Close removes session id, from the store too.
func (s *Server) Close(id string) error {
	s.mu.Lock()
	r, ok := s.routers[id]
	if ok {
		delete(s.routers, id)
		s.updateGauge()
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	r.Wait()
	if s.opts.Store != nil {
		if err := s.opts.Store.Delete(id); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	return nil
}

// updateGauge must be called with mu held.
func (s *Server) updateGauge() {
	if s.opts.Metrics != nil {
		s.opts.Metrics.SetSessions(len(s.routers))
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Post("/", s.openSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Get("/commands", s.listCommands)
			r.Post("/commands/{command}", s.runCommand)
		})
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debugf("%s %s %d %v", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	n := len(s.routers)
	s.mu.RUnlock()
	writeJSON(w, s.logger, http.StatusOK, map[string]any{"status": "ok", "sessions": n})
}

func (s *Server) listSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, s.Sessions())
}

func (s *Server) openSession(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, http.StatusBadRequest, err)
		return
	}
	if req.Xaddr == "" {
		writeError(w, s.logger, http.StatusBadRequest, errors.New("xaddr is required"))
		return
	}
	sess, err := s.Open(r.Context(), req)
	if err != nil {
		body := errorBody{Error: err.Error()}
		if sess != nil {
			body.Session = sess.Snapshot()
		}
		status := statusFor(err)
		if status == http.StatusBadRequest && !errors.Is(err, ErrInvalidXaddr) {
			// the request was fine, the device's answer was not
			status = http.StatusBadGateway
		}
		writeJSON(w, s.logger, status, body)
		return
	}
	writeJSON(w, s.logger, http.StatusCreated, sess.Snapshot())
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	router, err := s.Router(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, s.logger, http.StatusNotFound, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, router.Session().Snapshot())
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Close(chi.URLParam(r, "id")); err != nil {
		writeError(w, s.logger, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listCommands(w http.ResponseWriter, r *http.Request) {
	router, err := s.Router(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, s.logger, http.StatusNotFound, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, router.Commands())
}

func (s *Server) runCommand(w http.ResponseWriter, r *http.Request) {
	router, err := s.Router(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, s.logger, http.StatusNotFound, err)
		return
	}
	params := map[string]interface{}{}
	if err := decodeJSON(r, &params); err != nil {
		writeError(w, s.logger, http.StatusBadRequest, err)
		return
	}
	resp, err := router.Call(r.Context(), chi.URLParam(r, "command"), params)
	if err != nil {
		writeError(w, s.logger, statusFor(err), err)
		return
	}
	out, err := dispatch.ToMap(resp)
	if err != nil {
		writeError(w, s.logger, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, out)
}

// statusFor maps dispatch and device errors to HTTP statuses. Anything unrecognised is a bad
// argument.
func statusFor(err error) int {
	var fault *gosoap.Fault
	var urlErr *url.Error
	switch {
	case errors.Is(err, ErrInvalidXaddr):
		return http.StatusBadRequest
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, store.ErrNotFound), errors.Is(err, dispatch.ErrUnknownCommand):
		return http.StatusNotFound
	case errors.Is(err, dispatch.ErrProfileUnavailable), errors.Is(err, dispatch.ErrSessionNotReady):
		return http.StatusConflict
	// checked before *url.Error, which wraps client timeouts
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &fault), errors.As(err, &urlErr),
		errors.Is(err, device.ErrHTTPStatus), errors.Is(err, device.ErrNoEndpoint):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}
