// Package proxy fronts the origin: allow-listed requests go through the
// active interceptor, everything else is passed through unchanged.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/huangsam/assetcache/internal/interceptor"
	"github.com/sirupsen/logrus"
)

// Timeouts for the front proxy.
const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// Server is the HTTP front proxy.
type Server struct {
	origin       *url.URL
	registration *interceptor.Registration
	passThrough  *httputil.ReverseProxy
	log          logrus.FieldLogger
	httpServer   *http.Server
}

var _ http.Handler = &Server{} // Compile-time check

// New returns a proxy for origin that serves through the controller of reg.
func New(listenAddr string, origin *url.URL, reg *interceptor.Registration, logger logrus.FieldLogger) (*Server, error) {
	if origin == nil {
		return nil, errors.New("proxy requires an origin")
	}
	if reg == nil {
		return nil, errors.New("proxy requires a registration")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	s := &Server{
		origin:       origin,
		registration: reg,
		log:          logger,
	}
	s.passThrough = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(origin)
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			s.log.WithError(err).WithField("url", r.URL.String()).Warn("Pass-through failed")
			w.WriteHeader(http.StatusBadGateway)
		},
	}
	s.httpServer = &http.Server{
		Addr:              listenAddr,
		Handler:           s,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s, nil
}

// UpstreamURL maps an incoming request onto the origin.
func (s *Server) UpstreamURL(r *http.Request) *url.URL {
	ref := &url.URL{Path: r.URL.Path, RawPath: r.URL.RawPath, RawQuery: r.URL.RawQuery}
	if ref.Path != "" && ref.Path[0] == '/' {
		ref.Path = ref.Path[1:]
		if ref.RawPath != "" {
			ref.RawPath = ref.RawPath[1:]
		}
	}
	return s.origin.ResolveReference(ref)
}

// ServeHTTP routes r to the active interceptor when it matches, otherwise to the origin.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upstream := s.UpstreamURL(r)
	ic := s.registration.Controller()
	if ic == nil || !ic.Matches(upstream.String()) {
		s.passThrough.ServeHTTP(w, r)
		return
	}

	out := r.Clone(r.Context())
	out.URL = upstream
	out.Host = upstream.Host
	out.RequestURI = ""

	resp, err := ic.Fetch(r.Context(), out)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	writeResponse(w, resp, s.log)
}

func writeResponse(w http.ResponseWriter, resp *interceptor.Response, log logrus.FieldLogger) {
	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body == nil {
		return
	}
	defer func() { _ = resp.Body.Close() }()
	if _, err := io.Copy(w, resp.Body); err != nil {
		log.WithError(err).WithField("url", resp.URL).Debug("Client went away")
	}
}

// ListenAndServe runs the proxy until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until the context ends. On cancellation
// it drains in-flight requests and waits for background cache writes.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	serveErr := make(chan error, 1)
	s.log.WithFields(logrus.Fields{"addr": ln.Addr().String(), "origin": s.origin.String()}).Info("Proxy listening")
	go func() {
		serveErr <- s.httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if ic := s.registration.Controller(); ic != nil {
			ic.Wait()
		}
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
