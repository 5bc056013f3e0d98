// Package proxy runs a reverse proxy that hands every observed exchange to
// the inspector.
package proxy

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mcncl/castor/internal/config"
	"github.com/mcncl/castor/internal/errors"
	"github.com/mcncl/castor/internal/inspector"
	"github.com/mcncl/castor/internal/metrics"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Server forwards traffic to a single upstream target.
type Server struct {
	engine        *gin.Engine
	target        *url.URL
	targetPort    int
	listen        string
	metricsListen string
	maxBodyBytes  int64
	transport     http.RoundTripper
	inspector     *inspector.Inspector
	metrics       *metrics.Metrics
	log           logrus.FieldLogger
}

// Option customizes a Server
type Option func(*Server)

// WithTransport replaces the transport used to reach the target
func WithTransport(rt http.RoundTripper) Option {
	return func(s *Server) { s.transport = rt }
}

// New creates a Server from the proxy section of cfg.
func New(cfg *config.Config, insp *inspector.Inspector, m *metrics.Metrics, log logrus.FieldLogger, opts ...Option) (*Server, error) {
	if cfg.Proxy.Target == "" {
		return nil, errors.NewProxyError("no upstream target, pass --target or set proxy.target", errors.ErrNoTarget)
	}
	target, err := cfg.TargetURL()
	if err != nil {
		return nil, errors.NewConfigError("invalid proxy target", err)
	}

	s := &Server{
		target:        target,
		targetPort:    portOf(target),
		listen:        cfg.Proxy.Listen,
		metricsListen: cfg.Proxy.MetricsListen,
		maxBodyBytes:  cfg.Proxy.MaxBodyBytes,
		transport:     http.DefaultTransport,
		inspector:     insp,
		metrics:       m,
		log:           log,
	}
	for _, opt := range opts {
		opt(s)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.accessLog())
	engine.NoRoute(s.forward)
	s.engine = engine
	return s, nil
}

// Handler returns the proxy's http.Handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled or a listener fails.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	servers := []*http.Server{{Addr: s.listen, Handler: s.engine}}
	if s.metricsListen != "" && s.metrics != nil {
		servers = append(servers, &http.Server{Addr: s.metricsListen, Handler: s.metrics.Handler()})
	}

	for _, srv := range servers {
		g.Go(func() error {
			s.log.WithField("addr", srv.Addr).Info("Listening")
			if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				return errors.NewProxyError("listener failed on "+srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.log.WithError(err).WithField("addr", srv.Addr).Warn("Shutdown failed")
			}
		}
		return nil
	})

	return g.Wait()
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.RequestURI(),
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start),
		}).Debug("Proxied request")
	}
}

func (s *Server) forward(c *gin.Context) {
	reqBody, complete, err := capture(c.Request.Body, s.maxBodyBytes)
	if err != nil {
		s.log.WithError(err).Error("Failed to read request body")
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	c.Request.Body = reqBody.reader

	ex := inspector.Exchange{
		Method: c.Request.Method,
		Host:   s.target.Hostname(),
		Port:   s.targetPort,
		Path:   c.Request.URL.RequestURI(),
		Request: inspector.Message{
			ContentType: c.GetHeader("Content-Type"),
		},
	}
	if complete {
		ex.Request.Body = reqBody.data
	} else {
		s.log.WithError(errors.ErrBodyTooLarge).WithField("path", ex.Path).Warn("Request body skipped")
	}

	rp := &httputil.ReverseProxy{
		Transport: s.transport,
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(s.target)
			pr.SetXForwarded()
			// Bodies must reach the inspector uncompressed.
			pr.Out.Header.Del("Accept-Encoding")
		},
		ModifyResponse: func(resp *http.Response) error {
			s.metrics.RequestProxied(resp.StatusCode)

			respBody, complete, err := capture(resp.Body, s.maxBodyBytes)
			if err != nil {
				return err
			}
			resp.Body = respBody.reader

			if !complete {
				s.log.WithError(errors.ErrBodyTooLarge).WithField("path", ex.Path).Warn("Response body skipped")
				return nil
			}
			ex.Response = inspector.Message{
				ContentType: resp.Header.Get("Content-Type"),
				Body:        respBody.data,
			}
			s.inspector.Inspect(ex)
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			s.metrics.RequestProxied(http.StatusBadGateway)
			s.log.WithError(err).WithField("path", ex.Path).Error("Upstream request failed")
			w.WriteHeader(http.StatusBadGateway)
		},
	}
	rp.ServeHTTP(c.Writer, c.Request)
}

type capturedBody struct {
	data   []byte
	reader io.ReadCloser
}

// capture reads up to limit bytes of body for inspection. The returned reader
// replays the captured bytes followed by whatever is left of body. complete is
// false when the body is larger than limit.
func capture(body io.ReadCloser, limit int64) (capturedBody, bool, error) {
	if body == nil || body == http.NoBody {
		return capturedBody{reader: http.NoBody}, true, nil
	}
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return capturedBody{}, false, err
	}
	reader := struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(data), body), body}

	return capturedBody{data: data, reader: reader}, int64(len(data)) <= limit, nil
}

func portOf(u *url.URL) int {
	if p, err := strconv.Atoi(u.Port()); err == nil {
		return p
	}
	if u.Scheme == "https" {
		return 443
	}
	return 80
}
