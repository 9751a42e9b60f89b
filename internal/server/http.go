package server

import (
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"

	"StackScout/internal/conf"
	"StackScout/internal/metrics"
	"StackScout/internal/server/middleware"
	"StackScout/internal/service"
	"StackScout/pkg/crypto"
	pkglog "StackScout/pkg/log"
)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Server, auth *conf.Auth, aes *crypto.AESCrypto, svc *service.ResearchService, m *metrics.Metrics, logger log.Logger) (*http.Server, error) {
	logHelper := pkglog.NewLogHelper(logger)

	var token string
	if auth != nil && auth.APIToken != "" {
		t, err := aes.Reveal(auth.APIToken)
		if err != nil {
			return nil, fmt.Errorf("failed to reveal api token: %w", err)
		}
		token = t
	}

	opts := []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			middleware.Logging(logHelper),
			middleware.Auth(token, logHelper),
		),
	}
	if c != nil && c.HTTP != nil {
		if c.HTTP.Network != "" {
			opts = append(opts, http.Network(c.HTTP.Network))
		}
		if c.HTTP.Addr != "" {
			opts = append(opts, http.Address(c.HTTP.Addr))
		}
		if c.HTTP.Timeout > 0 {
			opts = append(opts, http.Timeout(c.HTTP.Timeout))
		}
	}
	srv := http.NewServer(opts...)

	RegisterResearchHTTPServer(srv, svc)
	srv.Handle("/metrics", m.Handler())

	logHelper.Startup("http routes registered", "auth", token != "")
	return srv, nil
}
