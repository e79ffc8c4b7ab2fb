package server

import (
	"embed"
	nethttp "net/http"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/research_assistant/app/display/internal/service"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/config"
)

//go:embed assets/*
var assets embed.FS

func NewHTTPServer(c config.ServerConfig, s *service.DisplayService, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if c.Addr != "" {
		opts = append(opts, http.Address(c.Addr))
	}
	if c.Timeout > 0 {
		opts = append(opts, http.Timeout(c.Timeout))
	}

	srv := http.NewServer(opts...)

	srv.HandleFunc("/", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.Path != "/" {
			nethttp.NotFound(w, r)
			return
		}
		content, _ := assets.ReadFile("assets/index.html")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(content)
	})

	srv.HandleFunc("/api/research", s.Research)
	srv.HandleFunc("/api/reports", s.ListReports)
	srv.HandlePrefix("/api/reports/", nethttp.HandlerFunc(s.GetReport))
	srv.HandleFunc("/api/runs", s.ListRuns)
	srv.HandlePrefix("/reports/", nethttp.HandlerFunc(s.RawReport))

	log.NewHelper(logger).Infof("display routes registered, timeout=%s", c.Timeout)

	return srv
}
