//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"StackScout/internal/biz"
	"StackScout/internal/conf"
	"StackScout/internal/data"
	"StackScout/internal/metrics"
	"StackScout/internal/server"
	"StackScout/internal/service"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// wireApp init kratos application.
func wireApp(*conf.Server, *conf.Data, *conf.Auth, *conf.Breaker, *conf.Cache, []*conf.Provider, *conf.Research, *conf.Classifier, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(
		data.ProviderSet,
		biz.ProviderSet,
		service.ProviderSet,
		server.NewHTTPServer,
		metrics.New,
		newCryptoService,
		NewMaintenance,
		newApp,
	))
}
