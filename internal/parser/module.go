package parser

import (
	"github.com/brizzai/dataport-cli/internal/config"
	"github.com/brizzai/dataport-cli/internal/requester"
	"go.uber.org/fx"
)

func provideSwaggerParser(cfg *config.Config, r *requester.HTTPRequester) *SwaggerParser {
	return NewSwaggerParser(cfg, NewSelection(), r)
}

// Module provides the parser dependencies
var Module = fx.Module("parser",
	fx.Provide(
		fx.Annotate(
			provideSwaggerParser,
			fx.As(new(Parser)),
		),
	),
)
