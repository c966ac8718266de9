package invoice

import (
	"github.com/smallbiznis/invoiceflow/internal/config"
	"github.com/smallbiznis/invoiceflow/internal/invoice/domain"
	"github.com/smallbiznis/invoiceflow/internal/invoice/render"
	"github.com/smallbiznis/invoiceflow/internal/invoice/repository"
	"github.com/smallbiznis/invoiceflow/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(func(cfg config.Config) domain.TransitionPolicy {
		return domain.PolicyFromName(cfg.TransitionPolicy)
	}),
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
	fx.Provide(render.NewRenderer),
)
