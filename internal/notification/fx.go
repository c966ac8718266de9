package notification

import (
	"github.com/smallbiznis/invoiceflow/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.emitter",
	fx.Provide(service.NewEmitter),
)
