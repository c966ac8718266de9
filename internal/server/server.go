// Package server exposes the invoice engine over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/invoiceflow/internal/batch"
	"github.com/smallbiznis/invoiceflow/internal/config"
	customerdomain "github.com/smallbiznis/invoiceflow/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/invoiceflow/internal/invoice/domain"
	"github.com/smallbiznis/invoiceflow/internal/invoice/render"
	notificationdomain "github.com/smallbiznis/invoiceflow/internal/notification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg          config.Config
	Log          *zap.Logger
	InvoiceSvc   invoicedomain.Service
	CustomerRepo customerdomain.Repository
	Emitter      notificationdomain.Emitter
	Processor    *batch.Processor
	Renderer     render.Renderer
}

type Server struct {
	cfg          config.Config
	log          *zap.Logger
	invoiceSvc   invoicedomain.Service
	customerRepo customerdomain.Repository
	emitter      notificationdomain.Emitter
	processor    *batch.Processor
	renderer     render.Renderer
}

func New(p Params) *Server {
	return &Server{
		cfg:          p.Cfg,
		log:          p.Log.Named("server"),
		invoiceSvc:   p.InvoiceSvc,
		customerRepo: p.CustomerRepo,
		emitter:      p.Emitter,
		processor:    p.Processor,
		renderer:     p.Renderer,
	}
}

// Router wires the HTTP surface.
func (s *Server) Router() *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	{
		v1.POST("/invoices", s.CreateInvoice)
		v1.GET("/invoices", s.ListInvoices)
		v1.GET("/invoices/:id", s.GetInvoiceByID)
		v1.PATCH("/invoices/:id", s.UpdateInvoice)
		v1.POST("/invoices/:id/status", s.UpdateInvoiceStatus)
		v1.POST("/invoices/:id/cancel", s.CancelInvoice)
		v1.POST("/invoices/:id/pay", s.MarkInvoicePaid)
		v1.GET("/invoices/:id/html", s.RenderInvoiceHTML)

		v1.GET("/profiles", s.ListBillingProfiles)
		v1.GET("/profiles/:id", s.GetBillingProfile)

		v1.POST("/batch/run", s.RunBatch)

		v1.GET("/notifications", s.ListNotifications)
		v1.POST("/notifications/:id/read", s.MarkNotificationRead)
		v1.POST("/notifications/read-all", s.MarkAllNotificationsRead)
	}
	return router
}

var Module = fx.Module("server",
	fx.Provide(New),
	fx.Invoke(func(lc fx.Lifecycle, s *Server, log *zap.Logger) {
		srv := &http.Server{
			Addr:              s.cfg.HTTPAddr,
			Handler:           s.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Error("http server stopped", zap.Error(err))
					}
				}()
				log.Info("http server listening", zap.String("addr", s.cfg.HTTPAddr))
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return srv.Shutdown(ctx)
			},
		})
	}),
)
