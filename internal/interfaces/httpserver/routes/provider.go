package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/google/wire"

	"jan-server/services/helpdesk-api/internal/interfaces/httpserver/handlers"
	v1 "jan-server/services/helpdesk-api/internal/interfaces/httpserver/routes/v1"
)

// Provider coordinates all route registrations.
type Provider struct {
	V1      *v1.Routes
	Webhook *handlers.WebhookHandler
}

// NewProvider constructs the route provider.
func NewProvider(handlerProvider *handlers.Provider) *Provider {
	return &Provider{
		V1:      v1.NewRoutes(handlerProvider),
		Webhook: handlerProvider.Webhook,
	}
}

// RegisterPublic attaches routes that authenticate on their own.
func (p *Provider) RegisterPublic(router gin.IRouter) {
	router.Any("/webhook/telegram", p.Webhook.Handle)
}

// RegisterProtected attaches the internal API.
func (p *Provider) RegisterProtected(router gin.IRouter) {
	p.V1.Register(router)
}

var RouteProvider = wire.NewSet(NewProvider)
