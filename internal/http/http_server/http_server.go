package http_server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"auctionhouse/internal/http/adminhandler"
	"auctionhouse/internal/http/bidhandler"
	"auctionhouse/internal/http/identity"
	"auctionhouse/internal/http/orderhandler"
	"auctionhouse/internal/http/producthandler"
	"auctionhouse/internal/ws"
)

// Handlers bundles everything the server mounts.
type Handlers struct {
	Products *producthandler.Handler
	Bids     *bidhandler.Handler
	Orders   *orderhandler.Handler
	Admin    *adminhandler.Handler
	WsSrv    *ws.WsServer
}

type httpServer struct {
	listenPort uint16
	srv        http.Server
	ln         net.Listener
	handlers   Handlers
	ctx        context.Context
}

func NewHttpServer(ctx context.Context, listenPort uint16, handlers Handlers) *httpServer {
	return &httpServer{
		listenPort: listenPort,
		handlers:   handlers,
		ctx:        ctx,
	}
}

func (h *httpServer) Start() error {
	var err error
	listenAddr := fmt.Sprintf(":%d", h.listenPort)
	h.ln, err = net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	routerEngine := gin.New()
	routerEngine.Use(ginzap.Ginzap(zap.L(), time.RFC3339, true))
	routerEngine.Use(ginzap.RecoveryWithZap(zap.L(), true))
	routerEngine.Use(identity.Middleware())

	// websocket endpoint
	routerEngine.GET("/ws", h.handlers.WsSrv.Handle)

	// REST API
	h.handlers.Products.Register(routerEngine)
	h.handlers.Bids.Register(routerEngine)
	h.handlers.Orders.Register(routerEngine)
	h.handlers.Admin.Register(routerEngine)

	h.srv = http.Server{
		Handler: routerEngine,
	}

	return h.srv.Serve(h.ln)
}

// Dispose gracefully shuts the HTTP server down.
// It waits up to 10 s for in-flight requests to finish.
func (h *httpServer) Dispose() error {
	ctx, cancel := context.WithTimeout(h.ctx, 10*time.Second)
	defer cancel()

	if err := h.srv.Shutdown(ctx); err != nil {
		zap.L().Error("http_dispose", zap.Error(err))
		return err // e.g. active conns didn't finish in time
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		zap.L().Error("http_dispose", zap.Error(errors.New("shutdown timed out")))
	}

	return nil
}
