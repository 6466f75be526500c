package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"auctionhouse/internal/auctionerrors"
	"auctionhouse/internal/services/bidding"
	"auctionhouse/internal/services/listing"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 12 * time.Second
	pingPeriod = 3 * time.Second // must be < pongWait
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 512,
	CheckOrigin:     func(*http.Request) bool { return true }, // gateway terminates origin checks
}

type WsServer struct {
	hub        *Hub
	subMgr     *subscriptionManager
	router     *Router
	listingSvc listing.IListingService
	biddingSvc bidding.IBiddingService
}

func NewWsServer(h *Hub, rdc *redis.Client, listingSvc listing.IListingService, biddingSvc bidding.IBiddingService) *WsServer {
	srv := &WsServer{
		hub:        h,
		subMgr:     newSubscriptionManager(rdc, h),
		router:     NewRouter(),
		listingSvc: listingSvc,
		biddingSvc: biddingSvc,
	}
	srv.registerHandlers()
	return srv
}

// Handle is the gin entry point: upgrade, join the listing's room, push a
// snapshot, then serve frames until the client goes away.
func (s *WsServer) Handle(ginCtx *gin.Context) {
	listingID := ginCtx.Query("listing_id")
	userID := ginCtx.Query("user_id")
	if listingID == "" || userID == "" {
		ginCtx.JSON(http.StatusBadRequest, gin.H{"error": "listing_id and user_id are required"})
		return
	}

	rawConn, err := upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(512)
	_ = rawConn.SetReadDeadline(time.Now().Add(pongWait))
	rawConn.SetPongHandler(func(string) error {
		return rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	wsConn := &clientConn{rawConn: rawConn}
	s.hub.Join(listingID, wsConn)
	s.subMgr.Subscribe(listingID) // no-op when already subscribed

	if err := s.pushSnapshot(ginCtx.Request.Context(), listingID, wsConn); err != nil {
		zap.L().Warn("ws.snapshot", zap.String("listing_id", listingID), zap.Error(err))
	}

	go s.reader(listingID, userID, wsConn)
	go s.pinger(wsConn)
}

func (s *WsServer) registerHandlers() {
	Register(
		s.router,
		"listings/bid",
		func(ctx context.Context, cc *ConnContext, req BidRequest) (AckBody, error) {
			_, err := s.biddingSvc.PlaceBid(ctx, cc.ListingID, cc.UserID, req.Amount)
			return AckBody{}, err
		},
	)
}

// pushSnapshot sends the listing state plus its current top bids so a client
// can render without a REST round-trip.
func (s *WsServer) pushSnapshot(ctx context.Context, id string, conn *clientConn) error {
	ctx, cancel := context.WithTimeout(ctx, 4*time.Second)
	defer cancel()

	l, err := s.listingSvc.Get(ctx, id)
	if err != nil {
		return err
	}
	bids, err := s.biddingSvc.BidsForListing(ctx, id, 10)
	if err != nil {
		return err
	}
	return conn.writeJSON(gin.H{
		"event": "listings/snapshot",
		"body":  gin.H{"listing": l, "bids": bids},
	})
}

func (s *WsServer) reader(listingID, userID string, conn *clientConn) {
	defer func() {
		s.hub.Leave(listingID, conn)
		s.subMgr.Unsubscribe(listingID)
	}()

	cc := &ConnContext{ListingID: listingID, UserID: userID}

	for {
		var env Envelope
		if err := conn.rawConn.ReadJSON(&env); err != nil {
			return // client closed or errored
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1900*time.Millisecond)
		res, err := s.router.dispatch(ctx, cc, env)
		cancel()

		if err != nil {
			_ = conn.writeJSON(map[string]any{
				"event": "error",
				"body": ErrorBody{
					Kind:    string(auctionerrors.KindOf(err)),
					Message: err.Error(),
				},
			})
			continue
		}

		reply := map[string]any{"event": env.Event + "-ack"}
		if res != nil {
			reply["body"] = res
		}
		_ = conn.writeJSON(reply)
	}
}

func (s *WsServer) pinger(conn *clientConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.ping(); err != nil {
			conn.close()
			return
		}
	}
}

// wrapNotifyEvent turns a raw sink payload
//
//	{"event":"bid","listing_id":"l1",...}
//
// into the frame format clients expect:
//
//	{"event":"listings/bid","body":{"listing_id":"l1",...}}
func wrapNotifyEvent(payload string) []byte {
	var raw map[string]any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return []byte(payload) // forward as-is
	}

	evt, _ := raw["event"].(string)
	if evt == "" {
		evt = "unknown"
	}
	delete(raw, "event")

	out, err := json.Marshal(map[string]any{
		"event": "listings/" + evt,
		"body":  raw,
	})
	if err != nil {
		return []byte(payload)
	}
	return out
}
