package pool

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
)

const presenceTTL = 60 * time.Second

type ClientPool interface {
	AddClient(userID int, conn *websocket.Conn)
	GetClient(userID int) *Client
	RemoveClient(userID int)
	BroadcastEvent(eventType string, data interface{})
	RefreshPresence(userID int)
	OnlineOperators(ctx context.Context) ([]string, error)
}

type Client struct {
	UserID int
	Conn   *websocket.Conn
	Ctx    context.Context
	Cancel context.CancelFunc
}

type Pool struct {
	mu      sync.Mutex
	clients map[int]*Client
	redis   *redis.Client
}

var GlobalPool ClientPool = &Pool{
	clients: make(map[int]*Client),
}

// InitPresence attaches the redis client used for operator presence.
func InitPresence(redisURL string) {
	p := GlobalPool.(*Pool)
	p.redis = redis.NewClient(&redis.Options{
		Addr: redisURL,
		DB:   0,
	})
	log.Printf("Presence tracking initialized with redis at %s", redisURL)
}

func presenceKey(userID int) string {
	return "presence:operator:" + strconv.Itoa(userID)
}

func (p *Pool) AddClient(userID int, conn *websocket.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	p.clients[userID] = &Client{
		UserID: userID,
		Conn:   conn,
		Ctx:    ctx,
		Cancel: cancel,
	}

	if p.redis != nil {
		if err := p.redis.Set(ctx, presenceKey(userID), time.Now().Unix(), presenceTTL).Err(); err != nil {
			log.Printf("Error marking operator %d online: %v", userID, err)
		}
	}
	log.Printf("Operator %d added to pool", userID)
}

func (p *Pool) GetClient(userID int) *Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.clients[userID]
}

func (p *Pool) RemoveClient(userID int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.removeClientLocked(userID)
}

func (p *Pool) removeClientLocked(userID int) {
	if client := p.clients[userID]; client != nil {
		client.Cancel()
	}
	delete(p.clients, userID)

	if p.redis != nil {
		if err := p.redis.Del(context.Background(), presenceKey(userID)).Err(); err != nil {
			log.Printf("Error clearing presence for operator %d: %v", userID, err)
		}
	}
	log.Printf("Operator %d removed from pool", userID)
}

// RefreshPresence extends the operator's online TTL; called on ws pings.
func (p *Pool) RefreshPresence(userID int) {
	if p.redis == nil {
		return
	}
	if err := p.redis.Expire(context.Background(), presenceKey(userID), presenceTTL).Err(); err != nil {
		log.Printf("Error refreshing presence for operator %d: %v", userID, err)
	}
}

// OnlineOperators lists operator ids with a live presence key.
func (p *Pool) OnlineOperators(ctx context.Context) ([]string, error) {
	if p.redis == nil {
		return nil, nil
	}
	keys, err := p.redis.Keys(ctx, "presence:operator:*").Result()
	if err != nil {
		return nil, err
	}
	online := make([]string, 0, len(keys))
	for _, key := range keys {
		online = append(online, key[len("presence:operator:"):])
	}
	return online, nil
}

// BroadcastEvent pushes an event to every connected operator. Events are
// invalidation hints only; clients reconcile by re-querying current state,
// never by assuming the stream is gap-free.
func (p *Pool) BroadcastEvent(eventType string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for userID, client := range p.clients {
		err := client.Conn.WriteJSON(map[string]interface{}{
			"event": eventType,
			"data":  data,
		})
		if err != nil {
			log.Printf("Error sending event to operator %d: %v", userID, err)
			client.Conn.Close()
			p.removeClientLocked(userID)
		}
	}
}
