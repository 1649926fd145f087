package chainstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"KolTrack/internal/domain/models"
	drepo "KolTrack/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements a SwapStream backed by a chain-data WebSocket feed.
type Client struct {
	apiKey         string
	websocketURL   string
	wallets        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	// mu guards conn and connected; connection swaps race with the
	// ping and read goroutines otherwise.
	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// New creates a new chainstream SwapStream.
func New(apiKey, websocketURL string, wallets []string, reconnectDelay, pingInterval time.Duration) drepo.SwapStream {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		wallets:        wallets,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("chainstream connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	log.Printf("chainstream: connected")
	return nil
}

func (c *Client) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil
	}
	return c.conn
}

// Subscribe subscribes to swaps for the configured wallets.
func (c *Client) Subscribe(ctx context.Context) error {
	conn := c.current()
	if conn == nil {
		return fmt.Errorf("chainstream not connected")
	}
	for _, w := range c.wallets {
		msg := map[string]string{"type": "subscribe", "channel": "swaps", "wallet": w}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", w, err)
		}
		log.Printf("chainstream: subscribed %s", w)
	}
	return nil
}

type csSwap struct {
	Signature string  `json:"signature"`
	Wallet    string  `json:"wallet"`
	Mint      string  `json:"mint"`
	Side      string  `json:"side"`
	Amount    float64 `json:"amount"`
	Quote     float64 `json:"quote"`
	Price     float64 `json:"price"`
	MarketCap float64 `json:"market_cap"`
	T         int64   `json:"t"` // ms
}

type csMessage struct {
	Type string   `json:"type"`
	Data []csSwap `json:"data"`
}

// Read streams Transaction events and errors.
func (c *Client) Read(ctx context.Context) (<-chan *models.Transaction, <-chan error) {
	swaps := make(chan *models.Transaction, 1024)
	errs := make(chan error, 1)

	// Both loops bind to the connection at call time; a reconnect
	// needs a fresh Read.
	conn := c.current()
	if conn == nil {
		errs <- fmt.Errorf("chainstream conn nil")
		close(swaps)
		close(errs)
		return swaps, errs
	}

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}()

	// read loop
	go func() {
		defer close(swaps)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("chainstream read: %w", err)
					return
				}
				var m csMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-swap frames
					continue
				}
				if m.Type != "swap" {
					continue
				}
				for _, d := range m.Data {
					tx := &models.Transaction{
						Signature:   d.Signature,
						Participant: d.Wallet,
						Asset:       d.Mint,
						Kind:        models.TxKind(d.Side),
						AssetAmount: d.Amount,
						QuoteAmount: d.Quote,
						Price:       d.Price,
						MarketCap:   d.MarketCap,
						Timestamp:   time.UnixMilli(d.T).UTC(),
					}
					select {
					case swaps <- tx:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return swaps, errs
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.mu.Lock()
	c.connected = false
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
