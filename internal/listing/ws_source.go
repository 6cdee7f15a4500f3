package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bong69rip420/rugwatcher-automator/internal/domain"
	"github.com/bong69rip420/rugwatcher-automator/internal/retry"
	"github.com/bong69rip420/rugwatcher-automator/internal/solana"
	"github.com/bong69rip420/rugwatcher-automator/internal/throttle"
)

// WSSourceOptions configures a WSSource.
type WSSourceOptions struct {
	// Endpoint is the Solana WebSocket RPC URL.
	Endpoint string

	// RPC resolves streamed signatures to full transactions.
	RPC      solana.Client
	Throttle *throttle.Throttle

	Programs []string

	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	PingInterval      time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration

	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *log.Logger
}

// WSSource streams program logs over WebSocket (logsSubscribe, one
// subscription per venue program) and resolves creation events to token
// listings on Poll. The stream reconnects and resubscribes on failure.
type WSSource struct {
	opts WSSourceOptions

	conn   *websocket.Conn
	connMu sync.Mutex

	// signatures buffers streamed signatures between Poll calls.
	signatures chan string

	requestID atomic.Uint64
	closed    atomic.Bool
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewWSSource connects, subscribes and starts the read loop.
func NewWSSource(ctx context.Context, opts WSSourceOptions) (*WSSource, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("listing: websocket endpoint is required")
	}
	if opts.RPC == nil {
		return nil, errors.New("listing: RPC client is required")
	}
	if opts.Throttle == nil {
		return nil, errors.New("listing: throttle is required")
	}
	if len(opts.Programs) == 0 {
		opts.Programs = DefaultPrograms()
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = time.Second
	}
	if opts.MaxReconnectDelay <= 0 {
		opts.MaxReconnectDelay = 30 * time.Second
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 60 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	s := &WSSource{
		opts:       opts,
		signatures: make(chan string, 4096),
		done:       make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	if err := s.subscribeAll(); err != nil {
		s.closeConn()
		return nil, err
	}

	s.wg.Add(2)
	go s.readLoop()
	go s.pingLoop()

	return s, nil
}

var _ Source = (*WSSource)(nil)

func (s *WSSource) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.opts.Endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
	return nil
}

// subscribeAll issues one logsSubscribe per program. logsSubscribe accepts
// a single mentioned key per subscription.
func (s *WSSource) subscribeAll() error {
	for _, program := range s.opts.Programs {
		req := wsRequest{
			JSONRPC: "2.0",
			ID:      s.requestID.Add(1),
			Method:  "logsSubscribe",
			Params: []interface{}{
				map[string]interface{}{"mentions": []string{program}},
				map[string]string{"commitment": solana.CommitmentConfirmed},
			},
		}

		s.connMu.Lock()
		conn := s.conn
		if conn == nil {
			s.connMu.Unlock()
			return errors.New("not connected")
		}
		conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
		err := conn.WriteJSON(req)
		s.connMu.Unlock()

		if err != nil {
			return fmt.Errorf("write subscribe for %s: %w", program, err)
		}
	}
	return nil
}

// Poll drains buffered signatures and resolves them to listings.
func (s *WSSource) Poll(ctx context.Context) ([]domain.Token, error) {
	var tokens []domain.Token
	seen := make(map[string]bool)

	for {
		var signature string
		select {
		case signature = <-s.signatures:
		default:
			return tokens, nil
		}

		tx, err := retry.Do(ctx, s.opts.MaxAttempts, s.opts.BaseDelay, func(ctx context.Context) (*solana.Transaction, error) {
			if err := s.opts.Throttle.Await(ctx); err != nil {
				return nil, err
			}
			return s.opts.RPC.GetTransaction(ctx, signature)
		})
		if err != nil {
			if ctx.Err() != nil {
				return tokens, ctx.Err()
			}
			s.opts.Logger.Printf("[listing] skip transaction %s: %v", signature, err)
			continue
		}

		token, ok := extractListing(tx)
		if !ok || seen[token.Address] {
			continue
		}
		seen[token.Address] = true
		tokens = append(tokens, token)
	}
}

// Close stops the stream. Idempotent.
func (s *WSSource) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.done)
	s.closeConn()
	s.wg.Wait()
	return nil
}

func (s *WSSource) closeConn() {
	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()
}

// readLoop reads notifications and buffers their signatures, reconnecting
// with exponential backoff on stream failure.
func (s *WSSource) readLoop() {
	defer s.wg.Done()

	delay := s.opts.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			if !s.reconnect(delay) {
				return
			}
			delay *= 2
			if delay > s.opts.MaxReconnectDelay {
				delay = s.opts.MaxReconnectDelay
			}
			continue
		}

		conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}
			s.opts.Logger.Printf("[listing] websocket read: %v", err)
			s.closeConn()
			continue
		}

		delay = s.opts.ReconnectDelay
		s.handleMessage(message)
	}
}

// reconnect waits, redials and resubscribes. Returns false on shutdown.
func (s *WSSource) reconnect(delay time.Duration) bool {
	select {
	case <-s.done:
		return false
	case <-time.After(delay):
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.connect(ctx); err != nil {
		s.opts.Logger.Printf("[listing] reconnect: %v", err)
		return true
	}
	if err := s.subscribeAll(); err != nil {
		s.opts.Logger.Printf("[listing] resubscribe: %v", err)
		s.closeConn()
	}
	return true
}

func (s *WSSource) handleMessage(message []byte) {
	var notif wsLogsNotification
	if err := json.Unmarshal(message, &notif); err != nil || notif.Method != "logsNotification" {
		return
	}
	if notif.Params == nil || notif.Params.Result.Value.Err != nil {
		return
	}

	// Drop the oldest entry under backpressure; the RPC poll cursor of a
	// paired source or the next creation event covers the gap.
	select {
	case s.signatures <- notif.Params.Result.Value.Signature:
	default:
		select {
		case <-s.signatures:
		default:
		}
		select {
		case s.signatures <- notif.Params.Result.Value.Signature:
		default:
		}
	}
}

// pingLoop keeps the connection alive.
func (s *WSSource) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
				if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					s.opts.Logger.Printf("[listing] websocket ping: %v", err)
				}
			}
			s.connMu.Unlock()
		}
	}
}

// WebSocket message shapes.

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsLogsNotification struct {
	Method string `json:"method"`
	Params *struct {
		Subscription int64 `json:"subscription"`
		Result       struct {
			Value struct {
				Signature string      `json:"signature"`
				Logs      []string    `json:"logs"`
				Err       interface{} `json:"err"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}
