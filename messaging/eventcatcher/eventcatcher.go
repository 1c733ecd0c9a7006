package eventcatcher

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nbd-wtf/go-nostr"
	"github.com/sasha-s/go-deadlock"
	"cyberherd/engine/actors"
	"cyberherd/engine/library"
	"cyberherd/messaging/conductor"
)

type State int64

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "disconnected"
}

// Conn is the subset of a websocket connection we consume.
type Conn interface {
	ReadMessage() (int, []byte, error)
	Close() error
}

type Dialer func(url string) (Conn, error)

func GorillaDialer(url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

type Ingester interface {
	Ingest(conductor.PaymentEvent) error
}

// Catcher maintains a websocket subscription to the wallet's payment feed
// and hands settled payments to the ingester.
type Catcher struct {
	url      string
	dial     Dialer
	ingester Ingester
	delay    time.Duration

	stateMutex deadlock.Mutex
	state      State
	connected  chan struct{}

	listenerMutex deadlock.Mutex
	listeners     map[chan string]struct{}
}

func New(url string, ingester Ingester) *Catcher {
	return &Catcher{
		url:       url,
		dial:      GorillaDialer,
		ingester:  ingester,
		delay:     5 * time.Second,
		connected: make(chan struct{}),
		listeners: make(map[chan string]struct{}),
	}
}

func (c *Catcher) State() State {
	c.stateMutex.Lock()
	defer c.stateMutex.Unlock()
	return c.state
}

func (c *Catcher) setState(s State) {
	c.stateMutex.Lock()
	defer c.stateMutex.Unlock()
	if c.state == s {
		return
	}
	if s == Connected {
		close(c.connected)
	}
	if c.state == Connected {
		c.connected = make(chan struct{})
	}
	c.state = s
	library.LogCLI("payment feed is "+s.String(), 4)
}

// WaitForConnection blocks until the feed connects or the timeout elapses.
func (c *Catcher) WaitForConnection(timeout time.Duration) bool {
	c.stateMutex.Lock()
	connected := c.connected
	c.stateMutex.Unlock()
	select {
	case <-connected:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Subscribe dials the payment feed and reconnects forever until shutdown.
func (c *Catcher) Subscribe() {
	actors.GetWaitGroup().Add(1)
	sleepChan := make(chan bool)
	sleeper(sleepChan)
	go func() {
		select {
		case <-sleepChan:
			library.LogCLI("system sleep detected, shutting down", 2)
			actors.Shutdown()
		case <-actors.GetTerminateChan():
		}
	}()
L:
	for {
		select {
		case <-actors.GetTerminateChan():
			break L
		default:
		}
		c.setState(Connecting)
		conn, err := c.dial(c.url)
		if err != nil {
			library.LogCLI("could not connect to payment feed: "+err.Error(), 2)
			c.setState(Disconnected)
			select {
			case <-actors.GetTerminateChan():
				break L
			case <-time.After(c.delay):
			}
			continue
		}
		c.setState(Connected)
		c.readLoop(conn)
		c.setState(Disconnected)
		select {
		case <-actors.GetTerminateChan():
			break L
		case <-time.After(c.delay):
		}
	}
	c.setState(Disconnected)
	actors.GetWaitGroup().Done()
}

// readLoop consumes the connection until it fails or we are told to stop.
func (c *Catcher) readLoop(conn Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-actors.GetTerminateChan():
			conn.Close()
		case <-done:
		}
	}()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			library.LogCLI("payment feed read failed: "+err.Error(), 2)
			conn.Close()
			return
		}
		c.Broadcast(string(raw))
		event, ok, err := parsePayment(raw)
		if err != nil {
			library.LogCLI("dropping malformed payment message: "+err.Error(), 2)
			continue
		}
		if !ok {
			continue
		}
		if err := c.ingester.Ingest(event); err != nil {
			library.LogCLI(err.Error(), 1)
		}
	}
}

// Register returns a channel receiving every raw feed message.
func (c *Catcher) Register() chan string {
	ch := make(chan string, 64)
	c.listenerMutex.Lock()
	defer c.listenerMutex.Unlock()
	c.listeners[ch] = struct{}{}
	return ch
}

func (c *Catcher) Unregister(ch chan string) {
	c.listenerMutex.Lock()
	defer c.listenerMutex.Unlock()
	delete(c.listeners, ch)
}

func (c *Catcher) Broadcast(message string) {
	c.listenerMutex.Lock()
	defer c.listenerMutex.Unlock()
	for ch := range c.listeners {
		select {
		case ch <- message:
		default:
			library.LogCLI("dropping slow payment feed listener", 2)
			delete(c.listeners, ch)
		}
	}
}

type paymentMessage struct {
	WalletBalance int64 `json:"wallet_balance"`
	Payment       struct {
		Amount  int64  `json:"amount"`
		Memo    string `json:"memo"`
		Status  string `json:"status"`
		Pending bool   `json:"pending"`
		Time    int64  `json:"time"`
		Fee     int64  `json:"fee"`
		Extra   struct {
			Nostr string `json:"nostr"`
		} `json:"extra"`
	} `json:"payment"`
}

// parsePayment converts a raw feed message into a payment event. ok is false
// for messages that are valid but not settled incoming payments.
func parsePayment(raw []byte) (conductor.PaymentEvent, bool, error) {
	var msg paymentMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return conductor.PaymentEvent{}, false, err
	}
	if msg.Payment.Amount < 0 {
		return conductor.PaymentEvent{}, false, fmt.Errorf("outgoing payment of %d msat", msg.Payment.Amount)
	}
	if msg.Payment.Pending || msg.Payment.Amount == 0 {
		return conductor.PaymentEvent{}, false, nil
	}
	event := conductor.PaymentEvent{
		AmountMsat:        msg.Payment.Amount,
		WalletBalanceSats: msg.WalletBalance / 1000,
		Memo:              msg.Payment.Memo,
	}
	if msg.Payment.Extra.Nostr != "" {
		var zapRequest nostr.Event
		if err := json.Unmarshal([]byte(msg.Payment.Extra.Nostr), &zapRequest); err != nil {
			library.LogCLI("could not parse zap request on payment: "+err.Error(), 2)
		} else {
			noteID, _ := library.GetNoteReference(zapRequest)
			event.Zap = &conductor.ZapReceipt{
				Pubkey: zapRequest.PubKey,
				NoteID: noteID,
				Kinds:  []int{zapRequest.Kind},
				Event:  zapRequest,
			}
		}
	}
	return event, true, nil
}
