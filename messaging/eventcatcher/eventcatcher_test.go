package eventcatcher

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"cyberherd/engine/actors"
	"cyberherd/messaging/conductor"
)

// scriptedConn replays a fixed set of messages. With hold set it then blocks
// until closed, otherwise it drops the connection.
type scriptedConn struct {
	mutex    sync.Mutex
	messages []string
	hold     bool
	closed   bool
	done     chan struct{}
}

func newScriptedConn(hold bool, messages ...string) *scriptedConn {
	return &scriptedConn{messages: messages, hold: hold, done: make(chan struct{})}
}

func (c *scriptedConn) ReadMessage() (int, []byte, error) {
	c.mutex.Lock()
	if c.closed {
		c.mutex.Unlock()
		return 0, nil, fmt.Errorf("connection closed")
	}
	if len(c.messages) == 0 {
		if c.hold {
			done := c.done
			c.mutex.Unlock()
			<-done
			return 0, nil, fmt.Errorf("connection closed")
		}
		c.closed = true
		c.mutex.Unlock()
		return 0, nil, fmt.Errorf("connection lost")
	}
	next := c.messages[0]
	c.messages = c.messages[1:]
	c.mutex.Unlock()
	return 1, []byte(next), nil
}

func (c *scriptedConn) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

type recordingIngester struct {
	mutex  sync.Mutex
	events []conductor.PaymentEvent
}

func (r *recordingIngester) Ingest(e conductor.PaymentEvent) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingIngester) all() []conductor.PaymentEvent {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]conductor.PaymentEvent, len(r.events))
	copy(out, r.events)
	return out
}

func scriptedDialer(conns ...Conn) (Dialer, *int32) {
	var dials int32
	var mutex sync.Mutex
	i := 0
	return func(url string) (Conn, error) {
		mutex.Lock()
		defer mutex.Unlock()
		dials++
		if i >= len(conns) {
			return nil, fmt.Errorf("no more connections scripted")
		}
		conn := conns[i]
		i++
		return conn, nil
	}, &dials
}

func newTestCatcher(t *testing.T, ingester Ingester, dial Dialer) *Catcher {
	t.Helper()
	actors.SetTerminateChan(make(chan struct{}))
	c := New("ws://example.com/api/v1/ws", ingester)
	c.dial = dial
	c.delay = 10 * time.Millisecond
	return c
}

func paymentJSON(amountMsat int64, balanceMsat int64) string {
	return fmt.Sprintf(`{"wallet_balance":%d,"payment":{"amount":%d,"memo":"treats","status":"success","pending":false}}`, balanceMsat, amountMsat)
}

func eventually(t *testing.T, condition func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(message)
}

func TestSubscribeDeliversPayments(t *testing.T) {
	ingester := &recordingIngester{}
	dial, _ := scriptedDialer(newScriptedConn(true, paymentJSON(21_000, 500_000)))
	c := newTestCatcher(t, ingester, dial)
	go c.Subscribe()
	defer actors.Shutdown()

	eventually(t, func() bool { return len(ingester.all()) == 1 }, "payment was not ingested")
	event := ingester.all()[0]
	assert.Equal(t, int64(21_000), event.AmountMsat)
	assert.Equal(t, int64(500), event.WalletBalanceSats)
	assert.Equal(t, "treats", event.Memo)
	assert.Nil(t, event.Zap)
}

func TestSubscribeReconnectsAfterDisconnect(t *testing.T) {
	ingester := &recordingIngester{}
	dial, _ := scriptedDialer(
		newScriptedConn(false, paymentJSON(10_000, 100_000)),
		newScriptedConn(true, paymentJSON(20_000, 200_000)),
	)
	c := newTestCatcher(t, ingester, dial)
	go c.Subscribe()
	defer actors.Shutdown()

	eventually(t, func() bool { return len(ingester.all()) == 2 }, "second connection never delivered")
	assert.Equal(t, int64(10_000), ingester.all()[0].AmountMsat)
	assert.Equal(t, int64(20_000), ingester.all()[1].AmountMsat)
}

func TestSubscribeSurvivesDialFailure(t *testing.T) {
	ingester := &recordingIngester{}
	var mutex sync.Mutex
	attempts := 0
	conn := newScriptedConn(true, paymentJSON(5_000, 50_000))
	dial := func(url string) (Conn, error) {
		mutex.Lock()
		defer mutex.Unlock()
		attempts++
		if attempts < 3 {
			return nil, fmt.Errorf("connection refused")
		}
		return conn, nil
	}
	c := newTestCatcher(t, ingester, dial)
	go c.Subscribe()
	defer actors.Shutdown()

	eventually(t, func() bool { return len(ingester.all()) == 1 }, "never connected after failures")
	mutex.Lock()
	assert.GreaterOrEqual(t, attempts, 3)
	mutex.Unlock()
}

func TestSubscribeDropsMalformedMessages(t *testing.T) {
	ingester := &recordingIngester{}
	dial, _ := scriptedDialer(newScriptedConn(true,
		"not json at all",
		`{"wallet_balance":100000,"payment":{"amount":-5000}}`,
		paymentJSON(15_000, 100_000),
	))
	c := newTestCatcher(t, ingester, dial)
	go c.Subscribe()
	defer actors.Shutdown()

	eventually(t, func() bool { return len(ingester.all()) == 1 }, "valid payment was not ingested")
	assert.Equal(t, int64(15_000), ingester.all()[0].AmountMsat)
}

func TestSubscribeSkipsPendingPayments(t *testing.T) {
	ingester := &recordingIngester{}
	dial, _ := scriptedDialer(newScriptedConn(true,
		`{"wallet_balance":100000,"payment":{"amount":5000,"pending":true}}`,
		paymentJSON(15_000, 100_000),
	))
	c := newTestCatcher(t, ingester, dial)
	go c.Subscribe()
	defer actors.Shutdown()

	eventually(t, func() bool { return len(ingester.all()) == 1 }, "settled payment was not ingested")
	assert.Equal(t, int64(15_000), ingester.all()[0].AmountMsat)
}

func TestWaitForConnection(t *testing.T) {
	ingester := &recordingIngester{}
	dial, _ := scriptedDialer(newScriptedConn(true, paymentJSON(10_000, 100_000)))
	c := newTestCatcher(t, ingester, dial)

	assert.False(t, c.WaitForConnection(20*time.Millisecond))
	go c.Subscribe()
	defer actors.Shutdown()
	assert.True(t, c.WaitForConnection(2*time.Second))
}

func TestRegisteredListenersSeeRawMessages(t *testing.T) {
	ingester := &recordingIngester{}
	dial, _ := scriptedDialer(newScriptedConn(true, paymentJSON(10_000, 100_000)))
	c := newTestCatcher(t, ingester, dial)
	listener := c.Register()
	defer c.Unregister(listener)

	go c.Subscribe()
	defer actors.Shutdown()

	select {
	case raw := <-listener:
		assert.Contains(t, raw, "treats")
	case <-time.After(2 * time.Second):
		t.Fatal("listener never received the raw message")
	}
}

func TestParsePaymentZapReceipt(t *testing.T) {
	nostrExtra := `{\"id\":\"a1b2\",\"pubkey\":\"02abc\",\"kind\":9734,\"tags\":[[\"e\",\"4a5b6c7d8e9f0a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293\"]],\"content\":\"\"}`
	raw := fmt.Sprintf(`{"wallet_balance":500000,"payment":{"amount":50000,"extra":{"nostr":"%s"}}}`, nostrExtra)

	event, ok, err := parsePayment([]byte(raw))
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, event.Zap)
	assert.Equal(t, "02abc", event.Zap.Pubkey)
	assert.Equal(t, []int{9734}, event.Zap.Kinds)
	assert.Equal(t, "4a5b6c7d8e9f0a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293", event.Zap.NoteID)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "connected", Connected.String())
}
