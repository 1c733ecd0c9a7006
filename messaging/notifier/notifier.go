package notifier

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/sasha-s/go-deadlock"
	"cyberherd/engine/library"
	"cyberherd/messaging/relays"
	"cyberherd/state/herd"
)

// Notification is one of the concrete event types below.
type Notification interface {
	notification()
}

// SatsReceived reports a payment that did not trip the feeder.
type SatsReceived struct {
	Sats       int64
	Difference int64
}

// FeederTriggered reports the payment that tripped the feeder.
type FeederTriggered struct {
	Sats int64
}

// MemberJoined reports a new CyberHerd member.
type MemberJoined struct {
	Member         herd.Member
	SpotsRemaining int
}

// MemberRewarded reports a payout sent to a member.
type MemberRewarded struct {
	Member     herd.Member
	AmountSats int64
}

func (SatsReceived) notification()    {}
func (FeederTriggered) notification() {}
func (MemberJoined) notification()    {}
func (MemberRewarded) notification()  {}

// Notifier renders notifications, broadcasts them to subscribed channels, and
// publishes them to relays as signed kind-1 notes.
type Notifier struct {
	privateKey string
	relayURLs  []string
	mutex      deadlock.Mutex
	clients    map[chan string]struct{}
}

func New(privateKey string, relayURLs []string) *Notifier {
	return &Notifier{
		privateKey: privateKey,
		relayURLs:  relayURLs,
		clients:    make(map[chan string]struct{}),
	}
}

// Register returns a channel that receives every rendered notification.
func (n *Notifier) Register() chan string {
	c := make(chan string, 16)
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.clients[c] = struct{}{}
	return c
}

func (n *Notifier) Unregister(c chan string) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	delete(n.clients, c)
}

func (n *Notifier) broadcast(message string) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	for c := range n.clients {
		select {
		case c <- message:
		default:
			library.LogCLI("dropping slow notification listener", 2)
			delete(n.clients, c)
		}
	}
}

// Send renders the notification, fans it out to listeners, and publishes it
// to the configured relays when a signing key is present.
func (n *Notifier) Send(notification Notification) error {
	message, tags := n.render(notification)
	if message == "" {
		return fmt.Errorf("could not render notification %T", notification)
	}
	library.LogCLI(message, 4)
	n.broadcast(message)
	if n.privateKey == "" || len(n.relayURLs) == 0 {
		return nil
	}
	event := nostr.Event{
		CreatedAt: nostr.Timestamp(time.Now().Unix()),
		Kind:      library.KindTextNote,
		Tags:      append(nostr.Tags{nostr.Tag{"t", "CyberHerd"}}, tags...),
		Content:   message,
	}
	if err := library.SignEvent(&event, n.privateKey); err != nil {
		return fmt.Errorf("could not sign notification: %w", err)
	}
	go relays.Publish([]nostr.Event{event}, n.relayURLs)
	return nil
}

func (n *Notifier) render(notification Notification) (string, nostr.Tags) {
	switch v := notification.(type) {
	case SatsReceived:
		selected := RandomGoats()
		names := make([]string, 0, len(selected))
		for _, g := range selected {
			names = append(names, g.Name)
		}
		template := satsReceivedTemplates[rand.Intn(len(satsReceivedTemplates))]
		message := fmt.Sprintf(template, JoinWithAnd(names), v.Sats, differencePhrase(v.Difference))
		return message, nostr.Tags{nostr.Tag{"p", selected[0].Pubkey}}
	case FeederTriggered:
		selected := RandomGoats()
		names := make([]string, 0, len(selected))
		for _, g := range selected {
			names = append(names, g.Name)
		}
		template := feederTemplates[rand.Intn(len(feederTemplates))]
		message := fmt.Sprintf(template, JoinWithAnd(names), v.Sats)
		return message, nostr.Tags{nostr.Tag{"p", selected[0].Pubkey}}
	case MemberJoined:
		name := v.Member.DisplayName
		if v.Member.Nprofile != "" {
			name = "nostr:" + trimNostrPrefix(v.Member.Nprofile)
		}
		thanks := thanksPhrase(v.Member.Amount)
		message := fmt.Sprintf("%s joined the CyberHerd! %s %s", name, thanks, spotsPhrase(v.SpotsRemaining))
		tags := nostr.Tags{nostr.Tag{"p", v.Member.Pubkey}}
		if v.Member.EventID != "" {
			tags = append(tags, nostr.Tag{"e", v.Member.EventID, "", "root"})
		}
		return message, tags
	case MemberRewarded:
		name := v.Member.DisplayName
		if v.Member.Nprofile != "" {
			name = "nostr:" + trimNostrPrefix(v.Member.Nprofile)
		}
		message := fmt.Sprintf("%s earned %d sats in CyberHerd treats!", name, v.AmountSats)
		return message, nostr.Tags{nostr.Tag{"p", v.Member.Pubkey}}
	}
	return "", nil
}

func trimNostrPrefix(nprofile string) string {
	if len(nprofile) > 6 && nprofile[:6] == "nostr:" {
		return nprofile[6:]
	}
	return nprofile
}
