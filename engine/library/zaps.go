package library

import (
	"fmt"
	"strconv"
	"time"

	"github.com/nbd-wtf/go-nostr"
)

// BuildZapRequest constructs an unsigned NIP-57 zap request (kind 9734)
// asking for a payment of amountMsat to the zapped account. The p, amount
// and relays tags are mandatory; a referenced note and a human readable
// description are optional.
func BuildZapRequest(amountMsat int64, zapper Account, zapped Account, noteID Sha256, relays []string, content string) (nostr.Event, error) {
	if amountMsat <= 0 {
		return nostr.Event{}, fmt.Errorf("zap amount must be positive, got %d msat", amountMsat)
	}
	if len(relays) == 0 {
		return nostr.Event{}, fmt.Errorf("zap request requires at least one relay")
	}
	relayTag := nostr.Tag{"relays"}
	relayTag = append(relayTag, relays...)
	tags := nostr.Tags{
		nostr.Tag{"p", zapped},
		nostr.Tag{"amount", strconv.FormatInt(amountMsat, 10)},
		relayTag,
	}
	if noteID != "" {
		tags = append(tags, nostr.Tag{"e", noteID, relays[0], "root"})
	}
	if content != "" {
		tags = append(tags, nostr.Tag{"description", content})
	}
	return nostr.Event{
		PubKey:    zapper,
		CreatedAt: nostr.Timestamp(time.Now().Unix()),
		Kind:      KindZapRequest,
		Tags:      tags,
		Content:   content,
	}, nil
}

// SignZapRequest builds and signs a zap request. The key pair is checked
// before anything is signed so a misconfigured identity fails fast.
func SignZapRequest(amountMsat int64, zapper Account, zapped Account, privateKey string, noteID Sha256, relays []string, content string) (nostr.Event, error) {
	if !VerifyKeyPair(privateKey, zapper) {
		return nostr.Event{}, fmt.Errorf("private key does not match zapper account %s", zapper)
	}
	event, err := BuildZapRequest(amountMsat, zapper, zapped, noteID, relays, content)
	if err != nil {
		return nostr.Event{}, err
	}
	if err := SignEvent(&event, privateKey); err != nil {
		return nostr.Event{}, err
	}
	return event, nil
}
