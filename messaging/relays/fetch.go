package relays

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/sasha-s/go-deadlock"
	"cyberherd/engine/library"
)

// FetchLatestProfile queries every relay for the account's kind-0 metadata
// and returns the newest event found.
func FetchLatestProfile(account library.Account, relayURLs []string) (n nostr.Event, b bool) {
	events := make(map[string]nostr.Event)
	eventsMu := &deadlock.Mutex{}
	filters := nostr.Filters{
		nostr.Filter{
			Kinds:   []int{library.KindProfileMetadata},
			Authors: []string{account},
		}}
	wait := &deadlock.WaitGroup{}
	for _, url := range relayURLs {
		wait.Add(1)
		go func(url string) {
			defer wait.Done()
			ctx := context.Background()
			relay, err := nostr.RelayConnect(ctx, url)
			if err != nil {
				return
			}
			ctxsub, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			sub, err := relay.Subscribe(ctxsub, filters)
			if err != nil {
				library.LogCLI(err.Error(), 2)
				return
			}
		L:
			for {
				select {
				case ev := <-sub.Events:
					if ev == nil {
						break L
					}
					eventsMu.Lock()
					events[ev.ID] = *ev
					eventsMu.Unlock()
				case <-time.After(time.Second * 6):
					go func() {
						sub.Close()
						relay.Close()
					}()
					break L
				}
			}
		}(url)
	}
	wait.Wait()
	var timestamp nostr.Timestamp
	for _, event := range events {
		if event.CreatedAt > timestamp {
			b = true
			n = event
			timestamp = event.CreatedAt
		}
	}
	return
}

// ProfileDirectory resolves member identities against the configured relays.
type ProfileDirectory struct {
	Relays []string
}

// Lookup returns the account's profile and its nprofile encoding. Missing
// profiles are not an error; ok is simply false.
func (d ProfileDirectory) Lookup(account library.Account) (p library.Profile, nprofile string, ok bool) {
	event, found := FetchLatestProfile(account, d.Relays)
	if !found {
		return p, "", false
	}
	if err := json.Unmarshal([]byte(event.Content), &p); err != nil {
		library.LogCLI("could not parse profile content for "+account, 2)
		return p, "", false
	}
	if encoded, err := nip19.EncodeProfile(account, d.Relays); err == nil {
		nprofile = encoded
	}
	return p, nprofile, true
}
