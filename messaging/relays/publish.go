package relays

import (
	"context"
	"fmt"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/sasha-s/go-deadlock"
	"cyberherd/engine/library"
)

// Publish fans the given events out to every relay, each relay on its own
// goroutine, and blocks until all of them have been attempted.
func Publish(events []nostr.Event, relayURLs []string) {
	var wg = &deadlock.WaitGroup{}
	for _, relayURL := range relayURLs {
		wg.Add(1)
		go func(relayURL string, events []nostr.Event) {
			defer wg.Done()
			relay, err := nostr.RelayConnect(context.Background(), relayURL)
			if err != nil {
				library.LogCLI(fmt.Sprintf("could not connect to relay %s: %s", relayURL, err), 2)
				return
			}
			defer relay.Close()
			for _, event := range events {
				_, err := relay.Publish(context.Background(), event)
				if err != nil {
					library.LogCLI(fmt.Sprintf("could not publish to relay %s: %s", relayURL, err), 2)
				}
				time.Sleep(time.Second)
			}
		}(relayURL, events)
	}
	wg.Wait()
}
