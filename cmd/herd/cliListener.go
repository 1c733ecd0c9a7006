package main

import (
	"fmt"

	"github.com/eiannone/keyboard"
	"cyberherd/engine/actors"
	"cyberherd/messaging/conductor"
	"cyberherd/state/herd"
)

// cliListener is a cheap and nasty way to speed up development cycles. It listens for keypresses and executes commands.
func cliListener(c *conductor.Conductor, records herd.Records, feeder *actors.FeederClient) {
	fmt.Println("VIEW CURRENT STATE:\nb: wallet balance\nh: herd members\nc: engine config\nf: trigger the feeder\nr: reset the herd\nq: to quit\nSee cliListener.go for more")
	for {
		r, k, err := keyboard.GetSingleKey()
		if err != nil {
			panic(err)
		}
		str := string(r)
		switch str {
		default:
			if k == 13 {
				fmt.Println("\n-----------------------------------")
				break
			}
			if r == 0 {
				break
			}
			fmt.Println("Key " + str + " is not bound to any test procedures. See main.cliListener for more details.")
		case "b":
			fmt.Printf("Current Balance: %d sats\n", c.Balance())
		case "h":
			members, err := records.All()
			if err != nil {
				fmt.Println(err)
				break
			}
			for _, m := range members {
				fmt.Printf("\nPubkey: %s\nName: %s\nKinds: %s\nLud16: %s\nPayouts: %.2f\nNotified: %s\n",
					m.Pubkey, m.DisplayName, m.Kinds, m.Lud16, m.Payouts, m.Notified)
			}
			fmt.Printf("\n%d members in the herd\n", len(members))
		case "c":
			fmt.Println("CURRENT CONFIG")
			for k, v := range actors.MakeOrGetConfig().AllSettings() {
				fmt.Printf("\nKey: %s; Value: %v\n", k, v)
			}
		case "f":
			if err := feeder.Trigger(); err != nil {
				fmt.Println(err)
				break
			}
			fmt.Println("feeder triggered")
		case "r":
			if err := c.ResetHerd(); err != nil {
				fmt.Println(err)
				break
			}
			fmt.Println("herd has been reset")
		case "q":
			actors.Shutdown()
			return
		}
	}
}
