package notifier

import (
	"fmt"
	"math/rand"
	"strings"
)

// Goat holds the herd resident's announce identity.
type Goat struct {
	Name     string
	Nprofile string
	Pubkey   string
}

var goats = []Goat{
	{"Dexter", "nostr:nprofile1qqsw4zlzyfx43mc88psnlse8sywpfl45kuap9dy05yzkepkvu6ca5wg7qyak5", "ea8be2224d58ef0738613fc327811c14feb4b73a12b48fa1056c86cce6b1da39"},
	{"Rowan", "nostr:nprofile1qqs2w94r0fs29gepzfn5zuaupn969gu3fstj3gq8kvw3cvx9fnxmaugwur22r", "a716a37a60a2a32112674173bc0ccba2a3914c1728a007b31d1c30c54ccdbef1"},
	{"Nova", "nostr:nprofile1qqsrzy7clymq5xwcfhh0dfz6zfe7h63k8r0j8yr49mxu6as4yv2084s0vf035", "3113d8f9360a19d84deef6a45a1273ebea3638df2390752ecdcd76152314f3d6"},
	{"Cosmo", "nostr:nprofile1qqsq6n8u7dzrnhhy7xy78k2ee7e4wxlgrkm5g2rgjl3napr9q54n4ncvkqcsj", "0d4cfcf34439dee4f189e3d959cfb3571be81db744286897e33e8465052b3acf"},
	{"Newton", "nostr:nprofile1qqszdsnpyzwhjcqads3hwfywt5jfmy85jvx8yup06yq0klrh93ldjxc26lmyx", "26c261209d79601d6c2377248e5d249d90f4930c72702fd100fb7c772c7ed91b"},
}

var satsReceivedTemplates = []string{
	"%s just got %d sats closer to treat time.%s",
	"The herd thanks you! %s received %d sats.%s",
	"%s heard the chime of %d sats hitting the wallet.%s",
	"%s and friends welcome another %d sats.%s",
}

var feederTemplates = []string{
	"Feeder triggered! %s and the rest of the herd are munching on %d sats worth of treats.",
	"Treats are falling! %s watched %d sats tip the feeder.",
	"%s approves. The feeder spins for %d sats.",
}

var differenceTemplates = []string{
	" %d more sats until the feeder spins.",
	" Only %d sats to go before treat time.",
	" The herd needs %d more sats for treats.",
}

var thankYouTemplates = []string{
	"Thanks for the %d sats!",
	"The goats appreciate your %d sats!",
	"%d sats received with gratitude!",
}

// RandomGoats picks between one and all goats, shuffled.
func RandomGoats() []Goat {
	picked := make([]Goat, len(goats))
	copy(picked, goats)
	rand.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	return picked[:1+rand.Intn(len(picked))]
}

// JoinWithAnd joins names the way a sentence would.
func JoinWithAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}

func goatNamePhrase() string {
	selected := RandomGoats()
	names := make([]string, 0, len(selected))
	for _, g := range selected {
		names = append(names, g.Name)
	}
	return JoinWithAnd(names)
}

func differencePhrase(difference int64) string {
	if difference <= 0 {
		return ""
	}
	return fmt.Sprintf(differenceTemplates[rand.Intn(len(differenceTemplates))], difference)
}

func thanksPhrase(amount int64) string {
	if amount <= 0 {
		return ""
	}
	return fmt.Sprintf(thankYouTemplates[rand.Intn(len(thankYouTemplates))], amount)
}

func spotsPhrase(spotsRemaining int) string {
	switch {
	case spotsRemaining <= 0:
		return "The CyberHerd is full for today."
	case spotsRemaining == 1:
		return "Only 1 spot left in today's CyberHerd!"
	default:
		return fmt.Sprintf("%d spots left in today's CyberHerd!", spotsRemaining)
	}
}
