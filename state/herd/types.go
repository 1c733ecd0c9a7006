package herd

import (
	"cyberherd/engine/library"
)

// Notified tracks whether a member has been told about their membership or
// latest reward.
type Notified string

const (
	NotifiedNone    Notified = ""
	NotifiedPending Notified = "pending"
	NotifiedSuccess Notified = "success"
)

// Member is one contributor in the herd, keyed by pubkey. Payouts is the
// share of the reward pool it has earned so far; it is deliberately never
// re-clamped after accumulation, so a very active member can exceed 1.0 and
// consumers treating it as a bounded share must clamp it themselves.
type Member struct {
	Pubkey      library.Account
	DisplayName string
	EventID     library.Sha256
	Note        library.Sha256
	Kinds       string // comma separated event kinds seen for this member
	Nprofile    string
	Lud16       library.Lud16
	Notified    Notified
	Payouts     float64
	Amount      int64
	Picture     string
}

// SeenKinds returns the member's kind set.
func (m Member) SeenKinds() map[int]bool {
	seen := make(map[int]bool)
	for _, k := range ParseKinds(m.Kinds) {
		seen[k] = true
	}
	return seen
}
