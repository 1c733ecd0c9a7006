package herd

import (
	"errors"
	"fmt"
	"math"

	"cyberherd/engine/library"
)

// Outcome is the result of processing a member's activity. Capacity limits
// are outcomes, not errors.
type Outcome int

const (
	Accepted Outcome = iota
	Updated
	Unchanged
	RejectedHerdFull
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Updated:
		return "updated"
	case Unchanged:
		return "unchanged"
	case RejectedHerdFull:
		return "herd full"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// repostBonus is the one-time payout bump for boosting the herd to a
// member's followers. Reactions are tracked but worth nothing.
const repostBonus = 0.2

// CalculateZapPayout converts a zap of amountSats into a payout share: one
// tenth of a share per started 10 sats, floored at 0.3 and saturating at 1.0
// for zaps of 100 sats or more.
func CalculateZapPayout(amountSats int64) float64 {
	units := (amountSats + 9) / 10
	payout := float64(units) * 0.1
	return math.Min(math.Max(payout, 0.3), 1.0)
}

// Payer dispatches a reward payment. A nil receipt with a nil error means
// the recipient declined the amount and the payment was skipped.
type Payer interface {
	PayToAddress(address library.Lud16, amountMsat int64, description string) (*library.PaymentReceipt, error)
}

// Accountant applies the payout rules to the member records.
type Accountant struct {
	records     Records
	maxHerdSize int
}

func NewAccountant(records Records, maxHerdSize int) *Accountant {
	return &Accountant{records: records, maxHerdSize: maxHerdSize}
}

// SpotsRemaining reports how many members can still join.
func (a *Accountant) SpotsRemaining() (int, error) {
	count, err := a.records.Count()
	if err != nil {
		return 0, err
	}
	spots := a.maxHerdSize - count
	if spots < 0 {
		spots = 0
	}
	return spots, nil
}

// ProcessMember routes activity to new- or existing-member handling. The
// candidate carries the activity's amount in sats and the observed kinds.
func (a *Accountant) ProcessMember(candidate Member, kinds []int) (Outcome, error) {
	existing, err := a.records.FindByKey(candidate.Pubkey)
	if errors.Is(err, ErrNotFound) {
		return a.processNew(candidate, kinds)
	}
	if err != nil {
		return Unchanged, err
	}
	return a.processExisting(existing, candidate, kinds)
}

func (a *Accountant) processNew(m Member, kinds []int) (Outcome, error) {
	count, err := a.records.Count()
	if err != nil {
		return Unchanged, err
	}
	if count >= a.maxHerdSize {
		return RejectedHerdFull, nil
	}
	if containsKind(kinds, library.KindZapRequest) {
		m.Payouts = CalculateZapPayout(m.Amount)
	} else {
		m.Payouts = 0
	}
	m.Kinds = KindsToString(kinds)
	m.Notified = NotifiedPending
	if m.DisplayName == "" {
		m.DisplayName = "Anon"
	}
	if err := a.records.Upsert(m); err != nil {
		return Unchanged, err
	}
	return Accepted, nil
}

func (a *Accountant) processExisting(existing *Member, update Member, kinds []int) (Outcome, error) {
	seen := existing.SeenKinds()
	var increment float64
	// every zap accumulates, however often we have seen this member zap
	if containsKind(kinds, library.KindZapRequest) {
		increment += CalculateZapPayout(update.Amount)
		existing.Amount = update.Amount
	}
	for _, k := range kinds {
		if seen[k] {
			continue
		}
		switch k {
		case library.KindRepost:
			increment += repostBonus
		case library.KindReaction:
			// one-time, worth nothing
		}
	}
	merged := KindsToString(MergeKinds(ParseKinds(existing.Kinds), kinds))
	if increment == 0 && merged == existing.Kinds {
		return Unchanged, nil
	}
	existing.Kinds = merged
	existing.Payouts += increment
	if err := a.records.Upsert(*existing); err != nil {
		return Unchanged, err
	}
	return Updated, nil
}

// DistributeRewards pays every member with a lightning address and a
// positive payout its floor share of the pool. Members whose floored amount
// is zero are skipped, as are payments the recipient's service declines.
// onPaid, when set, fires once per settled payment. The first dispatch error
// is returned after every member has been attempted.
func (a *Accountant) DistributeRewards(totalSats int64, payer Payer, onPaid func(Member, int64)) error {
	members, err := a.records.All()
	if err != nil {
		return err
	}
	var firstErr error
	for _, m := range members {
		if m.Lud16 == "" || m.Payouts <= 0 {
			continue
		}
		amount := int64(m.Payouts * float64(totalSats))
		if amount == 0 {
			continue
		}
		receipt, err := payer.PayToAddress(m.Lud16, amount*1000, "CyberHerd Reward")
		if err != nil {
			library.LogCLI(fmt.Sprintf("reward payment to %s failed: %s", m.Pubkey, err), 2)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if receipt == nil {
			continue
		}
		m.Notified = NotifiedSuccess
		if err := a.records.Upsert(m); err != nil {
			library.LogCLI(fmt.Sprintf("could not record payout for %s: %s", m.Pubkey, err), 2)
		}
		if onPaid != nil {
			onPaid(m, amount)
		}
	}
	return firstErr
}

func containsKind(kinds []int, kind int) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
