package conductor

import (
	"fmt"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/sasha-s/go-deadlock"
	"cyberherd/engine/actors"
	"cyberherd/engine/library"
	"cyberherd/messaging/notifier"
	"cyberherd/state/herd"
	"cyberherd/state/targets"
)

// PaymentEvent is one settled incoming payment as reported by the wallet.
type PaymentEvent struct {
	AmountMsat        int64
	WalletBalanceSats int64
	Memo              string
	Zap               *ZapReceipt
}

// ZapReceipt carries the zap request embedded in a payment's nostr extra.
type ZapReceipt struct {
	Pubkey library.Account
	NoteID library.Sha256
	Kinds  []int
	Event  nostr.Event
}

type Feeder interface {
	OverrideStatus() (bool, error)
	Trigger() error
	UpdateGoatSats(sats int64) (int64, error)
}

type Wallet interface {
	CreateInvoice(amountSats int64, memo string) (string, error)
	PayInvoice(bolt11 string) (*library.PaymentReceipt, error)
	PayToAddress(address library.Lud16, amountMsat int64, description string) (*library.PaymentReceipt, error)
	Balance(forceRefresh bool) (int64, error)
}

type Notifier interface {
	Send(notifier.Notification) error
}

// Profiles resolves a pubkey to its published metadata.
type Profiles interface {
	Lookup(account library.Account) (library.Profile, string, bool)
}

// Conductor routes payment events into feeder triggers, herd membership
// changes, and split target updates.
type Conductor struct {
	mutex     deadlock.Mutex
	balance   int64
	threshold int64
	feeder    Feeder
	wallet    Wallet
	table     targets.Table
	engine    targets.Engine
	herd      *herd.Accountant
	records   herd.Records
	notify    Notifier
	profiles  Profiles
}

func New(
	threshold int64,
	feeder Feeder,
	wallet Wallet,
	table targets.Table,
	engine targets.Engine,
	accountant *herd.Accountant,
	records herd.Records,
	notify Notifier,
	profiles Profiles,
) *Conductor {
	return &Conductor{
		threshold: threshold,
		feeder:    feeder,
		wallet:    wallet,
		table:     table,
		engine:    engine,
		herd:      accountant,
		records:   records,
		notify:    notify,
		profiles:  profiles,
	}
}

// Balance returns the last wallet balance snapshot we were given.
func (c *Conductor) Balance() int64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.balance
}

// Ingest handles one settled payment. The wallet balance carried by the
// event is authoritative; we never compute our own running total.
func (c *Conductor) Ingest(p PaymentEvent) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.balance = p.WalletBalanceSats
	sats := p.AmountMsat / 1000
	if sats <= 0 {
		return nil
	}
	if _, err := c.feeder.UpdateGoatSats(sats); err != nil {
		library.LogCLI("could not update goat sats counter: "+err.Error(), 2)
	}
	if p.Zap != nil && sats >= 10 {
		if err := c.processZap(*p.Zap, sats); err != nil {
			library.LogCLI(err.Error(), 2)
		}
	}
	override, err := c.feeder.OverrideStatus()
	if err != nil {
		return fmt.Errorf("could not read feeder override: %w", err)
	}
	if override {
		library.LogCLI("feeder override is on, skipping trigger", 4)
		return nil
	}
	if c.balance >= c.threshold {
		return c.triggerAndReset(sats)
	}
	if sats >= 10 {
		if err := c.notify.Send(notifier.SatsReceived{Sats: sats, Difference: c.threshold - c.balance}); err != nil {
			library.LogCLI(err.Error(), 2)
		}
	}
	return nil
}

func (c *Conductor) processZap(zap ZapReceipt, sats int64) error {
	candidate := herd.Member{
		Pubkey:      zap.Pubkey,
		DisplayName: "Anon",
		EventID:     zap.NoteID,
		Note:        zap.Event.ID,
		Amount:      sats,
	}
	if c.profiles != nil {
		if profile, nprofile, found := c.profiles.Lookup(zap.Pubkey); found {
			if profile.DisplayName != "" {
				candidate.DisplayName = profile.DisplayName
			} else if profile.Name != "" {
				candidate.DisplayName = profile.Name
			}
			candidate.Lud16 = profile.Lud16
			candidate.Picture = profile.Picture
			candidate.Nprofile = nprofile
		}
	}
	outcome, err := c.herd.ProcessMember(candidate, zap.Kinds)
	if err != nil {
		return fmt.Errorf("could not process herd member %s: %w", zap.Pubkey, err)
	}
	switch outcome {
	case herd.RejectedHerdFull:
		library.LogCLI("herd is full, rejecting "+candidate.Pubkey, 4)
		return nil
	case herd.Accepted:
		spots, err := c.herd.SpotsRemaining()
		if err != nil {
			library.LogCLI(err.Error(), 2)
		}
		if err := c.notify.Send(notifier.MemberJoined{Member: candidate, SpotsRemaining: spots}); err != nil {
			library.LogCLI(err.Error(), 2)
		} else if stored, err := c.records.FindByKey(candidate.Pubkey); err == nil {
			stored.Notified = herd.NotifiedSuccess
			if err := c.records.Upsert(*stored); err != nil {
				library.LogCLI(err.Error(), 2)
			}
		}
	}
	return c.RefreshTargets()
}

// RefreshTargets recalculates the payment split table from current herd
// membership and pushes it to the wallet.
func (c *Conductor) RefreshTargets() error {
	members, err := c.records.All()
	if err != nil {
		return fmt.Errorf("could not list herd members: %w", err)
	}
	var candidates []targets.Candidate
	for _, m := range members {
		if m.Lud16 == "" {
			continue
		}
		candidates = append(candidates, targets.Candidate{
			Wallet:  m.Lud16,
			Alias:   m.Pubkey,
			Payouts: m.Payouts,
		})
	}
	return c.table.ReplaceTargets(c.engine.Calculate(candidates))
}

func (c *Conductor) triggerAndReset(sats int64) error {
	if err := c.feeder.Trigger(); err != nil {
		return fmt.Errorf("could not trigger feeder: %w", err)
	}
	if err := c.notify.Send(notifier.FeederTriggered{Sats: sats}); err != nil {
		library.LogCLI(err.Error(), 2)
	}
	return c.settleBalance("Reset Herd Wallet", c.balance)
}

// settleBalance drains the wallet by paying our own invoice for the full
// balance.
func (c *Conductor) settleBalance(memo string, amountSats int64) error {
	bolt11, err := c.wallet.CreateInvoice(amountSats, memo)
	if err != nil {
		return fmt.Errorf("could not create reset invoice: %w", err)
	}
	if _, err := c.wallet.PayInvoice(bolt11); err != nil {
		library.LogCLI("could not pay reset invoice: "+err.Error(), 1)
		return fmt.Errorf("could not pay reset invoice: %w", err)
	}
	c.balance = 0
	return nil
}

// ResetHerd distributes rewards to members, clears membership, restores the
// default split table, and settles any remaining balance.
func (c *Conductor) ResetHerd() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	balance, err := c.wallet.Balance(true)
	if err != nil {
		return fmt.Errorf("could not fetch wallet balance: %w", err)
	}
	c.balance = balance
	if balance > 0 {
		err := c.herd.DistributeRewards(balance, c.wallet, func(m herd.Member, amountSats int64) {
			if err := c.notify.Send(notifier.MemberRewarded{Member: m, AmountSats: amountSats}); err != nil {
				library.LogCLI(err.Error(), 2)
			}
		})
		if err != nil {
			library.LogCLI("reward distribution finished with errors: "+err.Error(), 2)
		}
	}
	if err := c.records.DeleteAll(); err != nil {
		return fmt.Errorf("could not clear herd: %w", err)
	}
	if err := c.table.ReplaceTargets(c.engine.Calculate(nil)); err != nil {
		return fmt.Errorf("could not reset split targets: %w", err)
	}
	if c.balance > 0 {
		return c.settleBalance("Daily Reset - Herd Wallet", c.balance)
	}
	return nil
}

// StartDailyReset resets the herd at each UTC midnight until shutdown.
func (c *Conductor) StartDailyReset() {
	actors.GetWaitGroup().Add(1)
L:
	for {
		now := time.Now().UTC()
		next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
		select {
		case <-time.After(next.Sub(now)):
			if err := c.ResetHerd(); err != nil {
				library.LogCLI("daily reset failed: "+err.Error(), 1)
			}
		case <-actors.GetTerminateChan():
			break L
		}
	}
	actors.GetWaitGroup().Done()
}
