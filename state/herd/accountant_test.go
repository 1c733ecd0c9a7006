package herd

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"cyberherd/engine/library"
)

// fakeRecords is an in-memory Records for accountant tests.
type fakeRecords struct {
	members map[library.Account]Member
	order   []library.Account
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{members: make(map[library.Account]Member)}
}

func (f *fakeRecords) FindByKey(pubkey library.Account) (*Member, error) {
	m, ok := f.members[pubkey]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (f *fakeRecords) Upsert(m Member) error {
	if _, ok := f.members[m.Pubkey]; !ok {
		f.order = append(f.order, m.Pubkey)
	}
	f.members[m.Pubkey] = m
	return nil
}

func (f *fakeRecords) DeleteAll() error {
	f.members = make(map[library.Account]Member)
	f.order = nil
	return nil
}

func (f *fakeRecords) Count() (int, error) {
	return len(f.members), nil
}

func (f *fakeRecords) All() ([]Member, error) {
	out := make([]Member, 0, len(f.members))
	for _, pubkey := range f.order {
		out = append(out, f.members[pubkey])
	}
	return out, nil
}

type fakePayer struct {
	paid       map[library.Lud16]int64
	failFor    library.Lud16
	declineFor library.Lud16
}

func newFakePayer() *fakePayer {
	return &fakePayer{paid: make(map[library.Lud16]int64)}
}

func (f *fakePayer) PayToAddress(address library.Lud16, amountMsat int64, description string) (*library.PaymentReceipt, error) {
	if address == f.failFor {
		return nil, fmt.Errorf("payment to %s failed", address)
	}
	if address == f.declineFor {
		return nil, nil
	}
	f.paid[address] += amountMsat
	return &library.PaymentReceipt{PaymentHash: "hash", CheckingID: "check"}, nil
}

func TestCalculateZapPayout(t *testing.T) {
	assert.InDelta(t, 0.3, CalculateZapPayout(1), 1e-9)
	assert.InDelta(t, 0.3, CalculateZapPayout(10), 1e-9)
	assert.InDelta(t, 0.3, CalculateZapPayout(21), 1e-9)
	assert.InDelta(t, 0.5, CalculateZapPayout(50), 1e-9)
	assert.InDelta(t, 1.0, CalculateZapPayout(100), 1e-9)
	assert.InDelta(t, 1.0, CalculateZapPayout(1000), 1e-9)
}

func TestProcessMemberNewZapper(t *testing.T) {
	records := newFakeRecords()
	a := NewAccountant(records, 100)

	outcome, err := a.ProcessMember(Member{Pubkey: "alice", Amount: 50}, []int{library.KindZapRequest})
	require.NoError(t, err)
	assert.Equal(t, Accepted, outcome)

	stored, err := records.FindByKey("alice")
	require.NoError(t, err)
	assert.Equal(t, 0.5, stored.Payouts)
	assert.Equal(t, "Anon", stored.DisplayName)
	assert.Equal(t, "9734", stored.Kinds)
	assert.Equal(t, NotifiedPending, stored.Notified)
}

func TestProcessMemberNewRepostOnly(t *testing.T) {
	records := newFakeRecords()
	a := NewAccountant(records, 100)

	outcome, err := a.ProcessMember(Member{Pubkey: "bob"}, []int{library.KindRepost})
	require.NoError(t, err)
	assert.Equal(t, Accepted, outcome)

	stored, err := records.FindByKey("bob")
	require.NoError(t, err)
	assert.Equal(t, 0.0, stored.Payouts)
}

func TestProcessMemberHerdFull(t *testing.T) {
	records := newFakeRecords()
	a := NewAccountant(records, 2)
	for i := 0; i < 2; i++ {
		_, err := a.ProcessMember(Member{Pubkey: library.Account(fmt.Sprintf("member%d", i)), Amount: 10}, []int{library.KindZapRequest})
		require.NoError(t, err)
	}

	outcome, err := a.ProcessMember(Member{Pubkey: "latecomer", Amount: 100}, []int{library.KindZapRequest})
	require.NoError(t, err)
	assert.Equal(t, RejectedHerdFull, outcome)

	_, err = records.FindByKey("latecomer")
	assert.ErrorIs(t, err, ErrNotFound)

	// existing members are still processed when the herd is full
	outcome, err = a.ProcessMember(Member{Pubkey: "member0", Amount: 100}, []int{library.KindZapRequest})
	require.NoError(t, err)
	assert.Equal(t, Updated, outcome)
}

func TestProcessMemberZapsAccumulate(t *testing.T) {
	records := newFakeRecords()
	a := NewAccountant(records, 100)

	_, err := a.ProcessMember(Member{Pubkey: "alice", Amount: 100}, []int{library.KindZapRequest})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		outcome, err := a.ProcessMember(Member{Pubkey: "alice", Amount: 100}, []int{library.KindZapRequest})
		require.NoError(t, err)
		assert.Equal(t, Updated, outcome)
	}

	stored, err := records.FindByKey("alice")
	require.NoError(t, err)
	// accumulation is deliberately never re-clamped
	assert.InDelta(t, 4.0, stored.Payouts, 1e-9)
}

func TestProcessMemberRepostBonusIsOneTime(t *testing.T) {
	records := newFakeRecords()
	a := NewAccountant(records, 100)

	_, err := a.ProcessMember(Member{Pubkey: "alice", Amount: 10}, []int{library.KindZapRequest})
	require.NoError(t, err)

	outcome, err := a.ProcessMember(Member{Pubkey: "alice"}, []int{library.KindRepost})
	require.NoError(t, err)
	assert.Equal(t, Updated, outcome)

	stored, _ := records.FindByKey("alice")
	assert.InDelta(t, 0.5, stored.Payouts, 1e-9)

	outcome, err = a.ProcessMember(Member{Pubkey: "alice"}, []int{library.KindRepost})
	require.NoError(t, err)
	assert.Equal(t, Unchanged, outcome)

	stored, _ = records.FindByKey("alice")
	assert.InDelta(t, 0.5, stored.Payouts, 1e-9)
}

func TestProcessMemberReactionIsWorthless(t *testing.T) {
	records := newFakeRecords()
	a := NewAccountant(records, 100)

	_, err := a.ProcessMember(Member{Pubkey: "alice", Amount: 10}, []int{library.KindZapRequest})
	require.NoError(t, err)

	outcome, err := a.ProcessMember(Member{Pubkey: "alice"}, []int{library.KindReaction})
	require.NoError(t, err)
	assert.Equal(t, Updated, outcome)

	stored, _ := records.FindByKey("alice")
	assert.InDelta(t, 0.3, stored.Payouts, 1e-9)
	assert.Equal(t, "9734,7", stored.Kinds)
}

func TestSpotsRemaining(t *testing.T) {
	records := newFakeRecords()
	a := NewAccountant(records, 3)

	spots, err := a.SpotsRemaining()
	require.NoError(t, err)
	assert.Equal(t, 3, spots)

	_, err = a.ProcessMember(Member{Pubkey: "alice", Amount: 10}, []int{library.KindZapRequest})
	require.NoError(t, err)

	spots, err = a.SpotsRemaining()
	require.NoError(t, err)
	assert.Equal(t, 2, spots)
}

func TestDistributeRewards(t *testing.T) {
	records := newFakeRecords()
	a := NewAccountant(records, 100)
	require.NoError(t, records.Upsert(Member{Pubkey: "alice", Lud16: "alice@example.com", Payouts: 0.5}))
	require.NoError(t, records.Upsert(Member{Pubkey: "bob", Lud16: "bob@example.com", Payouts: 0.25}))
	require.NoError(t, records.Upsert(Member{Pubkey: "carol", Payouts: 0.9})) // no lightning address

	payer := newFakePayer()
	var notified []string
	err := a.DistributeRewards(1000, payer, func(m Member, amountSats int64) {
		notified = append(notified, fmt.Sprintf("%s:%d", m.Pubkey, amountSats))
	})
	require.NoError(t, err)

	assert.Equal(t, int64(500_000), payer.paid["alice@example.com"])
	assert.Equal(t, int64(250_000), payer.paid["bob@example.com"])
	assert.Equal(t, []string{"alice:500", "bob:250"}, notified)

	alice, _ := records.FindByKey("alice")
	assert.Equal(t, NotifiedSuccess, alice.Notified)
	carol, _ := records.FindByKey("carol")
	assert.Equal(t, NotifiedNone, carol.Notified)
}

func TestDistributeRewardsContinuesPastFailures(t *testing.T) {
	records := newFakeRecords()
	a := NewAccountant(records, 100)
	require.NoError(t, records.Upsert(Member{Pubkey: "alice", Lud16: "alice@example.com", Payouts: 0.5}))
	require.NoError(t, records.Upsert(Member{Pubkey: "bob", Lud16: "bob@example.com", Payouts: 0.25}))

	payer := newFakePayer()
	payer.failFor = "alice@example.com"
	err := a.DistributeRewards(1000, payer, nil)
	require.Error(t, err)

	// bob still got paid despite alice's failure
	assert.Equal(t, int64(250_000), payer.paid["bob@example.com"])
	alice, _ := records.FindByKey("alice")
	assert.Equal(t, NotifiedNone, alice.Notified)
}

func TestDistributeRewardsSkipsDeclined(t *testing.T) {
	records := newFakeRecords()
	a := NewAccountant(records, 100)
	require.NoError(t, records.Upsert(Member{Pubkey: "alice", Lud16: "alice@example.com", Payouts: 0.5}))

	payer := newFakePayer()
	payer.declineFor = "alice@example.com"
	err := a.DistributeRewards(1000, payer, nil)
	require.NoError(t, err)

	alice, _ := records.FindByKey("alice")
	assert.Equal(t, NotifiedNone, alice.Notified)
}

func TestDistributeRewardsSkipsDustShares(t *testing.T) {
	records := newFakeRecords()
	a := NewAccountant(records, 100)
	require.NoError(t, records.Upsert(Member{Pubkey: "alice", Lud16: "alice@example.com", Payouts: 0.3}))

	payer := newFakePayer()
	// 0.3 of 2 sats floors to zero
	err := a.DistributeRewards(2, payer, nil)
	require.NoError(t, err)
	assert.Empty(t, payer.paid)
}
