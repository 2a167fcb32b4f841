package reconcile

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"burrowfeed/internal/model"
)

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func rawAt(offset time.Duration, kind, account string) model.RawEvent {
	return model.RawEvent{
		BlockTimestamp: model.Nanos(baseTime.Add(offset).UnixNano()),
		Event: model.RawEventBody{
			Standard: "burrow",
			Event:    kind,
			Data:     []map[string]any{{"account_id": account, "amount": "1"}},
		},
	}
}

func assertLogInvariants(t *testing.T, log []model.Event, capacity int) {
	t.Helper()
	require.LessOrEqual(t, len(log), capacity)
	seen := make(map[uint64]struct{}, len(log))
	for i, ev := range log {
		if i > 0 {
			require.False(t, ev.Time.After(log[i-1].Time), "log not newest-first at %d", i)
		}
		_, dup := seen[ev.Seq]
		require.False(t, dup, "duplicate seq %d", ev.Seq)
		seen[ev.Seq] = struct{}{}
	}
}

func TestMergeOrdersNewestFirst(t *testing.T) {
	r := New(0, nil)
	log := r.Merge([]model.RawEvent{
		rawAt(3*time.Second, "deposit", "c.near"),
		rawAt(1*time.Second, "deposit", "a.near"),
		rawAt(2*time.Second, "borrow", "b.near"),
	})

	require.Len(t, log, 3)
	assert.Equal(t, "c.near", log[0].AccountID)
	assert.Equal(t, "b.near", log[1].AccountID)
	assert.Equal(t, "a.near", log[2].AccountID)
	assert.Equal(t, "borrow", log[1].Kind)
	assert.True(t, baseTime.Add(3*time.Second).Equal(log[0].Time))
	assertLogInvariants(t, log, r.Capacity())
}

func TestMergeAssignsSequenceInArrivalOrder(t *testing.T) {
	r := New(0, nil)
	log := r.Merge([]model.RawEvent{
		rawAt(2*time.Second, "deposit", "first.near"),
		rawAt(1*time.Second, "deposit", "second.near"),
	})

	require.Len(t, log, 2)
	assert.Equal(t, uint64(1), log[0].Seq)
	assert.Equal(t, uint64(2), log[1].Seq)
}

func TestMergeDropsReplayedEvents(t *testing.T) {
	r := New(0, nil)
	first := []model.RawEvent{
		rawAt(1*time.Second, "deposit", "a.near"),
		rawAt(2*time.Second, "deposit", "b.near"),
		rawAt(3*time.Second, "deposit", "c.near"),
	}
	r.Merge(first)

	// a reconnect replays the tail of the previous window plus one new event
	replay := []model.RawEvent{
		rawAt(2*time.Second, "deposit", "b.near"),
		rawAt(3*time.Second, "deposit", "c.near"),
		rawAt(4*time.Second, "deposit", "d.near"),
	}
	log := r.Merge(replay)

	require.Len(t, log, 4)
	assert.Equal(t, []string{"d.near", "c.near", "b.near", "a.near"}, accounts(log))
	assertLogInvariants(t, log, r.Capacity())
}

func TestMergeSameTimestampAsHeadIsDropped(t *testing.T) {
	r := New(0, nil)
	r.Merge([]model.RawEvent{rawAt(time.Second, "deposit", "a.near")})
	log := r.Merge([]model.RawEvent{rawAt(time.Second, "withdraw", "b.near")})

	require.Len(t, log, 1)
	assert.Equal(t, "a.near", log[0].AccountID)
}

func TestMergeTruncatesToCapacity(t *testing.T) {
	r := New(MinCapacity, nil)
	batch := make([]model.RawEvent, 0, 300)
	for i := 0; i < 300; i++ {
		batch = append(batch, rawAt(time.Duration(i)*time.Second, "deposit", "a.near"))
	}

	log := r.Merge(batch)
	require.Len(t, log, MinCapacity)
	assert.True(t, baseTime.Add(299*time.Second).Equal(log[0].Time))
	assert.True(t, baseTime.Add(50*time.Second).Equal(log[len(log)-1].Time))
}

func TestMergeDropsEventsWithoutData(t *testing.T) {
	r := New(0, nil)
	bad := rawAt(time.Second, "deposit", "a.near")
	bad.Event.Data = nil
	noTime := rawAt(2*time.Second, "deposit", "b.near")
	noTime.BlockTimestamp = 0

	log := r.Merge([]model.RawEvent{bad, noTime, rawAt(3*time.Second, "deposit", "c.near")})
	require.Len(t, log, 1)
	assert.Equal(t, "c.near", log[0].AccountID)
}

func TestResetEmptiesLogButKeepsSequence(t *testing.T) {
	r := New(0, nil)
	r.Merge([]model.RawEvent{rawAt(5*time.Second, "deposit", "a.near")})
	r.Reset()
	assert.Equal(t, 0, r.Len())

	// older events are admitted again once the log is empty
	log := r.Merge([]model.RawEvent{rawAt(time.Second, "deposit", "b.near")})
	require.Len(t, log, 1)
	assert.Equal(t, uint64(2), log[0].Seq)
}

func TestSnapshotIsACopy(t *testing.T) {
	r := New(0, nil)
	r.Merge([]model.RawEvent{rawAt(time.Second, "deposit", "a.near")})
	snap := r.Snapshot()
	snap[0].AccountID = "mutated"
	assert.Equal(t, "a.near", r.Snapshot()[0].AccountID)
}

func TestCapacityClamp(t *testing.T) {
	assert.Equal(t, DefaultCapacity, New(0, nil).Capacity())
	assert.Equal(t, MinCapacity, New(10, nil).Capacity())
	assert.Equal(t, MaxCapacity, New(10_000, nil).Capacity())
	assert.Equal(t, 300, New(300, nil).Capacity())
}

func TestMergeInvariantsUnderRandomBatches(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	r := New(MinCapacity, nil)
	cursor := 0

	for round := 0; round < 200; round++ {
		n := rng.Intn(40)
		batch := make([]model.RawEvent, 0, n)
		// overlap the previous window by up to 20 seconds
		start := cursor - rng.Intn(20)
		for i := 0; i < n; i++ {
			offset := start + rng.Intn(30)
			if offset < 0 {
				offset = 0
			}
			batch = append(batch, rawAt(time.Duration(offset)*time.Second, "deposit", "x.near"))
		}
		if rng.Intn(2) == 0 {
			for i, j := 0, len(batch)-1; i < j; i, j = i+1, j-1 {
				batch[i], batch[j] = batch[j], batch[i]
			}
		}
		cursor += rng.Intn(10)

		log := r.Merge(batch)
		assertLogInvariants(t, log, r.Capacity())
	}
}

func accounts(log []model.Event) []string {
	out := make([]string, 0, len(log))
	for _, ev := range log {
		out = append(out, ev.AccountID)
	}
	return out
}

func TestMergeAddedReturnsOnlyAdmittedEvents(t *testing.T) {
	r := New(0, nil)
	_, added := r.MergeAdded([]model.RawEvent{
		rawAt(1*time.Second, "deposit", "a.near"),
		rawAt(2*time.Second, "deposit", "b.near"),
	})
	assert.Equal(t, []string{"b.near", "a.near"}, accounts(added))

	log, added := r.MergeAdded([]model.RawEvent{
		rawAt(2*time.Second, "deposit", "b.near"),
		rawAt(3*time.Second, "borrow", "c.near"),
	})
	assert.Equal(t, []string{"c.near"}, accounts(added))
	assert.Len(t, log, 3)
}
