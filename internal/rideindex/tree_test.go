package rideindex

import (
	"math/rand"
	"testing"

	"github.com/google/btree"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/example/gator-taxi/internal/models"
)

// checkInvariants walks the tree and fails on any ordering, coloring,
// black-height or parent-link violation. It returns the number of nodes.
func checkInvariants(t *testing.T, tr *Tree) int {
	t.Helper()
	require.Equal(t, black, tr.nodes[sentinel].color, "sentinel must stay black")
	if tr.root == sentinel {
		return 0
	}
	require.Equal(t, black, tr.nodes[tr.root].color, "root must be black")
	require.Equal(t, sentinel, tr.nodes[tr.root].parent, "root parent")

	count := 0
	var walk func(n, lo, hi int, bounded [2]bool) int
	walk = func(n, lo, hi int, bounded [2]bool) int {
		if n == sentinel {
			return 1
		}
		count++
		nd := tr.nodes[n]
		key := nd.ride.RideNumber
		if bounded[0] {
			require.Greater(t, key, lo, "left bound violated at %d", key)
		}
		if bounded[1] {
			require.Less(t, key, hi, "right bound violated at %d", key)
		}
		if nd.color == red {
			require.Equal(t, black, tr.nodes[nd.left].color, "red-red at %d", key)
			require.Equal(t, black, tr.nodes[nd.right].color, "red-red at %d", key)
		}
		if nd.left != sentinel {
			require.Equal(t, n, tr.nodes[nd.left].parent, "parent link at %d", key)
		}
		if nd.right != sentinel {
			require.Equal(t, n, tr.nodes[nd.right].parent, "parent link at %d", key)
		}
		lh := walk(nd.left, lo, key, [2]bool{bounded[0], true})
		rh := walk(nd.right, key, hi, [2]bool{true, bounded[1]})
		require.Equal(t, lh, rh, "black height mismatch at %d", key)
		if nd.color == black {
			lh++
		}
		return lh
	}
	walk(tr.root, 0, 0, [2]bool{})
	require.Equal(t, tr.Len(), count, "size mismatch")
	return count
}

func collect(tr *Tree, lo, hi int) []models.Ride {
	var out []models.Ride
	tr.Range(lo, hi, func(r models.Ride) bool {
		out = append(out, r)
		return true
	})
	return out
}

func TestInsertGetDelete(t *testing.T) {
	tr := New()
	require.True(t, tr.Insert(models.Ride{RideNumber: 3508, Cost: 24, TripDuration: 10}))
	require.True(t, tr.Insert(models.Ride{RideNumber: 4322, Cost: 5, TripDuration: 9}))

	r, ok := tr.Get(3508)
	require.True(t, ok)
	require.Equal(t, models.Ride{RideNumber: 3508, Cost: 24, TripDuration: 10}, r)

	removed, ok := tr.Delete(3508)
	require.True(t, ok)
	require.Equal(t, 3508, removed.RideNumber)
	_, ok = tr.Get(3508)
	require.False(t, ok)
	require.Equal(t, 1, tr.Len())
	checkInvariants(t, tr)
}

func TestInsertDuplicateLeavesTreeUntouched(t *testing.T) {
	tr := New()
	require.True(t, tr.Insert(models.Ride{RideNumber: 1, Cost: 5, TripDuration: 5}))
	require.False(t, tr.Insert(models.Ride{RideNumber: 1, Cost: 9, TripDuration: 9}))
	r, _ := tr.Get(1)
	require.Equal(t, 5, r.Cost)
	require.Equal(t, 1, tr.Len())
}

func TestDeleteMissing(t *testing.T) {
	tr := New()
	_, ok := tr.Delete(42)
	require.False(t, ok)
	tr.Insert(models.Ride{RideNumber: 7})
	_, ok = tr.Delete(42)
	require.False(t, ok)
	require.Equal(t, 1, tr.Len())
}

func TestDeleteTwoChildrenMovesSuccessor(t *testing.T) {
	tr := New()
	for _, id := range []int{50, 30, 70, 20, 40, 60, 80} {
		tr.Insert(models.Ride{RideNumber: id, Cost: id * 2})
	}
	removed, ok := tr.Delete(50)
	require.True(t, ok)
	require.Equal(t, models.Ride{RideNumber: 50, Cost: 100}, removed)

	r, ok := tr.Get(60)
	require.True(t, ok)
	require.Equal(t, 120, r.Cost, "successor value must travel intact")
	checkInvariants(t, tr)
	if diff := cmp.Diff([]int{20, 30, 40, 60, 70, 80}, ids(collect(tr, 0, 100))); diff != "" {
		t.Fatalf("in-order mismatch (-want +got):\n%s", diff)
	}
}

func TestRangeInclusiveAndPruned(t *testing.T) {
	tr := New()
	for id := 10; id <= 100; id += 10 {
		tr.Insert(models.Ride{RideNumber: id})
	}
	require.Equal(t, []int{30, 40, 50}, ids(collect(tr, 30, 50)))
	require.Equal(t, []int{30, 40}, ids(collect(tr, 25, 45)))
	require.Equal(t, []int{10}, ids(collect(tr, -5, 10)))
	require.Equal(t, []int{100}, ids(collect(tr, 100, 1000)))

	found := tr.Range(41, 49, func(models.Ride) bool {
		t.Fatal("no ride should match")
		return true
	})
	require.False(t, found)
	require.False(t, tr.Range(50, 40, func(models.Ride) bool { return true }))
}

func TestRangeAboveMaximum(t *testing.T) {
	tr := New()
	require.False(t, tr.Range(1, 10, func(models.Ride) bool { return true }))

	tr.Insert(models.Ride{RideNumber: 1})
	require.Empty(t, collect(tr, 5, 10))

	for id := 10; id <= 100; id += 10 {
		tr.Insert(models.Ride{RideNumber: id})
	}
	require.Empty(t, collect(tr, 101, 200))
	require.Empty(t, collect(tr, 5000, 6000))
	require.Equal(t, []int{100}, ids(collect(tr, 95, 6000)))
}

func TestRangeStopsEarly(t *testing.T) {
	tr := New()
	for id := 1; id <= 20; id++ {
		tr.Insert(models.Ride{RideNumber: id})
	}
	var seen []int
	found := tr.Range(5, 15, func(r models.Ride) bool {
		seen = append(seen, r.RideNumber)
		return len(seen) < 3
	})
	require.True(t, found)
	require.Equal(t, []int{5, 6, 7}, seen)
}

func TestReplaceKeepsPosition(t *testing.T) {
	tr := New()
	tr.Insert(models.Ride{RideNumber: 9, Cost: 1, TripDuration: 1})
	require.True(t, tr.Replace(models.Ride{RideNumber: 9, Cost: 11, TripDuration: 2}))
	require.False(t, tr.Replace(models.Ride{RideNumber: 10}))
	r, _ := tr.Get(9)
	require.Equal(t, models.Ride{RideNumber: 9, Cost: 11, TripDuration: 2}, r)
}

func TestArenaSlotsAreReused(t *testing.T) {
	tr := New()
	for id := 0; id < 32; id++ {
		tr.Insert(models.Ride{RideNumber: id})
	}
	grown := len(tr.nodes)
	for id := 0; id < 16; id++ {
		tr.Delete(id)
	}
	for id := 100; id < 116; id++ {
		tr.Insert(models.Ride{RideNumber: id})
	}
	require.Equal(t, grown, len(tr.nodes))
	checkInvariants(t, tr)

	tr.Reset()
	require.Equal(t, 0, tr.Len())
	require.Len(t, tr.nodes, 1)
	_, ok := tr.Get(100)
	require.False(t, ok)
}

func TestAscendMatchesSortedOrder(t *testing.T) {
	tr := New()
	for _, id := range []int{5, 1, 9, 3, 7, -2} {
		tr.Insert(models.Ride{RideNumber: id})
	}
	var got []int
	tr.Ascend(func(r models.Ride) bool {
		got = append(got, r.RideNumber)
		return true
	})
	require.Equal(t, []int{-2, 1, 3, 5, 7, 9}, got)
}

func TestRandomizedAgainstBTree(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tr := New()
	ref := btree.NewG[models.Ride](8, func(a, b models.Ride) bool {
		return a.RideNumber < b.RideNumber
	})

	for i := 0; i < 5000; i++ {
		id := rng.Intn(600)
		switch op := rng.Intn(10); {
		case op < 5:
			r := models.Ride{RideNumber: id, Cost: rng.Intn(50), TripDuration: rng.Intn(50)}
			_, exists := ref.Get(r)
			require.Equal(t, !exists, tr.Insert(r))
			if !exists {
				ref.ReplaceOrInsert(r)
			}
		case op < 9:
			want, exists := ref.Delete(models.Ride{RideNumber: id})
			got, ok := tr.Delete(id)
			require.Equal(t, exists, ok)
			if exists {
				require.Equal(t, want, got)
			}
		default:
			lo := id
			if rng.Intn(4) == 0 {
				lo = 600 + rng.Intn(100)
			}
			hi := lo + rng.Intn(80)
			var want []models.Ride
			ref.AscendRange(models.Ride{RideNumber: lo}, models.Ride{RideNumber: hi + 1}, func(r models.Ride) bool {
				want = append(want, r)
				return true
			})
			got := collect(tr, lo, hi)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("range [%d,%d] mismatch (-want +got):\n%s", lo, hi, diff)
			}
		}
		if i%250 == 0 {
			checkInvariants(t, tr)
		}
	}
	require.Equal(t, ref.Len(), checkInvariants(t, tr))
}

func TestAscendingAndDescendingInsertStayBalanced(t *testing.T) {
	tr := New()
	for id := 0; id < 1024; id++ {
		tr.Insert(models.Ride{RideNumber: id})
	}
	for id := 4096; id > 3072; id-- {
		tr.Insert(models.Ride{RideNumber: id})
	}
	checkInvariants(t, tr)
	for id := 0; id < 1024; id += 2 {
		tr.Delete(id)
	}
	checkInvariants(t, tr)
}

func ids(rs []models.Ride) []int {
	out := make([]int, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.RideNumber)
	}
	return out
}
