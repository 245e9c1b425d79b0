package models

import "testing"

func TestTierLadderOrder(t *testing.T) {
	tiers := TiersOrdered()
	if len(tiers) != 8 {
		t.Fatalf("expected 8 tiers, got %d", len(tiers))
	}
	if tiers[0] != TierBronze || tiers[7] != TierDiamond {
		t.Fatalf("ladder ends wrong: %v", tiers)
	}
	for i, tier := range tiers {
		if TierIndex(tier) != i {
			t.Fatalf("TierIndex(%s) = %d, want %d", tier, TierIndex(tier), i)
		}
	}
}

func TestNextTierChain(t *testing.T) {
	tiers := TiersOrdered()
	for i := 0; i < len(tiers)-1; i++ {
		next, ok := NextTier(tiers[i])
		if !ok || next != tiers[i+1] {
			t.Fatalf("NextTier(%s) = %s, %v; want %s", tiers[i], next, ok, tiers[i+1])
		}
	}
	if _, ok := NextTier(TierDiamond); ok {
		t.Fatal("top tier must have no next tier")
	}
	if _, ok := NextTier(Tier("COPPER")); ok {
		t.Fatal("unknown tier must have no next tier")
	}
}

func TestQueueSizesAndRewards(t *testing.T) {
	for _, tier := range TiersOrdered() {
		sizes := QueueSizesFor(tier)
		if tier == TierDiamond {
			if sizes != nil {
				t.Fatalf("DIAMOND must run no queues, got %v", sizes)
			}
			continue
		}
		if len(sizes) != 3 || sizes[0] != 20 || sizes[1] != 40 || sizes[2] != 60 {
			t.Fatalf("QueueSizesFor(%s) = %v", tier, sizes)
		}
	}
	wantRewards := map[int]int{20: 1, 40: 2, 60: 3}
	for size, want := range wantRewards {
		if got := RewardAmount(size); got != want {
			t.Fatalf("RewardAmount(%d) = %d, want %d", size, got, want)
		}
	}
	if RewardAmount(30) != 0 {
		t.Fatal("unoffered queue size must pay nothing")
	}
}

func TestValidQueueSize(t *testing.T) {
	if !ValidQueueSize(TierBronze, 40) {
		t.Fatal("BRONZE/40 must be valid")
	}
	if ValidQueueSize(TierDiamond, 20) {
		t.Fatal("DIAMOND runs no queues")
	}
	if ValidQueueSize(TierBronze, 25) {
		t.Fatal("25 is not an offered queue size")
	}
}

func TestValidTierAndEntryCost(t *testing.T) {
	if !ValidTier("RUBY") || ValidTier("ruby") || ValidTier("") {
		t.Fatal("ValidTier is case-sensitive over the closed set")
	}
	for _, tier := range TiersOrdered() {
		if EntryCost(tier) != 1 {
			t.Fatalf("EntryCost(%s) = %d, want 1", tier, EntryCost(tier))
		}
	}
}
