package models

// Tier is one rung of the ticket-value ladder. The set is closed: wallet rows,
// ledger entries and lobbies only ever reference these eight values.
type Tier string

const (
	TierBronze   Tier = "BRONZE"
	TierSilver   Tier = "SILVER"
	TierGold     Tier = "GOLD"
	TierPlatinum Tier = "PLATINUM"
	TierEmerald  Tier = "EMERALD"
	TierSapphire Tier = "SAPPHIRE"
	TierRuby     Tier = "RUBY"
	TierDiamond  Tier = "DIAMOND"
)

var tierOrder = []Tier{
	TierBronze, TierSilver, TierGold, TierPlatinum,
	TierEmerald, TierSapphire, TierRuby, TierDiamond,
}

// Internal USD valuation per ticket. Display/analytics only, never used for
// settlement math.
var tierUSDValue = map[Tier]float64{
	TierBronze:   0.25,
	TierSilver:   5.00,
	TierGold:     100.00,
	TierPlatinum: 2000.00,
	TierEmerald:  40000.00,
	TierSapphire: 800000.00,
	TierRuby:     16000000.00,
	TierDiamond:  320000000.00,
}

// Queue sizes offered for every tier below the top one.
var queueSizes = []int{20, 40, 60}

// Reward in next-tier tickets per queue size.
var rewardByQueueSize = map[int]int{
	20: 1,
	40: 2,
	60: 3,
}

// TiersOrdered returns the tiers lowest to highest. The returned slice is a copy.
func TiersOrdered() []Tier {
	out := make([]Tier, len(tierOrder))
	copy(out, tierOrder)
	return out
}

// ValidTier reports whether s names a known tier.
func ValidTier(s string) bool {
	_, ok := tierUSDValue[Tier(s)]
	return ok
}

// TierIndex returns the position of t in the ladder (BRONZE=0) or -1.
func TierIndex(t Tier) int {
	for i, v := range tierOrder {
		if v == t {
			return i
		}
	}
	return -1
}

// NextTier returns the tier one rung above t. The top tier has none.
func NextTier(t Tier) (Tier, bool) {
	i := TierIndex(t)
	if i < 0 || i == len(tierOrder)-1 {
		return "", false
	}
	return tierOrder[i+1], true
}

// QueueSizesFor returns the queue sizes a tier runs lobbies for. The top tier
// has no next tier to pay rewards in, so it runs no queues.
func QueueSizesFor(t Tier) []int {
	if TierIndex(t) < 0 || t == TierDiamond {
		return nil
	}
	out := make([]int, len(queueSizes))
	copy(out, queueSizes)
	return out
}

// ValidQueueSize reports whether size is an offered queue size for t.
func ValidQueueSize(t Tier, size int) bool {
	for _, s := range QueueSizesFor(t) {
		if s == size {
			return true
		}
	}
	return false
}

// RewardAmount returns the next-tier ticket payout for a queue size, 0 if the
// size is not offered.
func RewardAmount(queueSize int) int {
	return rewardByQueueSize[queueSize]
}

// EntryCost is the number of same-tier tickets burned to take a seat.
func EntryCost(t Tier) int {
	return 1
}

// USDValue returns the internal valuation of one ticket of t.
func USDValue(t Tier) float64 {
	return tierUSDValue[t]
}
