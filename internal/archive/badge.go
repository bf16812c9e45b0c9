package archive

import "slices"

// Rarity grades how hard a badge is to earn.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Badge is unlocked by archiving UnlockThreshold challenges. Badges are static; earning one is a pure function of
// the archive count.
type Badge struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	UnlockThreshold int    `json:"unlockThreshold"`
	Rarity          Rarity `json:"rarity"`
}

// IsEarned reports whether completionCount archived challenges unlock the badge.
func (b Badge) IsEarned(completionCount int) bool {
	return completionCount >= b.UnlockThreshold
}

//nolint:gochecknoglobals // static catalog sorted by threshold.
var badges = []Badge{
	{ID: "first-step", Name: "First Step", Description: "Complete your first 14-day challenge.",
		UnlockThreshold: 1, Rarity: RarityCommon},
	{ID: "hat-trick", Name: "Hat Trick", Description: "Complete three challenges.",
		UnlockThreshold: 3, Rarity: RarityUncommon},
	{ID: "dedicated", Name: "Dedicated", Description: "Complete five challenges.",
		UnlockThreshold: 5, Rarity: RarityRare},
	{ID: "unstoppable", Name: "Unstoppable", Description: "Complete ten challenges.",
		UnlockThreshold: 10, Rarity: RarityEpic},
	{ID: "legend", Name: "Legend", Description: "Complete twenty-five challenges.",
		UnlockThreshold: 25, Rarity: RarityLegendary},
}

// Badges returns the catalog ordered by unlock threshold.
func Badges() []Badge {
	return slices.Clone(badges)
}

// EarnedBadges returns the badges unlocked by completionCount challenges.
func EarnedBadges(completionCount int) []Badge {
	var earned []Badge
	for _, b := range badges {
		if b.IsEarned(completionCount) {
			earned = append(earned, b)
		}
	}
	return earned
}

// NextBadge returns the first badge not yet earned and how many more challenges it needs.
func NextBadge(completionCount int) (Badge, int, bool) {
	for _, b := range badges {
		if !b.IsEarned(completionCount) {
			return b, b.UnlockThreshold - completionCount, true
		}
	}
	return Badge{}, 0, false
}
