package guild

// PerkDef is a static perk definition. Magnitude scales linearly with perk
// level; the upgrade cost grows by CostStep per level already held.
type PerkDef struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	EffectType    string  `json:"effect_type"`
	BaseMagnitude float64 `json:"base_magnitude"`
	MagnitudeStep float64 `json:"magnitude_step"`
	MaxLevel      int     `json:"max_level"`
	RequiredLevel int     `json:"required_level"` // guild level to begin upgrading
	BaseCost      int64   `json:"base_cost"`
	CostStep      int64   `json:"cost_step"`
	Currency      string  `json:"currency"`
}

// MagnitudeAt returns the effect magnitude at the given perk level.
func (d *PerkDef) MagnitudeAt(level int) float64 {
	if level < 1 {
		return 0
	}
	return d.BaseMagnitude + d.MagnitudeStep*float64(level-1)
}

// CostAt returns the treasury cost to upgrade to the given perk level.
func (d *PerkDef) CostAt(level int) int64 {
	if level < 1 {
		return d.BaseCost
	}
	return d.BaseCost + d.CostStep*int64(level-1)
}

// Catalog is the set of purchasable perks, keyed by perk id.
type Catalog map[string]*PerkDef

// DefaultCatalog returns the built-in perk set.
func DefaultCatalog() Catalog {
	defs := []*PerkDef{
		{
			ID: "training_grounds", Name: "Training Grounds",
			EffectType: "xp_boost", BaseMagnitude: 5, MagnitudeStep: 5,
			MaxLevel: 5, RequiredLevel: 1,
			BaseCost: 500, CostStep: 500, Currency: CurrencyGold,
		},
		{
			ID: "treasure_hold", Name: "Treasure Hold",
			EffectType: "gold_find", BaseMagnitude: 2, MagnitudeStep: 2,
			MaxLevel: 5, RequiredLevel: 2,
			BaseCost: 800, CostStep: 600, Currency: CurrencyGold,
		},
		{
			ID: "war_banner", Name: "War Banner",
			EffectType: "war_score_boost", BaseMagnitude: 3, MagnitudeStep: 3,
			MaxLevel: 3, RequiredLevel: 3,
			BaseCost: 1200, CostStep: 1000, Currency: CurrencyGold,
		},
		{
			ID: "merchant_network", Name: "Merchant Network",
			EffectType: "shop_discount", BaseMagnitude: 1, MagnitudeStep: 2,
			MaxLevel: 4, RequiredLevel: 5,
			BaseCost: 2000, CostStep: 1500, Currency: CurrencyGold,
		},
	}
	c := make(Catalog, len(defs))
	for _, d := range defs {
		c[d.ID] = d
	}
	return c
}

// Currency names used by the treasury.
const (
	CurrencyGold    = "gold"
	CurrencyCrystal = "crystal"
)

// IsCurrency reports whether a contribution kind is a currency (anything
// else is counted as an item).
func IsCurrency(kind string) bool {
	return kind == CurrencyGold || kind == CurrencyCrystal
}
