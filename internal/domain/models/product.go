package models

// EligibilityRule is a hard gate over snapshot and tags. Zero values mean
// "no constraint". Ineligible products are excluded entirely, never shown
// with a low score.
type EligibilityRule struct {
	MinTxCount          int       `yaml:"min_tx_count" json:"min_tx_count,omitempty"`
	MinSpendTotal       float64   `yaml:"min_spend_total" json:"min_spend_total,omitempty"`
	MaxInstallmentRatio float64   `yaml:"max_installment_ratio" json:"max_installment_ratio,omitempty"` // <=0 disables
	RequiresAnyTag      []TagKind `yaml:"requires_any_tag" json:"requires_any_tag,omitempty"`
	ForbidsTag          []TagKind `yaml:"forbids_tag" json:"forbids_tag,omitempty"`
}

// AffinityRule scores an eligible product against the snapshot. The final
// match is base plus tag and category-share contributions, clamped to [0,1].
type AffinityRule struct {
	Base            float64              `yaml:"base" json:"base"`
	TagWeights      map[TagKind]float64  `yaml:"tag_weights" json:"tag_weights,omitempty"`
	CategoryWeights map[Category]float64 `yaml:"category_weights" json:"category_weights,omitempty"`
}

// Product is a catalog entry supplied by the product collaborator.
type Product struct {
	Name        string          `yaml:"name" json:"name"`
	Type        string          `yaml:"type" json:"type"`
	Eligibility EligibilityRule `yaml:"eligibility" json:"eligibility"`
	Affinity    AffinityRule    `yaml:"affinity" json:"affinity"`
}

// RecommendationRecord is one ranked, explained product match.
type RecommendationRecord struct {
	Product     string   `json:"product"`
	Type        string   `json:"type"`
	Match       float64  `json:"match"` // [0,1]
	Why         []string `json:"why"`
	Explanation string   `json:"explanation"`
}
