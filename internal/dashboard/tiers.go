package dashboard

import "pointbox/customer-web/internal/backend"

const (
	TierSilver   = "Silver"
	TierGold     = "Gold"
	TierPlatinum = "Platinum"

	goldThreshold     = 1000
	platinumThreshold = 5000
)

type Tier struct {
	Name    string  `json:"name"`
	Min     float64 `json:"currentTierMin"`
	Next    float64 `json:"nextTierPoints,omitempty"`
	HasNext bool    `json:"hasNext"`
}

// Progress is the share of the way from this tier's floor to the next one,
// in percent. The top tier is always complete.
func (t Tier) Progress(points float64) float64 {
	if !t.HasNext {
		return 100
	}
	span := t.Next - t.Min
	done := (points - t.Min) / span * 100
	if done < 0 {
		return 0
	}
	if done > 100 {
		return 100
	}
	return done
}

func (t Tier) Remaining(points float64) float64 {
	if !t.HasNext || points >= t.Next {
		return 0
	}
	return t.Next - points
}

func TierFor(points float64) Tier {
	switch {
	case points >= platinumThreshold:
		return Tier{Name: TierPlatinum, Min: platinumThreshold}
	case points >= goldThreshold:
		return Tier{Name: TierGold, Min: goldThreshold, Next: platinumThreshold, HasNext: true}
	default:
		return Tier{Name: TierSilver, Min: 0, Next: goldThreshold, HasNext: true}
	}
}

// LinkedBrand is a linked company with its own balance and tier.
type LinkedBrand struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Logo   string  `json:"logo,omitempty"`
	Points float64 `json:"points"`
	Tier   Tier    `json:"tier"`
}

func LinkedBrands(in []backend.LinkedCompany) []LinkedBrand {
	out := make([]LinkedBrand, 0, len(in))
	for _, linked := range in {
		out = append(out, LinkedBrand{
			ID:     linked.Company.ID,
			Name:   linked.Company.CompanyName,
			Logo:   linked.Company.CompanyLogo,
			Points: linked.Points,
			Tier:   TierFor(linked.Points),
		})
	}
	return out
}

type Stats struct {
	Points           float64 `json:"points"`
	LinkedBrands     int     `json:"linkedBrands"`
	TransactionCount int     `json:"transactionCount"`
}

func NewStats(points float64, linkedBrands []string, transactions int) Stats {
	return Stats{Points: points, LinkedBrands: len(linkedBrands), TransactionCount: transactions}
}
