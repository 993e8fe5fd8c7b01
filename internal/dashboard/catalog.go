package dashboard

import (
	"strings"

	"pointbox/customer-web/internal/backend"
)

// Product is a redeemable reward as shown on the redeem page.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Cost        float64 `json:"redeem_points"`
	CouponCode  string  `json:"couponCode,omitempty"`
	Image       string  `json:"image,omitempty"`
	CompanyName string  `json:"companyName"`
	CompanyLogo string  `json:"companyLogo,omitempty"`
}

func (p Product) Affordable(points float64) bool {
	return points >= p.Cost
}

func Products(in []backend.Product) []Product {
	out := make([]Product, 0, len(in))
	for _, item := range in {
		cost := item.RedeemPoints
		if cost == 0 {
			cost = item.Points
		}
		image := item.Image
		if image == "" {
			image = item.ImageURL
		}
		var logo string
		if item.Company.Populated {
			logo = item.Company.CompanyLogo
		}
		out = append(out, Product{
			ID:          item.MongoID,
			Name:        item.Name,
			Description: item.Description,
			Cost:        cost,
			CouponCode:  item.CouponCode,
			Image:       image,
			CompanyName: item.CompanyName,
			CompanyLogo: logo,
		})
	}
	return out
}

// SearchProducts matches the name case-insensitively and the cost digits
// and company name literally.
func SearchProducts(products []Product, search string) []Product {
	trimmed := strings.TrimSpace(search)
	if trimmed == "" {
		return products
	}
	lower := strings.ToLower(trimmed)
	var out []Product
	for _, product := range products {
		if strings.Contains(strings.ToLower(product.Name), lower) ||
			strings.Contains(formatPoints(product.Cost), trimmed) ||
			strings.Contains(product.CompanyName, trimmed) {
			out = append(out, product)
		}
	}
	return out
}

func FindProduct(products []Product, id string) (Product, bool) {
	for _, product := range products {
		if product.ID == id {
			return product, true
		}
	}
	return Product{}, false
}

const (
	defaultBrandDescription = "Partner brand"
	defaultBrandCategory    = "General"

	LinkFilterAll      = "all"
	LinkFilterLinked   = "linked"
	LinkFilterUnlinked = "unlinked"
)

type Brand struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Logo        string `json:"logo,omitempty"`
	CompanyLogo string `json:"companyLogo,omitempty"`
	Category    string `json:"category"`
	Linked      bool   `json:"linked"`
}

// Brands marks each brand linked when its id is in linkedIDs.
func Brands(in []backend.Brand, linkedIDs []string) []Brand {
	linked := make(map[string]bool, len(linkedIDs))
	for _, id := range linkedIDs {
		linked[id] = true
	}
	out := make([]Brand, 0, len(in))
	for _, item := range in {
		description := item.Address
		if description == "" {
			description = item.Country
		}
		if description == "" {
			description = defaultBrandDescription
		}
		category := item.Country
		if category == "" {
			category = defaultBrandCategory
		}
		logo := item.Logo
		if logo == "" {
			logo = item.CompanyLogo
		}
		companyLogo := item.CompanyLogo
		if companyLogo == "" {
			companyLogo = item.Logo
		}
		out = append(out, Brand{
			ID:          item.MongoID,
			Name:        item.CompanyName,
			Description: description,
			Logo:        logo,
			CompanyLogo: companyLogo,
			Category:    category,
			Linked:      linked[item.MongoID],
		})
	}
	return out
}

func FilterBrands(brands []Brand, filter, search string) []Brand {
	search = strings.ToLower(search)
	out := make([]Brand, 0, len(brands))
	for _, brand := range brands {
		switch filter {
		case LinkFilterLinked:
			if !brand.Linked {
				continue
			}
		case LinkFilterUnlinked:
			if brand.Linked {
				continue
			}
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(brand.Name), search) &&
			!strings.Contains(strings.ToLower(brand.Description), search) &&
			!strings.Contains(strings.ToLower(brand.Category), search) {
			continue
		}
		out = append(out, brand)
	}
	return out
}

// LinkPoints keeps the current balance unless the link response carries a
// positive one.
func LinkPoints(current float64, result *backend.LinkResult) float64 {
	if result == nil || result.Customer == nil {
		return current
	}
	if result.Customer.TotalPoints > 0 {
		return result.Customer.TotalPoints
	}
	return current
}
