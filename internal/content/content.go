// Package content turns public backend records into the view models of the
// marketing pages.
package content

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"pointbox/customer-web/internal/backend"
)

const (
	DefaultFAQCategory     = "general"
	UntitledNewsletter     = "Untitled Newsletter"
	UnknownCompany         = "Unknown Company"
	DefaultCompanyGroup    = "General"
	UnnamedProduct         = "Unnamed Product"
	pointValueInDollars    = 0.01
	defaultPointsPerDollar = 1
)

type FAQ struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category"`
}

type Term struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Section   string `json:"section,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type Newsletter struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

type Company struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Logo            string  `json:"logo,omitempty"`
	PointsPerDollar float64 `json:"pointsPerDollar"`
	Category        string  `json:"category"`
	Featured        bool    `json:"featured"`
}

type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Points      float64 `json:"points"`
	Price       float64 `json:"price"`
	Image       string  `json:"image,omitempty"`
	BrandID     string  `json:"brandId,omitempty"`
}

func active(flag *bool) bool {
	return flag == nil || *flag
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

func FAQs(in []backend.FAQ) []FAQ {
	out := make([]FAQ, 0, len(in))
	for _, item := range in {
		if !active(item.IsActive) {
			continue
		}
		out = append(out, FAQ{
			ID:       firstNonEmpty(item.MongoID, item.ID),
			Question: item.Question,
			Answer:   item.Answer,
			Category: firstNonEmpty(item.Category, DefaultFAQCategory),
		})
	}
	return out
}

// FAQCategories lists categories in first-seen order.
func FAQCategories(faqs []FAQ) []string {
	seen := make(map[string]bool)
	var categories []string
	for _, faq := range faqs {
		if seen[faq.Category] {
			continue
		}
		seen[faq.Category] = true
		categories = append(categories, faq.Category)
	}
	return categories
}

// FilterFAQs keeps one category; empty or "all" keeps everything.
func FilterFAQs(faqs []FAQ, category string) []FAQ {
	if category == "" || category == "all" {
		return faqs
	}
	var out []FAQ
	for _, faq := range faqs {
		if faq.Category == category {
			out = append(out, faq)
		}
	}
	return out
}

func Terms(in []backend.Term) []Term {
	out := make([]Term, 0, len(in))
	for _, item := range in {
		if !active(item.IsActive) {
			continue
		}
		out = append(out, Term{
			ID:        item.MongoID,
			Title:     item.Title,
			Content:   item.Content,
			Section:   item.Section,
			CreatedAt: item.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return newer(out[i].CreatedAt, out[j].CreatedAt)
	})
	return out
}

func Newsletters(in []backend.Newsletter) []Newsletter {
	out := make([]Newsletter, 0, len(in))
	for _, item := range in {
		if !active(item.IsActive) {
			continue
		}
		out = append(out, Newsletter{
			ID:          firstNonEmpty(item.MongoID, item.ID),
			Title:       firstNonEmpty(item.Title, UntitledNewsletter),
			ImageURL:    item.ImageURL,
			Description: item.Description,
			CreatedAt:   item.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return newer(out[i].CreatedAt, out[j].CreatedAt)
	})
	return out
}

// newer orders by timestamp descending; unparsable dates sort last.
func newer(a, b string) bool {
	ta, errA := ParseTime(a)
	tb, errB := ParseTime(b)
	switch {
	case errA != nil && errB != nil:
		return false
	case errA != nil:
		return false
	case errB != nil:
		return true
	}
	return ta.After(tb)
}

func Companies(in []backend.Brand) []Company {
	out := make([]Company, 0, len(in))
	for _, item := range in {
		if !active(item.IsActive) {
			continue
		}
		perDollar := item.PointsMultiplier
		if perDollar == 0 {
			perDollar = item.PointsPerDollar
		}
		if perDollar == 0 {
			perDollar = defaultPointsPerDollar
		}
		out = append(out, Company{
			ID:              firstNonEmpty(item.MongoID, item.ID),
			Name:            firstNonEmpty(item.CompanyName, item.Name, UnknownCompany),
			Logo:            firstNonEmpty(item.Logo, item.CompanyLogo),
			PointsPerDollar: perDollar,
			Category:        firstNonEmpty(item.Country, DefaultCompanyGroup),
			Featured:        item.Featured,
		})
	}
	return out
}

// SearchCompanies matches name or category, case-insensitively.
func SearchCompanies(companies []Company, term string) []Company {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return companies
	}
	var out []Company
	for _, company := range companies {
		if strings.Contains(strings.ToLower(company.Name), term) ||
			strings.Contains(strings.ToLower(company.Category), term) {
			out = append(out, company)
		}
	}
	return out
}

func Products(in []backend.Product) []Product {
	out := make([]Product, 0, len(in))
	for _, item := range in {
		if !active(item.IsActive) {
			continue
		}
		points := item.RedeemPoints
		if points == 0 {
			points = item.Points
		}
		price := item.Price
		if price == 0 {
			price = item.RedeemPoints * pointValueInDollars
		}
		out = append(out, Product{
			ID:          firstNonEmpty(item.MongoID, item.ID),
			Name:        firstNonEmpty(item.Name, UnnamedProduct),
			Description: item.Description,
			Points:      points,
			Price:       price,
			Image:       firstNonEmpty(item.Image, item.ImageURL),
			BrandID:     firstNonEmpty(item.Company.ID, item.CompanyID),
		})
	}
	return out
}

// SettingsLogo returns the site logo from the /web settings record.
func SettingsLogo(settings backend.Settings) string {
	for _, key := range []string{"logo", "logoUrl"} {
		if value, ok := settings[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}

// SettingsEntries flattens the settings record into sorted label/value
// pairs for display. Nested values are skipped.
func SettingsEntries(settings backend.Settings) []Entry {
	var out []Entry
	for key, value := range settings {
		if strings.HasPrefix(key, "_") || key == "__v" {
			continue
		}
		switch v := value.(type) {
		case string:
			if v != "" {
				out = append(out, Entry{Key: key, Value: v})
			}
		case bool, float64:
			out = append(out, Entry{Key: key, Value: formatScalar(v)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ParseTime accepts RFC 3339 and the zone-less minute or second forms the
// backend sends for banner dates, which are read as UTC.
func ParseTime(value string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05.000",
		"2006-01-02",
	}
	var err error
	for _, layout := range layouts {
		var parsed time.Time
		parsed, err = time.Parse(layout, value)
		if err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, err
}

func formatScalar(value interface{}) string {
	switch v := value.(type) {
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

type SocialLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

var socialNetworks = []string{"instagram", "facebook", "x", "tiktok", "youtube", "linkedin"}

// SocialLinks lists the configured social profiles in footer order.
func SocialLinks(settings backend.Settings) []SocialLink {
	var out []SocialLink
	for _, name := range socialNetworks {
		if url, ok := settings[name].(string); ok && url != "" {
			out = append(out, SocialLink{Name: name, URL: url})
		}
	}
	return out
}
