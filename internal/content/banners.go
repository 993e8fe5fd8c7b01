package content

import (
	"time"

	"pointbox/customer-web/internal/backend"
)

const (
	BannerTypeRegular      = "regular"
	BannerTypeSpecialEvent = "special_event"

	defaultSlideBadge     = "New"
	defaultPromotionBadge = "Limited Time Offer"
	defaultPromotionImage = "https://images.unsplash.com/photo-1719706654529-ca7e2ce5a2bb?crop=entropy&cs=tinysrgb&fit=max&fm=jpg&q=80&w=1080"

	customerBannerDefaultLength = 30 * 24 * time.Hour
)

type Slide struct {
	ID          string `json:"id"`
	Badge       string `json:"badge"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Link        string `json:"link,omitempty"`
}

type Countdown struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

type Promotion struct {
	Slide
	EndDate   string    `json:"endDate,omitempty"`
	Countdown Countdown `json:"countdown"`
}

// CustomerBanner is one row of the dashboard promotions page.
type CustomerBanner struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Active      bool      `json:"active"`
}

// HeroSlides keeps active regular banners.
func HeroSlides(in []backend.Banner) []Slide {
	out := make([]Slide, 0, len(in))
	for _, banner := range in {
		if !active(banner.IsActive) || banner.Type != BannerTypeRegular {
			continue
		}
		out = append(out, Slide{
			ID:          firstNonEmpty(banner.MongoID, banner.ID),
			Badge:       firstNonEmpty(banner.Badge, defaultSlideBadge),
			Title:       banner.Title,
			Description: banner.Description,
			Image:       firstNonEmpty(banner.ImageURL, banner.Image),
			Link:        firstNonEmpty(banner.Link, banner.ProductURL),
		})
	}
	return out
}

// Promotions keeps active special-event banners with their countdown at now.
func Promotions(in []backend.Banner, now time.Time) []Promotion {
	out := make([]Promotion, 0, len(in))
	for _, banner := range in {
		if !active(banner.IsActive) || banner.Type != BannerTypeSpecialEvent {
			continue
		}
		out = append(out, Promotion{
			Slide: Slide{
				ID:          firstNonEmpty(banner.MongoID, banner.ID),
				Badge:       firstNonEmpty(banner.Badge, defaultPromotionBadge),
				Title:       banner.Title,
				Description: banner.Description,
				Image:       firstNonEmpty(banner.ImageURL, banner.Image, defaultPromotionImage),
				Link:        firstNonEmpty(banner.Link, banner.ProductURL),
			},
			EndDate:   banner.EndDate,
			Countdown: CountdownUntil(banner.EndDate, now),
		})
	}
	return out
}

// RefreshCountdowns recomputes every countdown in place.
func RefreshCountdowns(promotions []Promotion, now time.Time) {
	for i := range promotions {
		promotions[i].Countdown = CountdownUntil(promotions[i].EndDate, now)
	}
}

// CountdownUntil is zero once the end has passed or cannot be parsed.
func CountdownUntil(endDate string, now time.Time) Countdown {
	if endDate == "" {
		return Countdown{}
	}
	end, err := ParseTime(endDate)
	if err != nil {
		return Countdown{}
	}
	diff := end.Sub(now)
	if diff <= 0 {
		return Countdown{}
	}
	return Countdown{
		Days:    int(diff / (24 * time.Hour)),
		Hours:   int(diff % (24 * time.Hour) / time.Hour),
		Minutes: int(diff % time.Hour / time.Minute),
	}
}

func CustomerBanners(in []backend.Banner, now time.Time) []CustomerBanner {
	out := make([]CustomerBanner, 0, len(in))
	for _, banner := range in {
		start, err := ParseTime(banner.StartDate)
		if err != nil {
			start, err = ParseTime(banner.CreatedAt)
			if err != nil {
				start = now
			}
		}
		end, err := ParseTime(banner.EndDate)
		if err != nil {
			end = now.Add(customerBannerDefaultLength)
		}
		out = append(out, CustomerBanner{
			ID:          banner.MongoID,
			Title:       banner.Title,
			Description: banner.Description,
			Image:       firstNonEmpty(banner.ImageURL, banner.Image),
			StartDate:   start.UTC(),
			EndDate:     end.UTC(),
			Active:      banner.IsActive != nil && *banner.IsActive,
		})
	}
	return out
}
