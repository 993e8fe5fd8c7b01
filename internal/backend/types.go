package backend

import (
	"bytes"
	"encoding/json"
)

// Envelope is the common response shape of the customer API.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Token   string          `json:"token,omitempty"`
	User    *LoginUser      `json:"user,omitempty"`
	Email   string          `json:"email,omitempty"`
	Banners json.RawMessage `json:"banners,omitempty"`

	Raw json.RawMessage `json:"-"`
}

func (e *Envelope) HasData() bool {
	return len(e.Data) > 0 && !bytes.Equal(e.Data, []byte("null"))
}

// Ref is a reference the backend sends either as a bare id string or as a
// populated object.
type Ref struct {
	ID          string `json:"_id"`
	CompanyName string `json:"companyName,omitempty"`
	CompanyLogo string `json:"companyLogo,omitempty"`
	Email       string `json:"email,omitempty"`
	Address     string `json:"address,omitempty"`
	Country     string `json:"country,omitempty"`
	Populated   bool   `json:"-"`
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}
	type plain Ref
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*r = Ref(decoded)
	r.Populated = true
	return nil
}

type LoginUser struct {
	ID          string  `json:"id,omitempty"`
	MongoID     string  `json:"_id,omitempty"`
	Email       string  `json:"email,omitempty"`
	Username    string  `json:"username,omitempty"`
	FullName    string  `json:"fullName,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	TotalPoints float64 `json:"totalPoints,omitempty"`
	CreatedAt   string  `json:"createdAt,omitempty"`
}

type Customer struct {
	ID              string          `json:"_id"`
	Username        string          `json:"username"`
	Email           string          `json:"email"`
	Phone           string          `json:"phone,omitempty"`
	Address         string          `json:"address,omitempty"`
	Country         string          `json:"country,omitempty"`
	TotalPoints     float64         `json:"totalPoints"`
	RedeemedPoints  float64         `json:"redeemedPoints"`
	LinkedCompanies []LinkedCompany `json:"linkedCompanies"`
	IsActive        bool            `json:"isActive"`
	CreatedAt       string          `json:"createdAt"`
	UpdatedAt       string          `json:"updatedAt"`
}

type LinkedCompany struct {
	Company Ref     `json:"company"`
	Points  float64 `json:"points"`
	Tier    string  `json:"tier,omitempty"`
}

type Transaction struct {
	MongoID       string  `json:"_id"`
	TransactionID string  `json:"transactionId"`
	Customer      Ref     `json:"customer"`
	CustomerName  string  `json:"customerName"`
	CustomerEmail string  `json:"customerEmail"`
	Company       Ref     `json:"company"`
	CompanyName   string  `json:"companyName"`
	Type          string  `json:"type"`
	Points        float64 `json:"points"`
	RedeemPoints  float64 `json:"redeem_points,omitempty"`
	InvoiceNumber string  `json:"invoiceNumber,omitempty"`
	InvoiceImage  string  `json:"invoiceImage,omitempty"`
	Notes         string  `json:"notes,omitempty"`
	CreatedAt     string  `json:"createdAt"`
}

type Product struct {
	MongoID      string  `json:"_id,omitempty"`
	ID           string  `json:"id,omitempty"`
	CompanyID    string  `json:"companyId,omitempty"`
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	Points       float64 `json:"points,omitempty"`
	RedeemPoints float64 `json:"redeem_points,omitempty"`
	Price        float64 `json:"price,omitempty"`
	Rating       float64 `json:"rating,omitempty"`
	Image        string  `json:"image,omitempty"`
	ImageURL     string  `json:"imageUrl,omitempty"`
	CouponCode   string  `json:"couponCode,omitempty"`
	Company      Ref     `json:"company"`
	CompanyName  string  `json:"companyName,omitempty"`
	CompanyLogo  string  `json:"companyLogo,omitempty"`
	IsActive     *bool   `json:"isActive,omitempty"`
	CreatedAt    string  `json:"createdAt,omitempty"`
}

type Banner struct {
	MongoID     string `json:"_id,omitempty"`
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Badge       string `json:"badge,omitempty"`
	Image       string `json:"image,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Link        string `json:"link,omitempty"`
	ProductURL  string `json:"productUrl,omitempty"`
	Type        string `json:"type,omitempty"`
	Order       int    `json:"order,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
	IsActive    *bool  `json:"isActive,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// Brand covers both /brands and /web/companies records.
type Brand struct {
	MongoID          string  `json:"_id,omitempty"`
	ID               string  `json:"id,omitempty"`
	CompanyName      string  `json:"companyName,omitempty"`
	Name             string  `json:"name,omitempty"`
	Email            string  `json:"email,omitempty"`
	Address          string  `json:"address,omitempty"`
	Country          string  `json:"country,omitempty"`
	Logo             string  `json:"logo,omitempty"`
	CompanyLogo      string  `json:"companyLogo,omitempty"`
	PointsMultiplier float64 `json:"pointsMultiplier,omitempty"`
	PointsPerDollar  float64 `json:"pointsPerDollar,omitempty"`
	Featured         bool    `json:"featured,omitempty"`
	IsActive         *bool   `json:"isActive,omitempty"`
}

type FAQ struct {
	MongoID  string `json:"_id,omitempty"`
	ID       string `json:"id,omitempty"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category,omitempty"`
	IsActive *bool  `json:"isActive,omitempty"`
}

type Term struct {
	MongoID   string `json:"_id,omitempty"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Section   string `json:"section,omitempty"`
	IsActive  *bool  `json:"isActive,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type Newsletter struct {
	MongoID     string `json:"_id,omitempty"`
	ID          string `json:"id,omitempty"`
	Title       string `json:"title,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Description string `json:"description,omitempty"`
	IsActive    *bool  `json:"isActive,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

type ConversionRate struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	Rate        float64 `json:"rate"`
	LastUpdated string  `json:"lastUpdated"`
}

type SEO struct {
	MetaTitle       string `json:"metaTitle"`
	MetaDescription string `json:"metaDescription"`
	MetaKeywords    string `json:"metaKeywords"`
}

type Settings map[string]interface{}

type RedeemResult struct {
	Transaction     Transaction `json:"transaction"`
	Product         Product     `json:"product"`
	RemainingPoints float64     `json:"remainingPoints"`
}

type LinkResult struct {
	LinkedBrands []string  `json:"linkedBrands"`
	Customer     *Customer `json:"customer,omitempty"`
}

type SignupRequest struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Phone          string `json:"phone,omitempty"`
	Address        string `json:"address,omitempty"`
	Country        string `json:"country,omitempty"`
	GoogleID       string `json:"googleId,omitempty"`
	IsGoogleSignup bool   `json:"isGoogleSignup,omitempty"`
}

type LoginRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DeviceToken string `json:"deviceToken"`
}

type ProfileUpdateRequest struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
	Country  string `json:"country,omitempty"`
}

type SupportRequest struct {
	Subject       string `json:"subject"`
	Message       string `json:"message"`
	TransactionID string `json:"transactionId,omitempty"`
	BrandID       string `json:"brandId,omitempty"`
}

type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}
