package session

import (
	"time"

	"pointbox/customer-web/internal/backend"
)

type User struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	FullName     string   `json:"fullName"`
	PhoneNumber  string   `json:"phoneNumber"`
	Points       float64  `json:"points"`
	LinkedBrands []string `json:"linkedBrands"`
	CreatedAt    string   `json:"createdAt"`
}

// Patch carries the fields UpdateUser merges; nil fields are left alone.
type Patch struct {
	ID           *string
	Email        *string
	FullName     *string
	PhoneNumber  *string
	Points       *float64
	LinkedBrands []string
	CreatedAt    *string
}

func FromCustomer(customer backend.Customer) User {
	linked := make([]string, 0, len(customer.LinkedCompanies))
	for _, lc := range customer.LinkedCompanies {
		linked = append(linked, lc.Company.ID)
	}
	return User{
		ID:           customer.ID,
		Email:        customer.Email,
		FullName:     customer.Username,
		PhoneNumber:  customer.Phone,
		Points:       customer.TotalPoints,
		LinkedBrands: linked,
		CreatedAt:    customer.CreatedAt,
	}
}

func fromLoginUser(user backend.LoginUser, now time.Time) User {
	id := user.ID
	if id == "" {
		id = user.MongoID
	}
	name := user.Username
	if name == "" {
		name = user.FullName
	}
	createdAt := user.CreatedAt
	if createdAt == "" {
		createdAt = now.UTC().Format(time.RFC3339)
	}
	return User{
		ID:           id,
		Email:        user.Email,
		FullName:     name,
		PhoneNumber:  user.Phone,
		Points:       user.TotalPoints,
		LinkedBrands: []string{},
		CreatedAt:    createdAt,
	}
}

func (u User) apply(p Patch) User {
	if p.ID != nil {
		u.ID = *p.ID
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.PhoneNumber != nil {
		u.PhoneNumber = *p.PhoneNumber
	}
	if p.Points != nil {
		u.Points = *p.Points
	}
	if p.LinkedBrands != nil {
		u.LinkedBrands = append([]string(nil), p.LinkedBrands...)
	}
	if p.CreatedAt != nil {
		u.CreatedAt = *p.CreatedAt
	}
	return u
}

func (u User) HasBrand(brandID string) bool {
	for _, id := range u.LinkedBrands {
		if id == brandID {
			return true
		}
	}
	return false
}
