// Package dashboard builds the customer dashboard view models from backend
// records and the session user.
package dashboard

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"pointbox/customer-web/internal/backend"
)

const (
	TypeEarn   = "earn"
	TypeRedeem = "redeem"

	StatusCompleted = "completed"
)

type Transaction struct {
	ID            string  `json:"id"`
	UserID        string  `json:"userId,omitempty"`
	Type          string  `json:"type"`
	Points        float64 `json:"points"`
	RedeemPoints  float64 `json:"redeem_points"`
	Brand         string  `json:"brand"`
	BrandLogo     string  `json:"brandLogo,omitempty"`
	Description   string  `json:"description"`
	Date          string  `json:"date"`
	Status        string  `json:"status"`
	InvoiceNumber string  `json:"invoiceNumber,omitempty"`
	InvoiceImage  string  `json:"invoiceImage,omitempty"`
}

func Transactions(in []backend.Transaction) []Transaction {
	out := make([]Transaction, 0, len(in))
	for _, txn := range in {
		id := txn.TransactionID
		if id == "" {
			id = txn.MongoID
		}
		var userID string
		if !txn.Customer.Populated {
			userID = txn.Customer.ID
		}
		brand := txn.CompanyName
		if brand == "" && txn.Company.Populated {
			brand = txn.Company.CompanyName
		}
		var logo string
		if txn.Company.Populated {
			logo = txn.Company.CompanyLogo
		}
		description := txn.Notes
		if description == "" {
			verb := "Redeemed"
			if txn.Type == TypeEarn {
				verb = "Earned"
			}
			amount := txn.RedeemPoints
			if amount == 0 {
				amount = txn.Points
			}
			description = fmt.Sprintf("%s %s points", verb, formatPoints(amount))
		}
		out = append(out, Transaction{
			ID:            id,
			UserID:        userID,
			Type:          txn.Type,
			Points:        txn.Points,
			RedeemPoints:  txn.RedeemPoints,
			Brand:         brand,
			BrandLogo:     logo,
			Description:   description,
			Date:          txn.CreatedAt,
			Status:        StatusCompleted,
			InvoiceNumber: txn.InvoiceNumber,
			InvoiceImage:  txn.InvoiceImage,
		})
	}
	return out
}

// FilterTransactions keeps one type (all, earn or redeem) and then matches
// the search term against brand, description and id, case-insensitively.
func FilterTransactions(txns []Transaction, kind, search string) []Transaction {
	search = strings.ToLower(search)
	out := make([]Transaction, 0, len(txns))
	for _, txn := range txns {
		if kind != "" && kind != "all" && txn.Type != kind {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(txn.Brand), search) &&
			!strings.Contains(strings.ToLower(txn.Description), search) &&
			!strings.Contains(strings.ToLower(txn.ID), search) {
			continue
		}
		out = append(out, txn)
	}
	return out
}

// FindTransaction returns the transaction with id, for the invoice view.
func FindTransaction(txns []Transaction, id string) (Transaction, bool) {
	for _, txn := range txns {
		if txn.ID == id {
			return txn, true
		}
	}
	return Transaction{}, false
}

var csvHeader = []string{"Transaction ID", "Date", "Type", "Points", "Brand", "Description", "Status"}

// WriteCSV writes the export with every cell quoted. The points column is
// the redeemed amount, as in the dashboard export.
func WriteCSV(w io.Writer, txns []Transaction, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	rows := make([]string, 0, len(txns)+1)
	rows = append(rows, csvRow(csvHeader))
	for _, txn := range txns {
		rows = append(rows, csvRow([]string{
			txn.ID,
			formatDate(txn.Date, loc),
			txn.Type,
			formatPoints(txn.RedeemPoints),
			txn.Brand,
			txn.Description,
			txn.Status,
		}))
	}
	_, err := io.WriteString(w, strings.Join(rows, "\n"))
	return err
}

// CSVFilename names the export after the current UTC date.
func CSVFilename(now time.Time) string {
	return "transactions-" + now.UTC().Format("2006-01-02") + ".csv"
}

func csvRow(cells []string) string {
	quoted := make([]string, len(cells))
	for i, cell := range cells {
		quoted[i] = `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}

func formatDate(value string, loc *time.Location) string {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return value
	}
	return parsed.In(loc).Format("1/2/2006, 3:04:05 PM")
}

func formatPoints(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
