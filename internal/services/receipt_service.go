package services

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf/v2"

	"wingo-backend/internal/models"
	"wingo-backend/internal/timeutil"
)

// ReceiptService renders order receipts as PDF
type ReceiptService struct {
	clock timeutil.Clock
}

func NewReceiptService() *ReceiptService {
	return &ReceiptService{clock: timeutil.Now}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// Render writes a one page A4 receipt for order to w
func (s *ReceiptService) Render(w io.Writer, order *models.Order) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, "Wingo - Order Receipt", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Generated: %s", timeutil.FormatIST(s.clock(), timeutil.DisplayLayout)), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Order Information", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(95, 7, fmt.Sprintf("Order: %s", order.ID), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Placed: %s", timeutil.FormatIST(order.CreatedAt, timeutil.DisplayLayout)), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Status: %s", order.Status), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Payment: %s (%s)", order.Payment.Method, order.Payment.Status), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(190, 7, "Pickup: "+truncate(order.Pickup.Address, 90), "LRB", 1, "L", false, 0, "")
	pdf.CellFormat(190, 7, "Dropoff: "+truncate(order.Dropoff.Address, 90), "LRB", 1, "L", false, 0, "")
	pdf.Ln(5)

	// Items table
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(80, 7, "Item", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Category", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 7, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Price", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Amount", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, item := range order.Items {
		pdf.CellFormat(80, 6, truncate(item.Name, 40), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, string(item.Category), "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", item.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("Rs. %.2f", item.Price), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("Rs. %.2f", item.Price*float64(item.Quantity)), "1", 1, "R", false, 0, "")
	}

	if order.Payment.Status == models.PaymentStatusCompleted {
		pdf.SetFillColor(200, 255, 200)
	} else {
		pdf.SetFillColor(255, 230, 200)
	}
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(160, 9, "Total", "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, 9, fmt.Sprintf("Rs. %.2f", order.Payment.Amount), "1", 1, "R", true, 0, "")

	if order.Payment.TransactionID != nil {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(190, 6, "Transaction: "+*order.Payment.TransactionID, "", 1, "L", false, 0, "")
	}

	return pdf.Output(w)
}
