package invoice

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockline/stockline-backend/internal/billing/repository"
)

// Line is one rendered invoice position
type Line struct {
	ItemName   string
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
}

// Renderer produces an invoice artifact for a posted bill and returns its
// path. Rendering runs inside the posting transaction; a failure aborts the
// post.
type Renderer interface {
	Render(bill *repository.BillingDocument, lines []Line) (string, error)
}

// TextRenderer writes plain-text invoices into a directory
type TextRenderer struct {
	outputDir string
}

// NewTextRenderer creates a text renderer writing into outputDir
func NewTextRenderer(outputDir string) *TextRenderer {
	return &TextRenderer{outputDir: outputDir}
}

// Render writes <outputDir>/<bill_number>.txt
func (r *TextRenderer) Render(bill *repository.BillingDocument, lines []Line) (string, error) {
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create invoice directory: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INVOICE %s\n", bill.BillNumber)
	fmt.Fprintf(&b, "Type:      %s\n", bill.BillingType)
	fmt.Fprintf(&b, "Warehouse: %s\n", bill.WarehouseID)
	fmt.Fprintf(&b, "Date:      %s\n", time.Now().UTC().Format("2006-01-02"))
	b.WriteString(strings.Repeat("-", 72) + "\n")
	fmt.Fprintf(&b, "%-40s %10s %10s %10s\n", "Item", "Qty", "Price", "Total")
	b.WriteString(strings.Repeat("-", 72) + "\n")

	total := decimal.Zero
	for _, line := range lines {
		fmt.Fprintf(&b, "%-40s %10s %10s %10s\n",
			truncate(line.ItemName, 40),
			line.Quantity.String(),
			line.UnitPrice.StringFixed(2),
			line.TotalPrice.StringFixed(2),
		)
		total = total.Add(line.TotalPrice)
	}

	b.WriteString(strings.Repeat("-", 72) + "\n")
	fmt.Fprintf(&b, "%-40s %32s\n", "TOTAL", total.StringFixed(2))

	path := filepath.Join(r.outputDir, bill.BillNumber+".txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write invoice file: %w", err)
	}
	return path, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
