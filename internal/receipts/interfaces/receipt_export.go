package interfaces

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	receipts "homevault/internal/receipts/domain"
)

// BuildReceiptsPDF renders a minimal PDF receipt history for an account.
func BuildReceiptsPDF(accountID string, list []receipts.Receipt) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Payment Receipts")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Account: %s", accountID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Receipts: %d", len(list)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(35, 6, "Paid At", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Provider", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Asset", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Spent", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Paid", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, receipt := range list {
		pdf.CellFormat(35, 6, receipt.PaidAt.Format("2006-01-02"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, receipt.ProviderID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, receipt.AssetUsed, "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, receipt.AmountSpent.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, receipt.AmountPaid.String(), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildReceiptsXLSX renders a minimal XLSX receipt history for an account.
func BuildReceiptsXLSX(accountID string, list []receipts.Receipt) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "receipts"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", "Account")
	_ = f.SetCellValue(sheet, "B1", accountID)

	_ = f.SetCellValue(sheet, "A3", "Paid At")
	_ = f.SetCellValue(sheet, "B3", "Provider")
	_ = f.SetCellValue(sheet, "C3", "Asset")
	_ = f.SetCellValue(sheet, "D3", "Spent")
	_ = f.SetCellValue(sheet, "E3", "Paid")
	_ = f.SetCellValue(sheet, "F3", "Direct")
	for i, receipt := range list {
		row := i + 4
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), receipt.PaidAt.Format(time.RFC3339))
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), receipt.ProviderID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), receipt.AssetUsed)
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), receipt.AmountSpent.String())
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), receipt.AmountPaid.String())
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), receipt.Direct)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildReceiptsCSV renders the receipt history as CSV.
func BuildReceiptsCSV(list []receipts.Receipt) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"paid_at", "provider_id", "asset_used", "amount_spent", "amount_paid", "direct"}); err != nil {
		return nil, err
	}
	for _, receipt := range list {
		record := []string{
			receipt.PaidAt.Format(time.RFC3339),
			receipt.ProviderID,
			receipt.AssetUsed,
			receipt.AmountSpent.String(),
			receipt.AmountPaid.String(),
			fmt.Sprintf("%t", receipt.Direct),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
