package export

import (
	"fmt"
	"io"

	"propdesk/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	SheetBookings     = "Bookings"
	SheetTransactions = "Transactions"

	dateLayout = "2006-01-02 15:04"
)

var (
	bookingHeaders     = []string{"Booking ID", "Customer ID", "Customer", "Unit", "Payment Plan", "Payment Method", "BSP", "Status", "Queue", "Reason", "Created", "Updated"}
	transactionHeaders = []string{"ID", "Booking ID", "Customer", "Payment Method", "Reference", "Amount", "Status", "Date"}
)

// WriteLedger renders bookings and transactions as an xlsx workbook.
func WriteLedger(w io.Writer, bookings []*models.Booking, txs []*models.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return fmt.Errorf("error creating style: %w", err)
	}

	index, err := f.NewSheet(SheetBookings)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := writeRow(f, SheetBookings, 1, toAny(bookingHeaders)); err != nil {
		return err
	}
	for i, b := range bookings {
		row := []interface{}{
			b.ID, b.CustomerID, b.CustomerName, b.PropertyUnit, b.PaymentPlan, b.PaymentMethod,
			b.BSP, b.Status, string(b.ForwardedTo), b.Reason,
			b.CreatedAt.Format(dateLayout), b.UpdatedAt.Format(dateLayout),
		}
		if err := writeRow(f, SheetBookings, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(SheetTransactions); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	if err := writeRow(f, SheetTransactions, 1, toAny(transactionHeaders)); err != nil {
		return err
	}
	for i, tx := range txs {
		row := []interface{}{
			tx.ID, tx.BookingID, tx.CustomerName, tx.PaymentMethod, tx.TransactionID,
			tx.Amount, tx.Status, tx.Date.Format(dateLayout),
		}
		if err := writeRow(f, SheetTransactions, i+2, row); err != nil {
			return err
		}
	}

	for sheet, cols := range map[string]int{SheetBookings: len(bookingHeaders), SheetTransactions: len(transactionHeaders)} {
		last, _ := excelize.ColumnNumberToName(cols)
		_ = f.SetCellStyle(sheet, "A1", last+"1", headerStyle)
		_ = f.SetColWidth(sheet, "A", last, 18)
	}

	_ = f.DeleteSheet("Sheet1")

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("error writing %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toAny(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
