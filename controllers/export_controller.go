package controllers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"github.com/tealeg/xlsx"

	"github.com/tripplekay/KayCutts/models"
	"github.com/tripplekay/KayCutts/utils"
)

// reportWindow resolves a period query value into an inclusive date range.
func reportWindow(period string, now time.Time) (time.Time, time.Time, bool) {
	switch period {
	case "day":
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		end := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 999999999, now.Location())
		return start, end, true
	case "week":
		end := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 999999999, now.Location())
		start := end.AddDate(0, 0, -6)
		start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
		return start, end, true
	case "month":
		return now.AddDate(0, 0, -30).Truncate(24 * time.Hour), now.Add(24 * time.Hour), true
	default:
		return time.Time{}, time.Time{}, false
	}
}

type bookingsSummary struct {
	TotalBookings int
	PaidBookings  int
	TotalRevenue  int
	MpesaPayments int
	CardPayments  int
}

func bookingsInWindow(start, end time.Time) ([]models.Booking, bookingsSummary, error) {
	all, err := deps.Store.List()
	if err != nil {
		return nil, bookingsSummary{}, err
	}

	var bookings []models.Booking
	var summary bookingsSummary
	for _, b := range all {
		if b.CreatedAt.Before(start) || b.CreatedAt.After(end) {
			continue
		}
		bookings = append(bookings, b)
		summary.TotalBookings++
		if b.Paid() {
			summary.PaidBookings++
			summary.TotalRevenue += b.Price
			switch b.PaymentMethod {
			case models.PaymentMethodMpesa:
				summary.MpesaPayments++
			case models.PaymentMethodCard:
				summary.CardPayments++
			}
		}
	}
	return bookings, summary, nil
}

// Admin: Download bookings report as Excel
func DownloadBookingsReportExcel(c *gin.Context) {
	utils.LogInfo("DownloadBookingsReportExcel called")

	period := c.DefaultQuery("period", "day")
	utils.LogDebug("Generating Excel report for period: %s", period)

	startDate, endDate, ok := reportWindow(period, time.Now())
	if !ok {
		utils.LogError("Invalid period specified: %s", period)
		utils.BadRequest(c, "Invalid period", "Period must be day, week, or month")
		return
	}

	bookings, summary, err := bookingsInWindow(startDate, endDate)
	if err != nil {
		utils.LogError("Failed to fetch bookings: %v", err)
		utils.InternalServerError(c, "Failed to fetch bookings", err.Error())
		return
	}
	utils.LogDebug("Retrieved %d bookings for Excel report", len(bookings))

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Bookings Report")
	if err != nil {
		utils.LogError("Failed to create Excel sheet: %v", err)
		utils.InternalServerError(c, "Failed to create Excel sheet", err.Error())
		return
	}

	// Shop details
	shopRow := sheet.AddRow()
	shopRow.AddCell().SetString("TRIPPLE KAY CUTS - Bookings Report")
	shopRow = sheet.AddRow()
	shopRow.AddCell().SetString("Nairobi, Kenya")
	shopRow = sheet.AddRow()
	shopRow.AddCell().SetString("Email: bookings@tripplekaycuts.co.ke")
	shopRow = sheet.AddRow()
	shopRow.AddCell().SetString("Period: " + strings.ToUpper(period) + " | " + startDate.Format("2006-01-02") + " to " + endDate.Format("2006-01-02"))
	sheet.AddRow() // spacing

	// Table headers
	headers := []string{"Order ID", "Customer", "Phone", "Service", "Date", "Time", "Price (KES)", "Payment Method", "Status", "Receipt"}
	headerRow := sheet.AddRow()
	for _, h := range headers {
		cell := headerRow.AddCell()
		cell.SetString(h)
		style := xlsx.NewStyle()
		font := xlsx.DefaultFont()
		font.Bold = true
		style.Font = *font
		cell.SetStyle(style)
	}

	// Table rows
	for _, b := range bookings {
		row := sheet.AddRow()
		row.AddCell().SetString(b.OrderID)
		row.AddCell().SetString(b.Name)
		row.AddCell().SetString(b.Phone)
		row.AddCell().SetString(b.ServiceName)
		row.AddCell().SetString(b.Date)
		row.AddCell().SetString(b.Time)
		row.AddCell().SetInt(b.Price)
		row.AddCell().SetString(b.PaymentMethod)
		row.AddCell().SetString(b.PaymentStatus)
		row.AddCell().SetString(b.MpesaTransactionCode)
	}

	sheet.AddRow() // spacing

	summaryRow := sheet.AddRow()
	summaryRow.AddCell().SetString("Summary")
	style := xlsx.NewStyle()
	font := xlsx.DefaultFont()
	font.Bold = true
	style.Font = *font
	summaryRow.Cells[0].SetStyle(style)

	summaryData := [][]string{
		{"Total Bookings", fmt.Sprintf("%d", summary.TotalBookings)},
		{"Paid Bookings", fmt.Sprintf("%d", summary.PaidBookings)},
		{"Total Revenue (KES)", fmt.Sprintf("%d", summary.TotalRevenue)},
		{"M-Pesa Payments", fmt.Sprintf("%d", summary.MpesaPayments)},
		{"Card Payments", fmt.Sprintf("%d", summary.CardPayments)},
	}
	for _, data := range summaryData {
		row := sheet.AddRow()
		row.AddCell().SetString(data[0])
		row.AddCell().SetString(data[1])
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=bookings_report_%s.xlsx", period))
	if err := file.Write(c.Writer); err != nil {
		utils.LogError("Failed to write Excel file: %v", err)
		utils.InternalServerError(c, "Failed to write Excel file", err.Error())
		return
	}
	utils.LogInfo("Successfully generated Excel report for period %s", period)
}

// Admin: Download bookings report as PDF
func DownloadBookingsReportPDF(c *gin.Context) {
	utils.LogInfo("DownloadBookingsReportPDF called")

	period := c.DefaultQuery("period", "day")
	utils.LogDebug("Generating PDF report for period: %s", period)

	startDate, endDate, ok := reportWindow(period, time.Now())
	if !ok {
		utils.LogError("Invalid period specified: %s", period)
		utils.BadRequest(c, "Invalid period", "Period must be day, week, or month")
		return
	}

	bookings, summary, err := bookingsInWindow(startDate, endDate)
	if err != nil {
		utils.LogError("Failed to fetch bookings: %v", err)
		utils.InternalServerError(c, "Failed to fetch bookings", err.Error())
		return
	}
	utils.LogDebug("Retrieved %d bookings for PDF report", len(bookings))

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 20)
	pdf.Cell(0, 12, "TRIPPLE KAY CUTS - Bookings Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 8, "Barbershop & Grooming")
	pdf.Ln(6)
	pdf.Cell(0, 8, "Period: "+strings.ToUpper(period)+" | "+startDate.Format("2006-01-02")+" to "+endDate.Format("2006-01-02"))
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 8, "Nairobi, Kenya")
	pdf.Ln(6)
	pdf.Cell(0, 8, "Email: bookings@tripplekaycuts.co.ke")
	pdf.Ln(10)

	headers := []string{"Order ID", "Customer", "Phone", "Service", "Date", "Time", "Price", "Method", "Status", "Receipt"}
	colWidths := []float64{42, 32, 28, 34, 22, 16, 18, 20, 18, 30}
	pdf.SetFont("Arial", "B", 11)
	for i, h := range headers {
		pdf.SetFillColor(200, 200, 200)
		pdf.CellFormat(colWidths[i], 9, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	fill := false
	for _, b := range bookings {
		pdf.SetFillColor(245, 245, 245)
		if fill {
			pdf.SetFillColor(230, 240, 255)
		}
		fill = !fill
		pdf.CellFormat(colWidths[0], 8, b.OrderID, "1", 0, "L", fill, 0, "")
		pdf.CellFormat(colWidths[1], 8, b.Name, "1", 0, "L", fill, 0, "")
		pdf.CellFormat(colWidths[2], 8, b.Phone, "1", 0, "C", fill, 0, "")
		pdf.CellFormat(colWidths[3], 8, b.ServiceName, "1", 0, "L", fill, 0, "")
		pdf.CellFormat(colWidths[4], 8, b.Date, "1", 0, "C", fill, 0, "")
		pdf.CellFormat(colWidths[5], 8, b.Time, "1", 0, "C", fill, 0, "")
		pdf.CellFormat(colWidths[6], 8, fmt.Sprintf("%d", b.Price), "1", 0, "R", fill, 0, "")
		pdf.CellFormat(colWidths[7], 8, b.PaymentMethod, "1", 0, "C", fill, 0, "")
		pdf.CellFormat(colWidths[8], 8, b.PaymentStatus, "1", 0, "C", fill, 0, "")
		pdf.CellFormat(colWidths[9], 8, b.MpesaTransactionCode, "1", 0, "C", fill, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(8)
	pdf.SetFont("Arial", "B", 13)
	pdf.SetFillColor(220, 230, 250)
	pdf.CellFormat(70, 10, "Summary", "1", 0, "C", true, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 11)
	pdf.SetFillColor(255, 255, 255)
	pdf.CellFormat(50, 8, "Total Bookings", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, fmt.Sprintf("%d", summary.TotalBookings), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)
	pdf.CellFormat(50, 8, "Paid Bookings", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, fmt.Sprintf("%d", summary.PaidBookings), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)
	pdf.CellFormat(50, 8, "Total Revenue (KES)", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, fmt.Sprintf("%d", summary.TotalRevenue), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)
	pdf.CellFormat(50, 8, "M-Pesa Payments", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, fmt.Sprintf("%d", summary.MpesaPayments), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)
	pdf.CellFormat(50, 8, "Card Payments", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, fmt.Sprintf("%d", summary.CardPayments), "1", 0, "R", false, 0, "")

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=bookings_report_%s.pdf", period))
	if err := pdf.Output(c.Writer); err != nil {
		utils.LogError("Failed to write PDF file: %v", err)
		utils.InternalServerError(c, "Failed to write PDF file", err.Error())
		return
	}
	utils.LogInfo("Successfully generated PDF report for period %s", period)
}
