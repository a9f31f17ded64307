package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// TicketData holds what gets printed on an attendee's ticket.
type TicketData struct {
	RegistrationID string
	EventTitle     string
	StartTime      *time.Time
	EndTime        *time.Time
	Location       string
	TicketType     string
	Price          float64
	AttendeeName   string
	AttendeeEmail  string
	QRCodePNG      []byte
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func eventTimeLines(start, end *time.Time) (string, string) {
	if start == nil {
		return "Date to be announced", ""
	}
	date := start.Format("January 2, 2006")
	if end == nil {
		return date, start.Format("3:04PM")
	}
	if end.Format("2006-01-02") != start.Format("2006-01-02") {
		return date, fmt.Sprintf("until %s", end.Format("January 2, 2006 3:04PM"))
	}
	return date, fmt.Sprintf("%s - %s", start.Format("3:04PM"), end.Format("3:04PM"))
}

// GenerateTicketPDF renders a single A4 ticket with the QR code on top.
func GenerateTicketPDF(data TicketData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(data.EventTitle, true)
	pdf.AddPage()

	if len(data.QRCodePNG) > 0 {
		imgOpts := gofpdf.ImageOptions{ImageType: "PNG"}
		imgName := fmt.Sprintf("qr_%s", data.RegistrationID)
		pdf.RegisterImageOptionsReader(imgName, imgOpts, bytes.NewReader(data.QRCodePNG))

		qrX := (210.0 - 100.0) / 2
		pdf.ImageOptions(imgName, qrX, pdf.GetY(), 100, 100, false, imgOpts, 0, "")
		pdf.Ln(102)
	}
	pdf.Ln(5)

	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.5)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.Ln(8)

	// event title left, schedule right
	currentY := pdf.GetY()
	pdf.SetFont("Arial", "B", 20)
	pdf.SetXY(20, currentY)
	pdf.MultiCell(85, 9, tr(truncate(data.EventTitle, 40)), "", "L", false)

	date, hours := eventTimeLines(data.StartTime, data.EndTime)
	pdf.SetFont("Arial", "", 14)
	pdf.SetXY(115, currentY)
	pdf.CellFormat(75, 7, "Event Time:", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "B", 14)
	pdf.SetX(115)
	pdf.CellFormat(75, 6, date, "", 1, "L", false, 0, "")
	if hours != "" {
		pdf.SetX(115)
		pdf.CellFormat(75, 6, hours, "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	// attendee left, location right
	currentY = pdf.GetY()
	pdf.SetFont("Arial", "", 14)
	pdf.SetXY(20, currentY)
	pdf.CellFormat(85, 7, "GUEST:", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "B", 16)
	pdf.SetX(20)
	pdf.MultiCell(85, 8, tr(truncate(data.AttendeeName, 30)), "", "L", false)
	if data.AttendeeEmail != "" {
		pdf.SetFont("Arial", "", 11)
		pdf.SetX(20)
		pdf.CellFormat(85, 6, tr(data.AttendeeEmail), "", 1, "L", false, 0, "")
	}

	location := data.Location
	if location == "" {
		location = "Online"
	}
	pdf.SetFont("Arial", "", 14)
	pdf.SetXY(115, currentY)
	pdf.CellFormat(75, 7, "Location:", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "B", 14)
	pdf.SetX(115)
	pdf.MultiCell(75, 6, tr(truncate(location, 60)), "", "L", false)
	pdf.Ln(4)

	if data.TicketType != "" {
		pdf.SetFont("Arial", "", 16)
		pdf.SetX(20)
		pdf.CellFormat(40, 11, "Ticket type:", "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "B", 18)
		pdf.CellFormat(45, 11, tr(data.TicketType), "", 1, "L", false, 0, "")

		pdf.SetFont("Arial", "", 16)
		pdf.SetX(20)
		pdf.CellFormat(40, 11, "Price:", "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "B", 18)
		price := "Free"
		if data.Price > 0 {
			price = fmt.Sprintf("$%.2f", data.Price)
		}
		pdf.CellFormat(45, 11, price, "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "I", 12)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 9, fmt.Sprintf("Registration: %s", data.RegistrationID), "0", 1, "C", false, 0, "")
	pdf.Ln(3)
	pdf.SetFont("Arial", "", 12)
	pdf.MultiCell(0, 6, "Bring this ticket (PDF or screenshot) to the event.\nStaff will scan the QR code at the entrance.", "0", "C", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}
