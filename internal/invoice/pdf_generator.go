package invoice

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"gymdesk/membership-app/internal/storage"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
)

// Color scheme shared by all invoice documents.
var (
	colorHeader    = [3]int{30, 58, 95}    // Dark navy
	colorAccent    = [3]int{52, 152, 219}  // Bright blue
	colorTextMuted = [3]int{127, 140, 141} // Muted text
)

var purposeTitles = map[string]string{
	"initial_purchase":   "Membership Invoice",
	"membership_renewal": "Membership Renewal Invoice",
	"trainer_renewal":    "Personal Trainer Renewal Invoice",
}

// pdfGenerator renders invoices with fpdf and uploads them to object
// storage.
type pdfGenerator struct {
	files storage.FileStorage
}

// NewPDFGenerator creates an invoice generator backed by the given file
// storage.
func NewPDFGenerator(files storage.FileStorage) Generator {
	return &pdfGenerator{files: files}
}

// Generate renders the invoice PDF, uploads it and returns its reference
// with a presigned download URL.
func (g *pdfGenerator) Generate(ctx context.Context, req Request) (*Ref, error) {
	id := uuid.NewString()

	body, err := g.render(id, req)
	if err != nil {
		return nil, fmt.Errorf("render invoice: %w", err)
	}

	objectKey := fmt.Sprintf("invoices/%s/%s.pdf", req.MembershipID, id)
	if err := g.files.UploadObject(ctx, objectKey, "application/pdf", body); err != nil {
		return nil, fmt.Errorf("upload invoice: %w", err)
	}

	url, err := g.files.GeneratePresignedDownloadURL(ctx, objectKey, 24*time.Hour)
	if err != nil {
		// The invoice exists; a missing link is not worth failing over.
		url = ""
	}

	return &Ref{ID: id, ObjectKey: objectKey, URL: url}, nil
}

func (g *pdfGenerator) render(id string, req Request) ([]byte, error) {
	title, ok := purposeTitles[req.Purpose]
	if !ok {
		title = "Membership Invoice"
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	// Header band
	pdf.SetFillColor(colorHeader[0], colorHeader[1], colorHeader[2])
	pdf.Rect(0, 0, 210, 32, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetXY(20, 10)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")

	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetXY(20, 38)
	pdf.CellFormat(0, 5, fmt.Sprintf("Invoice %s", id), "", 1, "L", false, 0, "")
	pdf.SetX(20)
	pdf.CellFormat(0, 5, fmt.Sprintf("Issued %s", req.IssuedAt.Format("2006-01-02 15:04 MST")), "", 1, "L", false, 0, "")

	pdf.Ln(6)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 11)

	rows := [][2]string{
		{"Member", req.MemberName},
		{"Plan", req.PlanName},
		{"Membership", req.MembershipID},
		{"Payment", req.PaymentID},
		{"Approved by", req.ApprovedBy},
	}
	if req.AddonID != "" {
		rows = append(rows, [2]string{"Trainer addon", req.AddonID})
	}
	if req.AssignmentID != "" {
		rows = append(rows, [2]string{"Trainer assignment", req.AssignmentID})
	}
	for _, row := range rows {
		pdf.SetX(20)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(45, 8, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, row[1], "", 1, "L", false, 0, "")
	}

	pdf.Ln(8)
	pdf.SetX(20)
	pdf.SetFillColor(colorAccent[0], colorAccent[1], colorAccent[2])
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 12, fmt.Sprintf("  Amount due: %.2f", req.Amount), "", 1, "L", true, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
