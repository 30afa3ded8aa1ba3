package orbit

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"

	"orbitbot/lib/htmlutil"
)

// Document identifies one generatable certificate. The values are the
// portal's own grid row indices, which is why they are not contiguous.
type Document int

const (
	DocStudentPermitEnglish Document = 0
	DocStudentPermit        Document = 1
	DocTuitionFees          Document = 2
	DocRegistrationApproval Document = 3
	DocGradeSheetEnglish    Document = 4
	DocGradeSheet           Document = 5
	DocEnglishLevel         Document = 13
)

var documentLabels = map[Document]string{
	DocStudentPermitEnglish: "v12 אישור לימודים באנגלית לסטודנט",
	DocStudentPermit:        "V45- אישור לימודים מפורט",
	DocTuitionFees:          "אישור גובה שכר לימוד",
	DocRegistrationApproval: "אישור הרשמה",
	DocGradeSheetEnglish:    "גליון ציונים באנגלית",
	DocGradeSheet:           "גליון ציונים",
	DocEnglishLevel:         "רמת אנגלית",
}

var documentFilenames = map[Document]string{
	DocStudentPermitEnglish: "student_permit_english.pdf",
	DocStudentPermit:        "student_permit.pdf",
	DocTuitionFees:          "tuition_fees.pdf",
	DocRegistrationApproval: "registration_approval.pdf",
	DocGradeSheetEnglish:    "grade_sheet_english.pdf",
	DocGradeSheet:           "grade_sheet.pdf",
	DocEnglishLevel:         "english_level.pdf",
}

func (d Document) Label() string {
	if label, ok := documentLabels[d]; ok {
		return label
	}
	return "unknown"
}

func (d Document) Filename() string {
	if name, ok := documentFilenames[d]; ok {
		return name
	}
	return "document.pdf"
}

const (
	documentsGridPrefix     = "ctl00$ContentPlaceHolder1$gvDocuments"
	documentDivisionControl = "ctl00$ContentPlaceHolder1$cmbDivision"
)

// Document downloads the generated PDF of the given certificate.
func (c *Client) Document(ctx context.Context, doc Document) (Result[[]byte], error) {
	return gated(ctx, c.ConnectOrbit, func(ctx context.Context, warnings []WarningKind) (Result[[]byte], error) {
		ctx, span := tracer.Start(ctx, "Document")
		defer span.End()
		span.SetAttributes(attribute.Int("document", int(doc)))

		documentsUrl := c.portalUrl(documentsPath)
		p, err := c.get(ctx, documentsUrl, nil)
		if err != nil {
			return Result[[]byte]{}, err
		}
		if p.status != http.StatusOK {
			return failure[[]byte](warnings, ErrScrapeMismatch), nil
		}

		control := rowControl(documentsGridPrefix, int(doc), "ibDownloadDocument")
		if !strings.Contains(p.text(), control) {
			return failure[[]byte](warnings, ErrScrapeMismatch), nil
		}

		form := ExtractHiddenFields(p.text(), c.cred.ActiveYear)
		form[documentDivisionControl] = "1"
		form[control+".x"] = "1"
		form[control+".y"] = "1"
		pdf, err := c.post(ctx, documentsUrl, form, nil, nil)
		if err != nil {
			return Result[[]byte]{}, err
		}
		if pdf.status != http.StatusOK {
			return failure[[]byte](warnings, ErrScrapeMismatch), nil
		}
		return success(pdf.body, warnings), nil
	})
}

// ListDocuments lists the certificates the portal currently offers, in
// grid order.
func (c *Client) ListDocuments(ctx context.Context) (Result[[]string], error) {
	return gated(ctx, c.ConnectOrbit, func(ctx context.Context, warnings []WarningKind) (Result[[]string], error) {
		ctx, span := tracer.Start(ctx, "ListDocuments")
		defer span.End()

		p, err := c.get(ctx, c.portalUrl(documentsPath), nil)
		if err != nil {
			return Result[[]string]{}, err
		}
		if p.status != http.StatusOK {
			return failure[[]string](warnings, ErrScrapeMismatch), nil
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.body))
		if err != nil {
			return Result[[]string]{}, err
		}

		var names []string
		doc.Find("table.GridView tr").Each(func(i int, row *goquery.Selection) {
			if i == 0 {
				// header row
				return
			}
			cells := row.Find("td")
			if cells.Length() < 2 {
				return
			}
			name := htmlutil.CleanText(htmlutil.GetText(cells.Get(1)))
			if name != "" {
				names = append(names, name)
			}
		})
		if len(names) == 0 {
			return failure[[]string](warnings, ErrScrapeMismatch), nil
		}
		return success(names, warnings), nil
	})
}
