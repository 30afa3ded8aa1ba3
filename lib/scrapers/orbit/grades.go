package orbit

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Grade is one row of the grades grid.
type Grade struct {
	Name        string
	CreditUnits int
	ScoreText   string
	// "{page}_{row}", the re-navigation key GradeDistribution needs;
	// empty when the subject has no distribution link
	DistributionKey string
}

// GradeDistribution is the statistics popup behind a grade's
// distribution icon, chart included.
type GradeDistribution struct {
	Score             string
	Average           string
	StandardDeviation string
	Rank              string
	ChartImage        []byte
}

const gradesGridControl = "ctl00$ContentPlaceHolder1$gvGradesList"

var gradePagerRegex = regexp.MustCompile(`javascript:__doPostBack\(&#39;ctl00\$ContentPlaceHolder1\$gvGradesList&#39;,&#39;Page\$([1-9])&#39;\)`)
var gradeRowRegex = regexp.MustCompile(`(?s)<tr id="ContentPlaceHolder1_gvGradesList" class="GridRow">(.*?)</tr>`)
var cellRegex = regexp.MustCompile(`(?s)<td.*?>(.*?)</td>`)
var gradeScoreRegex = regexp.MustCompile(`(?s)>(.*?)</span>`)
var gradeDistributionRegex = regexp.MustCompile(`ctl00\$ContentPlaceHolder1\$gvGradesList\$GridRow([0-9]+?)\$imgShowGradeDistribution`)
var distributionTableRegex = regexp.MustCompile(`(?s)<span id="ContentPlaceHolder1_ucLessonGradeDistribution_lblStatData"><table>(.*?)</table>`)
var chartImageRegex = regexp.MustCompile(`src="([^"]*?ChartImg\.axd[^"]*?)"`)

// Grades scrapes every page of the grades grid, in page then row order.
func (c *Client) Grades(ctx context.Context) (Result[[]Grade], error) {
	return gated(ctx, c.ConnectOrbit, func(ctx context.Context, warnings []WarningKind) (Result[[]Grade], error) {
		ctx, span := tracer.Start(ctx, "Grades")
		defer span.End()

		gradesUrl := c.portalUrl(gradesPath)
		p, err := c.get(ctx, gradesUrl, nil)
		if err != nil {
			return Result[[]Grade]{}, err
		}
		if p.status != http.StatusOK {
			return failure[[]Grade](warnings, ErrScrapeMismatch), nil
		}

		// page 1 is the page we already hold, each pager trigger names
		// one more page we have to postback into
		lastPage := len(gradePagerRegex.FindAllString(p.text(), -1)) + 1
		span.SetAttributes(attribute.Int("pages", lastPage))

		var grades []Grade
		for pageNo := 1; ; pageNo++ {
			pageGrades, err := gradesFromPage(p.text(), pageNo)
			if err != nil {
				return failure[[]Grade](warnings, ErrScrapeMismatch), nil
			}
			grades = append(grades, pageGrades...)
			if pageNo == lastPage {
				break
			}

			form := ExtractHiddenFields(p.text(), c.cred.ActiveYear)
			form[eventTargetField] = gradesGridControl
			form[eventArgumentField] = fmt.Sprintf("Page$%d", pageNo+1)
			p, err = c.post(ctx, gradesUrl, form, nil, nil)
			if err != nil {
				return Result[[]Grade]{}, err
			}
			if p.status != http.StatusOK {
				return failure[[]Grade](warnings, ErrScrapeMismatch), nil
			}
		}

		return success(grades, warnings), nil
	})
}

func gradesFromPage(pageText string, pageNumber int) ([]Grade, error) {
	var out []Grade
	for _, row := range gradeRowRegex.FindAllStringSubmatch(pageText, -1) {
		cells := cellRegex.FindAllStringSubmatch(row[1], -1)
		if len(cells) < 7 {
			return nil, fmt.Errorf("grade row has %d cells", len(cells))
		}

		units, err := strconv.Atoi(strings.TrimSpace(cells[4][1]))
		if err != nil {
			return nil, fmt.Errorf("credit units: %w", err)
		}

		score := gradeScoreRegex.FindStringSubmatch(cells[6][1])
		if score == nil {
			return nil, fmt.Errorf("score cell has no span")
		}

		key := ""
		if m := gradeDistributionRegex.FindStringSubmatch(cells[6][1]); m != nil {
			key = fmt.Sprintf("%d_%s", pageNumber, m[1])
		}

		out = append(out, Grade{
			Name:            html.UnescapeString(cells[1][1]),
			CreditUnits:     units,
			ScoreText:       score[1],
			DistributionKey: key,
		})
	}
	return out, nil
}

// GradeDistribution re-navigates to the page encoded in key and clicks
// the row's distribution icon. key comes from Grade.DistributionKey.
func (c *Client) GradeDistribution(ctx context.Context, key string) (Result[GradeDistribution], error) {
	return gated(ctx, c.ConnectOrbit, func(ctx context.Context, warnings []WarningKind) (Result[GradeDistribution], error) {
		ctx, span := tracer.Start(ctx, "GradeDistribution")
		defer span.End()
		span.SetAttributes(attribute.String("key", key))

		pageNo, rowNo, found := strings.Cut(key, "_")
		if !found {
			return failure[GradeDistribution](warnings, ErrScrapeMismatch), nil
		}

		gradesUrl := c.portalUrl(gradesPath)
		p, err := c.get(ctx, gradesUrl, nil)
		if err != nil {
			return Result[GradeDistribution]{}, err
		}
		if p.status != http.StatusOK {
			return failure[GradeDistribution](warnings, ErrScrapeMismatch), nil
		}

		form := ExtractHiddenFields(p.text(), c.cred.ActiveYear)
		form[eventTargetField] = gradesGridControl
		form[eventArgumentField] = "Page$" + pageNo
		p, err = c.post(ctx, gradesUrl, form, nil, nil)
		if err != nil {
			return Result[GradeDistribution]{}, err
		}
		if p.status != http.StatusOK {
			return failure[GradeDistribution](warnings, ErrScrapeMismatch), nil
		}

		// image buttons submit coordinates, the grid only reacts to the
		// synthetic click when both are present
		control := fmt.Sprintf("%s$GridRow%s$imgShowGradeDistribution", gradesGridControl, rowNo)
		form = ExtractHiddenFields(p.text(), c.cred.ActiveYear)
		form[control+".x"] = "1"
		form[control+".y"] = "1"
		p, err = c.post(ctx, gradesUrl, form, nil, nil)
		if err != nil {
			return Result[GradeDistribution]{}, err
		}
		if p.status != http.StatusOK {
			return failure[GradeDistribution](warnings, ErrScrapeMismatch), nil
		}

		table := distributionTableRegex.FindStringSubmatch(p.text())
		if table == nil {
			return failure[GradeDistribution](warnings, ErrScrapeMismatch), nil
		}
		cells := cellRegex.FindAllStringSubmatch(table[1], -1)
		if len(cells) < 8 {
			return failure[GradeDistribution](warnings, ErrScrapeMismatch), nil
		}

		img := chartImageRegex.FindStringSubmatch(p.text())
		if img == nil {
			return failure[GradeDistribution](warnings, ErrScrapeMismatch), nil
		}
		ref, err := url.Parse(html.UnescapeString(img[1]))
		if err != nil {
			return Result[GradeDistribution]{}, err
		}
		chart, err := c.get(ctx, c.portal.ResolveReference(ref).String(), nil)
		if err != nil {
			return Result[GradeDistribution]{}, err
		}
		if chart.status != http.StatusOK {
			return failure[GradeDistribution](warnings, ErrScrapeMismatch), nil
		}

		return success(GradeDistribution{
			Score:             cells[1][1],
			Average:           cells[3][1],
			StandardDeviation: cells[5][1],
			Rank:              cells[7][1],
			ChartImage:        chart.body,
		}, warnings), nil
	})
}
