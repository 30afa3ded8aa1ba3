package orbit

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func gradeRow(name string, units string, scoreCell string) string {
	return `<tr id="ContentPlaceHolder1_gvGradesList" class="GridRow">
<td>1</td><td>` + name + `</td><td>a</td><td>b</td><td>` + units + `</td><td>c</td>
<td>` + scoreCell + `</td>
</tr>`
}

const gradesPager = `<a href="javascript:__doPostBack(&#39;ctl00$ContentPlaceHolder1$gvGradesList&#39;,&#39;Page$2&#39;)">2</a>`

func TestGrades(t *testing.T) {
	portal := newFakeUpstream(t)
	portal.servePortal()

	page1 := hiddenBlock + gradesPager +
		gradeRow("&#1488;&#1500;&#1490;&#1489;&#1512;&#1492;", "4", `<span>95</span>`) +
		gradeRow("Physics", "3", `<span>88</span><input name="ctl00$ContentPlaceHolder1$gvGradesList$GridRow1$imgShowGradeDistribution" />`)
	page2 := hiddenBlock +
		gradeRow("Chemistry", "2", `<span></span>`)

	portal.handle("/StudentGradesList.aspx", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.PostFormValue("__EVENTARGUMENT") == "Page$2" {
			require.Equal(t, "ctl00$ContentPlaceHolder1$gvGradesList", r.PostFormValue("__EVENTTARGET"))
			io.WriteString(w, page2)
			return
		}
		io.WriteString(w, page1)
	})
	client := newTestClient(t, portal, nil, Credential{})

	res, err := client.Grades(context.Background())
	require.NoError(t, err)
	require.True(t, res.Ok())

	require.Equal(t, []Grade{
		{Name: "אלגברה", CreditUnits: 4, ScoreText: "95"},
		{Name: "Physics", CreditUnits: 3, ScoreText: "88", DistributionKey: "1_1"},
		{Name: "Chemistry", CreditUnits: 2, ScoreText: ""},
	}, res.Value)

	// one GET for the first page, one postback per page beyond it
	require.Equal(t, 1, portal.count("GET", "/StudentGradesList.aspx"))
	require.Equal(t, 1, portal.count("POST", "/StudentGradesList.aspx"))
}

func TestGradesMalformedUnits(t *testing.T) {
	portal := newFakeUpstream(t)
	portal.servePortal()
	portal.handle("/StudentGradesList.aspx", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, hiddenBlock+gradeRow("Algebra", "not a number", `<span>95</span>`))
	})
	client := newTestClient(t, portal, nil, Credential{})

	res, err := client.Grades(context.Background())
	require.NoError(t, err)
	require.Equal(t, ErrScrapeMismatch, res.Error)
}

func TestGradesRequiresLogin(t *testing.T) {
	portal := newFakeUpstream(t)
	portal.servePortal()
	client := newTestClient(t, portal, nil, Credential{Identity: testUsername, Secret: "wrong"})

	res, err := client.Grades(context.Background())
	require.NoError(t, err)
	require.Equal(t, ErrWrongCredentials, res.Error)
	require.Equal(t, 0, portal.count("GET", "/StudentGradesList.aspx"))
}

func TestGradeDistribution(t *testing.T) {
	portal := newFakeUpstream(t)
	portal.servePortal()

	statBlock := `<span id="ContentPlaceHolder1_ucLessonGradeDistribution_lblStatData"><table>
<td>Score</td><td>95</td><td>Average</td><td>82.3</td>
<td>StdDev</td><td>7.1</td><td>Rank</td><td>4/120</td>
</table></span><img src="/ChartImg.axd?i=chart1" />`

	portal.handle("/StudentGradesList.aspx", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.PostFormValue("ctl00$ContentPlaceHolder1$gvGradesList$GridRow0$imgShowGradeDistribution.x") == "1" {
			io.WriteString(w, hiddenBlock+statBlock)
			return
		}
		io.WriteString(w, hiddenBlock+gradeRow("Algebra", "4", `<span>95</span>`))
	})
	portal.handle("/ChartImg.axd", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte{0x89, 'P', 'N', 'G'})
	})
	client := newTestClient(t, portal, nil, Credential{})

	res, err := client.GradeDistribution(context.Background(), "1_0")
	require.NoError(t, err)
	require.True(t, res.Ok())
	require.Equal(t, "95", res.Value.Score)
	require.Equal(t, "82.3", res.Value.Average)
	require.Equal(t, "7.1", res.Value.StandardDeviation)
	require.Equal(t, "4/120", res.Value.Rank)
	require.Equal(t, []byte{0x89, 'P', 'N', 'G'}, res.Value.ChartImage)
}

func TestGradeDistributionBadKey(t *testing.T) {
	portal := newFakeUpstream(t)
	portal.servePortal()
	client := newTestClient(t, portal, nil, Credential{})

	res, err := client.GradeDistribution(context.Background(), "nonsense")
	require.NoError(t, err)
	require.Equal(t, ErrScrapeMismatch, res.Error)
}
