package orbit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractHiddenFields(t *testing.T) {
	page := `<input type="hidden" name="__VIEWSTATE" id="__VIEWSTATE" value="abc" />
<input type="hidden" name="__EVENTVALIDATION" id="__EVENTVALIDATION" value="def" />`

	fields := ExtractHiddenFields(page, 0)
	require.Equal(t, map[string]string{
		"__VIEWSTATE":       "abc",
		"__EVENTVALIDATION": "def",
	}, fields)
}

func TestExtractHiddenFieldsLastWins(t *testing.T) {
	page := `<input type="hidden" name="__VIEWSTATE" id="__VIEWSTATE" value="first" />
<input type="hidden" name="__VIEWSTATE" id="__VIEWSTATE" value="second" />`

	fields := ExtractHiddenFields(page, 0)
	require.Equal(t, "second", fields["__VIEWSTATE"])
}

func TestExtractHiddenFieldsActiveYear(t *testing.T) {
	page := hiddenBlock + activeYearBlock

	fields := ExtractHiddenFields(page, 0)
	require.Equal(t, "5784", fields["ctl00$cmbActiveYear"])

	fields = ExtractHiddenFields(page, 5780)
	require.Equal(t, "5780", fields["ctl00$cmbActiveYear"])
}

func TestExtractHiddenFieldsEmptyPage(t *testing.T) {
	fields := ExtractHiddenFields("<html><body>nothing here</body></html>", 0)
	require.Empty(t, fields)
}
