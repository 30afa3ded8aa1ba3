package orbit

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeUpstream is an httptest server with per-path hit counters, used
// to stand in for both the portal and the LMS.
type fakeUpstream struct {
	mu   sync.Mutex
	hits map[string]int
	mux  *http.ServeMux
	srv  *httptest.Server
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	f := &fakeUpstream{
		hits: map[string]int{},
		mux:  http.NewServeMux(),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[r.Method+" "+r.URL.Path]++
		f.mu.Unlock()
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeUpstream) handle(path string, fn http.HandlerFunc) {
	f.mux.HandleFunc(path, fn)
}

func (f *fakeUpstream) count(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[method+" "+path]
}

const testUsername = "student"
const testPassword = "hunter2"

const hiddenBlock = `<input type="hidden" name="__VIEWSTATE" id="__VIEWSTATE" value="vs-1" />
<input type="hidden" name="__EVENTVALIDATION" id="__EVENTVALIDATION" value="ev-1" />`

const activeYearBlock = `<select name="ctl00$cmbActiveYear" id="cmbActiveYear">
<option value="5783">5783</option>
<option selected="selected" value="5784">5784</option>
</select>`

const loginPageBody = `<html><body><form>` + hiddenBlock + `
<input name="edtUsername" /><input name="edtPassword" /></form></body></html>`

const mainPageBody = `<html><body>` + hiddenBlock + activeYearBlock + `</body></html>`

// serveLogin wires the standard happy-path login flow: GET renders the
// form, a POST with the right credentials and echoed viewstate bounces
// to Main.aspx, anything else re-renders the form in place. Main.aspx
// is registered separately so tests can override it.
func (f *fakeUpstream) serveLogin() {
	f.handle("/Login.aspx", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			io.WriteString(w, loginPageBody)
			return
		}
		if r.PostFormValue("edtUsername") == testUsername &&
			r.PostFormValue("edtPassword") == testPassword &&
			r.PostFormValue("__VIEWSTATE") == "vs-1" &&
			r.PostFormValue("btnLogin") != "" {
			http.Redirect(w, r, "/Main.aspx", http.StatusFound)
			return
		}
		io.WriteString(w, loginPageBody)
	})
}

func (f *fakeUpstream) serveMain() {
	f.handle("/Main.aspx", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, mainPageBody)
	})
}

// servePortal is serveLogin plus the default Main.aspx.
func (f *fakeUpstream) servePortal() {
	f.serveLogin()
	f.serveMain()
}

// serveHandoff wires the LMS single-sign-on pair: the portal handoff
// page names the LMS url and the LMS dashboard carries a sesskey.
func serveHandoff(portal, lms *fakeUpstream) {
	portal.handle("/Handlers/Moodle.ashx", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<meta http-equiv="refresh" content="0;URL='`+lms.srv.URL+`/my/'" />`)
	})
	lms.handle("/my/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<script>M.cfg = {"sesskey":"sk-123"};</script>`)
	})
}

func newTestClient(t *testing.T, portal, lms *fakeUpstream, cred Credential) *Client {
	if cred.Identity == "" {
		cred = Credential{Identity: testUsername, Secret: testPassword}
	}
	opts := ClientOptions{
		PortalUrl:  portal.srv.URL,
		Credential: cred,
	}
	if lms != nil {
		opts.LmsUrl = lms.srv.URL
	}
	client, err := NewClient(context.Background(), opts)
	require.NoError(t, err)
	return client
}
