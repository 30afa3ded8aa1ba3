package orbit

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func serveChangePassword(portal *fakeUpstream, accept string) {
	portal.handle("/ChangePassword.aspx", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			io.WriteString(w, hiddenBlock)
			return
		}
		if r.PostFormValue("ctl00$ContentPlaceHolder1$edtNewPassword1") == accept {
			io.WriteString(w, "<html>password changed</html>")
			return
		}
		io.WriteString(w, `<script>function OLScriptCounter1alert() { window.alert('password rejected'); }</script>`)
	})
}

func TestChangePassword(t *testing.T) {
	portal := newFakeUpstream(t)
	portal.servePortal()
	serveChangePassword(portal, "n3w-secret")
	client := newTestClient(t, portal, nil, Credential{})

	res, err := client.ChangePassword(context.Background(), "n3w-secret")
	require.NoError(t, err)
	require.True(t, res.Ok())
	require.True(t, res.Value)
}

func TestChangePasswordSameAsOld(t *testing.T) {
	portal := newFakeUpstream(t)
	client := newTestClient(t, portal, nil, Credential{})

	res, err := client.ChangePassword(context.Background(), testPassword)
	require.NoError(t, err)
	require.Equal(t, ErrPasswordUnchanged, res.Error)
	// rejected before any request is made
	require.Equal(t, 0, portal.count("GET", "/Login.aspx"))
}

func TestChangePasswordRejected(t *testing.T) {
	portal := newFakeUpstream(t)
	portal.servePortal()
	serveChangePassword(portal, "something else entirely")
	client := newTestClient(t, portal, nil, Credential{})

	res, err := client.ChangePassword(context.Background(), "n3w-secret")
	require.NoError(t, err)
	require.Equal(t, ErrPasswordUnchanged, res.Error)
}

func TestChangePasswordWhileBlocked(t *testing.T) {
	portal := newFakeUpstream(t)
	portal.handle("/Login.aspx", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			io.WriteString(w, loginPageBody)
			return
		}
		http.Redirect(w, r, "/ChangePassword.aspx", http.StatusFound)
	})
	portal.handle("/Main.aspx", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ChangePassword.aspx", http.StatusFound)
	})
	serveChangePassword(portal, "n3w-secret")
	client := newTestClient(t, portal, nil, Credential{})

	// the login stage fails hard, yet the change form stays reachable
	orbitRes, err := client.ConnectOrbit(context.Background())
	require.NoError(t, err)
	require.Equal(t, ErrMustChangePassword, orbitRes.Error)

	res, err := client.ChangePassword(context.Background(), "n3w-secret")
	require.NoError(t, err)
	require.True(t, res.Ok())
}

func TestChangePasswordWrongCredentials(t *testing.T) {
	portal := newFakeUpstream(t)
	portal.servePortal()
	client := newTestClient(t, portal, nil, Credential{Identity: testUsername, Secret: "wrong"})

	res, err := client.ChangePassword(context.Background(), "n3w-secret")
	require.NoError(t, err)
	require.Equal(t, ErrWrongCredentials, res.Error)
}
