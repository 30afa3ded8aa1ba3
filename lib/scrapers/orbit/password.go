package orbit

import (
	"context"
	"net/http"
	"strings"
)

// ChangePassword replaces the account password. It is the one
// operation allowed past an ErrMustChangePassword latch, since the
// portal keeps the change form reachable for blocked accounts.
func (c *Client) ChangePassword(ctx context.Context, newSecret string) (Result[bool], error) {
	if newSecret == c.cred.Secret {
		return failure[bool](nil, ErrPasswordUnchanged), nil
	}

	orbitRes, err := c.ConnectOrbit(ctx)
	if err != nil {
		return Result[bool]{}, err
	}
	if !orbitRes.Ok() && orbitRes.Error != ErrMustChangePassword {
		return failure[bool](orbitRes.Warnings, orbitRes.Error), nil
	}
	warnings := orbitRes.Warnings

	ctx, span := tracer.Start(ctx, "ChangePassword")
	defer span.End()

	changeUrl := c.portalUrl(changePasswordPath)
	p, err := c.get(ctx, changeUrl, nil)
	if err != nil {
		return Result[bool]{}, err
	}
	if p.status != http.StatusOK {
		return failure[bool](warnings, ErrScrapeMismatch), nil
	}

	form := ExtractHiddenFields(p.text(), c.cred.ActiveYear)
	form["ctl00$ContentPlaceHolder1$edtCurrentPassword"] = c.cred.Secret
	form["ctl00$ContentPlaceHolder1$edtNewPassword1"] = newSecret
	form["ctl00$ContentPlaceHolder1$edtNewPassword2"] = newSecret
	form["ctl00$ContentPlaceHolder1$btnSave"] = "עדכן"

	res, err := c.post(ctx, changeUrl, form, nil, nil)
	if err != nil {
		return Result[bool]{}, err
	}
	if res.status != http.StatusOK {
		return failure[bool](warnings, ErrScrapeMismatch), nil
	}
	// the portal rejects a reused password with an injected alert
	if strings.Contains(res.text(), scriptAlertTrigger) {
		return failure[bool](warnings, ErrPasswordUnchanged), nil
	}

	c.cred.Secret = newSecret
	return success(true, warnings), nil
}
