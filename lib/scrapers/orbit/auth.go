package orbit

import (
	"context"
	"net/http"
	"regexp"
	"slices"

	"go.opentelemetry.io/otel/codes"
)

var redirectUrlRegex = regexp.MustCompile(`URL='(.*?)'`)

func (c *Client) latchOrbit(res Result[bool]) Result[bool] {
	c.orbit.result = res
	c.orbit.status = stageFailure
	if res.Ok() {
		c.orbit.status = stageSuccess
	}
	return res
}

func (c *Client) latchMoodle(res Result[bool]) Result[bool] {
	c.moodle.result = res
	c.moodle.status = stageFailure
	if res.Ok() {
		c.moodle.status = stageSuccess
	}
	return res
}

// ConnectOrbit logs into the portal. The outcome is latched: once a
// stage records success or failure it is never re-attempted on this
// client, callers wanting a fresh attempt construct a new client.
// Transport errors are returned without latching, the stage stays
// pending exactly as if the call had never happened.
func (c *Client) ConnectOrbit(ctx context.Context) (Result[bool], error) {
	if c.orbit.status != stagePending {
		return c.orbit.result, nil
	}

	ctx, span := tracer.Start(ctx, "ConnectOrbit")
	defer span.End()

	loginUrl := c.portalUrl(loginPath)
	loginPage, err := c.get(ctx, loginUrl, nil)
	if err != nil {
		return Result[bool]{}, err
	}
	if loginPage.status != http.StatusOK {
		span.SetStatus(codes.Error, "portal down")
		return c.latchOrbit(failure[bool](nil, ErrPortalDown)), nil
	}

	form := ExtractHiddenFields(loginPage.text(), c.cred.ActiveYear)
	form["edtUsername"] = c.cred.Identity
	form["edtPassword"] = c.cred.Secret
	form[lastFocusField] = ""
	form[eventTargetField] = ""
	form[eventArgumentField] = ""
	form["btnLogin"] = "כניסה"

	landing, err := c.post(ctx, loginUrl, form, nil, nil)
	if err != nil {
		return Result[bool]{}, err
	}
	// a 200 that lands back on the login page is the portal's way of
	// saying the credentials were rejected
	if landing.status != http.StatusOK || landing.url == loginUrl {
		span.SetStatus(codes.Error, "wrong credentials")
		return c.latchOrbit(failure[bool](nil, ErrWrongCredentials)), nil
	}

	var warnings []WarningKind
	if landing.url == c.portalUrl(changePasswordPath) {
		// soft block: if the main page also bounces to the change
		// password form, nothing works until the password is changed
		mainPage, err := c.get(ctx, c.portalUrl(mainPath), nil)
		if err != nil {
			return Result[bool]{}, err
		}
		if mainPage.url == c.portalUrl(changePasswordPath) {
			span.SetStatus(codes.Error, "must change password")
			return c.latchOrbit(failure[bool](nil, ErrMustChangePassword)), nil
		}
		warnings = append(warnings, WarnShouldChangePassword)
	}

	if c.cred.ActiveYear != 0 {
		if err := c.applyActiveYear(ctx); err != nil {
			return Result[bool]{}, err
		}
	}

	return c.latchOrbit(success(true, warnings)), nil
}

// posts the overridden academic year back to the main page so every
// later scrape renders against that year
func (c *Client) applyActiveYear(ctx context.Context) error {
	mainUrl := c.portalUrl(mainPath)
	p, err := c.get(ctx, mainUrl, nil)
	if err != nil {
		return err
	}
	form := ExtractHiddenFields(p.text(), c.cred.ActiveYear)
	form[eventTargetField] = activeYearControl
	form[eventArgumentField] = ""
	_, err = c.post(ctx, mainUrl, form, nil, nil)
	return err
}

// ConnectMoodle rides the portal's single-sign-on handoff into the LMS.
// Gated on ConnectOrbit and latched the same way.
func (c *Client) ConnectMoodle(ctx context.Context) (Result[bool], error) {
	if c.moodle.status != stagePending {
		return c.moodle.result, nil
	}

	ctx, span := tracer.Start(ctx, "ConnectMoodle")
	defer span.End()

	orbitRes, err := c.ConnectOrbit(ctx)
	if err != nil {
		return Result[bool]{}, err
	}
	if !orbitRes.Ok() {
		return c.latchMoodle(failure[bool](slices.Clone(orbitRes.Warnings), orbitRes.Error)), nil
	}
	warnings := slices.Clone(orbitRes.Warnings)

	handoff, err := c.get(ctx, c.portalUrl(moodleHandoffPath), nil)
	if err != nil {
		return Result[bool]{}, err
	}
	if handoff.status != http.StatusOK {
		span.SetStatus(codes.Error, "lms handoff down")
		return c.latchMoodle(failure[bool](warnings, ErrLMSDown)), nil
	}

	m := redirectUrlRegex.FindStringSubmatch(handoff.text())
	if m == nil {
		span.SetStatus(codes.Error, "handoff redirect url missing")
		return c.latchMoodle(failure[bool](warnings, ErrScrapeMismatch)), nil
	}

	dashboard, err := c.get(ctx, m[1], nil)
	if err != nil {
		return Result[bool]{}, err
	}
	if dashboard.status != http.StatusOK || dashboard.url != c.lmsUrl(lmsDashboardPath) {
		span.SetStatus(codes.Error, "lms dashboard unreachable")
		return c.latchMoodle(failure[bool](warnings, ErrLMSDown)), nil
	}

	return c.latchMoodle(success(true, warnings)), nil
}
