package ilias

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"ilias-uploader/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const ssoLoginQuerypath = "shib_login.php"

// Authenticate runs the Shibboleth single sign-on handshake, on success the
// client's cookie jar holds a portal session.
//
//  1. select the identity provider on the portal, the response is either
//     the portal itself (a session already exists) or the provider's page
//  2. if the provider shows a login form, post the credentials to it
//  3. post the SAML assertion of the resulting page back to the portal
func (c *Client) Authenticate(ctx context.Context, username, password string) error {
	authError := func(err error) error {
		if errors.Is(err, ErrAuthenticationFailed) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}

	ssoUrl, err := c.Url(ssoLoginQuerypath)
	if err != nil {
		return authError(err)
	}
	res, err := c.postForm(ctx, ssoUrl.String(), url.Values{
		"sendLogin":                   {"1"},
		"idp_selection":               {c.idpUrl},
		"il_target":                   {""},
		"home_organization_selection": {"Weiter"},
	})
	if err != nil {
		c.tel.ReportBroken(report_client_authenticate, fmt.Errorf("select identity provider: %w", err))
		return authError(err)
	}

	location := finalUrl(res)
	if sameHost(location, c.BaseUrl) {
		c.tel.ReportDebug("existing portal session reused", location.String())
		return nil
	}

	page, err := parseDocument(res)
	if err != nil {
		c.tel.ReportBroken(report_client_authenticate, err)
		return authError(err)
	}

	token := page.FindMatcher(c.sel.csrfToken)
	if token.Length() > 0 {
		page, err = c.submitCredentials(ctx, page, token, username, password)
		if err != nil {
			return authError(err)
		}
	}

	samlResponse := page.FindMatcher(c.sel.samlResponse)
	if samlResponse.Length() == 0 {
		// the provider renders its login form again with an error message
		// when the credentials are rejected
		if msg := htmlutil.Text(page.FindMatcher(c.sel.idpError)); msg != "" {
			return fmt.Errorf("%w: %s", ErrAuthenticationFailed, msg)
		}
		err = missing(page.Url.String(), "input[name=SAMLResponse]")
		c.tel.ReportBroken(report_client_authenticate, err)
		return authError(err)
	}
	relayState, ok := page.FindMatcher(c.sel.relayState).Attr("value")
	if !ok {
		err = missing(page.Url.String(), "input[name=RelayState]")
		c.tel.ReportBroken(report_client_authenticate, err)
		return authError(err)
	}

	action, err := formAction(page.Url, samlResponse.Closest("form"))
	if err != nil {
		c.tel.ReportBroken(report_client_authenticate, err)
		return authError(err)
	}
	_, err = c.postForm(ctx, action, url.Values{
		"RelayState":   {relayState},
		"SAMLResponse": {samlResponse.AttrOr("value", "")},
	})
	if err != nil {
		c.tel.ReportBroken(report_client_authenticate, fmt.Errorf("post assertion: %w", err))
		return authError(err)
	}
	return nil
}

func (c *Client) submitCredentials(ctx context.Context, page *goquery.Document, token *goquery.Selection, username, password string) (*goquery.Document, error) {
	action, err := formAction(page.Url, token.Closest("form"))
	if err != nil {
		c.tel.ReportBroken(report_client_authenticate, err)
		return nil, err
	}
	res, err := c.postForm(ctx, action, url.Values{
		"csrf_token":       {token.AttrOr("value", "")},
		"j_username":       {username},
		"j_password":       {password},
		"_eventId_proceed": {""},
	})
	if err != nil {
		c.tel.ReportBroken(report_client_authenticate, fmt.Errorf("post credentials: %w", err))
		return nil, err
	}
	next, err := parseDocument(res)
	if err != nil {
		c.tel.ReportBroken(report_client_authenticate, err)
		return nil, err
	}
	return next, nil
}

// formAction resolves the action of form against the url of the page it
// was found on, an empty action posts back to the page itself.
func formAction(page *url.URL, form *goquery.Selection) (string, error) {
	if form.Length() == 0 {
		return "", missing(page.String(), "form")
	}
	action, ok := form.Attr("action")
	if !ok {
		return "", missing(page.String(), "form[action]")
	}
	ref, err := url.Parse(action)
	if err != nil {
		return "", fmt.Errorf("%w: form action %q: %w", ErrParse, action, err)
	}
	return page.ResolveReference(ref).String(), nil
}
