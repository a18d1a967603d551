package ilias

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"ilias-uploader/internal/components/assert"
	"ilias-uploader/internal/components/chrono"
	"ilias-uploader/internal/components/telemetry"
	"ilias-uploader/lib/querypath"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_fetch            = "client.fetch"
	report_client_submit_form      = "client.submit-form"
	report_client_submit_multipart = "client.submit-multipart"
	report_client_authenticate     = "client.authenticate"
)

const (
	DefaultBaseUrl  = "https://ilias.studium.kit.edu"
	DefaultIdpUrl   = "https://idp.scc.kit.edu/idp/shibboleth"
	DefaultClientId = "produktiv"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

type ClientOptions struct {
	BaseUrl  string
	IdpUrl   string
	ClientId string
	// RequestsPerSecond limits outgoing requests, zero disables the limit.
	RequestsPerSecond float64
	// Timeout of a single request, zero means no timeout.
	Timeout time.Duration
	// Output receives the full text of every HTTP exchange when non-nil.
	Output telemetry.InstrumentOutput
}

// Client is an authenticated session with one portal. It holds the cookie
// jar, so it must be shared by every fetch that belongs to the session.
type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	idpUrl   string
	clientId string
	sel      *selectors
	tel      telemetry.API
	clock    chrono.API
}

func NewClient(opts ClientOptions, tel telemetry.API, clock chrono.API) (*Client, error) {
	assert.NotNil(tel, "tel")
	assert.NotNil(clock, "clock")

	tel = telemetry.NewScopedAPI("ilias", tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.IdpUrl == "" {
		opts.IdpUrl = DefaultIdpUrl
	}
	if opts.ClientId == "" {
		opts.ClientId = DefaultClientId
	}

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if !baseUrl.IsAbs() {
		return nil, fmt.Errorf("base url %q is not absolute", opts.BaseUrl)
	}
	idpUrl, err := url.Parse(opts.IdpUrl)
	if err != nil {
		return nil, fmt.Errorf("parse idp url: %w", err)
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(baseUrl.String())
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.SetHeader("user-agent", userAgent)
	// the handshake bounces between the portal and the identity provider,
	// anything else is not followed
	httpClient.SetRedirectPolicy(
		resty.FlexibleRedirectPolicy(20),
		resty.DomainCheckRedirectPolicy(baseUrl.Hostname(), idpUrl.Hostname()),
	)
	if opts.Timeout > 0 {
		httpClient.SetTimeout(opts.Timeout)
	}

	if opts.RequestsPerSecond > 0 {
		// burst of 1 keeps requests evenly spaced, none are dropped
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel, opts.Output)

	return &Client{
		BaseUrl:  baseUrl,
		Http:     httpClient,
		idpUrl:   opts.IdpUrl,
		clientId: opts.ClientId,
		sel:      newSelectors(),
		tel:      tel,
		clock:    clock,
	}, nil
}

// Url resolves a querypath against the portal base url.
func (c *Client) Url(qp string) (*url.URL, error) {
	return querypath.Resolve(c.BaseUrl, qp)
}

// permalink returns the querypath of a repository object, kind is the
// object type prefix such as "exc" or "fold".
func (c *Client) permalink(kind, id string) string {
	return fmt.Sprintf("goto.php?target=%s_%s&client_id=%s", kind, id, url.QueryEscape(c.clientId))
}

func (c *Client) ExerciseQuerypath(id string) string {
	return c.permalink("exc", id)
}

func (c *Client) FolderQuerypath(id string) string {
	return c.permalink("fold", id)
}

func networkError(err error) error {
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

func checkResponse(res *resty.Response) error {
	if res.IsSuccess() {
		return nil
	}
	return &RequestError{
		Method: res.Request.Method,
		Url:    res.Request.URL,
		Status: res.StatusCode(),
	}
}

// finalUrl is the url of the page a response belongs to, after redirects.
func finalUrl(res *resty.Response) *url.URL {
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		return res.RawResponse.Request.URL
	}
	u, err := url.Parse(res.Request.URL)
	if err != nil {
		return &url.URL{}
	}
	return u
}

func parseDocument(res *resty.Response) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html of %s: %w", ErrParse, res.Request.URL, err)
	}
	doc.Url = finalUrl(res)
	return doc, nil
}

func (c *Client) get(ctx context.Context, target string) (*goquery.Document, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		Get(target)
	if err != nil {
		return nil, networkError(err)
	}
	err = checkResponse(res)
	if err != nil {
		return nil, err
	}
	return parseDocument(res)
}

func (c *Client) postForm(ctx context.Context, target string, form url.Values) (*resty.Response, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		SetFormDataFromValues(form).
		Post(target)
	if err != nil {
		return nil, networkError(err)
	}
	return res, checkResponse(res)
}

// Fetch retrieves the page at qp and parses it, the returned document's
// Url is the final url after redirects.
func (c *Client) Fetch(ctx context.Context, qp string) (*goquery.Document, error) {
	u, err := c.Url(qp)
	if err != nil {
		return nil, err
	}
	doc, err := c.get(ctx, u.String())
	if err != nil {
		c.tel.ReportBroken(report_client_fetch, err, qp)
		return nil, err
	}
	return doc, nil
}

// SubmitForm posts url encoded form fields to qp, repeated keys are sent
// once per value.
func (c *Client) SubmitForm(ctx context.Context, qp string, form url.Values) error {
	u, err := c.Url(qp)
	if err != nil {
		return err
	}
	_, err = c.postForm(ctx, u.String(), form)
	if err != nil {
		c.tel.ReportBroken(report_client_submit_form, err, qp)
		return err
	}
	return nil
}

// MultipartFile is one file part of a multipart request.
type MultipartFile struct {
	Field       string
	FileName    string
	ContentType string
	Reader      io.Reader
}

// SubmitMultipart posts a multipart body with the text fields and file
// parts to qp and returns the response for callers that need its body.
func (c *Client) SubmitMultipart(ctx context.Context, qp string, fields url.Values, files []MultipartFile) (*resty.Response, error) {
	u, err := c.Url(qp)
	if err != nil {
		return nil, err
	}

	parts := make([]*resty.MultipartField, len(files))
	for i, f := range files {
		contentType := f.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		parts[i] = &resty.MultipartField{
			Param:       f.Field,
			FileName:    f.FileName,
			ContentType: contentType,
			Reader:      f.Reader,
		}
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetFormDataFromValues(fields).
		SetMultipartFields(parts...).
		Post(u.String())
	if err != nil {
		err = networkError(err)
		c.tel.ReportBroken(report_client_submit_multipart, err, qp)
		return nil, err
	}
	err = checkResponse(res)
	if err != nil {
		c.tel.ReportBroken(report_client_submit_multipart, err, qp)
		return res, err
	}
	return res, nil
}

func sameHost(a, b *url.URL) bool {
	return strings.EqualFold(a.Host, b.Host)
}
