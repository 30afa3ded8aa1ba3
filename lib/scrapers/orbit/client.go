package orbit

import (
	"context"
	"net/http/cookiejar"
	"net/url"
	"time"

	"orbitbot/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scrapers/orbit")

const DefaultPortalUrl = "https://live.or-bit.net/hadassah"
const DefaultLmsUrl = "https://mowgli.hac.ac.il"

const (
	loginPath          = "/Login.aspx"
	mainPath           = "/Main.aspx"
	changePasswordPath = "/ChangePassword.aspx"
	moodleHandoffPath  = "/Handlers/Moodle.ashx"
	documentsPath      = "/DocumentGenerationPage.aspx"
	gradesPath         = "/StudentGradesList.aspx"
	examsPath          = "/StudentAssignmentTermList.aspx"
	timetablePath      = "/StudentPeriodSchedule.aspx"
	lessonsPath        = "/StudentRegistrationLessons.aspx"

	lmsDashboardPath = "/my/"
	lmsServicePath   = "/lib/ajax/service.php"
)

// Credential is supplied by the persistence collaborator and never
// written back by the client.
type Credential struct {
	Identity string
	Secret   string
	// overrides the portal's selected academic year when nonzero
	ActiveYear int
}

type stageStatus int

const (
	stagePending stageStatus = iota
	stageSuccess
	stageFailure
)

type stage struct {
	status stageStatus
	result Result[bool]
}

// Client is a stateful scraping session against the portal and its
// linked LMS. It owns one cookie jar and the two-stage authentication
// latch; it is NOT safe for concurrent use. The intended lifecycle is
// one client per user interaction burst, a client whose stage failed
// is poisoned and a fresh one must be constructed to retry.
type Client struct {
	portal   *url.URL
	lms      *url.URL
	http     *resty.Client
	cred     Credential
	renderer TimetableRenderer

	orbit  stage
	moodle stage
}

type ClientOptions struct {
	// defaults to DefaultPortalUrl
	PortalUrl string
	// defaults to DefaultLmsUrl
	LmsUrl     string
	Credential Credential
	// only needed by Timetable, may be nil otherwise
	Renderer TimetableRenderer
}

func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	if opts.PortalUrl == "" {
		opts.PortalUrl = DefaultPortalUrl
	}
	if opts.LmsUrl == "" {
		opts.LmsUrl = DefaultLmsUrl
	}
	portal, err := url.Parse(opts.PortalUrl)
	if err != nil {
		return nil, err
	}
	lms, err := url.Parse(opts.LmsUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(portal.Hostname(), lms.Hostname()))
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "scrapers/orbit/http")

	return &Client{
		portal:   portal,
		lms:      lms,
		http:     client,
		cred:     opts.Credential,
		renderer: opts.Renderer,
	}, nil
}

func (c *Client) portalUrl(path string) string {
	return c.portal.String() + path
}

func (c *Client) lmsUrl(path string) string {
	return c.lms.String() + path
}

// page is one request/response round trip: status, final url after
// redirects, raw body. Callers never see the resty response.
type page struct {
	status int
	url    string
	body   []byte
}

func (p page) text() string {
	return string(p.body)
}

func toPage(res *resty.Response) page {
	finalUrl := res.Request.URL
	if res.RawResponse != nil && res.RawResponse.Request != nil && res.RawResponse.Request.URL != nil {
		finalUrl = res.RawResponse.Request.URL.String()
	}
	return page{
		status: res.StatusCode(),
		url:    finalUrl,
		body:   res.Body(),
	}
}

func (c *Client) get(ctx context.Context, rawurl string, query url.Values) (page, error) {
	req := c.http.R().SetContext(ctx)
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}
	res, err := req.Get(rawurl)
	if err != nil {
		return page{}, err
	}
	return toPage(res), nil
}

func (c *Client) post(ctx context.Context, rawurl string, form map[string]string, jsonBody any, query url.Values) (page, error) {
	req := c.http.R().SetContext(ctx)
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}
	if form != nil {
		req.SetFormData(form)
	}
	if jsonBody != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(jsonBody)
	}
	res, err := req.Post(rawurl)
	if err != nil {
		return page{}, err
	}
	return toPage(res), nil
}
