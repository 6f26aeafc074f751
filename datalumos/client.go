// Package datalumos drives the DataLumos deposit workspace over HTTP: login,
// deposit creation, file upload, publishing, and cleanup of abandoned
// deposits. It implements the upload and publisher client boundaries.
package datalumos

import (
	"bytes"
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"datarescue-backend/config"
	"datarescue-backend/lib/telemetry"
)

var tracer = otel.Tracer("drp.datalumos")

var ErrLoginFailed = fmt.Errorf("failed to login to datalumos")

const (
	baseURL      = "https://www.datalumos.org"
	workspaceURL = "https://www.datalumos.org/datalumos/workspace"

	depositInProgressText = "[Deposit In Progress]"
)

var workspaceIDPattern = regexp.MustCompile(`/datalumos/(\d+)`)

// Client is an authenticated session against the DataLumos workspace.
type Client struct {
	http     *resty.Client
	username string
	password string
	loggedIn bool
}

func NewClient(cfg config.Config) (*Client, error) {
	client := resty.New()
	client.SetBaseURL(baseURL)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	// the workspace sits behind Cloudflare
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetTimeout(cfg.UploadTimeout())

	telemetry.InstrumentResty(client, "drp.datalumos.http")

	return &Client{
		http:     client,
		username: cfg.DataLumosUsername,
		password: cfg.DataLumosPassword,
	}, nil
}

func (c *Client) ensureAuthenticated(ctx context.Context) error {
	if c.loggedIn {
		return nil
	}
	if c.username == "" || c.password == "" {
		return fmt.Errorf("datalumos credentials not configured")
	}
	if err := c.login(ctx); err != nil {
		return err
	}
	c.loggedIn = true
	return nil
}

// login scrapes the workspace login form and submits credentials through it,
// so hidden inputs (csrf token and friends) carry over untouched.
func (c *Client) login(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "login")
	defer span.End()

	doc, err := c.fetchDocument(ctx, workspaceURL)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch login page")
		return err
	}

	form := doc.Find("form").FilterFunction(func(_ int, f *goquery.Selection) bool {
		return f.Find("input[type=password]").Length() > 0
	}).First()
	if form.Length() == 0 {
		// no password form means the session is already authenticated
		return nil
	}

	fields := hiddenInputs(form)
	fields[inputName(form, "input[type=password]", "password")] = c.password
	fields[inputName(form, "input[type=email], input[type=text]", "username")] = c.username

	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(fields).
		Post(formAction(form, workspaceURL))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit login form")
		return err
	}

	doc, err = goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return err
	}
	if doc.Find("input[type=password]").Length() > 0 {
		span.SetStatus(codes.Error, ErrLoginFailed.Error())
		return ErrLoginFailed
	}
	return nil
}

func (c *Client) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	res, err := c.http.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("http %d from %s", res.StatusCode(), pageURL)
	}
	body := res.String()
	if strings.Contains(body, "Just a moment") {
		return nil, fmt.Errorf("cloudflare challenge on %s", pageURL)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(body))
}

func hiddenInputs(form *goquery.Selection) map[string]string {
	fields := map[string]string{}
	form.Find("input[type=hidden]").Each(func(_ int, in *goquery.Selection) {
		name, ok := in.Attr("name")
		if !ok || name == "" {
			return
		}
		fields[name] = in.AttrOr("value", "")
	})
	return fields
}

func inputName(form *goquery.Selection, selector, fallback string) string {
	if name := form.Find(selector).First().AttrOr("name", ""); name != "" {
		return name
	}
	return fallback
}

func formAction(form *goquery.Selection, pageURL string) string {
	action := form.AttrOr("action", "")
	if action == "" {
		return pageURL
	}
	if strings.HasPrefix(action, "http://") || strings.HasPrefix(action, "https://") {
		return action
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return action
	}
	ref, err := url.Parse(action)
	if err != nil {
		return action
	}
	return base.ResolveReference(ref).String()
}
