package datalumos

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"

	"datarescue-backend/upload"
)

// CreateDeposit creates a workspace project, fills its metadata form, and
// uploads every regular file under dep.FolderPath. Returns the workspace id
// DataLumos assigned.
func (c *Client) CreateDeposit(ctx context.Context, dep upload.Deposit) (string, error) {
	ctx, span := tracer.Start(ctx, "CreateDeposit")
	defer span.End()

	if err := c.ensureAuthenticated(ctx); err != nil {
		return "", err
	}

	workspaceID, err := c.createProject(ctx, dep)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if err := c.fillMetadata(ctx, workspaceID, dep); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if dep.FolderPath != "" {
		if err := c.uploadFiles(ctx, workspaceID, dep.FolderPath); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return "", err
		}
	}
	return workspaceID, nil
}

// createProject submits the workspace "create project" form and pulls the new
// workspace id out of the redirect target.
func (c *Client) createProject(ctx context.Context, dep upload.Deposit) (string, error) {
	doc, err := c.fetchDocument(ctx, workspaceURL)
	if err != nil {
		return "", err
	}

	form, err := findForm(doc, "input[name=title], input[name=projectTitle]")
	if err != nil {
		return "", fmt.Errorf("create project form: %w", err)
	}
	fields := hiddenInputs(form)
	fields[inputName(form, "input[name=title], input[name=projectTitle]", "title")] = dep.Title
	fields["clientRequestId"] = dep.IdempotencyKey

	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(fields).
		Post(formAction(form, workspaceURL))
	if err != nil {
		return "", fmt.Errorf("create project: %w", err)
	}

	location := res.RawResponse.Request.URL.String()
	match := workspaceIDPattern.FindStringSubmatch(location)
	if match == nil {
		match = workspaceIDPattern.FindStringSubmatch(res.String())
	}
	if match == nil {
		return "", fmt.Errorf("no workspace id in create project response")
	}
	return match[1], nil
}

func (c *Client) fillMetadata(ctx context.Context, workspaceID string, dep upload.Deposit) error {
	pageURL := projectURL(workspaceID)
	doc, err := c.fetchDocument(ctx, pageURL)
	if err != nil {
		return err
	}

	form, err := findForm(doc, "textarea[name=summary], textarea[name=description]")
	if err != nil {
		return fmt.Errorf("metadata form: %w", err)
	}
	fields := hiddenInputs(form)
	fields[inputName(form, "textarea[name=summary], textarea[name=description]", "summary")] = dep.Summary
	setIfPresent(form, fields, "agency", dep.Agency)
	setIfPresent(form, fields, "keywords", dep.Keywords)
	setIfPresent(form, fields, "timeStart", dep.TimeStart)
	setIfPresent(form, fields, "timeEnd", dep.TimeEnd)
	setIfPresent(form, fields, "originalDistributionUrl", dep.SourceURL)

	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(fields).
		Post(formAction(form, pageURL))
	if err != nil {
		return fmt.Errorf("submit metadata: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("metadata form returned http %d", res.StatusCode())
	}
	return nil
}

func (c *Client) uploadFiles(ctx context.Context, workspaceID, folderPath string) error {
	entries, err := os.ReadDir(folderPath)
	if err != nil {
		return fmt.Errorf("read deposit folder: %w", err)
	}

	uploadURL := projectURL(workspaceID) + "/files"
	uploaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(folderPath, entry.Name())
		res, err := c.http.R().
			SetContext(ctx).
			SetFile("file", path).
			Post(uploadURL)
		if err != nil {
			return fmt.Errorf("upload %s: %w", entry.Name(), err)
		}
		if res.IsError() {
			return fmt.Errorf("upload %s: http %d", entry.Name(), res.StatusCode())
		}
		uploaded++
	}
	if uploaded == 0 {
		return fmt.Errorf("no files to upload in %s", folderPath)
	}
	return nil
}

// Publish runs the publish workflow for a deposited project.
func (c *Client) Publish(ctx context.Context, workspaceID string) error {
	ctx, span := tracer.Start(ctx, "Publish")
	defer span.End()

	if err := c.ensureAuthenticated(ctx); err != nil {
		return err
	}

	pageURL := projectURL(workspaceID)
	doc, err := c.fetchDocument(ctx, pageURL)
	if err != nil {
		return err
	}

	form, err := findSubmitForm(doc, "publish")
	if err != nil {
		return fmt.Errorf("publish form: %w", err)
	}
	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(hiddenInputs(form)).
		Post(formAction(form, pageURL))
	if err != nil {
		return fmt.Errorf("publish project %s: %w", workspaceID, err)
	}
	if res.IsError() {
		return fmt.Errorf("publish project %s: http %d", workspaceID, res.StatusCode())
	}
	if msg := errorMessage(res.String()); msg != "" {
		return fmt.Errorf("publish project %s: %s", workspaceID, msg)
	}
	return nil
}

// ListInProgress returns the workspace ids of projects still marked
// "[Deposit In Progress]".
func (c *Client) ListInProgress(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "ListInProgress")
	defer span.End()

	if err := c.ensureAuthenticated(ctx); err != nil {
		return nil, err
	}

	doc, err := c.fetchDocument(ctx, workspaceURL)
	if err != nil {
		return nil, err
	}

	var ids []string
	doc.Find("ul.list-group li").Each(func(_ int, li *goquery.Selection) {
		if !strings.Contains(li.Text(), depositInProgressText) {
			return
		}
		href := li.Find("a[href*='/datalumos/']").First().AttrOr("href", "")
		if match := workspaceIDPattern.FindStringSubmatch(href); match != nil {
			ids = append(ids, match[1])
		}
	})
	return ids, nil
}

// DeleteProject removes a workspace project via its delete form.
func (c *Client) DeleteProject(ctx context.Context, workspaceID string) error {
	ctx, span := tracer.Start(ctx, "DeleteProject")
	defer span.End()

	if err := c.ensureAuthenticated(ctx); err != nil {
		return err
	}

	pageURL := projectURL(workspaceID)
	doc, err := c.fetchDocument(ctx, pageURL)
	if err != nil {
		return err
	}

	form, err := findSubmitForm(doc, "delete")
	if err != nil {
		return fmt.Errorf("delete form: %w", err)
	}
	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(hiddenInputs(form)).
		Post(formAction(form, pageURL))
	if err != nil {
		return fmt.Errorf("delete project %s: %w", workspaceID, err)
	}
	if res.IsError() {
		return fmt.Errorf("delete project %s: http %d", workspaceID, res.StatusCode())
	}
	return nil
}

func projectURL(workspaceID string) string {
	return fmt.Sprintf("%s?goToLevel=project&goToPath=/datalumos/%s", workspaceURL, workspaceID)
}

// setIfPresent fills a form field only when the form actually has a control
// with that name and there is a value to set. The workspace metadata form
// varies between deposit types.
func setIfPresent(form *goquery.Selection, fields map[string]string, name, value string) {
	if value == "" {
		return
	}
	if form.Find(fmt.Sprintf("[name=%s]", name)).Length() == 0 {
		return
	}
	fields[name] = value
}

// findForm returns the first form containing an element matching selector.
func findForm(doc *goquery.Document, selector string) (*goquery.Selection, error) {
	form := doc.Find("form").FilterFunction(func(_ int, f *goquery.Selection) bool {
		return f.Find(selector).Length() > 0
	}).First()
	if form.Length() == 0 {
		return nil, fmt.Errorf("no form matching %q", selector)
	}
	return form, nil
}

// findSubmitForm returns the first form whose submit control mentions verb
// ("publish", "delete").
func findSubmitForm(doc *goquery.Document, verb string) (*goquery.Selection, error) {
	form := doc.Find("form").FilterFunction(func(_ int, f *goquery.Selection) bool {
		match := false
		f.Find("button[type=submit], input[type=submit]").Each(func(_ int, s *goquery.Selection) {
			text := strings.ToLower(s.Text() + " " + s.AttrOr("value", "") + " " + s.AttrOr("name", ""))
			if strings.Contains(text, verb) {
				match = true
			}
		})
		return match
	}).First()
	if form.Length() == 0 {
		return nil, fmt.Errorf("no form with a %q submit", verb)
	}
	return form, nil
}

// errorMessage pulls the workspace's .errormsg banner, if present.
func errorMessage(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find(".errormsg").First().Text())
}
