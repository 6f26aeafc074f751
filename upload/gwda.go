package upload

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"datarescue-backend/config"
	"datarescue-backend/lib/telemetry"
)

// nominationURL is the GWDA (U.S. Government Web & Data Archive) form for the
// 2025 crawl.
const nominationURL = "https://digital2.library.unt.edu/nomination/GWDA-US-2025/add/"

// Nominator submits source URLs to the GWDA nomination form so the original
// page gets crawled even after the dataset is rescued.
type Nominator struct {
	client      *resty.Client
	yourName    string
	institution string
	email       string
}

func NewNominator(cfg config.Config) *Nominator {
	client := resty.New().SetTimeout(cfg.UploadTimeout())
	telemetry.InstrumentResty(client, "drp.upload.gwda")

	return &Nominator{
		client:      client,
		yourName:    cfg.GWDAYourName,
		institution: cfg.GWDAInstitution,
		email:       cfg.GWDAEmail,
	}
}

// Nominate submits sourceURL to the nomination form.
func (n *Nominator) Nominate(ctx context.Context, sourceURL string) error {
	if strings.TrimSpace(sourceURL) == "" {
		return fmt.Errorf("source url is empty, cannot nominate")
	}
	if strings.TrimSpace(n.email) == "" {
		return fmt.Errorf("gwda nomination requires email (set gwda_email or datalumos_username)")
	}

	res, err := n.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"url-value":         sourceURL,
			"your-name-value":   n.yourName,
			"institution-value": n.institution,
			"email-value":       n.email,
		}).
		Post(nominationURL)
	if err != nil {
		return fmt.Errorf("submit nomination: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("nomination form returned http %d", res.StatusCode())
	}
	return nil
}
