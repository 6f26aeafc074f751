// Package dupcheck answers "have we already rescued this URL?" against both
// the local record store and the public DataLumos archive.
package dupcheck

import (
	"context"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"

	"datarescue-backend/lib/telemetry"
	"datarescue-backend/storage"
)

// Checker detects duplicate source URLs.
type Checker struct {
	store      *storage.Store
	client     *resty.Client
	searchBase string
}

func New(store *storage.Store, timeout time.Duration) *Checker {
	client := resty.New().SetTimeout(timeout)
	// datalumos.org sits behind Cloudflare; plain clients get challenged
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	telemetry.InstrumentResty(client, "drp.dupcheck")

	return &Checker{store: store, client: client, searchBase: searchBaseURL}
}

// ExistsInStorage reports whether sourceURL already has a record locally.
func (c *Checker) ExistsInStorage(ctx context.Context, sourceURL string) (bool, error) {
	return c.store.ExistsBySourceURL(ctx, sourceURL)
}
