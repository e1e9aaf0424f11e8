package orchestrator

import (
	"time"

	"github.com/example/vod-platform/internal/platform/signing"
	"github.com/example/vod-platform/services/ads/internal/inventory"
)

// Rendition is the client-facing description of how to display an ad.
type Rendition struct {
	AdID             string  `json:"ad_id"`
	Kind             string  `json:"kind"`
	CreativeURL      string  `json:"creative_url"`
	ClickURL         string  `json:"click_url,omitempty"`
	SkipAfterSeconds int     `json:"skip_after_seconds"`
	DurationSeconds  float64 `json:"duration_seconds,omitempty"`
	TestMode         bool    `json:"test_mode,omitempty"`
}

// Presenter turns a selected unit into a rendition for one user.
type Presenter interface {
	Present(unit inventory.Unit, skipAfter int, userID string) (Rendition, error)
}

// PlainPresenter passes creative URLs through untouched.
type PlainPresenter struct{}

func (PlainPresenter) Present(unit inventory.Unit, skipAfter int, _ string) (Rendition, error) {
	return Rendition{
		AdID:             unit.ID,
		Kind:             string(unit.Kind),
		CreativeURL:      unit.CreativeURL,
		ClickURL:         unit.ClickURL,
		SkipAfterSeconds: skipAfter,
		DurationSeconds:  unit.DurationSeconds,
		TestMode:         unit.TestMode,
	}, nil
}

// SignedPresenter routes creatives through the delivery proxy with a
// short-lived HMAC signature, so raw CDN locations never reach clients.
type SignedPresenter struct {
	Signer   *signing.Signer
	ProxyURL string
	TTL      time.Duration
}

func (p SignedPresenter) Present(unit inventory.Unit, skipAfter int, userID string) (Rendition, error) {
	r, _ := PlainPresenter{}.Present(unit, skipAfter, userID)
	if unit.CreativeURL != "" {
		signed := p.Signer.Sign(unit.CreativeURL, userID, time.Now().Add(p.TTL))
		u, err := signing.BuildSignedURL(p.ProxyURL, signed)
		if err != nil {
			return Rendition{}, err
		}
		r.CreativeURL = u
	}
	return r, nil
}
