package media

import (
	"fmt"
	"net/url"
	"strings"
)

// Target identifies the piece of evidence every session streams
type Target struct {
	Scheme     string
	Host       string
	PartnerID  string
	EvidenceID string
	FileID     string
}

// PartnerID converts an agency uuid into the partner id the API expects
func PartnerID(agencyID string) string {
	return strings.ReplaceAll(agencyID, "-", "")
}

// BaseURL returns scheme://host
func (t Target) BaseURL() string {
	scheme := t.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + t.Host
}

func (t Target) query() url.Values {
	return url.Values{
		"partner_id":  {t.PartnerID},
		"evidence_id": {t.EvidenceID},
		"file_id":     {t.FileID},
	}
}

// StartURL returns the streaming session start endpoint
func (t Target) StartURL() string {
	return t.BaseURL() + "/api/v1/media/start?" + t.query().Encode()
}

// Rendition selects the HLS variant every session plays
type Rendition struct {
	Level      int
	Size       string // WxH
	AutoRotate bool
}

// DefaultRendition is the 480p variant
var DefaultRendition = Rendition{Level: 1, Size: "854x480", AutoRotate: true}

// VariantURL returns the variant manifest endpoint for a session token
func (t Target) VariantURL(token string, r Rendition) string {
	q := t.query()
	q.Set("streamingSessionToken", token)
	q.Set("level", fmt.Sprintf("%d", r.Level))
	q.Set("size_wxh", r.Size)
	q.Set("autorotate", fmt.Sprintf("%t", r.AutoRotate))
	return t.BaseURL() + "/api/v1/media/hls/variant?" + q.Encode()
}
