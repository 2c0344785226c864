package models

import (
	"strings"
	"time"
)

// LinkType categorizes a useful link by its target. It is always derived
// from the URL, never trusted from caller input.
type LinkType string

const (
	LinkTypePDF   LinkType = "pdf"
	LinkTypeHTTPS LinkType = "https"
	LinkTypeOther LinkType = "other"
)

// DetectLinkType infers the type from the target string: a .pdf suffix wins,
// then an http(s) scheme, everything else (tel:, mailto:, ...) is other.
func DetectLinkType(target string) LinkType {
	if strings.HasSuffix(target, ".pdf") {
		return LinkTypePDF
	}
	if strings.HasPrefix(target, "https://") || strings.HasPrefix(target, "http://") {
		return LinkTypeHTTPS
	}
	return LinkTypeOther
}

// UsefulLink is one entry of the ordered support-link list.
type UsefulLink struct {
	ID          string    `db:"id" json:"id"`
	Label       string    `db:"label" json:"label"`
	URL         string    `db:"url" json:"url"`
	Type        LinkType  `db:"type" json:"type"`
	Information *string   `db:"information" json:"information,omitempty"`
	OrderIndex  int       `db:"order_index" json:"order_index"`
	CreatedBy   *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// MoveDirection expresses a one-step reorder request.
type MoveDirection string

const (
	MoveUp   MoveDirection = "up"
	MoveDown MoveDirection = "down"
)

// Valid reports whether the direction is one of the two supported moves.
func (d MoveDirection) Valid() bool {
	return d == MoveUp || d == MoveDown
}
