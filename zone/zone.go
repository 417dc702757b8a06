// Package zone tracks signature zones for a single document session.
// A zone is a rectangular, page-relative region where a signature may be
// placed and later composited; geometry is stored as percentages of the
// page so it survives zoom and re-render.
package zone

import (
	"time"
)

// SignatureZone is one placement region on a document page.
//
// X, Y, Width and Height are percentages (0-100) of page width/height with
// the origin at the top-left corner. Page is 1-based. Signature and
// SignedAt are set together when the zone is signed and never before.
type SignatureZone struct {
	ID        string     `json:"id"`
	X         float64    `json:"x"`
	Y         float64    `json:"y"`
	Width     float64    `json:"width"`
	Height    float64    `json:"height"`
	Page      int        `json:"page"`
	Signature []byte     `json:"signature,omitempty"`
	SignedAt  *time.Time `json:"timestamp,omitempty"`
	CreatedAt time.Time  `json:"-"`
}

// Signed reports whether the zone has been signed. Signed zones are
// frozen: they can no longer be moved, deleted or re-signed.
func (z *SignatureZone) Signed() bool {
	return z.Signature != nil
}

// Clone returns a deep copy of the zone.
func (z *SignatureZone) Clone() *SignatureZone {
	c := *z
	if z.Signature != nil {
		c.Signature = make([]byte, len(z.Signature))
		copy(c.Signature, z.Signature)
	}
	if z.SignedAt != nil {
		t := *z.SignedAt
		c.SignedAt = &t
	}
	return &c
}
