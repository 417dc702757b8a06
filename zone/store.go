package zone

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quillsign/quillsign/geom"
	"github.com/quillsign/quillsign/pdf/images"
)

// Common errors
var (
	ErrZoneNotFound  = errors.New("zone not found")
	ErrZoneFrozen    = errors.New("zone is signed and frozen")
	ErrModeConflict  = errors.New("another interaction mode is active")
	ErrInvalidBitmap = errors.New("invalid signature bitmap")
	ErrWrongMode     = errors.New("operation not legal in current mode")
	ErrInvalidPage   = errors.New("page index must be 1-based")
)

// ModeKind enumerates the session interaction modes.
type ModeKind int

const (
	// ModeIdle means no placement interaction is in progress.
	ModeIdle ModeKind = iota
	// ModePlacing means the next click creates a new zone.
	ModePlacing
	// ModeMoving means the next click commits a new position for one zone.
	ModeMoving
)

// String returns a string representation of the mode kind.
func (k ModeKind) String() string {
	switch k {
	case ModeIdle:
		return "idle"
	case ModePlacing:
		return "placing"
	case ModeMoving:
		return "moving"
	default:
		return "unknown"
	}
}

// Mode is the session interaction mode. ZoneID is set only for ModeMoving.
type Mode struct {
	Kind   ModeKind
	ZoneID string
}

// Default size of a newly placed zone, as percentages of the page.
const (
	DefaultZoneWidth  = 20.0
	DefaultZoneHeight = 8.0
)

// Store owns the signature zones of one open document session. It is the
// authoritative state machine for placing, moving and signing zones.
//
// A Store is single-writer: it is meant for sequential interactive use and
// must not be shared across sessions. Callers that expose a store to
// multiple goroutines must serialize access at the session boundary.
type Store struct {
	mode  Mode
	order []string
	byID  map[string]*SignatureZone
	now   func() time.Time
}

// NewStore creates an empty store for a fresh document session.
func NewStore() *Store {
	return &Store{
		byID: make(map[string]*SignatureZone),
		now:  time.Now,
	}
}

// Mode returns the current interaction mode.
func (s *Store) Mode() Mode {
	return s.mode
}

// BeginPlacing switches the session to placing mode. The next CreateZone
// call consumes the mode. Fails with ErrModeConflict unless idle.
func (s *Store) BeginPlacing() error {
	if s.mode.Kind != ModeIdle {
		return fmt.Errorf("%w: currently %s", ErrModeConflict, s.mode.Kind)
	}
	s.mode = Mode{Kind: ModePlacing}
	return nil
}

// BeginMoving switches the session to moving mode for the given zone.
// Only placed (unsigned) zones may be moved.
func (s *Store) BeginMoving(id string) error {
	z, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrZoneNotFound, id)
	}
	if z.Signed() {
		return fmt.Errorf("%w: %s", ErrZoneFrozen, id)
	}
	if s.mode.Kind != ModeIdle {
		return fmt.Errorf("%w: currently %s", ErrModeConflict, s.mode.Kind)
	}
	s.mode = Mode{Kind: ModeMoving, ZoneID: id}
	return nil
}

// CancelMode aborts any pending placing or moving interaction.
func (s *Store) CancelMode() {
	s.mode = Mode{}
}

// CreateZone commits a placing interaction: it creates a new zone of the
// default size at the clicked position, clamped to the page, and returns
// the session to idle. Legal only in placing mode.
func (s *Store) CreateZone(click geom.Point, container geom.Rect, page int) (*SignatureZone, error) {
	if s.mode.Kind != ModePlacing {
		return nil, fmt.Errorf("%w: create requires placing mode, currently %s", ErrWrongMode, s.mode.Kind)
	}
	if page < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPage, page)
	}
	x, y, err := geom.PointToPercent(click, container)
	if err != nil {
		return nil, err
	}
	x, y = geom.ClampPosition(x, y, DefaultZoneWidth, DefaultZoneHeight)

	z := &SignatureZone{
		ID:        uuid.NewString(),
		X:         x,
		Y:         y,
		Width:     DefaultZoneWidth,
		Height:    DefaultZoneHeight,
		Page:      page,
		CreatedAt: s.now(),
	}
	s.byID[z.ID] = z
	s.order = append(s.order, z.ID)
	s.mode = Mode{}
	return z.Clone(), nil
}

// MoveZone commits a moving interaction: the pixel delta is converted to a
// percentage delta against the container, applied, clamped, and the
// session returns to idle. Legal only while moving that zone.
func (s *Store) MoveZone(id string, delta geom.Point, container geom.Rect) (*SignatureZone, error) {
	z, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrZoneNotFound, id)
	}
	if z.Signed() {
		return nil, fmt.Errorf("%w: %s", ErrZoneFrozen, id)
	}
	moving := s.mode.Kind == ModeMoving && s.mode.ZoneID == id
	if !moving && s.mode.Kind != ModeIdle {
		return nil, fmt.Errorf("%w: currently %s", ErrModeConflict, s.mode.Kind)
	}
	dx, dy, err := geom.DeltaToPercent(delta, container)
	if err != nil {
		return nil, err
	}
	z.X, z.Y = geom.ClampPosition(z.X+dx, z.Y+dy, z.Width, z.Height)
	s.mode = Mode{}
	return z.Clone(), nil
}

// DeleteZone removes a placed zone. Signed zones are frozen and cannot be
// deleted.
func (s *Store) DeleteZone(id string) error {
	z, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrZoneNotFound, id)
	}
	if z.Signed() {
		return fmt.Errorf("%w: %s", ErrZoneFrozen, id)
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.mode.Kind == ModeMoving && s.mode.ZoneID == id {
		s.mode = Mode{}
	}
	return nil
}

// SignZone attaches a captured bitmap to a placed zone and stamps the
// signing time. The zone becomes frozen; a second sign fails with
// ErrZoneFrozen. The bitmap must decode as an image.
func (s *Store) SignZone(id string, bitmap []byte) (*SignatureZone, error) {
	z, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrZoneNotFound, id)
	}
	if z.Signed() {
		return nil, fmt.Errorf("%w: %s", ErrZoneFrozen, id)
	}
	if err := images.ValidateBitmap(bitmap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBitmap, err)
	}
	sig := make([]byte, len(bitmap))
	copy(sig, bitmap)
	signedAt := s.now()
	z.Signature = sig
	z.SignedAt = &signedAt
	if s.mode.Kind == ModeMoving && s.mode.ZoneID == id {
		s.mode = Mode{}
	}
	return z.Clone(), nil
}

// Zone returns a copy of the zone with the given id.
func (s *Store) Zone(id string) (*SignatureZone, error) {
	z, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrZoneNotFound, id)
	}
	return z.Clone(), nil
}

// Zones returns copies of all zones in creation order.
func (s *Store) Zones() []*SignatureZone {
	out := make([]*SignatureZone, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id].Clone())
	}
	return out
}

// SignedZones returns copies of the signed zones in creation order.
func (s *Store) SignedZones() []*SignatureZone {
	var out []*SignatureZone
	for _, id := range s.order {
		if z := s.byID[id]; z.Signed() {
			out = append(out, z.Clone())
		}
	}
	return out
}

// Archive returns a deep-copied, frozen snapshot of all zones, suitable
// for handing to the compositor and the archival collaborator.
func (s *Store) Archive() []*SignatureZone {
	return s.Zones()
}

// Reset discards all zones and returns the session to idle, as when the
// document is replaced or the session ends.
func (s *Store) Reset() {
	s.mode = Mode{}
	s.order = nil
	s.byID = make(map[string]*SignatureZone)
}

// Len returns the number of zones in the session.
func (s *Store) Len() int {
	return len(s.order)
}
