// Package geo maps positions on a PDF page onto a geographic bounding box
// with a plain linear transform. It is not a map projection: there is no
// clamping and no validation of out-of-range input.
package geo

// Default page size and bounds used when none are configured
const (
	DefaultPageWidth  = 600
	DefaultPageHeight = 800

	DefaultTopLat    = 40.7128
	DefaultLeftLon   = -74.0060
	DefaultBottomLat = 34.0522
	DefaultRightLon  = -118.2437
)

// Point is a geographic position
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Bounds is the geographic box the page is stretched over
type Bounds struct {
	TopLat    float64 `json:"top_lat"`
	LeftLon   float64 `json:"left_lon"`
	BottomLat float64 `json:"bottom_lat"`
	RightLon  float64 `json:"right_lon"`
}

// DefaultBounds returns the built-in bounding box
func DefaultBounds() Bounds {
	return Bounds{
		TopLat:    DefaultTopLat,
		LeftLon:   DefaultLeftLon,
		BottomLat: DefaultBottomLat,
		RightLon:  DefaultRightLon,
	}
}

// TopFromBottom converts a bottom-left-origin y into a top-left-origin top
func TopFromBottom(y, height, pageHeight float64) float64 {
	return pageHeight - y - height
}

// Mapper maps screen positions on a nominal page into Bounds
type Mapper struct {
	PageWidth  float64 `json:"page_width"`
	PageHeight float64 `json:"page_height"`
	Bounds     Bounds  `json:"bounds"`
}

// NewMapper creates a mapper for a nominal page size
func NewMapper(pageWidth, pageHeight float64, bounds Bounds) *Mapper {
	return &Mapper{PageWidth: pageWidth, PageHeight: pageHeight, Bounds: bounds}
}

// DefaultMapper returns the 600x800 mapper over the default bounds
func DefaultMapper() *Mapper {
	return NewMapper(DefaultPageWidth, DefaultPageHeight, DefaultBounds())
}

// Scale returns the degrees per page unit along each axis
func (m *Mapper) Scale() (scaleX, scaleY float64) {
	scaleX = (m.Bounds.RightLon - m.Bounds.LeftLon) / m.PageWidth
	scaleY = (m.Bounds.TopLat - m.Bounds.BottomLat) / m.PageHeight
	return scaleX, scaleY
}

// ToLatLon interpolates a top-left-origin position
func (m *Mapper) ToLatLon(left, top float64) Point {
	scaleX, scaleY := m.Scale()
	return Point{
		Latitude:  m.Bounds.TopLat - top*scaleY,
		Longitude: m.Bounds.LeftLon + left*scaleX,
	}
}

// Named is a mapped point with the name of the field it came from
type Named struct {
	Name  string `json:"name"`
	Point Point  `json:"coordinates"`
}

// Positioned is anything with a name and a top-left screen position
type Positioned interface {
	PositionName() string
	Position() (left, top float64)
}

// MapAll maps every positioned item in order
func (m *Mapper) MapAll(items []Positioned) []Named {
	out := make([]Named, 0, len(items))
	for _, item := range items {
		left, top := item.Position()
		out = append(out, Named{Name: item.PositionName(), Point: m.ToLatLon(left, top)})
	}
	return out
}
