// Package crop manages per-asset crop parameters for a media selection:
// the parameter store, the aspect-ratio selector, and the controller
// that keeps both in sync with the active preview asset.
package crop

import "fmt"

// DefaultScale is the zoom level applied when an asset was never
// opened in the crop view.
const DefaultScale = 1.0

// Transform is the opaque transform description produced by the crop
// view. The agent stores and round-trips it without interpreting it.
type Transform struct {
	Matrix [16]float64 `json:"matrix"`
}

// Area is a normalized crop rectangle relative to the oriented asset
// dimensions. All fields are in [0,1].
type Area struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Validate checks the rectangle stays inside the unit square.
func (a Area) Validate() error {
	if a.Left < 0 || a.Top < 0 || a.Width < 0 || a.Height < 0 {
		return fmt.Errorf("crop area has negative component: %+v", a)
	}
	if a.Left+a.Width > 1 || a.Top+a.Height > 1 {
		return fmt.Errorf("crop area exceeds unit square: %+v", a)
	}
	return nil
}

// Parameter is one asset's resolved crop state. Transform and Area are
// nil when the asset was never adjusted in the crop view.
type Parameter struct {
	AssetID   string     `json:"asset_id"`
	Transform *Transform `json:"transform,omitempty"`
	Scale     float64    `json:"scale"`
	Area      *Area      `json:"area,omitempty"`
}

// DefaultParameter synthesizes the parameter used for assets with no
// stored entry: unit scale, no crop region, no transform.
func DefaultParameter(assetID string) Parameter {
	return Parameter{AssetID: assetID, Scale: DefaultScale}
}

// Validate checks scale positivity and the area invariant.
func (p Parameter) Validate() error {
	if p.Scale <= 0 {
		return fmt.Errorf("scale must be positive, got %v", p.Scale)
	}
	if p.Area != nil {
		return p.Area.Validate()
	}
	return nil
}
