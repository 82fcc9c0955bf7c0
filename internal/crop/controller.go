package crop

import (
	"log/slog"
)

// Controller owns the crop state for one picker session: the ratio
// selector, the parameter store, and the observable cells driving UI
// reactivity (preview asset, ready flag).
type Controller struct {
	selector *RatioSelector
	store    *Store
	shared   bool

	previewAsset *Observable[string]
	ready        *Observable[bool]
	logger       *slog.Logger
}

// ControllerConfig configures a controller.
type ControllerConfig struct {
	// Ratios is the fixed candidate aspect-ratio list. Must be
	// non-empty.
	Ratios []float64
	// StartIndex selects the initially active ratio.
	StartIndex int
	// SharedStore, when non-nil, makes crop parameters survive
	// controller recreation: every controller handed the same store
	// reads and writes one process-wide mapping. When nil the
	// controller owns a fresh session-local store.
	SharedStore *Store
	Logger      *slog.Logger
}

// NewController builds a controller. The store lifetime (session vs
// shared) is fixed here for the controller's lifetime.
func NewController(cfg ControllerConfig) (*Controller, error) {
	selector, err := NewRatioSelector(cfg.Ratios, cfg.StartIndex)
	if err != nil {
		return nil, err
	}

	store := cfg.SharedStore
	shared := store != nil
	if store == nil {
		store = NewStore()
	}

	return &Controller{
		selector:     selector,
		store:        store,
		shared:       shared,
		previewAsset: NewObservable(""),
		ready:        NewObservable(false),
		logger:       cfg.Logger,
	}, nil
}

// Selector returns the ratio selector.
func (c *Controller) Selector() *RatioSelector {
	return c.selector
}

// Store returns the backing parameter store.
func (c *Controller) Store() *Store {
	return c.store
}

// SharedStore reports whether parameters persist across controller
// recreation.
func (c *Controller) SharedStore() bool {
	return c.shared
}

// PreviewAsset returns the observable holding the active preview
// asset ID.
func (c *Controller) PreviewAsset() *Observable[string] {
	return c.previewAsset
}

// Ready returns the observable ready flag, set once the crop view has
// loaded its first asset.
func (c *Controller) Ready() *Observable[bool] {
	return c.ready
}

// Get returns the stored parameter for an asset, or false if absent.
func (c *Controller) Get(assetID string) (Parameter, bool) {
	return c.store.Get(assetID)
}

// OnChange records the outgoing preview asset's live crop state and
// merges it with the stored states for the rest of the selection.
// outgoingID may be empty (no asset was open in the crop view yet);
// live may be nil (the view was never interacted with).
func (c *Controller) OnChange(outgoingID string, live *Parameter, selection []string) {
	c.store.SnapshotAndMerge(outgoingID, live, selection)
	if c.logger != nil {
		c.logger.Debug("crop state merged",
			"outgoing_asset", outgoingID,
			"selection_size", len(selection),
			"stored", c.store.Len(),
		)
	}
}

// Clear empties the parameter store.
func (c *Controller) Clear() {
	c.store.Clear()
}

// Close releases the observable cells. The shared store, when used,
// is owned by the caller and left untouched.
func (c *Controller) Close() {
	c.selector.Close()
	c.previewAsset.Close()
	c.ready.Close()
}
