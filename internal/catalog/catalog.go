package catalog

// Product is one sellable item in the point-of-sale catalog.
//
// Identity is the numeric ID assigned by the remote catalog; it is stable
// across fetches and is the key under which the product is persisted.
type Product struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Image    string  `json:"image,omitempty"`
	Category string  `json:"category,omitempty"`
}

// Snapshot is the full catalog as returned by one successful remote fetch,
// in remote order. Snapshots are not persisted as a unit; only their members
// and their digest are.
type Snapshot []Product
