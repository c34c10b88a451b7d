package domain

const (
	UnknownCategory    = "Unknown category"
	UnknownRequestType = "Unknown type"
)

// Find returns the first item known by id under either identifier.
func Find[T Entity](items []T, id string) (T, bool) {
	for _, it := range items {
		if it.Matches(id) {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// CategoryName resolves a category id against the loaded list.
func CategoryName(categories []Category, id string) string {
	for _, c := range categories {
		if c.Matches(id) {
			return c.Name
		}
	}
	return UnknownCategory
}

// RequestTypeName resolves a request type id against the loaded list.
func RequestTypeName(types []RequestType, id string) string {
	for _, t := range types {
		if t.Matches(id) {
			return t.Name
		}
	}
	return UnknownRequestType
}
