package ringqueue

// Stats stores queue statistics
type Stats struct {
	// Pushes is a number of accepted items
	Pushes uint64 `json:"pushes"`
	// Rejected is a number of items which did not fit
	Rejected uint64 `json:"rejected"`
	// Pops is a number of returned items
	Pops uint64 `json:"pops"`
	// Spilled is a number of items pushed to swap
	Spilled uint64 `json:"spilled"`
	// Drained is a number of items moved from swap back to the ring
	Drained uint64 `json:"drained"`
	// Notifications is a number of consumer wake-ups
	Notifications uint64 `json:"notifications"`
}
