package crawler

// Admission is the outcome of offering a link to the frontier.
type Admission int

const (
	// Admitted links entered the frontier.
	Admitted Admission = iota
	// Excluded links matched an exclude pattern, extension or scheme.
	Excluded
	// AlreadyVisited links were already in the visited set.
	AlreadyVisited
	// DepthExceeded links are valid but one level too deep to be fetched.
	DepthExceeded
	// InvalidLink values could not be normalized.
	InvalidLink
	// ForeignAuthority links point at another scheme or host.
	ForeignAuthority
	// PaginationExceeded entries were dequeued past the per-section page limit.
	PaginationExceeded
	// Unreachable links failed their status probe.
	Unreachable
)

// String returns the snake_case name used in logs and reports.
func (a Admission) String() string {
	switch a {
	case Admitted:
		return "admitted"
	case Excluded:
		return "excluded"
	case AlreadyVisited:
		return "already_visited"
	case DepthExceeded:
		return "depth_exceeded"
	case InvalidLink:
		return "invalid_link"
	case ForeignAuthority:
		return "foreign_authority"
	case PaginationExceeded:
		return "pagination_exceeded"
	case Unreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// Decision records what happened to one link.
type Decision struct {
	// URL is the normalized link, or the raw value when normalization failed.
	URL string

	// Source is the page the link was found on; empty for the seed.
	Source string

	// Depth is the depth the link would have in the frontier.
	Depth int

	Admission Admission
}
