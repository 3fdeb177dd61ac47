package fetch

// Identity selects the request profile used for one fetch attempt
type Identity int

const (
	// IdentityPrimary is the browser-like profile that carries session cookies
	IdentityPrimary Identity = iota
	// IdentityFallback is the crawler-like profile sites often serve full markup to
	IdentityFallback
)

func (i Identity) String() string {
	switch i {
	case IdentityPrimary:
		return "primary"
	case IdentityFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Profile is the header set bound to an Identity
type Profile struct {
	UserAgent   string
	SendCookies bool
}
