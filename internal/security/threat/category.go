package threat

// Category keys the per-context threat multiset
type Category int

const (
	CategoryMalware Category = iota
	CategoryPhishing
	CategoryCryptojacking
	CategorySuspiciousScript
	CategoryTracking
	CategoryUnauthorizedAccess
	CategoryCSPViolation
	CategoryXSS
	CategorySQLInjection
	CategoryClickjacking
	CategoryUnknown
)

// String returns the category name
func (c Category) String() string {
	switch c {
	case CategoryMalware:
		return "malware"
	case CategoryPhishing:
		return "phishing"
	case CategoryCryptojacking:
		return "cryptojacking"
	case CategorySuspiciousScript:
		return "suspicious-script"
	case CategoryTracking:
		return "tracking"
	case CategoryUnauthorizedAccess:
		return "unauthorized-access"
	case CategoryCSPViolation:
		return "csp-violation"
	case CategoryXSS:
		return "xss"
	case CategorySQLInjection:
		return "sql-injection"
	case CategoryClickjacking:
		return "clickjacking"
	default:
		return "unknown"
	}
}

// Weight is the score contribution of one occurrence of the category.
// Categories without a listed weight contribute 0.
func (c Category) Weight() int {
	switch c {
	case CategoryMalware:
		return 100
	case CategoryPhishing:
		return 80
	case CategoryCryptojacking:
		return 60
	case CategorySuspiciousScript:
		return 40
	case CategoryTracking:
		return 20
	case CategoryUnauthorizedAccess, CategoryCSPViolation, CategoryXSS,
		CategorySQLInjection, CategoryClickjacking, CategoryUnknown:
		return 0
	default:
		return 0
	}
}

// MarshalText encodes the category by name
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
