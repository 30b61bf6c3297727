package errors

// Service codes (the AA segment). 00 is reserved for shared errors;
// business services start at 20.
const (
	ServiceCommon = 0
	ServiceQuery  = 20
)

// Category codes (the BB segment). 01-06 map to client errors,
// 07-12 to server errors; the split drives IsClientError/IsServerError.
const (
	CategorySuccess    = 0
	CategoryRequest    = 1
	CategoryAuth       = 2
	CategoryPermission = 3
	CategoryResource   = 4
	CategoryConflict   = 5
	CategoryRateLimit  = 6
	CategoryInternal   = 7
	CategoryDatabase   = 8
	CategoryCache      = 9
	CategoryNetwork    = 10
	CategoryTimeout    = 11
	CategoryConfig     = 12
)

// MakeCode builds an AABBCCC error code from service, category, and
// sequence.
func MakeCode(service, category, sequence int) int {
	return service*100000 + category*1000 + sequence
}

// ParseCode splits an error code back into service, category, and
// sequence.
func ParseCode(code int) (service, category, sequence int) {
	service = code / 100000
	category = (code % 100000) / 1000
	sequence = code % 1000
	return
}

// GetCategory returns the category segment of an error code.
func GetCategory(code int) int {
	return (code % 100000) / 1000
}

// IsClientError reports whether the code belongs to a client error
// category (rendered as 4xx).
func IsClientError(code int) bool {
	category := GetCategory(code)
	return category >= CategoryRequest && category <= CategoryRateLimit
}

// IsServerError reports whether the code belongs to a server error
// category (rendered as 5xx).
func IsServerError(code int) bool {
	category := GetCategory(code)
	return category >= CategoryInternal && category <= CategoryConfig
}
