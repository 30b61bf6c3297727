package validator

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Custom validation tags used by request models and chunk ingestion.
const (
	TagRegion     = "region"     // Province or region pinyin code (gd, sd, nm)
	TagFacet      = "facet"      // Scope facet token (asset, doc class, topic)
	TagChunkID    = "chunkid"    // Regulation chunk identifier
	TagSafeString = "safestring" // Safe string (no SQL injection, XSS patterns)
)

var (
	regionRegex  = regexp.MustCompile(`^[a-z]{2,8}$`)
	facetRegex   = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)
	chunkIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9:_-]{0,63}$`)

	// Dangerous patterns for safe string validation
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:",
		"SELECT ", "INSERT ", "UPDATE ", "DELETE ", "DROP ",
		"UNION ", "OR 1=1", "' OR '", "-- ", "/*", "*/",
	}
)

// customRule couples a validation func with its bilingual messages.
// {0} is replaced with the JSON field name.
type customRule struct {
	fn validator.Func
	en string
	zh string
}

var customRules = map[string]customRule{
	TagRegion: {
		fn: validateRegion,
		en: "{0} must be a lowercase province code (2-8 letters, e.g. gd)",
		zh: "{0}必须是省份拼音简码（2-8个小写字母，如 gd）",
	},
	TagFacet: {
		fn: validateFacet,
		en: "{0} must be a lowercase token of letters, numbers, underscores and hyphens (max 32 characters)",
		zh: "{0}必须是小写标识（字母、数字、下划线和连字符，不超过32个字符）",
	},
	TagChunkID: {
		fn: validateChunkID,
		en: "{0} must contain only letters, numbers, colons, underscores and hyphens (max 64 characters)",
		zh: "{0}只能包含字母、数字、冒号、下划线和连字符（不超过64个字符）",
	},
	TagSafeString: {
		fn: validateSafeString,
		en: "{0} contains potentially unsafe content",
		zh: "{0}包含潜在的不安全内容",
	},
}

// registerCustomRules installs every custom rule together with its
// translations.
func (v *Validator) registerCustomRules() {
	for tag, rule := range customRules {
		_ = v.RegisterValidationWithTranslation(tag, rule.fn, map[string]string{
			LangEN: rule.en,
			LangZH: rule.zh,
		})
	}
}

// validateRegion validates province and region pinyin codes.
// Lowercase letters only, 2-8 characters ("gd", "sd", "nm").
func validateRegion(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	return regionRegex.MatchString(value)
}

// validateFacet validates scope facet tokens used for asset types and
// document classes. Must start with a letter, lowercase alphanumeric
// plus underscore and hyphen, at most 32 chars ("solar", "grid").
func validateFacet(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return facetRegex.MatchString(value)
}

// validateChunkID validates regulation chunk identifiers. Chunk IDs
// become vector store primary keys and cache key parts, so the
// alphabet is restricted to alphanumerics, colon, underscore and
// hyphen, at most 64 chars ("gd:grid:0001", ULIDs).
func validateChunkID(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return chunkIDRegex.MatchString(value)
}

// validateSafeString checks for potentially dangerous patterns.
func validateSafeString(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}

	upperValue := strings.ToUpper(value)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(upperValue, strings.ToUpper(pattern)) {
			return false
		}
	}

	return true
}
