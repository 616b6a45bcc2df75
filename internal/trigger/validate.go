package trigger

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	// Tokens end up between underscores and slashes in names and keys.
	tokenPattern        = regexp.MustCompile(`^[A-Za-z0-9.]+$`)
	businessDatePattern = regexp.MustCompile(`^\d{8}$`)
	pathSegmentPattern  = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
)

// RegisterValidations installs the custom tags used by the request structs in
// this package.
func RegisterValidations(v *validator.Validate) error {
	for tag, re := range map[string]*regexp.Regexp{
		"trigger_token": tokenPattern,
		"business_date": businessDatePattern,
		"path_segment":  pathSegmentPattern,
	} {
		if err := v.RegisterValidation(tag, matchString(re)); err != nil {
			return err
		}
	}
	return nil
}

func matchString(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// MissingFields lists the JSON names of fields the request's generation type
// requires but which are empty. An unknown generation type yields nil; the
// codec reports that case.
func (r EODRequest) MissingFields() []string {
	var missing []string
	need := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	switch r.GenerationType {
	case GenerationSingle:
		need("siteId", r.SiteID)
		need("date", r.Date)
	case GenerationRange:
		need("siteId", r.SiteID)
		need("startDate", r.StartDate)
		need("endDate", r.EndDate)
	case GenerationBulk:
		if len(r.BulkSites) == 0 {
			missing = append(missing, "bulkSites")
		}
		need("date", r.Date)
	}
	return missing
}

// Valid reports whether g is one of the known generation types.
func (g GenerationType) Valid() bool {
	switch g {
	case GenerationSingle, GenerationRange, GenerationBulk:
		return true
	}
	return false
}
