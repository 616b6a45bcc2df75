package trigger

import (
	"path"
	"regexp"
	"strings"
	"time"

	"rootle/internal/types"
)

// Kind discriminates the shapes a trigger name can take.
type Kind int

const (
	KindUnparseable Kind = iota
	KindBulk
	KindSingle
	KindRange
	KindMonthly
)

func (k Kind) String() string {
	switch k {
	case KindBulk:
		return "bulk"
	case KindSingle:
		return "single"
	case KindRange:
		return "range"
	case KindMonthly:
		return "monthly"
	default:
		return "unparseable"
	}
}

// Descriptor is the structured form of a trigger file name. Which fields are
// set depends on Kind.
type Descriptor struct {
	Kind      Kind
	Type      string
	SiteID    string
	Date      string
	StartDate string
	EndDate   string
	YearMonth string
}

// ParseTrigger recovers the descriptor encoded in a trigger file name.
// Names that do not follow the convention yield KindUnparseable.
func ParseTrigger(name string, serviceType types.ServiceType) Descriptor {
	base := strings.TrimSuffix(strings.TrimPrefix(name, namePrefix), nameSuffix)
	parts := strings.Split(base, "_")
	if len(parts) < 3 {
		return Descriptor{}
	}

	switch serviceType {
	case types.ServiceGSAPEOD:
		if parts[1] == bulkSiteTag {
			return Descriptor{Kind: KindBulk, Type: parts[0], Date: parts[2]}
		}
		if strings.Contains(parts[2], "-") {
			dates := strings.Split(parts[2], "-")
			return Descriptor{
				Kind:      KindRange,
				Type:      parts[0],
				SiteID:    parts[1],
				StartDate: dates[0],
				EndDate:   dates[1],
			}
		}
		return Descriptor{Kind: KindSingle, Type: parts[0], SiteID: parts[1], Date: parts[2]}
	case types.ServiceGSAPMonthly:
		return Descriptor{Kind: KindMonthly, SiteID: parts[1], YearMonth: parts[2]}
	}
	return Descriptor{}
}

// Pattern returns the output-file pattern for d, or nil when d cannot match
// anything. serviceType must agree with the one d was parsed under.
func (d Descriptor) Pattern(serviceType types.ServiceType) *regexp.Regexp {
	var expr string
	switch {
	case serviceType == types.ServiceGSAPEOD && d.Kind == KindBulk:
		expr = `^` + q(d.Type) + `_\d+_\d{8}T\d{6}_` + q(d.Date) + `\.txt$`
	case serviceType == types.ServiceGSAPEOD && d.Kind == KindSingle:
		expr = `^` + q(d.Type) + `_` + q(d.SiteID) + `_\d{8}T\d{6}_` + q(d.Date) + `\.txt$`
	case serviceType == types.ServiceGSAPEOD && d.Kind == KindRange:
		// Only the two boundary dates are recognised; outputs for the days in
		// between are not matched.
		expr = `^` + q(d.Type) + `_` + q(d.SiteID) + `_\d{8}T\d{6}_(` + q(d.StartDate) + `|` + q(d.EndDate) + `)\.txt$`
	case serviceType == types.ServiceGSAPMonthly && d.Kind == KindMonthly:
		year, month := splitYearMonth(d.YearMonth)
		expr = `^FuelMonthEndDips_\d+_` + q(year) + q(month) + `\d{2}\.xml$`
	default:
		return nil
	}
	return regexp.MustCompile(expr)
}

// IsMatch reports whether the output file baseName belongs to the trigger
// described by d.
func IsMatch(baseName string, d Descriptor, serviceType types.ServiceType) bool {
	re := d.Pattern(serviceType)
	return re != nil && re.MatchString(baseName)
}

// Match selects the objects produced by triggerName. Candidates are compared
// by the last segment of their key. The result is never nil and an
// unparseable trigger simply matches nothing.
func Match(triggerName string, serviceType types.ServiceType, candidates []types.ObjectInfo) types.MatchResult {
	result := types.MatchResult{
		TriggerFileName: triggerName,
		ServiceType:     serviceType,
		MatchingObjects: []types.ObjectInfo{},
	}

	re := ParseTrigger(triggerName, serviceType).Pattern(serviceType)
	if re == nil {
		return result
	}

	var latest time.Time
	for _, obj := range candidates {
		if !re.MatchString(path.Base(obj.Key)) {
			continue
		}
		result.MatchingObjects = append(result.MatchingObjects, obj)
		if obj.LastModified.After(latest) {
			latest = obj.LastModified
		}
	}

	if len(result.MatchingObjects) > 0 {
		result.GeneratedAt = &latest
	}
	return result
}

// splitYearMonth takes the first four characters as the year and the next
// two as the month, clamping at the end of the string.
func splitYearMonth(ym string) (year, month string) {
	year = ym[:min(4, len(ym))]
	rest := ym[len(year):]
	month = rest[:min(2, len(rest))]
	return year, month
}

func q(s string) string {
	return regexp.QuoteMeta(s)
}
