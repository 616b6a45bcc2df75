package types

// ServiceType identifies the external batch process a trigger belongs to.
type ServiceType string

const (
	ServiceGSAPEOD     ServiceType = "GSAP-EOD"
	ServiceGSAPMonthly ServiceType = "GSAP-Monthly"
)

// IsValid reports whether s is a known service type.
func (s ServiceType) IsValid() bool {
	switch s {
	case ServiceGSAPEOD, ServiceGSAPMonthly:
		return true
	}
	return false
}

// AllServiceTypes lists the supported service types in display order.
func AllServiceTypes() []ServiceType {
	return []ServiceType{ServiceGSAPEOD, ServiceGSAPMonthly}
}
