// Package trigger builds the trigger files that start the GSAP batch jobs and
// recognises the output files those jobs write back.
//
// Trigger names follow a fixed convention:
//
//	Generate_{EODSales|POSSales}_{siteId}_{date}.txt            (single)
//	Generate_{EODSales|POSSales}_{siteId}_{start}-{end}.txt     (range)
//	Generate_{EODSales|POSSales}_BULK_{date}.txt                (bulk)
//	Generate_FuelMonthEndDips_{siteId}_{yyyy}{mm}.txt           (monthly)
//
// Everything in this package is pure and safe for concurrent use.
package trigger

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"rootle/internal/types"
)

// EODServiceType is the export type requested by an EOD trigger.
type EODServiceType string

const (
	EODSales EODServiceType = "EODSales"
	POSSales EODServiceType = "POSSales"
)

// GenerationType selects how many sites and dates an EOD trigger covers.
type GenerationType string

const (
	GenerationSingle GenerationType = "single"
	GenerationRange  GenerationType = "range"
	GenerationBulk   GenerationType = "bulk"
)

// Folder names under {sftpUser}/Import and {sftpUser}/Export.
const (
	FolderEODSales         = "EODSales"
	FolderFuelMonthEndDips = "FuelMonthEndDips"
)

const (
	namePrefix  = "Generate_"
	nameSuffix  = ".txt"
	bulkSiteTag = "BULK"
)

// ErrInvalidGenerationType is returned by the codec for a generation type
// outside single, range and bulk.
var ErrInvalidGenerationType = errors.New("invalid generation type")

// EODRequest asks for an EOD or POS sales export. Which of the optional
// fields are required depends on GenerationType; see MissingFields.
type EODRequest struct {
	ServiceType    EODServiceType `json:"serviceType" validate:"required,oneof=EODSales POSSales"`
	GenerationType GenerationType `json:"generationType" validate:"required"`
	SiteID         string         `json:"siteId,omitempty" validate:"omitempty,trigger_token"`
	Date           string         `json:"date,omitempty" validate:"omitempty,business_date"`
	StartDate      string         `json:"startDate,omitempty" validate:"omitempty,business_date"`
	EndDate        string         `json:"endDate,omitempty" validate:"omitempty,business_date"`
	BulkSites      []string       `json:"bulkSites,omitempty"`
	SFTPUser       string         `json:"sftpUser" validate:"required,path_segment"`
	BucketName     string         `json:"bucketName" validate:"required"`
}

// MonthlyRequest asks for a fuel month-end dips report.
type MonthlyRequest struct {
	SiteID     string `json:"siteId" validate:"required,trigger_token"`
	Year       string `json:"year" validate:"required,len=4,numeric"`
	Month      string `json:"month" validate:"required,min=1,max=2,numeric"`
	SFTPUser   string `json:"sftpUser" validate:"required,path_segment"`
	BucketName string `json:"bucketName" validate:"required"`
}

// GeneratedFile is the codec output for one request.
type GeneratedFile struct {
	FileName       string `json:"fileName"`
	Content        string `json:"content"`
	DestinationKey string `json:"destinationKey"`
}

// Codec maps trigger requests to file names, bodies and object keys.
// The zero value is ready to use.
type Codec struct{}

// NewCodec returns a Codec.
func NewCodec() Codec {
	return Codec{}
}

// EOD builds the trigger file for an EOD request. Request invariants are the
// caller's responsibility; only the generation type is checked here.
func (Codec) EOD(req EODRequest) (GeneratedFile, error) {
	var name string
	switch req.GenerationType {
	case GenerationSingle:
		name = fmt.Sprintf("%s%s_%s_%s%s", namePrefix, req.ServiceType, req.SiteID, req.Date, nameSuffix)
	case GenerationRange:
		name = fmt.Sprintf("%s%s_%s_%s-%s%s", namePrefix, req.ServiceType, req.SiteID, req.StartDate, req.EndDate, nameSuffix)
	case GenerationBulk:
		name = fmt.Sprintf("%s%s_%s_%s%s", namePrefix, req.ServiceType, bulkSiteTag, req.Date, nameSuffix)
	default:
		return GeneratedFile{}, fmt.Errorf("%w: %q", ErrInvalidGenerationType, req.GenerationType)
	}

	var content string
	if req.GenerationType == GenerationBulk {
		content = strings.Join(req.BulkSites, "\n")
	}

	return GeneratedFile{
		FileName:       name,
		Content:        content,
		DestinationKey: ImportKey(req.SFTPUser, FolderEODSales, name),
	}, nil
}

// Monthly builds the trigger file for a fuel month-end dips request.
// Monthly triggers are always empty; the name carries the whole request.
func (Codec) Monthly(req MonthlyRequest) GeneratedFile {
	name := fmt.Sprintf("%s%s_%s_%s%s%s", namePrefix, FolderFuelMonthEndDips, req.SiteID, req.Year, padMonth(req.Month), nameSuffix)
	return GeneratedFile{
		FileName:       name,
		DestinationKey: ImportKey(req.SFTPUser, FolderFuelMonthEndDips, name),
	}
}

// ImportKey is the object key a trigger is uploaded to.
func ImportKey(sftpUser, folder, fileName string) string {
	return path.Join(ImportPrefix(sftpUser, folder), fileName)
}

// ImportPrefix is the folder the batch process watches for triggers.
func ImportPrefix(sftpUser, folder string) string {
	return sftpUser + "/Import/" + folder
}

// ExportPrefix is the folder the batch process writes outputs for a service
// type into. ok is false for unknown service types.
func ExportPrefix(serviceType types.ServiceType, sftpUser string) (prefix string, ok bool) {
	folder, ok := folderFor(serviceType)
	if !ok {
		return "", false
	}
	return sftpUser + "/Export/" + folder, true
}

// ImportFolder returns the import folder name for a service type.
func ImportFolder(serviceType types.ServiceType) (string, bool) {
	return folderFor(serviceType)
}

func folderFor(serviceType types.ServiceType) (string, bool) {
	switch serviceType {
	case types.ServiceGSAPEOD:
		return FolderEODSales, true
	case types.ServiceGSAPMonthly:
		return FolderFuelMonthEndDips, true
	}
	return "", false
}

// padMonth left-pads a one-digit month with a zero.
func padMonth(month string) string {
	if len(month) >= 2 {
		return month
	}
	return strings.Repeat("0", 2-len(month)) + month
}
