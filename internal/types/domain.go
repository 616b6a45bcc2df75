package types

import (
	"strings"
	"time"
)

// AWSCredentials are the static credentials used for a single object-store or
// identity call. Every call is authenticated independently; nothing is pooled.
type AWSCredentials struct {
	AccessKeyID     string       `json:"accessKeyId"`
	SecretAccessKey SecretString `json:"secretAccessKey"`
	Region          string       `json:"region"`
	SessionToken    SecretString `json:"sessionToken,omitempty"`
}

// Complete reports whether the access key, secret and region are all present.
// The session token is optional.
func (c AWSCredentials) Complete() bool {
	return strings.TrimSpace(c.AccessKeyID) != "" &&
		!c.SecretAccessKey.IsEmpty() &&
		strings.TrimSpace(c.Region) != ""
}

// ObjectInfo mirrors one object-store listing entry.
type ObjectInfo struct {
	Key          string    `json:"key"`
	LastModified time.Time `json:"lastModified"`
	Size         int64     `json:"size"`
	Checksum     string    `json:"checksum"`
}

// MatchResult is the set of output objects that correspond to a trigger file.
// GeneratedAt is the newest LastModified among the matches and is nil when
// nothing matched.
type MatchResult struct {
	TriggerFileName string       `json:"triggerFileName"`
	ServiceType     ServiceType  `json:"serviceType"`
	MatchingObjects []ObjectInfo `json:"matchingObjects"`
	GeneratedAt     *time.Time   `json:"generatedAt,omitempty"`
}

// UploadResult is returned for every trigger upload, successful or not.
// DestinationPath is derived from the request and is always populated.
type UploadResult struct {
	Success         bool      `json:"success"`
	FileName        string    `json:"fileName"`
	DestinationPath string    `json:"destinationPath"`
	UploadedAt      time.Time `json:"uploadedAt"`
	Error           string    `json:"error,omitempty"`
}

// FileContent is a downloaded object rendered as text.
type FileContent struct {
	FileName    string `json:"fileName"`
	Content     string `json:"content"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// CredentialValidation is the outcome of an identity check.
type CredentialValidation struct {
	IsValid   bool      `json:"isValid"`
	AccountID string    `json:"accountId,omitempty"`
	Username  string    `json:"username,omitempty"`
	ARN       string    `json:"arn,omitempty"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
}
