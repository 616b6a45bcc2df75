// Package identity checks AWS credentials by asking STS who they belong to.
package identity

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"rootle/internal/awsutil"
	"rootle/internal/types"
)

// MissingCredentialsMessage is reported when any required field is empty.
const MissingCredentialsMessage = "Missing required credentials (accessKeyId, secretAccessKey, region)"

// Bound on the STS round trip so a bad endpoint fails fast.
const callTimeout = 10 * time.Second

// Client is the subset of the STS API the validator uses.
type Client interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

var _ Client = (*sts.Client)(nil)

// ClientFactory returns an STS client authenticated as creds.
type ClientFactory func(ctx context.Context, creds types.AWSCredentials) (Client, error)

// NewClientFactory returns a ClientFactory producing real STS clients.
func NewClientFactory(endpoint awsutil.Endpoint) ClientFactory {
	return func(ctx context.Context, creds types.AWSCredentials) (Client, error) {
		cfg, err := awsutil.ConfigFor(ctx, creds, endpoint)
		if err != nil {
			return nil, err
		}
		return sts.NewFromConfig(cfg), nil
	}
}

// Validator resolves credentials to an account and principal.
type Validator struct {
	clients ClientFactory
	logger  *slog.Logger
	now     func() time.Time
}

// NewValidator creates a Validator. A nil logger falls back to slog.Default().
func NewValidator(clients ClientFactory, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{clients: clients, logger: logger, now: time.Now}
}

// Validate describes rejected credentials in the result. The error is
// reserved for STS being unreachable (upstream_identity_unavailable), when
// nothing is known about the credentials either way.
func (v *Validator) Validate(ctx context.Context, creds types.AWSCredentials) (types.CredentialValidation, error) {
	result := types.CredentialValidation{CheckedAt: v.now().UTC()}

	if !creds.Complete() {
		result.Error = MissingCredentialsMessage
		return result, nil
	}

	client, err := v.clients(ctx, creds)
	if err != nil {
		v.logger.WarnContext(ctx, "failed to build sts client", "error", err)
		return result, types.NewAppError(types.ErrCodeUpstreamIdentity, "identity service client could not be created", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	out, err := client.GetCallerIdentity(callCtx, &sts.GetCallerIdentityInput{})
	if err != nil {
		code := awsutil.ErrorCode(err)
		if code == "" {
			v.logger.WarnContext(ctx, "sts unreachable", "error", err)
			return result, types.NewAppError(types.ErrCodeUpstreamIdentity, "identity service unreachable: "+err.Error(), err)
		}
		result.Error = friendlyMessage(err)
		v.logger.InfoContext(ctx, "credential validation failed",
			"access_key", types.MaskIdentifier(creds.AccessKeyID),
			"code", code,
		)
		return result, nil
	}

	result.IsValid = true
	result.AccountID = aws.ToString(out.Account)
	result.ARN = aws.ToString(out.Arn)
	result.Username = usernameFromARN(result.ARN)

	v.logger.InfoContext(ctx, "credentials validated",
		"account_id", result.AccountID,
		"access_key", types.MaskIdentifier(creds.AccessKeyID),
	)
	return result, nil
}

func friendlyMessage(err error) string {
	switch awsutil.ErrorCode(err) {
	case "InvalidClientTokenId", "InvalidUserID.NotFound":
		return "Access key not found"
	case "SignatureDoesNotMatch":
		return "Invalid secret access key"
	case "ExpiredToken", "TokenRefreshRequired":
		return "Session token expired"
	case "AccessDenied":
		return "Access denied - insufficient permissions"
	}
	return awsutil.ErrorMessage(err)
}

// usernameFromARN returns the final path segment of arn, e.g. "alice" for
// arn:aws:iam::123456789012:user/alice.
func usernameFromARN(arn string) string {
	name := arn[strings.LastIndex(arn, "/")+1:]
	if name == "" {
		return "Unknown"
	}
	return name
}
