// Package cloudservice drives the GSAP batch jobs: it uploads trigger files
// into the import folders and finds the outputs the jobs write back.
package cloudservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"rootle/internal/history"
	"rootle/internal/trigger"
	"rootle/internal/types"
)

// TriggerContentType is the MIME type trigger files are uploaded with.
const TriggerContentType = "text/plain"

// ObjectStore is the object storage the batch process shares with us.
type ObjectStore interface {
	Put(ctx context.Context, creds types.AWSCredentials, bucket, key string, content []byte, contentType string) error
	List(ctx context.Context, creds types.AWSCredentials, bucket, prefix string) ([]types.ObjectInfo, error)
	Get(ctx context.Context, creds types.AWSCredentials, bucket, key string) (types.FileContent, error)
	Exists(ctx context.Context, creds types.AWSCredentials, bucket, key string) (bool, error)
}

// HistoryRecorder stores the outcome of each upload.
type HistoryRecorder interface {
	Append(ctx context.Context, e history.Entry) (history.Entry, error)
}

// RequestValidator checks struct tags and reports failures as validation
// AppErrors.
type RequestValidator interface {
	ValidateStruct(s any) error
}

// MonitorRequest identifies the trigger whose outputs are wanted.
type MonitorRequest struct {
	ServiceType     types.ServiceType `json:"serviceType" validate:"required"`
	BucketName      string            `json:"bucketName" validate:"required"`
	SFTPUser        string            `json:"sftpUser" validate:"required,path_segment"`
	TriggerFileName string            `json:"triggerFileName" validate:"required"`
}

// TriggerStatus combines whether a trigger is still waiting to be picked up
// with the outputs produced for it so far.
type TriggerStatus struct {
	TriggerFileName string            `json:"triggerFileName"`
	TriggerKey      string            `json:"triggerKey"`
	TriggerPresent  bool              `json:"triggerPresent"`
	Outputs         types.MatchResult `json:"outputs"`
	Complete        bool              `json:"complete"`
}

// Config holds the Service dependencies. History is optional.
type Config struct {
	Store     ObjectStore
	History   HistoryRecorder
	Validator RequestValidator
	Logger    *slog.Logger
}

// Service is the upload and monitor orchestrator.
type Service struct {
	store     ObjectStore
	history   HistoryRecorder
	validator RequestValidator
	codec     trigger.Codec
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a Service.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     cfg.Store,
		history:   cfg.History,
		validator: cfg.Validator,
		codec:     trigger.NewCodec(),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// PreviewEOD returns the trigger file an EOD request would upload.
func (s *Service) PreviewEOD(req trigger.EODRequest) (trigger.GeneratedFile, error) {
	if err := s.validateEOD(req); err != nil {
		return trigger.GeneratedFile{}, err
	}
	file, err := s.codec.EOD(req)
	if err != nil {
		return trigger.GeneratedFile{}, invalidGenerationType(req.GenerationType, err)
	}
	return file, nil
}

// PreviewMonthly returns the trigger file a monthly request would upload.
func (s *Service) PreviewMonthly(req trigger.MonthlyRequest) (trigger.GeneratedFile, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return trigger.GeneratedFile{}, err
	}
	return s.codec.Monthly(req), nil
}

// GenerateEOD uploads an EOD trigger. Only invalid requests return an error;
// a rejected upload is reported through UploadResult.
func (s *Service) GenerateEOD(ctx context.Context, creds types.AWSCredentials, req trigger.EODRequest) (types.UploadResult, error) {
	file, err := s.PreviewEOD(req)
	if err != nil {
		return types.UploadResult{}, err
	}
	return s.upload(ctx, creds, types.ServiceGSAPEOD, req.BucketName, req.SFTPUser, file), nil
}

// GenerateMonthly uploads a fuel month-end dips trigger.
func (s *Service) GenerateMonthly(ctx context.Context, creds types.AWSCredentials, req trigger.MonthlyRequest) (types.UploadResult, error) {
	file, err := s.PreviewMonthly(req)
	if err != nil {
		return types.UploadResult{}, err
	}
	return s.upload(ctx, creds, types.ServiceGSAPMonthly, req.BucketName, req.SFTPUser, file), nil
}

// Monitor lists the export folder for the request's service type and returns
// the objects produced by the trigger.
func (s *Service) Monitor(ctx context.Context, creds types.AWSCredentials, req MonitorRequest) (types.MatchResult, error) {
	prefix, err := s.exportPrefix(req)
	if err != nil {
		return types.MatchResult{}, err
	}

	objects, err := s.store.List(ctx, creds, req.BucketName, prefix)
	if err != nil {
		return types.MatchResult{}, err
	}

	result := trigger.Match(req.TriggerFileName, req.ServiceType, objects)
	s.logger.DebugContext(ctx, "outputs monitored",
		"trigger", req.TriggerFileName,
		"candidates", len(objects),
		"matches", len(result.MatchingObjects),
	)
	return result, nil
}

// Status checks the import folder and the export folder concurrently.
func (s *Service) Status(ctx context.Context, creds types.AWSCredentials, req MonitorRequest) (TriggerStatus, error) {
	if _, err := s.exportPrefix(req); err != nil {
		return TriggerStatus{}, err
	}
	folder, _ := trigger.ImportFolder(req.ServiceType)
	key := trigger.ImportKey(req.SFTPUser, folder, req.TriggerFileName)

	var (
		present bool
		outputs types.MatchResult
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		present, err = s.store.Exists(gCtx, creds, req.BucketName, key)
		return err
	})
	g.Go(func() error {
		var err error
		outputs, err = s.Monitor(gCtx, creds, req)
		return err
	})
	if err := g.Wait(); err != nil {
		return TriggerStatus{}, err
	}

	return TriggerStatus{
		TriggerFileName: req.TriggerFileName,
		TriggerKey:      key,
		TriggerPresent:  present,
		Outputs:         outputs,
		Complete:        len(outputs.MatchingObjects) > 0,
	}, nil
}

// Content fetches one output file.
func (s *Service) Content(ctx context.Context, creds types.AWSCredentials, bucket, key string) (types.FileContent, error) {
	if bucket == "" || key == "" {
		return types.FileContent{}, missingFields("bucketName and filePath are required", "bucketName", "filePath")
	}
	return s.store.Get(ctx, creds, bucket, key)
}

// ListOutputs lists every object under prefix.
func (s *Service) ListOutputs(ctx context.Context, creds types.AWSCredentials, bucket, prefix string) ([]types.ObjectInfo, error) {
	if bucket == "" || prefix == "" {
		return nil, missingFields("bucketName and exportPath are required", "bucketName", "exportPath")
	}
	return s.store.List(ctx, creds, bucket, prefix)
}

func (s *Service) validateEOD(req trigger.EODRequest) error {
	if err := s.validator.ValidateStruct(req); err != nil {
		return err
	}
	if !req.GenerationType.Valid() {
		return invalidGenerationType(req.GenerationType, trigger.ErrInvalidGenerationType)
	}
	if missing := req.MissingFields(); len(missing) > 0 {
		return missingFields(generationRequirement(req.GenerationType), missing...)
	}
	return nil
}

func (s *Service) exportPrefix(req MonitorRequest) (string, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return "", err
	}
	prefix, ok := trigger.ExportPrefix(req.ServiceType, req.SFTPUser)
	if !ok {
		return "", types.NewAppErrorWithDetails(
			types.ErrCodeValidationServiceType,
			fmt.Sprintf("unsupported service type %q", req.ServiceType),
			nil,
			map[string]any{"allowed": types.AllServiceTypes()},
		)
	}
	return prefix, nil
}

func (s *Service) upload(ctx context.Context, creds types.AWSCredentials, serviceType types.ServiceType, bucket, sftpUser string, file trigger.GeneratedFile) types.UploadResult {
	result := types.UploadResult{
		Success:         true,
		FileName:        file.FileName,
		DestinationPath: fmt.Sprintf("s3://%s/%s", bucket, file.DestinationKey),
		UploadedAt:      s.now(),
	}

	if err := s.store.Put(ctx, creds, bucket, file.DestinationKey, []byte(file.Content), TriggerContentType); err != nil {
		result.Success = false
		result.Error = errorMessage(err)
		s.logger.WarnContext(ctx, "trigger upload failed",
			"service_type", serviceType,
			"destination", result.DestinationPath,
			"error", err,
		)
	} else {
		s.logger.InfoContext(ctx, "trigger uploaded",
			"service_type", serviceType,
			"destination", result.DestinationPath,
		)
	}

	s.record(ctx, serviceType, bucket, sftpUser, result)
	return result
}

// record is best effort: the upload already happened and its result stands.
func (s *Service) record(ctx context.Context, serviceType types.ServiceType, bucket, sftpUser string, r types.UploadResult) {
	if s.history == nil {
		return
	}
	_, err := s.history.Append(ctx, history.Entry{
		ServiceType:     serviceType,
		FileName:        r.FileName,
		DestinationPath: r.DestinationPath,
		BucketName:      bucket,
		SFTPUser:        sftpUser,
		Success:         r.Success,
		Error:           r.Error,
		UploadedAt:      r.UploadedAt,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record upload history", "error", err)
	}
}

func generationRequirement(g trigger.GenerationType) string {
	switch g {
	case trigger.GenerationSingle:
		return "Single generation type requires siteId and date"
	case trigger.GenerationRange:
		return "Range generation type requires siteId, startDate, and endDate"
	default:
		return "Bulk generation type requires bulkSites array and date"
	}
}

func invalidGenerationType(g trigger.GenerationType, err error) *types.AppError {
	return types.NewAppErrorWithDetails(
		types.ErrCodeValidationGenerationType,
		fmt.Sprintf("invalid generation type %q", g),
		err,
		map[string]any{"allowed": []trigger.GenerationType{trigger.GenerationSingle, trigger.GenerationRange, trigger.GenerationBulk}},
	)
}

func missingFields(msg string, fields ...string) *types.AppError {
	return types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField, msg, nil, map[string]any{"fields": fields})
}

func errorMessage(err error) string {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
