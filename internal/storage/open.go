package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/dl-alexandre/dbxmirror/internal/api"
	"github.com/dl-alexandre/dbxmirror/internal/errors"
	"github.com/dl-alexandre/dbxmirror/internal/logging"
	"github.com/dl-alexandre/dbxmirror/internal/storage/blobstore"
	"github.com/dl-alexandre/dbxmirror/internal/storage/dropbox"
	"github.com/dl-alexandre/dbxmirror/internal/storage/gdrive"
	"github.com/dl-alexandre/dbxmirror/internal/utils"
)

// Options selects and configures a backend
type Options struct {
	Backend        string
	Token          string
	Bucket         string
	Profile        string
	MaxRetries     int
	RetryDelayMs   int
	RequestTimeout time.Duration
	Debug          bool
	Logger         logging.Logger
}

// Open builds the backend named by opts.Backend
func Open(ctx context.Context, opts Options) (Backend, error) {
	if opts.Logger == nil {
		opts.Logger = logging.NewNoOpLogger()
	}

	newClient := func(classify api.Classifier) *api.Client {
		return api.NewClient(api.ClientOptions{
			Backend:        opts.Backend,
			Profile:        opts.Profile,
			Classifier:     classify,
			MaxRetries:     opts.MaxRetries,
			RetryDelayMs:   opts.RetryDelayMs,
			AttemptTimeout: opts.RequestTimeout,
			Logger:         opts.Logger,
		})
	}
	httpConfig := api.HTTPConfig{
		Token:          opts.Token,
		RequestTimeout: opts.RequestTimeout,
		Debug:          opts.Debug,
		Logger:         opts.Logger,
	}

	switch opts.Backend {
	case utils.BackendDropbox, "":
		if opts.Token == "" {
			return nil, missingToken(utils.BackendDropbox)
		}
		return dropbox.New(api.NewHTTPClient(httpConfig), newClient(errors.ClassifyDropboxError)), nil

	case utils.BackendGDrive:
		if opts.Token == "" {
			return nil, missingToken(utils.BackendGDrive)
		}
		return gdrive.New(ctx, api.NewHTTPClient(httpConfig), newClient(errors.ClassifyGoogleAPIError))

	case utils.BackendBlob:
		if opts.Bucket == "" {
			return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
				"The blob backend needs --bucket (e.g. s3://name, gs://name, file:///dir)").Build())
		}
		return blobstore.Open(ctx, opts.Bucket, newClient(errors.ClassifyBlobError))

	default:
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			fmt.Sprintf("Unknown backend %q", opts.Backend)).
			WithContext("supported", []string{utils.BackendDropbox, utils.BackendGDrive, utils.BackendBlob}).
			Build())
	}
}

func missingToken(backend string) error {
	return utils.NewAppError(utils.NewCLIError(utils.ErrCodeAuthRequired,
		fmt.Sprintf("An access token is required for the %s backend", backend)).
		WithContext("suggestedAction", "pass it as the first argument, set DBXMIRROR_ACCESS_TOKEN, or store it in the system keyring").
		Build())
}
