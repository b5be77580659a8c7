package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/sellerfunnel/api/internal/client"
	"github.com/sellerfunnel/api/internal/importer"
	"github.com/sellerfunnel/api/internal/jobs"
	"github.com/sellerfunnel/api/internal/model"
)

var ErrUnsupportedFile = errors.New("unsupported file type: upload an .xlsx or .csv file")

var contentTypes = map[importer.Format]string{
	importer.FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	importer.FormatCSV:  "text/csv",
}

// ImportService starts spreadsheet imports
type ImportService struct {
	registry *jobs.Registry
	store    importer.ClientWriter
	archiver client.Archiver
	validate *validator.Validate
	policy   jobs.Policy
}

// NewImportService creates the service. archiver may be nil, in which case
// uploads are not archived.
func NewImportService(registry *jobs.Registry, store importer.ClientWriter, archiver client.Archiver, validate *validator.Validate, policy jobs.Policy) *ImportService {
	return &ImportService{
		registry: registry,
		store:    store,
		archiver: archiver,
		validate: validate,
		policy:   policy,
	}
}

// Start buffers the upload and submits an import job for it. Parsing happens
// in the job, so a malformed file surfaces as a failed job, not an error here.
func (s *ImportService) Start(ctx context.Context, filename string, file io.Reader) (*model.JobStartResponse, error) {
	format, err := importer.DetectFormat(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filename)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	snapshot, err := s.registry.Submit(model.JobKindImport, func(ctx context.Context, t *jobs.Tracker) {
		s.archive(ctx, t.ID(), filename, format, data)
		_ = jobs.Run(ctx, t, importer.NewSpec(s.store, s.validate, format, data, s.policy))
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("component", "import").
		Str("job_id", snapshot.JobID).
		Str("filename", filename).
		Int("bytes", len(data)).
		Msg("Import accepted")

	return startResponse(snapshot), nil
}

// archive keeps a copy of the upload. A failure is logged and never stops the
// import.
func (s *ImportService) archive(ctx context.Context, jobID, filename string, format importer.Format, data []byte) {
	if s.archiver == nil {
		return
	}
	url, err := s.archiver.Upload(ctx, client.ArchiveKey(jobID, filename), bytes.NewReader(data), contentTypes[format])
	if err != nil {
		log.Warn().
			Str("component", "import").
			Str("job_id", jobID).
			Err(err).
			Msg("Failed to archive upload")
		return
	}
	log.Debug().
		Str("component", "import").
		Str("job_id", jobID).
		Str("url", url).
		Msg("Upload archived")
}
