package writer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	appconfig "cotflow/config"
	"cotflow/logger"
	"cotflow/models"
)

// EnvelopeWriter persists the run output: a JSON document on local
// disk, optionally mirrored to S3, with an optional parquet archive of
// the normalized observations.
type EnvelopeWriter struct {
	config   *appconfig.Config
	s3Client s3PutObjectAPI
	log      *logger.Log
}

// NewEnvelopeWriter creates the writer and, when S3 storage is enabled,
// its S3 client.
func NewEnvelopeWriter(cfg *appconfig.Config) (*EnvelopeWriter, error) {
	w := &EnvelopeWriter{
		config: cfg,
		log:    logger.GetLogger(),
	}

	if cfg.Storage.S3.Enabled {
		client, err := newS3Client(cfg)
		if err != nil {
			return nil, err
		}
		w.s3Client = client
		w.log.WithComponent("envelope_writer").WithFields(logger.Fields{
			"bucket":     cfg.Storage.S3.Bucket,
			"region":     cfg.Storage.S3.Region,
			"endpoint":   cfg.Storage.S3.Endpoint,
			"path_style": cfg.Storage.S3.PathStyle,
		}).Info("s3 mirroring enabled")
	}

	return w, nil
}

// Write persists the envelope. The local JSON document is the
// compatibility contract with consumers, so its failure fails the run;
// S3 mirroring and parquet archival are best effort.
func (w *EnvelopeWriter) Write(ctx context.Context, env *models.Envelope) error {
	log := w.log.WithComponent("envelope_writer").WithFields(logger.Fields{
		"instruments": len(env.Data),
		"has_error":   env.Error != "",
	})

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}

	if err := w.writeLocal(data); err != nil {
		return err
	}
	logger.RecordEnvelopeWrite()
	log.WithFields(logger.Fields{"path": w.config.Writer.OutputPath, "size": len(data)}).Info("envelope written")

	if w.s3Client != nil {
		if err := w.uploadEnvelope(ctx, data); err != nil {
			log.WithError(err).WithEnv("S3_BUCKET").Error("failed to mirror envelope to S3")
		}
	}

	if w.config.Writer.Parquet.Enabled && env.Error == "" {
		if err := w.archiveParquet(ctx, env); err != nil {
			log.WithError(err).Error("failed to archive observations as parquet")
		}
	}

	return nil
}

// writeLocal writes the document to a temp file in the target directory
// and renames it into place, so consumers never observe a partial file.
func (w *EnvelopeWriter) writeLocal(data []byte) error {
	path := w.config.Writer.OutputPath
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write envelope: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move envelope into place: %w", err)
	}
	return nil
}
