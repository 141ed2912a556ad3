package cftc

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"io"
	"strings"

	"cotflow/logger"
	"cotflow/models"
)

// ExtractRecords pulls the raw records out of the first tabular member
// of a ZIP archive. A corrupt archive or an archive without a tabular
// member yields an empty slice; extraction never fails past this
// boundary.
func ExtractRecords(data []byte) []models.RawRecord {
	log := logger.GetLogger().WithComponent("cftc_archive")

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		log.WithError(err).Warn("failed to open archive")
		return nil
	}

	for _, member := range zr.File {
		name := strings.ToLower(member.Name)
		if !strings.HasSuffix(name, ".txt") && !strings.HasSuffix(name, ".csv") {
			continue
		}

		rc, err := member.Open()
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{"member": member.Name}).Warn("failed to open archive member")
			return nil
		}
		records := readTable(rc, log)
		rc.Close()

		log.WithFields(logger.Fields{
			"member": member.Name,
			"rows":   len(records),
		}).Info("archive member extracted")
		return records
	}

	log.Warn("archive has no tabular member")
	return nil
}

// readTable parses a headered CSV stream into raw records. Ragged rows
// are tolerated; a hard parse error ends the stream with whatever was
// read so far.
func readTable(r io.Reader, log *logger.Entry) []models.RawRecord {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		log.WithError(err).Warn("failed to read header row")
		return nil
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var records []models.RawRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.WithError(err).Warn("csv parse error, keeping rows read so far")
			break
		}
		rec := make(models.RawRecord, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			if i < len(row) {
				rec[col] = strings.TrimSpace(row[i])
			}
		}
		records = append(records, rec)
	}
	return records
}
