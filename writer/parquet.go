package writer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"cotflow/logger"
	"cotflow/models"
)

// ParquetRecord is the archival row schema: one normalized weekly
// observation per row, flattened with its instrument symbol.
type ParquetRecord struct {
	Symbol       string  `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	Date         string  `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8"`
	SpecLong     int32   `parquet:"name=spec_long, type=INT32"`
	SpecShort    int32   `parquet:"name=spec_short, type=INT32"`
	CommLong     int32   `parquet:"name=comm_long, type=INT32"`
	CommShort    int32   `parquet:"name=comm_short, type=INT32"`
	DealerLong   int32   `parquet:"name=dealer_long, type=INT32"`
	DealerShort  int32   `parquet:"name=dealer_short, type=INT32"`
	NonReptLong  int32   `parquet:"name=nonrept_long, type=INT32"`
	NonReptShort int32   `parquet:"name=nonrept_short, type=INT32"`
	NetSpec      int32   `parquet:"name=net_spec, type=INT32"`
	NetComm      int32   `parquet:"name=net_comm, type=INT32"`
	NetDealer    int32   `parquet:"name=net_dealer, type=INT32"`
	NetNonRept   int32   `parquet:"name=net_nonrept, type=INT32"`
	CotIndex     float64 `parquet:"name=cot_index, type=DOUBLE"`
	WowChange    int32   `parquet:"name=wow_change, type=INT32"`
}

// memoryFileWriter implements ParquetFile interface for in-memory writing
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{
		buffer: &bytes.Buffer{},
	}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	// Write-only usage; report the current end of the buffer.
	return int64(mfw.buffer.Len()), nil
}

func (mfw *memoryFileWriter) Read(b []byte) (int, error) {
	return mfw.buffer.Read(b)
}

func (mfw *memoryFileWriter) Write(b []byte) (int, error) {
	return mfw.buffer.Write(b)
}

func (mfw *memoryFileWriter) Close() error {
	return nil
}

func (mfw *memoryFileWriter) Bytes() []byte {
	return mfw.buffer.Bytes()
}

// archiveParquet writes every instrument's window as one parquet object
// per run, either uploaded to S3 or dropped into the local archive
// directory when S3 is disabled.
func (w *EnvelopeWriter) archiveParquet(ctx context.Context, env *models.Envelope) error {
	log := w.log.WithComponent("parquet_archiver")

	symbols := make([]string, 0, len(env.Data))
	for symbol := range env.Data {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	now := time.Now().UTC()
	batchID := uuid.New().String()

	for _, symbol := range symbols {
		series := env.Data[symbol]
		data, err := w.createParquetFile(symbol, series.Weeks)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{"symbol": symbol}).Error("failed to build parquet file")
			continue
		}

		key := archiveKey(symbol, now, batchID)
		if err := w.storeParquet(ctx, key, data); err != nil {
			log.WithError(err).WithFields(logger.Fields{"symbol": symbol, "key": key}).Error("failed to store parquet file")
			continue
		}

		logger.RecordParquetWrite()
		log.WithFields(logger.Fields{
			"symbol":    symbol,
			"key":       key,
			"file_size": len(data),
			"weeks":     len(series.Weeks),
		}).Info("observations archived")
	}

	return nil
}

func archiveKey(symbol string, now time.Time, batchID string) string {
	return filepath.ToSlash(filepath.Join(
		fmt.Sprintf("symbol=%s", symbol),
		fmt.Sprintf("year=%04d", now.Year()),
		fmt.Sprintf("cot_%s_%s_%s.parquet", symbol, now.Format("20060102"), batchID[:8]),
	))
}

func (w *EnvelopeWriter) createParquetFile(symbol string, weeks []models.WeeklyObservation) ([]byte, error) {
	fw := newMemoryFileWriter()

	pw, err := writer.NewParquetWriter(fw, new(ParquetRecord), 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	switch w.config.Writer.Parquet.Compression {
	case "snappy":
		pw.CompressionType = parquet.CompressionCodec_SNAPPY
	case "gzip":
		pw.CompressionType = parquet.CompressionCodec_GZIP
	default:
		pw.CompressionType = parquet.CompressionCodec_UNCOMPRESSED
	}

	for _, obs := range weeks {
		record := ParquetRecord{
			Symbol:       symbol,
			Date:         obs.Date,
			SpecLong:     int32(obs.SpecLong),
			SpecShort:    int32(obs.SpecShort),
			CommLong:     int32(obs.CommLong),
			CommShort:    int32(obs.CommShort),
			DealerLong:   int32(obs.DealerLong),
			DealerShort:  int32(obs.DealerShort),
			NonReptLong:  int32(obs.NonReptLong),
			NonReptShort: int32(obs.NonReptShort),
			NetSpec:      int32(obs.NetSpec),
			NetComm:      int32(obs.NetComm),
			NetDealer:    int32(obs.NetDealer),
			NetNonRept:   int32(obs.NetNonRept),
			CotIndex:     obs.CotIndex,
			WowChange:    int32(obs.WowChange),
		}
		if err := pw.Write(record); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("failed to write parquet record: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet writing: %w", err)
	}

	return fw.Bytes(), nil
}

func (w *EnvelopeWriter) storeParquet(ctx context.Context, key string, data []byte) error {
	if w.s3Client != nil {
		prefixed := key
		if p := w.config.Storage.S3.KeyPrefix; p != "" {
			prefixed = filepath.ToSlash(filepath.Join(p, key))
		}
		return w.uploadObject(ctx, prefixed, data, "application/octet-stream")
	}

	target := filepath.Join(w.config.Writer.Parquet.ArchiveDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("failed to write archive file: %w", err)
	}
	return nil
}
