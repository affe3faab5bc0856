package events

import (
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"
)

// ExportReport writes r as gzip-compressed JSON
func ExportReport(w io.Writer, r Report) error {
	data, err := sonic.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	zw, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return err
	}
	zw.Name = r.ID.String() + ".json"
	zw.ModTime = r.GeneratedAt

	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return fmt.Errorf("compress report: %w", err)
	}
	return zw.Close()
}

// ReadReport decodes a report written by ExportReport
func ReadReport(r io.Reader) (Report, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return Report{}, fmt.Errorf("open report: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return Report{}, fmt.Errorf("decompress report: %w", err)
	}

	var out Report
	if err := sonic.Unmarshal(data, &out); err != nil {
		return Report{}, fmt.Errorf("decode report: %w", err)
	}
	return out, nil
}
