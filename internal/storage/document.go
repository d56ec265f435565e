package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"circuitflow/internal/domain"
	"circuitflow/internal/schema"
)

// Export files (.cflow) are a zstd stream holding a JSON header line
// followed by the JSON workflow body.
const (
	DocumentFormat  = "circuitflow"
	DocumentVersion = 1
	DocumentExt     = ".cflow"
)

type DocumentHeader struct {
	Format     string    `json:"format"`
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exportedAt"`
}

// WriteDocument encodes wf as a compressed export document.
func WriteDocument(w io.Writer, wf *domain.Workflow) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(enc)
	hb, _ := json.Marshal(DocumentHeader{Format: DocumentFormat, Version: DocumentVersion, ExportedAt: time.Now().UTC()})
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return err
	}
	if err := json.NewEncoder(bw).Encode(wf); err != nil {
		enc.Close()
		return fmt.Errorf("encode workflow: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// ReadDocument decodes and validates a compressed export document.
func ReadDocument(r io.Reader) (*domain.Workflow, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	br := bufio.NewReader(dec)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	var hdr DocumentHeader
	if err := json.Unmarshal(line, &hdr); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	if hdr.Format != DocumentFormat || hdr.Version != DocumentVersion {
		return nil, fmt.Errorf("unsupported document %s v%d", hdr.Format, hdr.Version)
	}

	body, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if err := schema.ValidateWorkflow(body); err != nil {
		return nil, err
	}
	var wf domain.Workflow
	if err := json.Unmarshal(body, &wf); err != nil {
		return nil, fmt.Errorf("decode workflow: %w", err)
	}
	return &wf, nil
}

// ExportFile writes wf to path, creating parent directories.
func ExportFile(path string, wf *domain.Workflow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := WriteDocument(f, wf); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ImportFile reads an export document from path.
func ImportFile(path string) (*domain.Workflow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadDocument(f)
}
