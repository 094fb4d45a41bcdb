// Package snapshot writes and reads the agent table of a scenario run at the
// end of a simulated year.
//
// A snapshot file is a plain JSON header line followed by a gzip-compressed
// JSON array of agents. The header carries a sha256 checksum of the
// compressed payload so integrity can be checked without decompressing.
package snapshot

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nvandessel/smesim/internal/models"
	"github.com/nvandessel/smesim/internal/store"
)

// FormatVersion is the current snapshot file format version.
const FormatVersion = 1

// MaxDecompressedSize is the maximum allowed size of a decompressed payload (512MB).
const MaxDecompressedSize = 512 * 1024 * 1024

// FilePrefix and FileSuffix bracket every snapshot file name.
const (
	FilePrefix = "snapshot-"
	FileSuffix = ".json.gz"
)

// ErrChecksumMismatch is returned when the payload does not match the header.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// Header is the plain-text first line of a snapshot file.
type Header struct {
	Version    int       `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	Scenario   string    `json:"scenario"`
	Seed       int64     `json:"seed"`
	Year       int       `json:"year"`
	AgentCount int       `json:"agent_count"`
	Checksum   string    `json:"checksum"`
}

// GeneratePath returns a timestamped path for the snapshot of scenario at
// the end of year.
func GeneratePath(dir, scenario string, year int, at time.Time) string {
	ts := at.UTC().Format("20060102-150405.000000")
	return filepath.Join(dir, fmt.Sprintf("%s%s-%d-%s%s", FilePrefix, store.SafeName(scenario), year, ts, FileSuffix))
}

// Write stores agents at path. Version, AgentCount and Checksum are filled
// in; CreatedAt defaults to now. The written header is returned.
func Write(path string, h Header, agents []models.Agent) (*Header, error) {
	if agents == nil {
		agents = []models.Agent{}
	}
	payload, err := json.Marshal(agents)
	if err != nil {
		return nil, fmt.Errorf("marshaling agents: %w", err)
	}

	var compressed bytes.Buffer
	gzw, err := gzip.NewWriterLevel(&compressed, gzip.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := gzw.Write(payload); err != nil {
		return nil, fmt.Errorf("compressing payload: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip writer: %w", err)
	}

	h.Version = FormatVersion
	h.AgentCount = len(agents)
	h.Checksum = checksum(compressed.Bytes())
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}

	headerBytes, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("marshaling header: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	w.Write(headerBytes)
	w.WriteByte('\n')
	w.Write(compressed.Bytes())
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("writing snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("closing snapshot: %w", err)
	}

	return &h, nil
}

// Read reads a snapshot, verifies its checksum and decompresses the agents.
func Read(path string) (*Header, []models.Agent, error) {
	header, payload, err := readVerified(path)
	if err != nil {
		return nil, nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gzr.Close()

	decompressed, err := io.ReadAll(io.LimitReader(gzr, MaxDecompressedSize+1))
	if err != nil {
		return nil, nil, fmt.Errorf("decompressing payload: %w", err)
	}
	if int64(len(decompressed)) > MaxDecompressedSize {
		return nil, nil, fmt.Errorf("decompressed payload exceeds maximum size of %d bytes", MaxDecompressedSize)
	}

	var agents []models.Agent
	if err := json.Unmarshal(decompressed, &agents); err != nil {
		return nil, nil, fmt.Errorf("parsing agents: %w", err)
	}
	if len(agents) != header.AgentCount {
		return nil, nil, fmt.Errorf("header declares %d agents, payload has %d", header.AgentCount, len(agents))
	}

	return header, agents, nil
}

// ReadHeader reads only the header line.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	header, _, err := readHeader(bufio.NewReader(f))
	return header, err
}

// VerifyChecksum checks the payload against the header without decompressing.
func VerifyChecksum(path string) error {
	_, _, err := readVerified(path)
	return err
}

func readVerified(path string) (*Header, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	header, reader, err := readHeader(bufio.NewReader(f))
	if err != nil {
		return nil, nil, err
	}

	payload, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("reading compressed payload: %w", err)
	}

	if actual := checksum(payload); actual != header.Checksum {
		return nil, nil, fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, header.Checksum, actual)
	}
	return header, payload, nil
}

func readHeader(reader *bufio.Reader) (*Header, *bufio.Reader, error) {
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, nil, fmt.Errorf("reading header line: %w", err)
	}

	var header Header
	if err := json.Unmarshal(bytes.TrimSpace(line), &header); err != nil {
		return nil, nil, fmt.Errorf("parsing header: %w", err)
	}
	if header.Version != FormatVersion {
		return nil, nil, fmt.Errorf("unsupported snapshot version %d", header.Version)
	}
	return &header, reader, nil
}

func checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(hash[:])
}
