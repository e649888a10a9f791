// Package snapshot persists per-drug JSON snapshots and uploaded documents
// under one directory per drug identifier.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Snapshot file names, one per domain plus the combined cache.
const (
	FilePubMed     = "pubmed.json"
	FileTrials     = "clinical_trials.json"
	FilePatents    = "patents.json"
	FileUnmet      = "unmet_needs.json"
	FileIQVIA      = "market_iqvia.json"
	FileEXIM       = "exim_trade.json"
	FileWeb        = "web_intel.json"
	FileInternal   = "internal_summary.json"
	FileMarketMock = "market_mock.json"
	FileCombined   = "combined_summary.json"
	FileReportMD   = "final_summary.md"
	FileReportPDF  = "final_summary.pdf"

	UploadDirName = "internal_docs"
)

type Store struct {
	root string
}

func New(root string) *Store {
	if strings.TrimSpace(root) == "" {
		root = "./data"
	}
	return &Store{root: root}
}

func (s *Store) Root() string { return s.root }

// DrugDir returns the directory for an already validated, lower-cased drug
// identifier.
func (s *Store) DrugDir(drug string) string {
	return filepath.Join(s.root, drug)
}

func (s *Store) UploadDir(drug string) string {
	return filepath.Join(s.DrugDir(drug), UploadDirName)
}

func (s *Store) Path(drug, name string) string {
	return filepath.Join(s.DrugDir(drug), name)
}

// Save writes v as indented JSON, replacing any previous snapshot in full.
func (s *Store) Save(drug, name string, v any) error {
	blob, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return s.WriteFile(drug, name, blob)
}

// WriteFile replaces drug/name atomically through a temporary file.
func (s *Store) WriteFile(drug, name string, blob []byte) error {
	path := s.Path(drug, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load decodes drug/name into v. It reports false without error when the
// snapshot does not exist.
func (s *Store) Load(drug, name string, v any) (bool, error) {
	blob, err := os.ReadFile(s.Path(drug, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(blob, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

func (s *Store) ReadFile(drug, name string) ([]byte, error) {
	return os.ReadFile(s.Path(drug, name))
}

// ListUploads returns the regular files in the drug's upload directory in
// name order. A missing directory yields no files.
func (s *Store) ListUploads(drug string) ([]string, error) {
	entries, err := os.ReadDir(s.UploadDir(drug))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		out = append(out, filepath.Join(s.UploadDir(drug), e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// ClearUploads removes every previously uploaded document for drug.
func (s *Store) ClearUploads(drug string) error {
	dir := s.UploadDir(drug)
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// SaveUpload copies r into the upload directory under a sanitized file
// name and returns the stored path. When two uploads sanitize to the same
// name the later one gets a numeric suffix ("notes-1.pdf").
func (s *Store) SaveUpload(drug, filename string, r io.Reader) (string, error) {
	dir := s.UploadDir(drug)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	f, path, err := createUnique(dir, SanitizeFilename(filename))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

const maxNameAttempts = 1000

func createUnique(dir, name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 0; n < maxNameAttempts; n++ {
		candidate := name
		if n > 0 {
			candidate = fmt.Sprintf("%s-%d%s", stem, n, ext)
		}
		path := filepath.Join(dir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", fmt.Errorf("upload %q: no free file name", name)
}

// SanitizeFilename keeps only the base name's ASCII letters, digits, '-' and
// '_', and preserves a lower-cased extension.
func SanitizeFilename(v string) string {
	v = filepath.Base(strings.ReplaceAll(strings.TrimSpace(v), `\`, "/"))
	ext := strings.ToLower(filepath.Ext(v))
	stem := strings.TrimSuffix(v, filepath.Ext(v))
	stem = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, stem)
	stem = strings.Trim(stem, "-")
	if stem == "" {
		stem = "document"
	}
	ext = strings.Map(func(r rune) rune {
		if r == '.' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, ext)
	return stem + ext
}
