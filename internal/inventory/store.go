// Package inventory implements C1, the on-disk inventory store: path-safe
// content layout, atomic save (content files fsynced before index.json is
// written), and a validating load (index.json is read whole, then
// decoded; it is not streamed).
package inventory

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/ideamans/playback-proxy-go/internal/perrors"
	"github.com/ideamans/playback-proxy-go/internal/types"
)

// IndexFileName is the index document's name at the inventory root.
const IndexFileName = "index.json"

// ContentsDirName is the root of the content-file tree.
const ContentsDirName = "contents"

// CAFileName is where the MITM listener's self-signed root CA is
// published for operator trust setup (§6).
const CAFileName = "ca.pem"

// CAKeyFileName is the CA's private key, persisted alongside CAFileName so
// a later playback session mints leaf certificates under the exact root a
// prior recording session published. Never handed to a client.
const CAKeyFileName = "ca-key.pem"

// Store accumulates an in-memory Inventory during a recording session and
// persists it to Dir. Resources are appended under a short-critical-
// section lock (§5); content bytes are written to disk as soon as the
// normaliser produces them, ahead of the final index.json write.
type Store struct {
	Dir       string
	BodyCache *BodyCache

	mu        sync.Mutex
	resources []types.Resource
	domains   map[string]*types.Domain
}

// NewStore prepares a Store rooted at dir, creating dir and its contents/
// subdirectory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, ContentsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create inventory dir: %w", err)
	}
	return &Store{
		Dir:     dir,
		domains: make(map[string]*types.Domain),
	}, nil
}

// WriteContent persists data at relPath under contents/, de-duplicating
// against BodyCache when set. It fsyncs before returning so Save's
// "content before index" ordering is a real durability guarantee, not just
// a write-order guarantee.
func (s *Store) WriteContent(relPath string, data []byte) error {
	if existing, ok := s.bodyCacheLookup(data); ok && existing != relPath {
		if err := s.linkOrCopy(existing, relPath); err == nil {
			return nil
		}
		// Fall through to a normal write if linking failed (e.g. the
		// previous file was since removed, or cross-device link failed
		// and the copy also failed for some reason below).
	}

	full := filepath.Join(s.Dir, ContentsDirName, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("mkdir for content %s: %w", relPath, err)
	}

	f, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("create content file %s: %w", relPath, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write content file %s: %w", relPath, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("fsync content file %s: %w", relPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close content file %s: %w", relPath, err)
	}

	s.bodyCacheRecord(data, relPath)
	return nil
}

func (s *Store) bodyCacheLookup(data []byte) (string, bool) {
	if s.BodyCache == nil {
		return "", false
	}
	return s.BodyCache.lookup(data)
}

func (s *Store) bodyCacheRecord(data []byte, relPath string) {
	if s.BodyCache == nil {
		return
	}
	s.BodyCache.record(data, relPath)
}

// linkOrCopy hard-links existingRel to newRel under contents/, falling
// back to a byte copy when hard-linking fails (e.g. cross-device).
func (s *Store) linkOrCopy(existingRel, newRel string) error {
	existingFull := filepath.Join(s.Dir, ContentsDirName, existingRel)
	newFull := filepath.Join(s.Dir, ContentsDirName, newRel)
	if err := os.MkdirAll(filepath.Dir(newFull), 0o755); err != nil {
		return err
	}
	if err := os.Link(existingFull, newFull); err == nil {
		return nil
	}
	data, err := os.ReadFile(existingFull)
	if err != nil {
		return err
	}
	return os.WriteFile(newFull, data, 0o644)
}

// Append records a completed Resource. Mutators append complete records
// only, matching §5's single-lock, append-only inventory rule.
func (s *Store) Append(r types.Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources = append(s.resources, r)

	host := hostOf(r.URL)
	if host == "" {
		return
	}
	d, ok := s.domains[host]
	if !ok {
		d = &types.Domain{Host: host}
		s.domains[host] = d
	}
	d.ResourceCount++
	if r.ContentFilePath != nil {
		if fi, err := os.Stat(filepath.Join(s.Dir, ContentsDirName, *r.ContentFilePath)); err == nil {
			d.TotalBytes += fi.Size()
		}
	}
}

// Snapshot takes a consistent copy of the in-memory inventory without
// holding the lock during any I/O (§4.9/§5).
func (s *Store) Snapshot(entryURL string, device types.DeviceType) types.Inventory {
	s.mu.Lock()
	defer s.mu.Unlock()

	resources := make([]types.Resource, len(s.resources))
	copy(resources, s.resources)

	domains := make([]types.Domain, 0, len(s.domains))
	for _, d := range s.domains {
		domains = append(domains, *d)
	}

	return types.Inventory{
		EntryURL:   entryURL,
		DeviceType: device,
		Resources:  resources,
		Domains:    domains,
	}
}

// Save writes index.json for inv. Callers must have already written every
// resource's content file via WriteContent (and fsynced, which WriteContent
// does internally) before calling Save, so a crash between content writes
// and this call leaves contents/ populated without a matching index.json —
// detectable, per §4.1, as a partial inventory rather than a corrupt one.
func (s *Store) Save(inv types.Inventory) error {
	data, err := json.Marshal(inv)
	if err != nil {
		return perrors.New(perrors.PersistenceFailed, "inventory.Save", fmt.Errorf("marshal index: %w", err))
	}

	tmp := filepath.Join(s.Dir, IndexFileName+".tmp")
	final := filepath.Join(s.Dir, IndexFileName)

	f, err := os.Create(tmp)
	if err != nil {
		return perrors.New(perrors.PersistenceFailed, "inventory.Save", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return perrors.New(perrors.PersistenceFailed, "inventory.Save", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return perrors.New(perrors.PersistenceFailed, "inventory.Save", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return perrors.New(perrors.PersistenceFailed, "inventory.Save", err)
	}

	if err := os.Rename(tmp, final); err != nil {
		return perrors.New(perrors.PersistenceFailed, "inventory.Save", err)
	}
	return nil
}

// Load reads and validates index.json under dir, per §4.1: any parse
// failure or a content_file_path that doesn't resolve to an existing file
// is a MalformedInventory error. Unknown JSON fields are silently ignored
// by encoding/json's default decode behaviour, satisfying forward
// compatibility.
func Load(dir string) (*types.Inventory, error) {
	path := filepath.Join(dir, IndexFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, perrors.New(perrors.MalformedInventory, "inventory.Load", err)
	}

	var inv types.Inventory
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, perrors.New(perrors.MalformedInventory, "inventory.Load", err)
	}

	for i := range inv.Resources {
		r := &inv.Resources[i]
		if r.ContentFilePath == nil {
			continue
		}
		full := filepath.Join(dir, ContentsDirName, *r.ContentFilePath)
		if _, err := os.Stat(full); err != nil {
			return nil, perrors.New(perrors.MalformedInventory, "inventory.Load",
				fmt.Errorf("resource %s %s references missing content file %s: %w", r.Method, r.URL, *r.ContentFilePath, err))
		}
	}

	return &inv, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
