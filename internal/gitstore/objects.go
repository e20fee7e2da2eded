package gitstore

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// entryKey addresses one entity slot in the tree: one subtree per entity
// type, one blob per id.
type entryKey struct {
	Type string
	ID   string
}

const blobSuffix = ".json"

// StoreObject writes bytes as a content-addressed blob. Writing the same
// bytes twice yields the same hash and a single physical object.
func (s *Store) StoreObject(data []byte) (plumbing.Hash, error) {
	obj := s.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("open blob writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return plumbing.ZeroHash, fmt.Errorf("write blob: %w", err)
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("close blob writer: %w", err)
	}
	h, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("store blob: %w", err)
	}
	return h, nil
}

// ReadObject returns the bytes of a stored blob.
func (s *Store) ReadObject(h plumbing.Hash) ([]byte, error) {
	blob, err := object.GetBlob(s.repo.Storer, h)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, fmt.Errorf("object %s: %w", h, ErrNotFound)
		}
		return nil, fmt.Errorf("read object %s: %w", h, err)
	}
	r, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("open blob %s: %w", h, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", h, err)
	}
	return data, nil
}

// BuildTree folds (type, id) -> blob hash entries into a two-level tree.
// Entries are normalized to git's canonical sort order, so identical
// contents always produce identical tree hashes.
func (s *Store) BuildTree(entries map[entryKey]plumbing.Hash) (plumbing.Hash, error) {
	byType := make(map[string][]object.TreeEntry)
	for k, h := range entries {
		byType[k.Type] = append(byType[k.Type], object.TreeEntry{
			Name: k.ID + blobSuffix,
			Mode: filemode.Regular,
			Hash: h,
		})
	}

	var root []object.TreeEntry
	for typ, sub := range byType {
		sortTreeEntries(sub)
		h, err := s.writeTree(sub)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		root = append(root, object.TreeEntry{Name: typ, Mode: filemode.Dir, Hash: h})
	}
	sortTreeEntries(root)
	return s.writeTree(root)
}

func (s *Store) writeTree(entries []object.TreeEntry) (plumbing.Hash, error) {
	t := &object.Tree{Entries: entries}
	obj := s.repo.Storer.NewEncodedObject()
	if err := t.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("encode tree: %w", err)
	}
	h, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("store tree: %w", err)
	}
	return h, nil
}

// sortTreeEntries orders entries the way git hashes them: byte order over
// names, with directory names compared as if they had a trailing slash.
func sortTreeEntries(entries []object.TreeEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return treeEntryName(entries[i]) < treeEntryName(entries[j])
	})
}

func treeEntryName(e object.TreeEntry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}
	return e.Name
}

// loadEntries expands a tree hash back to the (type, id) -> blob hash map.
// The zero hash expands to an empty map.
func (s *Store) loadEntries(treeHash plumbing.Hash) (map[entryKey]plumbing.Hash, error) {
	entries := make(map[entryKey]plumbing.Hash)
	if treeHash.IsZero() {
		return entries, nil
	}
	root, err := object.GetTree(s.repo.Storer, treeHash)
	if err != nil {
		return nil, fmt.Errorf("load tree %s: %w", treeHash, err)
	}
	for _, te := range root.Entries {
		if te.Mode != filemode.Dir {
			continue
		}
		sub, err := object.GetTree(s.repo.Storer, te.Hash)
		if err != nil {
			return nil, fmt.Errorf("load subtree %s: %w", te.Name, err)
		}
		for _, be := range sub.Entries {
			id := strings.TrimSuffix(be.Name, blobSuffix)
			entries[entryKey{Type: te.Name, ID: id}] = be.Hash
		}
	}
	return entries, nil
}

// lookupEntry resolves one slot in a tree without expanding the whole map.
func (s *Store) lookupEntry(treeHash plumbing.Hash, typ, id string) (plumbing.Hash, bool, error) {
	if treeHash.IsZero() {
		return plumbing.ZeroHash, false, nil
	}
	root, err := object.GetTree(s.repo.Storer, treeHash)
	if err != nil {
		return plumbing.ZeroHash, false, fmt.Errorf("load tree %s: %w", treeHash, err)
	}
	te, err := root.FindEntry(typ + "/" + id + blobSuffix)
	if err != nil {
		if errors.Is(err, object.ErrEntryNotFound) || errors.Is(err, object.ErrDirectoryNotFound) {
			return plumbing.ZeroHash, false, nil
		}
		return plumbing.ZeroHash, false, fmt.Errorf("find entry %s/%s: %w", typ, id, err)
	}
	return te.Hash, true, nil
}
