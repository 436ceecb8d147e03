package filesystem

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/karrick/godirwalk"
)

// ListDirectory lists the contents of a directory under the storage root. With
// recursive set the entire subtree below the path is flattened into the result,
// otherwise only direct children are returned.
//
// Entries are ordered folders first, then files, alphabetically within each
// kind. Symlinks are classified by the link entry itself and reported as
// files; they are never followed, so a link pointing at a directory does not
// open a second way into (or out of) the tree.
func (fs *Filesystem) ListDirectory(p string, recursive bool) ([]Item, error) {
	cleaned, err := fs.SafePath(p)
	if err != nil {
		return nil, err
	}

	st, err := os.Lstat(cleaned)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newFilesystemError(ErrCodeNotExist, nil)
		}
		return nil, WrapError(err, p)
	}
	if !st.IsDir() {
		return nil, newFilesystemError(ErrCodeNotDirectory, nil)
	}

	var items []Item
	if recursive {
		items, err = fs.walkItems(cleaned)
	} else {
		items, err = fs.readDirItems(cleaned)
	}
	if err != nil {
		return nil, WrapError(err, p)
	}

	fs.sortItems(items)
	return items, nil
}

// readDirItems produces the direct children of an already validated directory.
// MIME detection reads file content, so it runs concurrently across the
// entries; doing it one at a time is painfully slow on folders with many
// files.
func (fs *Filesystem) readDirItems(cleaned string) ([]Item, error) {
	entries, err := os.ReadDir(cleaned)
	if err != nil {
		return nil, err
	}

	// Initialize as a non-nil value so an empty directory marshals to [] and
	// not null.
	out := make([]Item, len(entries))

	var wg sync.WaitGroup
	for i, entry := range entries {
		wg.Add(1)
		go func(idx int, name string) {
			defer wg.Done()
			full := filepath.Join(cleaned, name)
			info, err := os.Lstat(full)
			if err != nil {
				// The entry vanished between the read and the stat; report it
				// as a bare file entry rather than failing the whole listing.
				out[idx] = Item{Name: name, Kind: KindFile, RelativePath: fs.relativePath(full)}
				return
			}
			out[idx] = fs.newItem(full, info)
		}(i, entry.Name())
	}
	wg.Wait()

	return out, nil
}

// walkItems produces every descendant of an already validated directory as a
// flat, depth-first sequence.
func (fs *Filesystem) walkItems(cleaned string) ([]Item, error) {
	items := []Item{}
	err := godirwalk.Walk(cleaned, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path == cleaned {
				return nil
			}
			info, err := os.Lstat(path)
			if err != nil {
				return err
			}
			items = append(items, fs.newItem(path, info))
			return nil
		},
		ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
			// An entry that disappears mid-walk is not worth failing the
			// entire listing over.
			fs.error(err).WithField("path", path).Warn("error walking directory tree")
			return godirwalk.SkipNode
		},
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (fs *Filesystem) newItem(full string, info os.FileInfo) Item {
	i := Item{
		Name:         info.Name(),
		Kind:         KindFile,
		RelativePath: fs.relativePath(full),
	}
	if info.IsDir() {
		i.Kind = KindFolder
		i.Mime = "inode/directory"
		return i
	}
	size := info.Size()
	i.Size = &size
	i.Mime = "application/octet-stream"
	if info.Mode().IsRegular() {
		if m, err := mimetypeDetect(full); err == nil {
			i.Mime = m
		}
	}
	return i
}

func (fs *Filesystem) relativePath(full string) string {
	rel, err := filepath.Rel(fs.root, full)
	if err != nil {
		return filepath.ToSlash(strings.TrimPrefix(full, fs.root+"/"))
	}
	return filepath.ToSlash(rel)
}

// sortItems orders a listing folders first, then files, each kind
// alphabetically. Case folding follows the configured sort policy so that the
// collation is an explicit choice and not whatever the host filesystem
// happens to do. The relative path breaks ties between identical names from
// different directories in recursive listings.
func (fs *Filesystem) sortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Kind != items[j].Kind {
			return items[i].Kind == KindFolder
		}
		a, b := items[i].Name, items[j].Name
		if fs.caseInsensitiveSort {
			a, b = strings.ToLower(a), strings.ToLower(b)
		}
		if a == b {
			return items[i].RelativePath < items[j].RelativePath
		}
		return a < b
	})
}

// TreeNode is a single node of the nested tree view. Children is nil for
// files and always non-nil for folders, empty ones included.
type TreeNode struct {
	Name         string      `json:"name"`
	Kind         string      `json:"type"`
	RelativePath string      `json:"relative_path"`
	Size         *int64      `json:"size"`
	Children     []*TreeNode `json:"children"`
}

// Tree is the fully nested listing of a subtree along with descendant counts.
type Tree struct {
	Nodes        []*TreeNode `json:"tree"`
	TotalFiles   int         `json:"total_files"`
	TotalFolders int         `json:"total_folders"`
}

// Tree produces the nested tree structure for the directory at the given path,
// defaulting to the storage root. The walk is the same depth-first pass as the
// recursive listing; nodes are attached to their parent as they stream by, so
// no second pass over the disk is needed.
func (fs *Filesystem) Tree(p string) (*Tree, error) {
	cleaned, err := fs.SafePath(p)
	if err != nil {
		return nil, err
	}

	st, err := os.Lstat(cleaned)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newFilesystemError(ErrCodeNotExist, nil)
		}
		return nil, WrapError(err, p)
	}
	if !st.IsDir() {
		return nil, newFilesystemError(ErrCodeNotDirectory, nil)
	}

	t := &Tree{Nodes: []*TreeNode{}}
	// Folder nodes indexed by absolute path; the walk is pre-order so a parent
	// is always registered before its children arrive.
	folders := make(map[string]*TreeNode)

	err = godirwalk.Walk(cleaned, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path == cleaned {
				return nil
			}
			info, err := os.Lstat(path)
			if err != nil {
				return err
			}

			node := &TreeNode{
				Name:         info.Name(),
				Kind:         KindFile,
				RelativePath: fs.relativePath(path),
			}
			if info.IsDir() {
				node.Kind = KindFolder
				node.Children = []*TreeNode{}
				folders[path] = node
				t.TotalFolders++
			} else {
				size := info.Size()
				node.Size = &size
				t.TotalFiles++
			}

			if parent, ok := folders[filepath.Dir(path)]; ok {
				parent.Children = append(parent.Children, node)
			} else {
				t.Nodes = append(t.Nodes, node)
			}
			return nil
		},
		ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
			fs.error(err).WithField("path", path).Warn("error walking directory tree")
			return godirwalk.SkipNode
		},
	})
	if err != nil {
		return nil, WrapError(err, p)
	}

	fs.sortNodes(t.Nodes)
	return t, nil
}

// sortNodes applies the listing order to every level of a tree.
func (fs *Filesystem) sortNodes(nodes []*TreeNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Kind != nodes[j].Kind {
			return nodes[i].Kind == KindFolder
		}
		a, b := nodes[i].Name, nodes[j].Name
		if fs.caseInsensitiveSort {
			a, b = strings.ToLower(a), strings.ToLower(b)
		}
		return a < b
	})
	for _, n := range nodes {
		if n.Kind == KindFolder {
			fs.sortNodes(n.Children)
		}
	}
}
