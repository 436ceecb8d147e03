package filesystem

import (
	"encoding/json"
	"os"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const (
	KindFile   = "file"
	KindFolder = "folder"
)

type Stat struct {
	os.FileInfo
	Mimetype string
}

func (s *Stat) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name      string `json:"name"`
		Modified  string `json:"modified"`
		Mode      string `json:"mode"`
		Size      int64  `json:"size"`
		Directory bool   `json:"directory"`
		File      bool   `json:"file"`
		Symlink   bool   `json:"symlink"`
		Mime      string `json:"mime"`
	}{
		Name:      s.Name(),
		Modified:  s.ModTime().Format(time.RFC3339),
		Mode:      s.Mode().String(),
		Size:      s.Size(),
		Directory: s.IsDir(),
		File:      !s.IsDir(),
		Symlink:   s.Mode()&os.ModeSymlink != 0,
		Mime:      s.Mimetype,
	})
}

// Stat returns stat information for a file or folder under the storage root
// along with MIME data detected from its content.
func (fs *Filesystem) Stat(p string) (*Stat, error) {
	cleaned, err := fs.SafePath(p)
	if err != nil {
		return nil, err
	}
	return fs.unsafeStat(cleaned)
}

func (fs *Filesystem) unsafeStat(p string) (*Stat, error) {
	s, err := os.Lstat(p)
	if err != nil {
		return nil, err
	}

	st := &Stat{
		FileInfo: s,
		Mimetype: "inode/directory",
	}
	if !s.IsDir() {
		// Do not sniff content through a symlink, the target may live outside
		// the storage root.
		st.Mimetype = "application/octet-stream"
		if s.Mode().IsRegular() {
			if m, err := mimetype.DetectFile(p); err == nil {
				st.Mimetype = m.String()
			}
		}
	}
	return st, nil
}

func mimetypeDetect(p string) (string, error) {
	m, err := mimetype.DetectFile(p)
	if err != nil {
		return "", err
	}
	return m.String(), nil
}

// Item is the view of a single file or folder returned by directory listings.
// It is derived on demand from the real filesystem and never cached.
type Item struct {
	Name         string `json:"name"`
	Kind         string `json:"type"`
	RelativePath string `json:"relative_path"`
	// Size in bytes for files; folders carry no size.
	Size *int64 `json:"size"`
	Mime string `json:"mime,omitempty"`
}
