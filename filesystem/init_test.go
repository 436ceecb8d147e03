package filesystem

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/franela/goblin"
)

func TestFilesystem_Ensure(t *testing.T) {
	g := Goblin(t)

	newRoot := func() string {
		tmpDir, err := os.MkdirTemp(os.TempDir(), "artera")
		if err != nil {
			panic(err)
		}
		if tmpDir, err = filepath.EvalSymlinks(tmpDir); err != nil {
			panic(err)
		}
		return filepath.Join(tmpDir, "/storage")
	}

	g.Describe("Ensure", func() {
		g.It("creates a missing storage root and the default folders", func() {
			fs := New(newRoot(), true)

			rep, err := fs.Ensure([]string{"logo", "potentials"})
			g.Assert(err).IsNil()
			g.Assert(rep.Root).Equal(fs.Path())
			g.Assert(rep.Created).Equal([]string{"logo", "potentials"})
			g.Assert(rep.Existing).Equal([]string{})
			g.Assert(rep.ItemCount).Equal(2)

			st, err := os.Lstat(filepath.Join(fs.Path(), "logo"))
			g.Assert(err).IsNil()
			g.Assert(st.IsDir()).IsTrue()
		})

		g.It("is idempotent across restarts", func() {
			fs := New(newRoot(), true)

			_, err := fs.Ensure([]string{"logo"})
			g.Assert(err).IsNil()

			rep, err := fs.Ensure([]string{"logo"})
			g.Assert(err).IsNil()
			g.Assert(rep.Created).Equal([]string{})
			g.Assert(rep.Existing).Equal([]string{"logo"})
		})

		g.It("preserves existing user content in the root", func() {
			fs := New(newRoot(), true)
			_, err := fs.Ensure(nil)
			g.Assert(err).IsNil()

			err = os.WriteFile(filepath.Join(fs.Path(), "user.txt"), []byte("user data"), 0o644)
			g.Assert(err).IsNil()

			rep, err := fs.Ensure([]string{"logo"})
			g.Assert(err).IsNil()
			g.Assert(rep.ItemCount).Equal(2)

			b, err := os.ReadFile(filepath.Join(fs.Path(), "user.txt"))
			g.Assert(err).IsNil()
			g.Assert(b).Equal([]byte("user data"))
		})

		g.It("recreates a default folder the user deleted, at the next start", func() {
			fs := New(newRoot(), true)

			_, err := fs.Ensure([]string{"logo"})
			g.Assert(err).IsNil()

			err = fs.DeleteDirectory("logo")
			g.Assert(err).IsNil()

			rep, err := fs.Ensure([]string{"logo"})
			g.Assert(err).IsNil()
			g.Assert(rep.Created).Equal([]string{"logo"})
		})

		g.It("leaves a default folder name occupied by a user file untouched", func() {
			fs := New(newRoot(), true)
			_, err := fs.Ensure(nil)
			g.Assert(err).IsNil()

			err = os.WriteFile(filepath.Join(fs.Path(), "logo"), []byte("not a folder"), 0o644)
			g.Assert(err).IsNil()

			rep, err := fs.Ensure([]string{"logo"})
			g.Assert(err).IsNil()
			g.Assert(rep.Existing).Equal([]string{"logo"})

			st, err := os.Lstat(filepath.Join(fs.Path(), "logo"))
			g.Assert(err).IsNil()
			g.Assert(st.IsDir()).IsFalse()
		})

		g.It("rejects a default folder name that escapes the root", func() {
			fs := New(newRoot(), true)

			_, err := fs.Ensure([]string{"../escape"})
			g.Assert(err).IsNotNil()
		})
	})
}
