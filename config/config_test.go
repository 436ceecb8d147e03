package config

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/franela/goblin"
)

func TestConfiguration(t *testing.T) {
	g := Goblin(t)

	unset := func() {
		for _, k := range []string{"STORAGE_ROOT", "DEFAULT_FOLDERS", "HOST", "PORT", "CORS_ORIGINS", "LOG_DIRECTORY"} {
			os.Unsetenv(k)
		}
	}

	g.Describe("ReadConfiguration", func() {
		g.BeforeEach(unset)
		g.AfterEach(unset)

		g.It("boots on defaults when no file exists", func() {
			c, err := ReadConfiguration(filepath.Join(os.TempDir(), "does-not-exist.yml"))
			g.Assert(err).IsNil()
			g.Assert(c.Api.Port).Equal(8975)
			g.Assert(c.Storage.DefaultFolders).Equal([]string{"logo", "potentials"})
			g.Assert(c.Storage.CaseInsensitiveSort).IsTrue()
		})

		g.It("reads values from a configuration file", func() {
			p := filepath.Join(t.TempDir(), "storaged.yml")
			err := os.WriteFile(p, []byte("api:\n  port: 9000\nstorage:\n  root: /srv/data\n"), 0o644)
			g.Assert(err).IsNil()

			c, err := ReadConfiguration(p)
			g.Assert(err).IsNil()
			g.Assert(c.Api.Port).Equal(9000)
			g.Assert(c.Storage.RootDirectory).Equal("/srv/data")
		})

		g.It("lets the environment override file values", func() {
			p := filepath.Join(t.TempDir(), "storaged.yml")
			err := os.WriteFile(p, []byte("storage:\n  root: /srv/data\n"), 0o644)
			g.Assert(err).IsNil()

			os.Setenv("STORAGE_ROOT", "/srv/override")
			os.Setenv("PORT", "9001")
			os.Setenv("DEFAULT_FOLDERS", "logo, potentials, extra")
			os.Setenv("CORS_ORIGINS", "https://a.example.com,https://b.example.com")

			c, err := ReadConfiguration(p)
			g.Assert(err).IsNil()
			g.Assert(c.Storage.RootDirectory).Equal("/srv/override")
			g.Assert(c.Api.Port).Equal(9001)
			g.Assert(c.Storage.DefaultFolders).Equal([]string{"logo", "potentials", "extra"})
			g.Assert(c.Api.CORSOrigins).Equal([]string{"https://a.example.com", "https://b.example.com"})
		})

		g.It("treats a wildcard CORS value as allow all", func() {
			os.Setenv("CORS_ORIGINS", "*")

			c, err := ReadConfiguration(filepath.Join(os.TempDir(), "does-not-exist.yml"))
			g.Assert(err).IsNil()
			g.Assert(c.Api.CORSOrigins).Equal([]string{"*"})
		})

		g.It("fails on a malformed configuration file", func() {
			p := filepath.Join(t.TempDir(), "storaged.yml")
			err := os.WriteFile(p, []byte("api: [not a mapping"), 0o644)
			g.Assert(err).IsNil()

			_, err = ReadConfiguration(p)
			g.Assert(err).IsNotNil()
		})
	})
}
