package config

import (
	"os"
	"strconv"
	"strings"

	"emperror.dev/errors"
	"gopkg.in/yaml.v2"
)

const DefaultLocation = "/etc/artera/storaged.yml"

type Configuration struct {
	// Determines if the daemon should be running in debug mode. This value is
	// ignored if the debug flag is passed through the command line arguments.
	Debug bool `yaml:"debug"`

	Api     ApiConfiguration     `yaml:"api"`
	Storage StorageConfiguration `yaml:"storage"`
	System  SystemConfiguration  `yaml:"system"`
}

// ApiConfiguration defines the configuration for the internal API that is
// exposed by the daemon webserver.
type ApiConfiguration struct {
	// The interface that the internal webserver should bind to.
	Host string `yaml:"host"`

	// The port that the internal webserver should bind to.
	Port int `yaml:"port"`

	// SSL configuration for the daemon.
	Ssl struct {
		Enabled         bool   `yaml:"enabled"`
		CertificateFile string `yaml:"cert"`
		KeyFile         string `yaml:"key"`
	} `yaml:"ssl"`

	// The maximum size for files uploaded through the API, in mebibytes.
	UploadLimit int `yaml:"upload_limit"`

	// Origins allowed to call the API from a browser. A single "*" entry
	// allows any origin.
	CORSOrigins []string `yaml:"cors_origins"`
}

// StorageConfiguration defines where the confined storage root lives and how
// it is initialized at boot.
type StorageConfiguration struct {
	// Directory that all file and folder operations are confined to. Created
	// at boot when missing; existing contents are never touched.
	RootDirectory string `yaml:"root"`

	// Folders guaranteed to exist directly under the root after boot. Only
	// created when absent, so user deletions survive until the next restart.
	DefaultFolders []string `yaml:"default_folders"`

	// Whether listing order folds case when sorting names. Enabled by default
	// so listings collate the same way on every host filesystem.
	CaseInsensitiveSort bool `yaml:"case_insensitive_sort"`
}

// SystemConfiguration defines basic system configuration settings.
type SystemConfiguration struct {
	// Directory where the daemon writes its rotating log files.
	LogDirectory string `yaml:"log_directory"`
}

// Default returns the configuration the daemon boots with when no file and no
// environment overrides are present.
func Default() *Configuration {
	c := &Configuration{}
	c.Api.Host = "0.0.0.0"
	c.Api.Port = 8975
	c.Api.UploadLimit = 100
	c.Api.CORSOrigins = []string{"*"}
	c.Storage.RootDirectory = "/var/lib/artera"
	c.Storage.DefaultFolders = []string{"logo", "potentials"}
	c.Storage.CaseInsensitiveSort = true
	c.System.LogDirectory = "/var/log/artera"
	return c
}

// ReadConfiguration reads the configuration from the provided file path and
// layers environment variable overrides on top. A missing file is not an
// error: the daemon is fully configurable through the environment alone.
func ReadConfiguration(path string) (*Configuration, error) {
	c := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "config: failed to read configuration file")
		}
	} else if err := yaml.Unmarshal(b, c); err != nil {
		return nil, errors.Wrap(err, "config: failed to parse configuration file")
	}

	c.applyEnvironment()
	return c, nil
}

// applyEnvironment overrides configuration values from the process
// environment. The variable names match what the hosting platform injects.
func (c *Configuration) applyEnvironment() {
	if v, ok := os.LookupEnv("STORAGE_ROOT"); ok && v != "" {
		c.Storage.RootDirectory = v
	}
	if v, ok := os.LookupEnv("DEFAULT_FOLDERS"); ok {
		c.Storage.DefaultFolders = splitList(v)
	}
	if v, ok := os.LookupEnv("HOST"); ok && v != "" {
		c.Api.Host = v
	}
	if v, ok := os.LookupEnv("PORT"); ok && v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Api.Port = p
		}
	}
	if v, ok := os.LookupEnv("CORS_ORIGINS"); ok && v != "" {
		if v == "*" {
			c.Api.CORSOrigins = []string{"*"}
		} else {
			c.Api.CORSOrigins = splitList(v)
		}
	}
	if v, ok := os.LookupEnv("LOG_DIRECTORY"); ok && v != "" {
		c.System.LogDirectory = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
