package cmd

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/NYTimes/logrotate"
	"github.com/apex/log"
	"github.com/apex/log/handlers/multi"
	"github.com/mitchellh/colorstring"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/acme"
	"golang.org/x/crypto/acme/autocert"

	"github.com/artera/storaged/config"
	"github.com/artera/storaged/filesystem"
	"github.com/artera/storaged/loggers/cli"
	"github.com/artera/storaged/router"
	"github.com/artera/storaged/system"
)

var (
	configPath              = config.DefaultLocation
	debug                   = false
	useAutomaticTls         = false
	tlsHostname             = ""
	showVersion             = false
	ignoreCertificateErrors = false
)

var root = &cobra.Command{
	Use:   "storaged",
	Short: "A confined file storage daemon for the Artera platform",
	Long:  ``,
	PreRun: func(cmd *cobra.Command, args []string) {
		if useAutomaticTls && len(tlsHostname) == 0 {
			fmt.Println("A TLS hostname must be provided when running storaged with automatic TLS, e.g.:\n\n    ./storaged --auto-tls --tls-hostname storage.example.com")
			os.Exit(1)
		}
	},
	Run: rootCmdRun,
}

func init() {
	root.PersistentFlags().BoolVar(&showVersion, "version", false, "show the version and exit")
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultLocation, "set the location for the configuration file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "pass in order to run storaged in debug mode")
	root.PersistentFlags().BoolVar(&useAutomaticTls, "auto-tls", false, "pass in order to have storaged generate and manage its own SSL certificates using Let's Encrypt")
	root.PersistentFlags().StringVar(&tlsHostname, "tls-hostname", "", "required with --auto-tls, the FQDN for the generated SSL certificate")
	root.PersistentFlags().BoolVar(&ignoreCertificateErrors, "ignore-certificate-errors", false, "if passed any SSL certificate errors will be ignored by storaged")
}

// Get the configuration based on the path provided at startup. A missing file
// falls back to defaults plus the environment, so the daemon can boot in a
// container with nothing mounted at the default location.
func readConfiguration() (*config.Configuration, error) {
	p := configPath
	if !strings.HasPrefix(p, "/") {
		d, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		p = path.Clean(path.Join(d, configPath))
	}

	return config.ReadConfiguration(p)
}

func rootCmdRun(*cobra.Command, []string) {
	if showVersion {
		fmt.Println(system.Version)
		os.Exit(0)
	}

	c, err := readConfiguration()
	if err != nil {
		panic(err)
	}

	if debug {
		c.Debug = true
	}

	printLogo()
	if err := configureLogging(c.System.LogDirectory, c.Debug); err != nil {
		panic(err)
	}

	log.WithField("path", configPath).Info("loading configuration from path")
	if c.Debug {
		log.Debug("running in debug mode")
	}

	if ignoreCertificateErrors {
		log.Warn("running with --ignore-certificate-errors: TLS certificate host chains and name will not be verified")
		http.DefaultTransport.(*http.Transport).TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	fs := filesystem.New(c.Storage.RootDirectory, c.Storage.CaseInsensitiveSort)

	// The storage root must be in place before any traffic is served; a
	// failure here is fatal. Existing contents are preserved across restarts,
	// only missing pieces are created.
	report, err := fs.Ensure(c.Storage.DefaultFolders)
	if err != nil {
		log.WithField("error", err).Fatal("failed to initialize the storage root directory")
		return
	}

	log.WithFields(log.Fields{
		"root":        report.Root,
		"items_found": report.ItemCount,
	}).Info("storage root directory initialized, existing content preserved")
	for _, name := range report.Created {
		log.WithField("folder", name).Info("default folder created")
	}
	for _, name := range report.Existing {
		log.WithField("folder", name).Debug("default folder already exists")
	}

	log.WithFields(log.Fields{
		"use_ssl":      c.Api.Ssl.Enabled,
		"use_auto_tls": useAutomaticTls && len(tlsHostname) > 0,
		"host_address": c.Api.Host,
		"host_port":    c.Api.Port,
	}).Info("configuring internal webserver")

	r := router.Configure(c, fs)

	s := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", c.Api.Host, c.Api.Port),
		Handler: r,

		TLSConfig: &tls.Config{
			NextProtos: []string{"h2", "http/1.1"},
			// @see https://blog.cloudflare.com/exposing-go-on-the-internet
			CipherSuites: []uint16{
				tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
				tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
			},
			PreferServerCipherSuites: true,
			MinVersion:               tls.VersionTLS12,
			MaxVersion:               tls.VersionTLS13,
			CurvePreferences:         []tls.CurveID{tls.X25519, tls.CurveP256},
		},
	}

	// Check if the server should run with TLS but using autocert.
	if useAutomaticTls && len(tlsHostname) > 0 {
		m := autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			Cache:      autocert.DirCache(path.Join(c.Storage.RootDirectory, "/.tls-cache")),
			HostPolicy: autocert.HostWhitelist(tlsHostname),
		}

		log.WithField("hostname", tlsHostname).
			Info("webserver is now listening with auto-TLS enabled; certificates will be automatically generated by Let's Encrypt")

		// Hook autocert into the main http server.
		s.TLSConfig.GetCertificate = m.GetCertificate
		s.TLSConfig.NextProtos = append(s.TLSConfig.NextProtos, acme.ALPNProto)

		// Start the autocert server.
		go func() {
			if err := http.ListenAndServe(":http", m.HTTPHandler(nil)); err != nil {
				log.WithField("error", err).Error("failed to serve autocert http server")
			}
		}()

		if err := s.ListenAndServeTLS("", ""); err != nil {
			log.WithFields(log.Fields{"auto_tls": true, "tls_hostname": tlsHostname, "error": err}).
				Fatal("failed to configure HTTP server using auto-tls")
		}
		return
	}

	// Check if main http server should run with TLS.
	if c.Api.Ssl.Enabled {
		if err := s.ListenAndServeTLS(strings.ToLower(c.Api.Ssl.CertificateFile), strings.ToLower(c.Api.Ssl.KeyFile)); err != nil {
			log.WithFields(log.Fields{"auto_tls": false, "error": err}).Fatal("failed to configure HTTPS server")
		}
		return
	}

	// Run the main http server without TLS.
	s.TLSConfig = nil
	if err := s.ListenAndServe(); err != nil {
		log.WithField("error", err).Fatal("failed to configure HTTP server")
	}
}

// Execute calls cobra to handle cli commands.
func Execute() error {
	return root.Execute()
}

// Configures the global logger so that it can be called from any location in
// the code without having to pass around a logger instance.
func configureLogging(logDir string, debug bool) error {
	if err := os.MkdirAll(logDir, 0o700); err != nil {
		return err
	}

	p := filepath.Join(logDir, "/storaged.log")
	w, err := logrotate.NewFile(p)
	if err != nil {
		return err
	}

	if debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}

	log.SetHandler(multi.New(
		cli.Default,
		cli.New(w.File, false),
	))

	log.WithField("path", p).Info("writing log files to disk")

	return nil
}

// Prints the storaged logo, nothing special here!
func printLogo() {
	fmt.Printf(colorstring.Color(`
             _
  __ _  _ __| |_  ___  _ __  __ _
 / _`+"`"+` || '__| __|/ _ \| '__|/ _`+"`"+` |
| (_| || |  | |_|  __/| |  | (_| |
 \__,_||_|   \__|\___||_|   \__,_|  [blue][bold]storaged[reset] [bold]v%s[reset]

Confined file storage for the Artera platform.%s`), system.Version, "\n\n")
}
