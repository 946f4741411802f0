package config

const (
	defaultLibraryDir      = "~/.local/share/folio/library"
	defaultLogDir          = "~/.local/share/folio/logs"
	defaultAPIBind         = "127.0.0.1:7610"
	defaultArchiveURL      = "http://127.0.0.1:7600"
	defaultRequestTimeout  = 30
	defaultMaxConcurrent   = 3
	defaultTransferTimeout = 600
	defaultEventBuffer     = 64
	defaultLogLevel        = "info"
)

func defaultAllowedExtensions() []string {
	return []string{".pdf", ".epub", ".djvu", ".txt", ".md", ".html", ".docx", ".rtf"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Archive: Archive{
			URL:            defaultArchiveURL,
			RequestTimeout: defaultRequestTimeout,
		},
		Uploader: Uploader{
			MaxConcurrent:     defaultMaxConcurrent,
			TransferTimeout:   defaultTransferTimeout,
			AllowedExtensions: defaultAllowedExtensions(),
		},
		Workspace: Workspace{
			EventBuffer: defaultEventBuffer,
		},
		Logging: Logging{
			Level: defaultLogLevel,
		},
	}
}
