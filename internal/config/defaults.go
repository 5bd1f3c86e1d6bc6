package config

const (
	defaultConfigPath       = "~/.config/despatch/config.toml"
	defaultOutputDir        = "~/despatch/repo"
	defaultJournalDir       = "~/.local/share/despatch/journals"
	defaultLogDir           = "~/.local/share/despatch/logs"
	defaultRetentionDays    = 30
	defaultJournalLock      = LockReadOnly
	defaultTransportMode    = TransportHotFolder
	defaultHotFolder        = "~/despatch/hotfolder"
	defaultTransportTimeout = 60
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 60
	defaultNtfyTimeout      = 10
	intakeTokenEnv          = "DESPATCH_INTAKE_TOKEN"
)

// Journal lock modes.
const (
	LockReadOnly = "readonly"
	LockFlock    = "flock"
)

// Transport modes.
const (
	TransportHotFolder = "hotfolder"
	TransportHTTP      = "http"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:  defaultOutputDir,
			JournalDir: defaultJournalDir,
			LogDir:     defaultLogDir,
		},
		Retention: Retention{
			Days: defaultRetentionDays,
		},
		Journal: Journal{
			Lock: defaultJournalLock,
		},
		Transport: Transport{
			Mode:           defaultTransportMode,
			HotFolder:      defaultHotFolder,
			TimeoutSeconds: defaultTransportTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Sites: defaultSites(),
	}
}

func defaultSites() []SiteEntry {
	return []SiteEntry{
		{
			Name:          "TY FELIN",
			JournalFile:   "tyfelin.tmp",
			PayloadPrefix: "DESPATCH_TYF_",
			MarkerPrefix:  "DESPATCH_TYF_",
			ReportPrefix:  "REPORT_TYF_",
		},
		{
			Name:          "MORRISTON",
			JournalFile:   "morriston.tmp",
			PayloadPrefix: "DESPATCH_MOR_",
			MarkerPrefix:  "DESPATCH_MOR_",
			ReportPrefix:  "REPORT_MOR_",
		},
		{
			Name:          "BRP",
			JournalFile:   "brp.tmp",
			PayloadPrefix: "DESPATCH_BRP_",
			MarkerPrefix:  "DESPATCH_BRP_",
			ReportPrefix:  "REPORT_BRP_",
		},
	}
}
