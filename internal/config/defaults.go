package config

const (
	defaultWorkerURL      = "http://127.0.0.1:8377"
	defaultRequestTimeout = 10
	defaultLockDir        = "~/.local/share/packmill/locks"
	defaultLogDir         = "~/.local/share/packmill/logs"
	defaultHistoryDB      = "~/.local/share/packmill/history.db"
	defaultOutputDir      = "~/packmill-output"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"

	// Patch jobs finish in well under a second on the worker, so the class
	// polls aggressively; convert and publish jobs run for minutes.
	defaultPatchPollMs     = 250
	defaultConvertPollMs   = 1500
	defaultPublishPollMs   = 1500
	defaultMaxConsecutive  = 5
	defaultConvertBudgetS  = 3600
	defaultPatchBudgetS    = 120
	defaultPublishBudgetS  = 900
	defaultLockedRetries   = 3
	defaultRetryBackoffMs  = 1000
	defaultNotifyTimeoutS  = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		WorkerURL:      defaultWorkerURL,
		RequestTimeout: defaultRequestTimeout,
		LockDir:        defaultLockDir,
		LogDir:         defaultLogDir,
		HistoryDB:      defaultHistoryDB,
		OutputDir:      defaultOutputDir,
		LogLevel:       defaultLogLevel,
		LogFormat:      defaultLogFormat,
		Convert: ClassLimits{
			PollIntervalMs:       defaultConvertPollMs,
			MaxConsecutiveErrors: defaultMaxConsecutive,
			MaxDurationSeconds:   defaultConvertBudgetS,
		},
		Patch: ClassLimits{
			PollIntervalMs:       defaultPatchPollMs,
			MaxConsecutiveErrors: defaultMaxConsecutive,
			MaxDurationSeconds:   defaultPatchBudgetS,
		},
		Publish: ClassLimits{
			PollIntervalMs:       defaultPublishPollMs,
			MaxConsecutiveErrors: defaultMaxConsecutive,
			MaxDurationSeconds:   defaultPublishBudgetS,
		},
		Auth: Auth{
			MaxLockedRetries: defaultLockedRetries,
			RetryBackoffMs:   defaultRetryBackoffMs,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeoutS,
		},
	}
}
