package config

import "runtime"

const (
	defaultSessionsDir      = "~/.local/share/omr-api/sessions"
	defaultLogDir           = "~/.local/share/omr-api/logs"
	defaultAPIBind          = "127.0.0.1:8000"
	defaultOMRTimeout       = 600
	defaultRenderTimeout    = 120
	defaultRetentionMinutes = 60
	defaultSweepMinutes     = 10
	defaultMaxUploadMiB     = 32
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// defaultAudiverisBin picks the conventional install location per OS.
func defaultAudiverisBin() string {
	switch runtime.GOOS {
	case "darwin":
		return "/Applications/Audiveris.app/Contents/MacOS/Audiveris"
	case "windows":
		return `C:\Program Files\Audiveris\Audiveris.exe`
	default:
		return "audiveris"
	}
}

// defaultMuseScoreBin picks the conventional install location per OS.
func defaultMuseScoreBin() string {
	switch runtime.GOOS {
	case "darwin":
		return "/Applications/MuseScore 4.app/Contents/MacOS/mscore"
	case "windows":
		return `C:\Program Files\MuseScore 4\bin\MuseScore4.exe`
	default:
		return "musescore3"
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SessionsDir: defaultSessionsDir,
			LogDir:      defaultLogDir,
			APIBind:     defaultAPIBind,
		},
		Tools: Tools{
			AudiverisBin:         defaultAudiverisBin(),
			MuseScoreBin:         defaultMuseScoreBin(),
			OMRTimeoutSeconds:    defaultOMRTimeout,
			RenderTimeoutSeconds: defaultRenderTimeout,
		},
		Sessions: Sessions{
			RetentionMinutes: defaultRetentionMinutes,
			SweepMinutes:     defaultSweepMinutes,
			MaxUploadMiB:     defaultMaxUploadMiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
