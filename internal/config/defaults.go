package config

const (
	defaultDataDir           = "~/.local/share/loom/data"
	defaultLogDir            = "~/.local/share/loom/logs"
	defaultExportDir         = "~/.local/share/loom/exports"
	defaultAPIBind           = "127.0.0.1:7519"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultParagraphMinChars = 20
	defaultSentenceMinChars  = 10
)

// defaultChecklist mirrors the QA review sheet used by translation teams:
// each item is a pass/fail judgement folded into the 1-5 quality score.
var defaultChecklist = []string{
	"accuracy",
	"meaning preservation",
	"dialect correctness",
	"fluency",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			ExportDir: defaultExportDir,
			APIBind:   defaultAPIBind,
		},
		Segmenter: Segmenter{
			ParagraphMinChars: defaultParagraphMinChars,
			SentenceMinChars:  defaultSentenceMinChars,
		},
		Review: Review{
			Checklist: append([]string(nil), defaultChecklist...),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
