package data

import "embed"

var (
	//go:embed numcaptcha.yaml
	Config embed.FS
)

// DefaultConfigName is the name of the default policy file in Config.
const DefaultConfigName = "numcaptcha.yaml"
