package config

const (
	// EnvPrefix is the prefix of environment variables read into settings.
	EnvPrefix = "OSIA"

	// DefaultImagesDir is where boot images are cached when images_dir is unset.
	DefaultImagesDir = "images"

	// DefaultImageRaceRetries is how often image resolution restarts after the
	// reused image vanished between lookup and update.
	DefaultImageRaceRetries = 1

	// DefaultTTL is applied to DNS records when no ttl is configured.
	DefaultTTL = 60

	dnsFlagPrefix = "dns_"
)

// settingsFiles lists the files merged into settings, in order.
var settingsFiles = []string{"settings.yaml", "settings.yml", ".secrets.yaml", ".secrets.yml"}
