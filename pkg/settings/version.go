package settings

// set by -ldflags "-X github.com/liut/insightchat/pkg/settings.version=..."
var version = "dev"
