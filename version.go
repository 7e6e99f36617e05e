package assessmentserver

// Version is set at build time with -ldflags "-X github.com/a-h/assessmentserver.Version=...".
var Version = "dev"
