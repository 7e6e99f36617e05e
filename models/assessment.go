package models

// Assessment is a catalog entry as read by the import command.
type Assessment struct {
	Name          string `yaml:"name"`
	TestType      string `yaml:"test_type"`
	Duration      string `yaml:"duration"`
	RemoteTesting string `yaml:"remote_testing"`
	URL           string `yaml:"url"`
	Description   string `yaml:"description"`
}
