package config

const (
	// TopicResumeIndex is the NSQ topic for fragment reindexing tasks,
	// published whenever a resume is (re)submitted.
	TopicResumeIndex = "resume.index"
)
