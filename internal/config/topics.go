package config

const (
	// TopicIngestRaw is the default NSQ topic carrying raw change events from the CDC source.
	TopicIngestRaw = "ingest.raw"

	// ChannelFeature is the consumer channel of the feature pipeline workers.
	ChannelFeature = "feature"
)
