package config

const (
	// TopicIngestRequest is the NSQ topic that triggers a full re-ingestion
	// run. Its consumer runs with max-in-flight 1, so runs never overlap.
	TopicIngestRequest = "ingest.request"

	// ChannelIngest is the consumer channel for ingest requests.
	ChannelIngest = "ingestor"
)
