package audio

import "context"

// Fetcher retrieves the encoded bytes of an audio resource.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Decoder turns encoded audio into a sample buffer. hint is the resource name
// or URL and is only used to break ties when content sniffing is inconclusive.
type Decoder interface {
	Decode(ctx context.Context, data []byte, hint string) (*Buffer, error)
}
