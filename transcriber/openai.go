package transcriber

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI talks to any OpenAI-compatible transcription endpoint, including a
// LocalAI server.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey, baseURL, model string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" || !isRemoteModel(model) {
		model = openai.Whisper1
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Transcribe(ctx context.Context, path string, opts Options) ([]Segment, error) {
	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:       o.model,
		FilePath:    path,
		Prompt:      opts.Prompt,
		Temperature: float32(opts.Temperature),
		Language:    opts.Language,
		Format:      openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, recognitionError(o.Name(), err)
	}

	if len(resp.Segments) == 0 {
		if resp.Text == "" {
			return nil, nil
		}
		return []Segment{{Text: resp.Text, End: resp.Duration}}, nil
	}
	segs := make([]Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segs = append(segs, Segment{Text: s.Text, Start: s.Start, End: s.End, NoSpeechProb: s.NoSpeechProb})
	}
	return numbered(segs), nil
}
