package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"pttwhisper/encoder"
	"pttwhisper/log"
)

const (
	groqURL          = "https://api.groq.com/openai/v1/audio/transcriptions"
	groqDefaultModel = "whisper-large-v3-turbo"
)

type Groq struct {
	client *TracedClient
	apiURL string
	apiKey string
	model  string
}

func NewGroq(apiKey, model string) *Groq {
	if model == "" || !isRemoteModel(model) {
		model = groqDefaultModel
	}
	g := &Groq{
		client: NewTracedClient(groqURL),
		apiURL: groqURL,
		apiKey: apiKey,
		model:  model,
	}
	go g.client.Warm()
	return g
}

func (g *Groq) Name() string { return "groq" }

type verboseResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Text         string  `json:"text"`
		Start        float64 `json:"start"`
		End          float64 `json:"end"`
		NoSpeechProb float64 `json:"no_speech_prob"`
	} `json:"segments"`
}

func (g *Groq) Transcribe(ctx context.Context, path string, opts Options) ([]Segment, error) {
	audioData, err := encoder.FlacFromWAV(path)
	if err != nil {
		return nil, recognitionError(g.Name(), err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "audio.flac")
	if err != nil {
		return nil, recognitionError(g.Name(), err)
	}
	if _, err := part.Write(audioData); err != nil {
		return nil, recognitionError(g.Name(), err)
	}
	writer.WriteField("model", g.model)
	writer.WriteField("response_format", "verbose_json")
	writer.WriteField("temperature", strconv.FormatFloat(opts.Temperature, 'f', -1, 64))
	if opts.Language != "" {
		writer.WriteField("language", opts.Language)
	}
	if opts.Prompt != "" {
		writer.WriteField("prompt", opts.Prompt)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", g.apiURL, &body)
	if err != nil {
		return nil, recognitionError(g.Name(), err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, recognitionError(g.Name(), err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, recognitionError(g.Name(), fmt.Errorf("API error %d: %s", resp.StatusCode, string(resp.Body)))
	}

	var vr verboseResponse
	if err := json.Unmarshal(resp.Body, &vr); err != nil {
		return nil, recognitionError(g.Name(), fmt.Errorf("response parse error: %w", err))
	}

	m := resp.Metrics
	log.Infof("groq upload: %.1f KB flac, ttfb=%dms total=%dms reused=%v ratelimit=%s/%s",
		float64(len(audioData))/1024, m.TTFB.Milliseconds(), m.Sum().Milliseconds(), m.ConnReused,
		firstNonEmpty(resp.Header, "x-ratelimit-remaining-requests"),
		firstNonEmpty(resp.Header, "x-ratelimit-limit-requests"))

	return vr.segments(), nil
}

func (vr verboseResponse) segments() []Segment {
	if len(vr.Segments) == 0 {
		if vr.Text == "" {
			return nil
		}
		return []Segment{{Text: vr.Text, End: vr.Duration}}
	}
	segs := make([]Segment, 0, len(vr.Segments))
	for _, s := range vr.Segments {
		segs = append(segs, Segment{Text: s.Text, Start: s.Start, End: s.End, NoSpeechProb: s.NoSpeechProb})
	}
	return numbered(segs)
}

// isRemoteModel reports whether model is a hosted model name rather than a
// local faster-whisper size such as "small.en".
func isRemoteModel(model string) bool {
	switch model {
	case "tiny", "tiny.en", "base", "base.en", "small", "small.en", "medium", "medium.en",
		"large", "large-v1", "large-v2", "large-v3":
		return false
	}
	return true
}
