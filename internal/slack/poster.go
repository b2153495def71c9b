// Package slack posts low-confidence extractions to a channel for review.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/baznta/legal-intel-dashboard/internal/extractor"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// PostReview posts an extraction summary for human review and returns the
// message timestamp.
func (p *Poster) PostReview(ctx context.Context, documentID, filename string, r extractor.Result) (string, error) {
	text := formatReviewMessage(documentID, filename, r)

	body, err := json.Marshal(map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{
						"type": "mrkdwn",
						"text": "Low extraction confidence. Please check the document metadata.",
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}

	p.logger.Info("posted review to slack", "ts", slackResp.TS, "document_id", documentID)
	return slackResp.TS, nil
}

func formatReviewMessage(documentID, filename string, r extractor.Result) string {
	var sb strings.Builder

	name := filename
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(&sb, "*Document:* %s (`%s`)\n", name, documentID)
	fmt.Fprintf(&sb, "*Confidence:* %.2f\n\n", r.ExtractionConfidence)

	fmt.Fprintf(&sb, "Agreement type: %s\n", orMissing(r.AgreementType))
	fmt.Fprintf(&sb, "Jurisdiction: %s\n", orMissing(r.Jurisdiction))
	fmt.Fprintf(&sb, "Industry: %s\n", orMissing(r.IndustrySector))
	if len(r.Parties) > 0 {
		fmt.Fprintf(&sb, "Parties: %s\n", strings.Join(r.Parties, "; "))
	} else {
		sb.WriteString("Parties: _not found_\n")
	}

	missing := []string{}
	populated := make(map[string]bool)
	for _, f := range extractor.PopulatedFields(&r) {
		populated[f] = true
	}
	for _, f := range extractor.ScoredFields() {
		if !populated[f] {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintf(&sb, "\n*Missing:* %s", strings.Join(missing, ", "))
	}

	return sb.String()
}

func orMissing(s *string) string {
	if s == nil {
		return "_not found_"
	}
	return *s
}
