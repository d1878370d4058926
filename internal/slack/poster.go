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

	"github.com/MikeSquared-Agency/intake/internal/analysis"
	"github.com/MikeSquared-Agency/intake/internal/reconcile"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

// maxThreadErrors caps how many sync errors are listed in the thread reply.
const maxThreadErrors = 20

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

// NotifySync posts a summary of a sync run, with errors listed in a thread.
// Runs that changed nothing and hit no errors are not posted.
func (p *Poster) NotifySync(ctx context.Context, report *reconcile.Report) error {
	if report.Synced == 0 && report.Updated == 0 && len(report.Errors) == 0 {
		return nil
	}

	ts, err := p.post(ctx, map[string]any{
		"channel": p.channel,
		"text":    FormatSyncSummary(report),
	})
	if err != nil {
		return err
	}
	p.logger.Info("posted sync summary to slack", "ts", ts, "agent_id", report.AgentID)

	if len(report.Errors) > 0 {
		if err := p.PostThread(ctx, ts, formatErrors(report.Errors)); err != nil {
			return fmt.Errorf("post error thread: %w", err)
		}
	}
	return nil
}

// PostFindingsReview posts an interview's analysis so the team can review findings
// before the findings gate is approved. Returns the message timestamp.
func (p *Poster) PostFindingsReview(ctx context.Context, interviewLabel string, res *analysis.Result) (string, error) {
	text := FormatFindingsReview(interviewLabel, res)
	ts, err := p.post(ctx, map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{"type": "mrkdwn", "text": text},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{"type": "mrkdwn", "text": "Approve the findings gate on the project once reviewed."},
				},
			},
		},
	})
	if err != nil {
		return "", err
	}
	p.logger.Info("posted findings review to slack", "ts", ts, "findings", len(res.Findings))
	return ts, nil
}

// PostThread posts a threaded reply to a message.
func (p *Poster) PostThread(ctx context.Context, threadTS, text string) error {
	_, err := p.post(ctx, map[string]any{
		"channel":   p.channel,
		"thread_ts": threadTS,
		"text":      text,
	})
	return err
}

func (p *Poster) post(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
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
	return slackResp.TS, nil
}

func FormatSyncSummary(report *reconcile.Report) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*Interview sync* (agent `%s`)\n", report.AgentID)
	fmt.Fprintf(&sb, "%s\n", report.Message)
	if n := len(report.Errors); n > 0 {
		fmt.Fprintf(&sb, ":warning: %d error(s), see thread", n)
	} else {
		sb.WriteString(":white_check_mark: no errors")
	}
	if !report.StartedAt.IsZero() && !report.FinishedAt.IsZero() {
		fmt.Fprintf(&sb, " | took %s", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	}
	return sb.String()
}

func formatErrors(errs []string) string {
	var sb strings.Builder
	for i, e := range errs {
		if i == maxThreadErrors {
			fmt.Fprintf(&sb, "…and %d more", len(errs)-maxThreadErrors)
			break
		}
		fmt.Fprintf(&sb, "• %s\n", e)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func FormatFindingsReview(label string, res *analysis.Result) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*Interview analysed:* %s\n", label)
	if res.Summary != "" {
		fmt.Fprintf(&sb, "%s\n\n", res.Summary)
	}

	if len(res.Findings) == 0 {
		sb.WriteString("_No findings extracted from this interview._")
		return sb.String()
	}

	fmt.Fprintf(&sb, "*Findings: %d*\n", len(res.Findings))
	for i, f := range res.Findings {
		fmt.Fprintf(&sb, "%d. [%s] %s (impact %d/5)\n", i+1, f.FindingType, f.Title, f.ImpactLevel)
		if len(f.Tags) > 0 {
			fmt.Fprintf(&sb, "   Tags: %s\n", strings.Join(f.Tags, ", "))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
