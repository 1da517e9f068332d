package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/dagstat/pkg/domain"
	"github.com/m-mizutani/dagstat/pkg/domain/interfaces"
	"github.com/m-mizutani/dagstat/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

// at most this many task/state rows are attached as fields
const maxSlackFields = 20

type SlackExporter struct {
	config     model.SlackConfig
	httpClient *http.Client
}

func NewSlackExporter(config model.SlackConfig) interfaces.Exporter {
	return &SlackExporter{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (s *SlackExporter) Name() string { return "slack" }

// Export posts a digest of the report: the templated message plus one
// attachment field per summary row, colored by whether anything failed.
func (s *SlackExporter) Export(ctx context.Context, report *model.Report) ([]string, error) {
	message, err := buildSlackMessage(s.config.Message, report)
	if err != nil {
		return nil, domain.ErrExport.Wrap(err)
	}

	payload := buildSlackPayload(message, report)
	payload.UserName = s.config.UserName
	payload.IconEmoji = s.config.IconEmoji

	if err := s.send(ctx, payload); err != nil {
		return nil, err
	}

	masked := maskWebhookURL(s.config.WebhookURL)
	ctxlog.From(ctx).Info("posted report to slack", slog.String("webhook_url", masked))
	return []string{"slack:" + masked}, nil
}

func slackMessageData(report *model.Report) model.SlackMessageData {
	data := model.SlackMessageData{
		DagID:     report.DagID,
		Period:    report.Period,
		Window:    report.Window.String(),
		Total:     len(report.Records),
		DagRuns:   len(report.DagRuns),
		Dropped:   report.Dropped,
		ReportID:  report.ID,
		Generated: report.GeneratedAt.Format(time.RFC3339),
	}
	for _, r := range report.Records {
		if r.State == model.TaskStateFailed || r.State == model.TaskStateUpstreamFailed {
			data.Failed++
		}
	}
	return data
}

func buildSlackMessage(messageTemplate string, report *model.Report) (string, error) {
	if messageTemplate == "" {
		messageTemplate = model.DefaultSlackMessage
	}

	tmpl, err := template.New("message").Parse(messageTemplate)
	if err != nil {
		return "", goerr.Wrap(err, "failed to parse message template")
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, slackMessageData(report)); err != nil {
		return "", goerr.Wrap(err, "failed to execute message template")
	}

	return buf.String(), nil
}

func buildSlackPayload(message string, report *model.Report) model.SlackPayload {
	color := "good"
	if slackMessageData(report).Failed > 0 {
		color = "danger"
	} else if len(report.Records) == 0 {
		color = "warning"
	}

	var fields []model.Field
	for i, row := range report.Summary {
		if i == maxSlackFields {
			fields = append(fields, model.Field{
				Title: "...",
				Value: fmt.Sprintf("%d more rows", len(report.Summary)-maxSlackFields),
			})
			break
		}
		value := fmt.Sprintf("%d (%.1f%%)", row.Count, row.Percentage)
		if row.MeanDuration != nil {
			value += fmt.Sprintf(", mean %s", row.MeanDuration.Round(time.Millisecond))
		}
		fields = append(fields, model.Field{
			Title: row.TaskID + " / " + string(row.State),
			Value: value,
			Short: true,
		})
	}

	return model.SlackPayload{
		Attachments: []model.Attachment{
			{
				Color:     color,
				Text:      message,
				Fields:    fields,
				Footer:    "dagstat - " + report.Window.String(),
				Timestamp: report.GeneratedAt.Unix(),
			},
		},
	}
}

func (s *SlackExporter) send(ctx context.Context, payload model.SlackPayload) error {
	logger := ctxlog.From(ctx)
	maskedURL := maskWebhookURL(s.config.WebhookURL)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return domain.ErrExport.Wrap(err)
	}

	logger.Debug("sending to slack",
		slog.String("webhook_url", maskedURL),
		slog.Int("size", len(jsonData)),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return domain.ErrExport.Wrap(err, goerr.V("webhook_url", maskedURL))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.ErrExport.Wrap(err, goerr.V("webhook_url", maskedURL))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.ErrExport.Wrap(goerr.New("slack webhook rejected the message"),
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(body)),
			goerr.V("webhook_url", maskedURL),
		)
	}

	return nil
}

// maskWebhookURL hides the secret path segments of a webhook URL for logging
func maskWebhookURL(url string) string {
	if strings.Contains(url, "hooks.slack.com") {
		parts := strings.Split(url, "/")
		if len(parts) > 3 {
			for i := len(parts) - 3; i < len(parts); i++ {
				if len(parts[i]) > 4 {
					parts[i] = parts[i][:2] + "***"
				}
			}
			return strings.Join(parts, "/")
		}
	}
	if len(url) > 20 {
		return url[:20] + "***"
	}
	return "***"
}
