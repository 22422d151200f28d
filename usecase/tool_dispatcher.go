package usecase

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/entities"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/repositories"
)

// Tool names offered to the model
const (
	ToolSearchYouTube = "search_youtube"
	ToolOpenURL       = "open_url"
	ToolSetReminder   = "set_reminder"
)

const (
	youtubeSearchURL  = "https://www.youtube.com/results?search_query="
	maxConcurrentTool = 4
)

// ReminderScheduler creates reminders on behalf of the set_reminder tool
type ReminderScheduler interface {
	Schedule(ctx context.Context, task string, delayMinutes float64) (*entities.Reminder, error)
}

// ToolDispatcher executes the client-side tools. Every failure is reported
// to the model as a readable result string, never as an error.
type ToolDispatcher struct {
	opener    repositories.Opener
	reminders ReminderScheduler
	notifier  repositories.Notifier
	logger    *zap.Logger
}

var _ repositories.ToolDispatcher = (*ToolDispatcher)(nil)

// NewToolDispatcher creates a dispatcher. notifier may be nil.
func NewToolDispatcher(
	opener repositories.Opener,
	reminders ReminderScheduler,
	notifier repositories.Notifier,
	logger *zap.Logger,
) *ToolDispatcher {
	return &ToolDispatcher{
		opener:    opener,
		reminders: reminders,
		notifier:  notifier,
		logger:    logger,
	}
}

// Declarations implements repositories.ToolDispatcher
func (d *ToolDispatcher) Declarations() []entities.ToolDeclaration {
	return []entities.ToolDeclaration{
		{
			Name:        ToolSearchYouTube,
			Description: "Search YouTube for videos and open the results in the browser.",
			Params: []entities.ToolParam{
				{Name: "query", Type: entities.ParamString, Description: "What to search for.", Required: true},
			},
		},
		{
			Name:        ToolOpenURL,
			Description: "Open a website in the browser.",
			Params: []entities.ToolParam{
				{Name: "url", Type: entities.ParamString, Description: "The address to open, for example example.com.", Required: true},
			},
		},
		{
			Name:        ToolSetReminder,
			Description: "Remind the user about a task after a delay.",
			Params: []entities.ToolParam{
				{Name: "task", Type: entities.ParamString, Description: "What to remind the user about.", Required: true},
				{Name: "delay_minutes", Type: entities.ParamNumber, Description: "Minutes from now until the reminder.", Required: true},
			},
		},
	}
}

// Dispatch implements repositories.ToolDispatcher. Calls run concurrently;
// results[i] always answers calls[i].
func (d *ToolDispatcher) Dispatch(ctx context.Context, calls []entities.ToolCall) ([]entities.ToolResult, error) {
	results := make([]entities.ToolResult, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentTool)
	for i, call := range calls {
		g.Go(func() error {
			result := d.execute(gctx, call)
			results[i] = entities.ToolResult{ID: call.ID, Name: call.Name, Result: result}

			d.logger.Info("Tool call executed",
				zap.String("tool", call.Name),
				zap.String("callID", call.ID),
				zap.String("result", result))
			if d.notifier != nil {
				d.notifier.NotifyToolCall(call, result)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (d *ToolDispatcher) execute(ctx context.Context, call entities.ToolCall) string {
	switch call.Name {
	case ToolSearchYouTube:
		return d.searchYouTube(ctx, call)
	case ToolOpenURL:
		return d.openURL(ctx, call)
	case ToolSetReminder:
		return d.setReminder(ctx, call)
	default:
		return "Unknown tool: " + call.Name
	}
}

func (d *ToolDispatcher) searchYouTube(ctx context.Context, call entities.ToolCall) string {
	query, err := call.StringArg("query")
	if err != nil {
		return argError(call, err)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return argError(call, fmt.Errorf("query must not be empty"))
	}

	if err := d.opener.Open(ctx, youtubeSearchURL+url.QueryEscape(query)); err != nil {
		d.logger.Warn("Failed to open YouTube search", zap.Error(err))
		return fmt.Sprintf("Failed to search YouTube for %s: %v", query, err)
	}
	return "Searching YouTube for " + query
}

func (d *ToolDispatcher) openURL(ctx context.Context, call entities.ToolCall) string {
	raw, err := call.StringArg("url")
	if err != nil {
		return argError(call, err)
	}
	target, err := NormalizeURL(raw)
	if err != nil {
		return argError(call, err)
	}

	if err := d.opener.Open(ctx, target); err != nil {
		d.logger.Warn("Failed to open URL", zap.String("url", target), zap.Error(err))
		return fmt.Sprintf("Failed to open %s: %v", target, err)
	}
	return "Opened " + target
}

func (d *ToolDispatcher) setReminder(ctx context.Context, call entities.ToolCall) string {
	task, err := call.StringArg("task")
	if err != nil {
		return argError(call, err)
	}
	delay, err := call.NumberArg("delay_minutes")
	if err != nil {
		return argError(call, err)
	}

	reminder, err := d.reminders.Schedule(ctx, task, delay)
	if err != nil {
		return fmt.Sprintf("Failed to set reminder: %v", err)
	}
	return "Reminder set for " + reminder.Task
}

func argError(call entities.ToolCall, err error) string {
	return fmt.Sprintf("Invalid arguments for %s: %v", call.Name, err)
}

// NormalizeURL prepends https:// to scheme-less input and accepts only web
// addresses.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("url must not be empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}
	return raw, nil
}
