// Package telegram delivers pending articles to a Telegram channel with
// adaptive pacing.
package telegram

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"newsagg/internal/model"
)

const (
	// minDelay and maxDelay bound the adaptive inter-message delay.
	minDelay = 1 * time.Second
	maxDelay = 5 * time.Second

	// batchSize is the number of messages after which a hard maxDelay pause
	// is taken to avoid sustained bursts.
	batchSize = 10

	// maxAttempts bounds per-article delivery retries of the formatted
	// message before the plain-text fallback.
	maxAttempts = 3

	// retryAfterMargin is added on top of a server-requested retry-after.
	retryAfterMargin = 1 * time.Second
)

// API is the Telegram client surface the notifier uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// ArticleProvider is the storage surface the notifier needs.
type ArticleProvider interface {
	Unsent(ctx context.Context) ([]model.Article, error)
	MarkSent(ctx context.Context, id string) error
}

// Notifier sends unsent articles to a Telegram channel. A nil API or zero
// channel ID makes every delivery report failure without error, so cycles
// keep scraping and storing while delivery is unconfigured.
type Notifier struct {
	api       API
	articles  ArticleProvider
	channelID int64
	format    *Formatter
	log       *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Notifier. api may be nil when no bot token is configured.
func New(api API, articles ArticleProvider, channelID int64, format *Formatter, log *slog.Logger) *Notifier {
	return &Notifier{
		api:       api,
		articles:  articles,
		channelID: channelID,
		format:    format,
		log:       log,
		sleep:     sleepCtx,
	}
}

// SendPending queries unsent articles, delivers them with pacing and marks
// each successful delivery. Returns the number sent.
func (n *Notifier) SendPending(ctx context.Context) (int, error) {
	articles, err := n.articles.Unsent(ctx)
	if err != nil {
		return 0, err
	}
	if len(articles) == 0 {
		return 0, nil
	}

	n.log.Info("sending pending articles", "count", len(articles))
	return n.SendBatch(ctx, articles), nil
}

// SendBatch delivers the articles in order with an adaptive delay: success
// eases the delay toward minDelay, failure backs it off toward maxDelay, and
// every batchSize-th message is followed by a hard maxDelay pause. No
// article's failure aborts the rest of the batch.
func (n *Notifier) SendBatch(ctx context.Context, articles []model.Article) int {
	delay := minDelay
	sent := 0

	for i := range articles {
		a := &articles[i]
		if n.sendArticle(ctx, a) {
			sent++
			if n.articles != nil {
				if err := n.articles.MarkSent(ctx, a.ID()); err != nil {
					n.log.Error("mark sent", "id", a.ID(), "error", err)
				}
			}
			delay = clampDelay(delay * 9 / 10)
		} else {
			delay = clampDelay(delay * 3 / 2)
		}

		switch {
		case (i+1)%batchSize == 0:
			if n.sleep(ctx, maxDelay) != nil {
				return sent
			}
		case i < len(articles)-1:
			if n.sleep(ctx, delay) != nil {
				return sent
			}
		}
	}
	return sent
}

// sendArticle attempts the formatted message up to maxAttempts times with
// exponential backoff, honoring an explicit retry-after instead of the
// schedule, then falls back to a plain-text payload once.
func (n *Notifier) sendArticle(ctx context.Context, a *model.Article) bool {
	if n.api == nil || n.channelID == 0 {
		n.log.Warn("telegram delivery not configured", "title", a.Title)
		return false
	}

	msg := tgbotapi.NewMessage(n.channelID, n.format.Format(a))
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		_, err := n.api.Send(msg)
		if err == nil {
			n.log.Info("sent article", "title", truncate(a.Title, 50), "source", a.Source)
			return true
		}
		n.log.Error("send article", "title", truncate(a.Title, 50), "attempt", attempt, "error", err)

		if attempt == maxAttempts {
			break
		}
		wait := time.Duration(1<<attempt) * time.Second
		if ra := retryAfter(err); ra > 0 {
			wait = ra + retryAfterMargin
		}
		if n.sleep(ctx, wait) != nil {
			return false
		}
	}

	fallback := tgbotapi.NewMessage(n.channelID, Fallback(a))
	if _, err := n.api.Send(fallback); err != nil {
		n.log.Error("fallback send failed", "title", truncate(a.Title, 50), "error", err)
		return false
	}
	return true
}

// retryAfter extracts a server-requested retry delay, if any.
func retryAfter(err error) time.Duration {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) && tgErr.RetryAfter > 0 {
		return time.Duration(tgErr.RetryAfter) * time.Second
	}
	return 0
}

func clampDelay(d time.Duration) time.Duration {
	if d < minDelay {
		return minDelay
	}
	if d > maxDelay {
		return maxDelay
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
