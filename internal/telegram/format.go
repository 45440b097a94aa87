package telegram

import (
	"fmt"
	"strings"
	"sync"

	"newsagg/internal/model"
)

const timestampLayout = "15:04 02.01.2006"

// escapeCacheCap bounds the formatter's escape cache. When full the cache is
// reset rather than evicted entry by entry.
const escapeCacheCap = 1024

var mdEscaper = strings.NewReplacer(
	"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(", ")", "\\)",
	"~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-",
	"=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}", ".", "\\.", "!", "\\!",
)

// Formatter renders articles as MarkdownV2 channel messages from a template
// with {source}, {title}, {url} and {timestamp} placeholders. It owns a
// bounded cache of escaped strings.
type Formatter struct {
	template string

	mu    sync.Mutex
	cache map[string]string
}

// NewFormatter creates a Formatter with the given message template.
func NewFormatter(template string) *Formatter {
	return &Formatter{
		template: template,
		cache:    make(map[string]string),
	}
}

// Format renders the article using the template, escaping everything except
// the URL for MarkdownV2.
func (f *Formatter) Format(a *model.Article) string {
	var ts string
	if a.Timestamp != nil {
		ts = a.Timestamp.Format(timestampLayout)
	}

	r := strings.NewReplacer(
		"{source}", f.escape(a.Source),
		"{title}", f.escape(a.Title),
		"{url}", a.URL,
		"{timestamp}", f.escape(ts),
	)
	return r.Replace(f.template)
}

// Fallback returns the degraded plain-text payload used when the formatted
// message cannot be delivered.
func Fallback(a *model.Article) string {
	return fmt.Sprintf("📰 %s\n%s\n🔗 %s", a.Source, a.Title, a.URL)
}

func (f *Formatter) escape(s string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if escaped, ok := f.cache[s]; ok {
		return escaped
	}
	escaped := mdEscaper.Replace(s)
	if len(f.cache) >= escapeCacheCap {
		f.cache = make(map[string]string)
	}
	f.cache[s] = escaped
	return escaped
}
