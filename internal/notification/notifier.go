// Package notification delivers run summaries through shoutrrr service URLs
// (Telegram, Slack, Discord, SMTP and the rest of the shoutrrr catalogue).
package notification

import (
	"context"
	"io"
	"log"
	"slices"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/tphakala/rqm-etl/internal/errors"
	"github.com/tphakala/rqm-etl/internal/logger"
)

const (
	// DefaultTitle is used when no title is configured
	DefaultTitle = "RQM ETL"

	// DefaultTimeout bounds one delivery to all configured services
	DefaultTimeout = 30 * time.Second
)

// Sender is the part of the shoutrrr router the notifier uses.
type Sender interface {
	Send(message string, params *stypes.Params) []error
}

// Config describes where and when run summaries are sent.
type Config struct {
	URLs          []string
	Title         string
	OnlyOnFailure bool
	Timeout       time.Duration
}

// Notifier sends one message per run.
type Notifier struct {
	sender        Sender
	title         string
	onlyOnFailure bool
}

// New validates cfg.URLs by building a shoutrrr router for them.
func New(cfg Config) (*Notifier, error) {
	urls := make([]string, 0, len(cfg.URLs))
	for _, u := range cfg.URLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return nil, errors.Newf("at least one notification URL is required").
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sender, err := shoutrrr.CreateSender(slices.Clip(urls)...)
	if err != nil {
		// shoutrrr echoes the offending URL, which usually carries a token
		return nil, errors.Newf("invalid notification URL: %s", logger.RedactSensitiveData(err.Error())).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Context("services", len(urls)).
			Build()
	}
	sender.Timeout = cfg.Timeout
	if sender.Timeout <= 0 {
		sender.Timeout = DefaultTimeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))

	return NewWithSender(sender, cfg), nil
}

// NewWithSender wraps an existing sender.
func NewWithSender(sender Sender, cfg Config) *Notifier {
	title := strings.TrimSpace(cfg.Title)
	if title == "" {
		title = DefaultTitle
	}
	return &Notifier{
		sender:        sender,
		title:         title,
		onlyOnFailure: cfg.OnlyOnFailure,
	}
}

// ShouldNotify reports whether a run with the given failure state is
// announced.
func (n *Notifier) ShouldNotify(failed bool) bool {
	return failed || !n.onlyOnFailure
}

// NotifyRun sends summary unless the run succeeded and only failures are
// announced. It returns false when nothing was sent.
func (n *Notifier) NotifyRun(ctx context.Context, summary string, failed bool) (bool, error) {
	if !n.ShouldNotify(failed) {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, errors.New(err).
			Component("notification").
			Category(errors.CategoryCancellation).
			Build()
	}

	title := n.title
	if failed {
		title += ": failures"
	}
	params := stypes.Params{}
	params.SetTitle(title)

	var sendErrs []error
	for _, e := range n.sender.Send(summary, &params) {
		if e != nil {
			sendErrs = append(sendErrs, errors.NewStd(logger.RedactSensitiveData(e.Error())))
		}
	}
	if len(sendErrs) > 0 {
		return false, errors.New(errors.Join(sendErrs...)).
			Component("notification").
			Category(errors.CategoryIntegration).
			Context("failed_services", len(sendErrs)).
			Build()
	}
	return true, nil
}
