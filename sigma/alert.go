package sigma

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/jnesss/mptevents/database"
	"github.com/jnesss/mptevents/monitor"
)

// Matcher is the part of Detector the alert sink needs.
type Matcher interface {
	CheckEvent(ctx context.Context, event map[string]interface{}) []MatchResult
}

// MatchRecorder archives rule matches. *database.DB implements it.
type MatchRecorder interface {
	InsertMatch(ctx context.Context, m *database.MatchRecord) error
}

// AlertSink forwards every event to Next and then emits one warning line per
// matching rule. Repeats of the same rule on the same controller within
// Throttle are suppressed.
type AlertSink struct {
	next     monitor.Sink
	matcher  Matcher
	recorder MatchRecorder
	throttle time.Duration
	recent   *lru.Cache // "<rule id>/<controller id>" -> time.Time of last alert
	logger   *log.Logger
	now      func() time.Time
}

// NewAlertSink returns an alert sink remembering up to cacheSize
// (rule, controller) pairs. recorder may be nil.
func NewAlertSink(next monitor.Sink, matcher Matcher, recorder MatchRecorder, throttle time.Duration, cacheSize int, logger *log.Logger) (*AlertSink, error) {
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &AlertSink{
		next:     next,
		matcher:  matcher,
		recorder: recorder,
		throttle: throttle,
		recent:   cache,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// EventFields is the flat field map rules are evaluated against.
func EventFields(ev monitor.Event) map[string]interface{} {
	values := ev.Description.Values()
	fields := make(map[string]interface{}, len(values)+2)
	for k, v := range values {
		fields[k] = v
	}
	fields["Controller"] = strconv.Itoa(ev.Controller.ID)
	fields["ControllerType"] = ev.Controller.Type.String()
	return fields
}

func (a *AlertSink) Emit(ctx context.Context, ev monitor.Event) error {
	if err := a.next.Emit(ctx, ev); err != nil {
		return err
	}
	if ev.Text != "" {
		return nil
	}

	for _, m := range a.matcher.CheckEvent(ctx, EventFields(ev)) {
		if a.throttled(m.Rule.ID, ev.Controller.ID) {
			continue
		}

		alert := ev
		alert.Severity = monitor.SeverityWarning
		alert.Text = fmt.Sprintf("Rule Match: rule_id=%s title=%q level=%s controller=%d context=%d category=%q",
			m.Rule.ID, m.Rule.Title, m.Rule.Level, ev.Controller.ID, ev.Description.Context, ev.Description.Name)
		if err := a.next.Emit(ctx, alert); err != nil {
			return err
		}

		if a.recorder != nil {
			rec := &database.MatchRecord{
				Timestamp:    ev.Time,
				ControllerID: ev.Controller.ID,
				Context:      ev.Description.Context,
				Category:     ev.Description.Name,
				RuleID:       m.Rule.ID,
				RuleName:     m.Rule.Title,
				Level:        m.Rule.Level,
			}
			if err := a.recorder.InsertMatch(ctx, rec); err != nil {
				a.logger.Printf("Error storing match for rule %s: %v", m.Rule.ID, err)
			}
		}
	}
	return nil
}

func (a *AlertSink) throttled(ruleID string, controller int) bool {
	key := ruleID + "/" + strconv.Itoa(controller)
	now := a.now()
	if last, ok := a.recent.Get(key); ok && now.Sub(last.(time.Time)) < a.throttle {
		return true
	}
	a.recent.Add(key, now)
	return false
}
