// Package main is a small operator CLI that pushes a notification onto the
// dispatch queue. Its main use is exercising the pipeline end to end: send a
// test notification and watch it fan out to a contact's configured media.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"alertpipe/internal/config"
	"alertpipe/internal/notify"
	"alertpipe/internal/queue"
	"alertpipe/internal/types"
)

func main() {
	checkFlag := flag.String("check", "", "Check ID to notify about [required]")
	stateFlag := flag.String("state", "", "Check state ID [required]")
	prevStateFlag := flag.String("previous-state", "", "Previous check state ID")
	severityFlag := flag.String("severity", "critical", "Severity (ok/warning/unknown/critical)")
	typeFlag := flag.String("type", "problem", "Notification type (problem/recovery/acknowledgement/test)")
	durationFlag := flag.Int("state-duration", 0, "Seconds the check has been in this state")
	tagsFlag := flag.String("tags", "", "Comma-separated event tags")
	queueFlag := flag.String("queue", "", "Queue name (defaults to NOTIFICATION_QUEUE)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -check <id> -state <id> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Pushes a notification onto the dispatch queue.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *checkFlag == "" || *stateFlag == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*checkFlag, *stateFlag, *prevStateFlag, *severityFlag, *typeFlag, *durationFlag, *tagsFlag, *queueFlag); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(checkID, stateID, prevStateID, severity, notifType string, stateDuration int, tags, queueName string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if queueName == "" {
		queueName = cfg.Worker.QueueName
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rdb, err := queue.Connect(ctx, queue.ConnectConfig{
		URL:            cfg.Redis.URL.Unmask(),
		RetryAttempts:  cfg.Redis.ConnectRetries,
		RetryInterval:  cfg.Redis.RetryInterval,
		ConnectTimeout: cfg.Redis.ConnectTimeout,
	})
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer rdb.Close()

	var tagSet types.TagSet
	if tags != "" {
		tagSet = types.NewTagSet(strings.Split(tags, ",")...)
	}

	n := &notify.Notification{
		CheckID:         checkID,
		StateID:         stateID,
		PreviousStateID: prevStateID,
		StateDuration:   stateDuration,
		Severity:        types.Severity(severity),
		Type:            types.NotificationType(notifType),
		Time:            time.Now().UTC(),
		Tags:            tagSet,
	}

	transport := queue.NewTransport(queue.NewRedisLists(rdb), stderrLogger{})
	if err := transport.Push(ctx, queueName, n); err != nil {
		return err
	}

	depth, err := transport.Depth(ctx, queueName)
	if err != nil {
		return err
	}
	fmt.Printf("queued notification for check %s on %q (depth now %d)\n", checkID, queueName, depth)
	return nil
}

// stderrLogger is the minimal types.Logger for a short-lived CLI: everything
// goes to stderr, unstructured.
type stderrLogger struct{}

func (stderrLogger) log(level, msg string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s: %s %v\n", level, msg, args)
}

func (l stderrLogger) Info(msg string, args ...any) { l.log("info", msg, args...) }
func (l stderrLogger) Error(msg string, args ...any) { l.log("error", msg, args...) }
func (l stderrLogger) Warn(msg string, args ...any) { l.log("warn", msg, args...) }
func (l stderrLogger) Debug(msg string, args ...any) { l.log("debug", msg, args...) }
func (l stderrLogger) With(args ...any) types.Logger { return l }

var _ types.Logger = stderrLogger{}
