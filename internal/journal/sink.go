package journal

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"runjournal/internal/logging"
)

const DefaultCommand = "dayone2"

// dateLayout is the --date format the Day One CLI accepts
const dateLayout = "2006-01-02 15:04:05"

// Sink receives rendered entries
type Sink interface {
	Create(ctx context.Context, e Entry) error
}

// SinkError reports a journaling tool invocation that failed
type SinkError struct {
	Command string
	Args    []string
	Output  string
	Err     error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Command, strings.Join(e.Args, " "), e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

// DayOneSink creates entries with the Day One command line tool, passing
// the entry text on stdin
type DayOneSink struct {
	Command string
	Journal string
}

func NewDayOneSink(command, journalName string) *DayOneSink {
	if command == "" {
		command = DefaultCommand
	}
	return &DayOneSink{Command: command, Journal: journalName}
}

// Args builds the command line for e, excluding the command itself
func (s *DayOneSink) Args(e Entry) []string {
	var args []string
	if s.Journal != "" {
		args = append(args, "--journal", s.Journal)
	}
	args = append(args, "--date", e.Date.Format(dateLayout))
	if len(e.Tags) > 0 {
		args = append(args, "--tags")
		args = append(args, e.Tags...)
	}
	if e.Coordinate != nil {
		args = append(args, "--coordinate",
			strconv.FormatFloat(e.Coordinate.Lat, 'f', -1, 64),
			strconv.FormatFloat(e.Coordinate.Lng, 'f', -1, 64))
	}
	if len(e.Photos) > 0 {
		args = append(args, "--photos")
		args = append(args, e.Photos...)
	}
	return append(args, "--", "new")
}

func (s *DayOneSink) Create(ctx context.Context, e Entry) error {
	log := logging.Ctx(ctx)
	args := s.Args(e)

	cmd := exec.CommandContext(ctx, s.Command, args...)
	cmd.Stdin = strings.NewReader(e.Text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug().Str("command", s.Command).Strs("args", args).Msg("Creating journal entry")
	if err := cmd.Run(); err != nil {
		log.Error().
			Err(err).
			Str("stdout", strings.TrimSpace(stdout.String())).
			Str("stderr", strings.TrimSpace(stderr.String())).
			Msg("Journal command failed")
		return &SinkError{
			Command: s.Command,
			Args:    args,
			Output:  strings.TrimSpace(stdout.String() + stderr.String()),
			Err:     err,
		}
	}

	log.Info().Str("title", e.Title).Str("output", strings.TrimSpace(stdout.String())).Msg("Created journal entry")
	return nil
}

// DryRunSink logs what DayOneSink would run
type DryRunSink struct {
	DayOne *DayOneSink
}

func (s DryRunSink) Create(ctx context.Context, e Entry) error {
	logging.Ctx(ctx).Info().
		Str("command", s.DayOne.Command).
		Strs("args", s.DayOne.Args(e)).
		Str("text", e.Text).
		Msg("Dry run, not creating journal entry")
	return nil
}
