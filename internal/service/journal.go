// Package service runs one journaling pass: download every service's
// activities, merge the secondaries into the primary, and write an entry
// per primary activity.
package service

import (
	"context"
	"fmt"

	"runjournal/internal/activity"
	"runjournal/internal/collection"
	"runjournal/internal/journal"
	"runjournal/internal/logging"
	"runjournal/internal/match"
)

// Options controls what a run downloads and how entries are written
type Options struct {
	Collection         collection.Options
	Tags               []string
	IncludeCoordinates bool
}

// Progress reports the run's phase
type Progress struct {
	Phase     string // "download", "match", "journal"
	Total     int
	Completed int
	Current   string
}

// RunResult contains the results of a run
type RunResult struct {
	RunID      string
	Window     collection.Window
	Primary    activity.Service
	Activities []*activity.Activity
	Merges     []*match.Result
	Entries    []journal.Entry
	Errors     []error // non-fatal failures
}

// JournalService orchestrates a run over one primary and any number of
// secondary collections
type JournalService struct {
	primary     *collection.Collection
	secondaries []*collection.Collection
	matcher     *match.Matcher
	formatter   *journal.Formatter
	sink        journal.Sink
	opts        Options
}

func NewJournalService(
	primary *collection.Collection,
	secondaries []*collection.Collection,
	matcher *match.Matcher,
	formatter *journal.Formatter,
	sink journal.Sink,
	opts Options,
) *JournalService {
	return &JournalService{
		primary:     primary,
		secondaries: secondaries,
		matcher:     matcher,
		formatter:   formatter,
		sink:        sink,
		opts:        opts,
	}
}

// Run performs a full pass over the window. Downloaded files are removed
// before Run returns, whatever the outcome. A secondary service that fails
// to download is skipped; every other failure aborts the run.
func (s *JournalService) Run(ctx context.Context, w collection.Window, progress chan<- Progress) (res *RunResult, err error) {
	if progress != nil {
		defer close(progress)
	}

	res = &RunResult{
		RunID:   logging.NewRunID(),
		Window:  w,
		Primary: s.primary.Service(),
	}
	ctx = logging.ContextWithRunID(ctx, res.RunID)
	log := logging.Ctx(ctx)
	log.Info().Str("window", w.String()).Str("primary", res.Primary.ID).Msg("Starting run")

	defer func() {
		for _, c := range s.collections() {
			if cerr := c.Cleanup(); cerr != nil {
				log.Warn().Err(cerr).Str("service", c.Service().ID).Msg("Cleanup failed")
				res.Errors = append(res.Errors, cerr)
			}
		}
	}()

	if err := s.download(ctx, w, progress, res); err != nil {
		return res, fmt.Errorf("downloading: %w", err)
	}
	if err := s.merge(ctx, progress, res); err != nil {
		return res, fmt.Errorf("matching: %w", err)
	}
	if err := s.write(ctx, progress, res); err != nil {
		return res, fmt.Errorf("journaling: %w", err)
	}

	log.Info().Int("entries", len(res.Entries)).Msg("Run complete")
	return res, nil
}

func (s *JournalService) collections() []*collection.Collection {
	return append([]*collection.Collection{s.primary}, s.secondaries...)
}

func (s *JournalService) download(ctx context.Context, w collection.Window, progress chan<- Progress, res *RunResult) error {
	all := s.collections()
	for i, c := range all {
		send(progress, Progress{Phase: "download", Total: len(all), Completed: i, Current: c.Service().Name})

		err := c.Download(ctx, w, s.opts.Collection)
		if err == nil {
			continue
		}
		if c == s.primary || ctx.Err() != nil {
			return err
		}
		logging.Ctx(ctx).Warn().Err(err).Str("service", c.Service().ID).Msg("Skipping secondary service")
		res.Errors = append(res.Errors, err)
	}
	res.Activities = s.primary.Activities()
	return nil
}

func (s *JournalService) merge(ctx context.Context, progress chan<- Progress, res *RunResult) error {
	for i, c := range s.secondaries {
		send(progress, Progress{Phase: "match", Total: len(s.secondaries), Completed: i, Current: c.Service().Name})

		r, err := s.matcher.Merge(s.primary, c)
		if err != nil {
			return err
		}
		res.Merges = append(res.Merges, r)
	}
	return nil
}

func (s *JournalService) write(ctx context.Context, progress chan<- Progress, res *RunResult) error {
	for i, a := range res.Activities {
		if err := ctx.Err(); err != nil {
			return err
		}
		send(progress, Progress{Phase: "journal", Total: len(res.Activities), Completed: i, Current: a.Key().String()})

		entry, err := s.formatter.Format(a, s.opts.Tags, s.opts.IncludeCoordinates)
		if err != nil {
			return err
		}
		if err := s.sink.Create(ctx, entry); err != nil {
			return err
		}
		res.Entries = append(res.Entries, entry)
	}
	return nil
}

// send delivers p without blocking a run whose listener has gone away
func send(progress chan<- Progress, p Progress) {
	if progress == nil {
		return
	}
	select {
	case progress <- p:
	default:
	}
}
