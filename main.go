package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"
	_ "time/tzdata"

	"golang.org/x/oauth2"

	"runjournal/internal/auth"
	"runjournal/internal/collection"
	"runjournal/internal/config"
	"runjournal/internal/fetch"
	"runjournal/internal/journal"
	"runjournal/internal/logging"
	"runjournal/internal/maps"
	"runjournal/internal/match"
	"runjournal/internal/report"
	"runjournal/internal/service"
	"runjournal/internal/smashrun"
	"runjournal/internal/strava"
	"runjournal/internal/units"
	"runjournal/internal/watermark"
	"runjournal/internal/window"
)

func main() {
	if err := run(os.Args); err != nil {
		logging.Err(err).Msg("Run failed")
		os.Exit(1)
	}
}

// tagList collects repeated --tag flags
type tagList []string

func (t *tagList) String() string { return strings.Join(*t, ",") }

func (t *tagList) Set(v string) error {
	*t = append(*t, v)
	return nil
}

type options struct {
	configPath    string
	journal       string
	window        window.Options
	tags          tagList
	dryRun        bool
	debug         bool
	noCoordinates bool
	noStrava      bool
	noBadges      bool
	noRoute       bool
	noPhotos      bool
}

func parseFlags(args []string) (*options, error) {
	var o options
	fs := flag.NewFlagSet("runjournal", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "config file (default ~/.runjournal/config.yaml)")
	fs.StringVar(&o.journal, "journal", "", "Day One journal to write to, overriding the config")
	fs.StringVar(&o.window.Start, "start", "", "start of the window, YYYY-MM-DD[THH:MM:SS]")
	fs.StringVar(&o.window.Stop, "stop", "", "end of the window, YYYY-MM-DD[THH:MM:SS]")
	fs.IntVar(&o.window.Days, "days", 0, "number of days after the start date to process")
	fs.StringVar(&o.window.StateFile, "state_file", "", "resume from the stop recorded in this file, and update it afterwards")
	fs.BoolVar(&o.window.CreateStateFile, "create_state_file", false, "create the state file from this invocation")
	fs.Var(&o.tags, "tag", "extra tag for every entry (repeatable)")
	fs.BoolVar(&o.dryRun, "dryrun", false, "print the entries and commands instead of creating entries")
	fs.BoolVar(&o.debug, "debug", false, "enable debug logging")
	fs.BoolVar(&o.noCoordinates, "no_coordinates", false, "do not set entry coordinates")
	fs.BoolVar(&o.noStrava, "no_strava", false, "do not query Strava")
	fs.BoolVar(&o.noBadges, "no_badges", false, "do not query badges")
	fs.BoolVar(&o.noRoute, "no_route", false, "do not render route maps")
	fs.BoolVar(&o.noPhotos, "no_photos", false, "do not download activity photos")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if err := o.window.Validate(); err != nil {
		return nil, err
	}
	return &o, nil
}

func run(argv []string) error {
	opts, err := parseFlags(argv[1:])
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if errors.Is(err, config.ErrNoConfig) {
		fmt.Println("No config file found. Creating example config...")
		if err := config.CreateExample(opts.configPath); err != nil {
			return fmt.Errorf("creating example config: %w", err)
		}
		configDir, _ := config.GetConfigDir()
		fmt.Printf("\nPlease edit the config file (default location %s/config.yaml)\n", configDir)
		fmt.Println("and add your Smashrun and Strava API credentials.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	level := cfg.Logging.Level
	if opts.debug {
		level = "debug"
	}
	logging.Init(logging.Config{Level: level, Format: cfg.Logging.Format, Timestamp: true, Output: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	w, err := window.Resolve(opts.window, time.Now(), time.Local)
	if err != nil {
		return fmt.Errorf("resolving window: %w", err)
	}

	unit, err := units.ParseDistanceUnit(cfg.Display.DistanceUnit)
	if err != nil {
		return err
	}

	fetcher := fetch.New(&http.Client{Timeout: fetch.DefaultTimeout}, fetch.Config{})
	sources, err := buildSources(cfg, opts, fetcher)
	if err != nil {
		return err
	}

	primarySource, ok := sources[cfg.Primary]
	if !ok {
		return fmt.Errorf("primary service %s is disabled", cfg.Primary)
	}
	primary := collection.NewPrimary(primarySource, maps.NewRenderer(cfg.GoogleMapsAPIKey, fetcher))
	var secondaries []*collection.Collection
	for _, id := range []string{smashrun.Service.ID, strava.Service.ID} {
		if src, ok := sources[id]; ok && id != cfg.Primary {
			secondaries = append(secondaries, collection.New(src))
		}
	}

	manual := make([]match.Entry, 0, len(cfg.Matching.Manual))
	for _, e := range cfg.Matching.Manual {
		manual = append(manual, match.Entry(e))
	}
	matcher := match.NewMatcher(match.Config{
		MaxStartTimeDelta: cfg.Matching.MaxStartTimeDelta,
		MaxDistanceDelta:  cfg.Matching.MaxDistanceDeltaMeters,
		Manual:            manual,
	}, logging.Logger())

	journalName := cfg.Journal
	if opts.journal != "" {
		journalName = opts.journal
	}
	dayOne := journal.NewDayOneSink(cfg.Sink.Command, journalName)
	var sink journal.Sink = dayOne
	if opts.dryRun {
		sink = journal.DryRunSink{DayOne: dayOne}
	}

	svc := service.NewJournalService(primary, secondaries, matcher,
		journal.NewFormatter(cfg.BaseTag, cfg.TitleMarker, unit), sink,
		service.Options{
			Collection: collection.Options{
				Badges:        !opts.noBadges,
				Photos:        !opts.noPhotos,
				Routes:        !opts.noRoute,
				ActivityTypes: cfg.ActivityTypes,
			},
			Tags:               opts.tags,
			IncludeCoordinates: !opts.noCoordinates,
		})

	res, err := svc.Run(ctx, w, nil)
	if err != nil {
		return err
	}
	if err := report.Render(os.Stdout, res, unit); err != nil {
		return err
	}

	if opts.window.StateFile != "" && !opts.dryRun {
		state := watermark.State{Command: strings.Join(argv, " "), Start: w.Start, Stop: w.Stop}
		if err := watermark.Write(opts.window.StateFile, state); err != nil {
			return err
		}
		logging.Info().Str("path", opts.window.StateFile).Time("stop", w.Stop).Msg("Updated state file")
	}
	return nil
}

// buildSources creates a source for every enabled service, keyed by service id
func buildSources(cfg *config.Config, opts *options, fetcher *fetch.Fetcher) (map[string]collection.Source, error) {
	sources := make(map[string]collection.Source)

	if cfg.Smashrun.Enabled {
		ts, err := auth.NewTokenSource(auth.Smashrun, auth.Credentials{
			ClientID:     cfg.Smashrun.ClientID,
			ClientSecret: cfg.Smashrun.ClientSecret,
			AccessToken:  cfg.Smashrun.AccessToken,
			RefreshToken: cfg.Smashrun.RefreshToken,
		}, saveTokens(opts.configPath, smashrun.Service.ID))
		if err != nil {
			return nil, err
		}
		sources[smashrun.Service.ID] = smashrun.NewSource(smashrun.NewClient(ts), fetcher)
	}

	if cfg.Strava.Enabled && !opts.noStrava {
		ts, err := auth.NewTokenSource(auth.Strava, auth.Credentials{
			ClientID:     cfg.Strava.ClientID,
			ClientSecret: cfg.Strava.ClientSecret,
			AccessToken:  cfg.Strava.AccessToken,
			RefreshToken: cfg.Strava.RefreshToken,
		}, saveTokens(opts.configPath, strava.Service.ID))
		if err != nil {
			return nil, err
		}
		sources[strava.Service.ID] = strava.NewSource(strava.NewClient(ts), fetcher, cfg.Strava.PhotoSize)
	}

	return sources, nil
}

// saveTokens writes refreshed tokens back to the config file. A failed write
// is logged and the run continues with the new token in memory.
func saveTokens(configPath, service string) func(*oauth2.Token) error {
	return func(tok *oauth2.Token) error {
		if err := config.SaveTokens(configPath, service, tok.AccessToken, tok.RefreshToken); err != nil {
			logging.Warn().Err(err).Str("service", service).Msg("Could not save refreshed tokens")
			return nil
		}
		logging.Debug().Str("service", service).Msg("Saved refreshed tokens")
		return nil
	}
}
