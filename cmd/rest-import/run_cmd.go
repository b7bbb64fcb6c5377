package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/domain/events"
	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/importer"
	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/infrastructure/persistence"
	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/infrastructure/persistence/memstore"
	"github.com/jacksonlee411/orghierarchy/modules/orghierarchy/services"
	"github.com/jacksonlee411/orghierarchy/pkg/configuration"
	"github.com/jacksonlee411/orghierarchy/pkg/eventbus"
	"github.com/jacksonlee411/orghierarchy/pkg/logging"
)

type runOptions struct {
	Preset     string
	ConfigPath string
	Renames    []string
	DryRun     bool
	Timeout    time.Duration
}

func newRunCmd() *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run URL",
		Short: "Import organizations from the given API endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Preset, "preset", "", "import preset: decision, ahjo or facility")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "TOML file overriding parts of the preset")
	cmd.Flags().StringArrayVar(&opts.Renames, "rename", nil, "data source rename as old=new (repeatable)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "fetch and import into memory without touching the database")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "HTTP timeout per request (default from IMPORT_HTTP_TIMEOUT)")
	return cmd
}

func runImport(cmd *cobra.Command, url string, opts runOptions) error {
	ctx := cmd.Context()
	conf := configuration.Use()
	defer conf.Unload()
	log := conf.Logger()
	if opts.DryRun {
		// dry runs stay off the log file as well as the database
		log = logging.ConsoleLogger(conf.LogrusLogLevel())
	}

	if opts.Preset == "" {
		opts.Preset = conf.Importer.DefaultPreset
	}
	if opts.Timeout == 0 {
		opts.Timeout = conf.Importer.HTTPTimeout
	}

	override, err := loadOverride(opts)
	if err != nil {
		return err
	}

	var store services.Store
	if opts.DryRun {
		store = memstore.New()
	} else {
		pool, err := pgxpool.New(ctx, conf.Database.Opts)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()
		store = persistence.NewPgStore(pool)
	}

	bus := eventbus.NewEventPublisher(log)
	counts := map[string]int{}
	bus.Subscribe(func(e events.OrganizationImportedV1) {
		counts[e.ChangeType]++
	})

	imp, err := importer.New(store, services.NewOrgService(store), url,
		importer.WithPreset(opts.Preset),
		importer.WithOverride(override),
		importer.WithLogger(log),
		importer.WithEventBus(bus),
		importer.WithHTTPClient(&http.Client{Timeout: opts.Timeout}),
	)
	if err != nil {
		return err
	}

	if err := imp.ImportAll(ctx); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(),
		"Import completed: %d created, %d updated, %d skipped\n",
		counts[events.ChangeTypeCreated],
		counts[events.ChangeTypeUpdated],
		counts[events.ChangeTypeSkipped],
	)
	return nil
}

func loadOverride(opts runOptions) (*importer.Override, error) {
	var override *importer.Override
	if opts.ConfigPath != "" {
		override = &importer.Override{}
		if _, err := toml.DecodeFile(opts.ConfigPath, override); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", opts.ConfigPath, err)
		}
	}

	if len(opts.Renames) == 0 {
		return override, nil
	}
	if override == nil {
		override = &importer.Override{}
	}
	if override.RenameDataSource == nil {
		override.RenameDataSource = map[string]string{}
	}
	for _, pair := range opts.Renames {
		oldID, newID, found := strings.Cut(pair, "=")
		if !found || oldID == "" || newID == "" {
			return nil, fmt.Errorf("invalid rename %q, expected old=new", pair)
		}
		override.RenameDataSource[oldID] = newID
	}
	return override, nil
}
