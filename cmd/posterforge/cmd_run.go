package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/user/posterforge/internal/assets"
	"github.com/user/posterforge/internal/canvas"
	"github.com/user/posterforge/internal/cards"
	"github.com/user/posterforge/internal/channel"
	"github.com/user/posterforge/internal/config"
	"github.com/user/posterforge/internal/flow"
	"github.com/user/posterforge/internal/notify"
	"github.com/user/posterforge/internal/poster"
	"github.com/user/posterforge/internal/report"
	"github.com/user/posterforge/internal/types"
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runContent, "content", "", "content document path (overrides config)")
	runCmd.Flags().StringVar(&runPoster, "poster", "", "poster name used in export filenames (overrides config)")
	runCmd.Flags().StringSliceVar(&runLangs, "lang", nil, "languages to produce (overrides config)")
	runCmd.Flags().StringVar(&runChannel, "channel", "", "channel name to join (overrides config)")
}

var (
	runContent string
	runPoster  string
	runLangs   []string
	runChannel string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Populate the poster template and export one file per language",
	Args:  cobra.NoArgs,
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)
	applyRunFlags(cfg)

	if cfg.ContentFile == "" {
		return fmt.Errorf("no content document: set --content, POSTERFORGE_CONTENT, or content_file in config")
	}
	doc, err := flow.LoadDoc(cfg.ContentFile)
	if err != nil {
		return fmt.Errorf("load content: %w", err)
	}
	posterName := cfg.Poster
	if posterName == "" {
		posterName = "poster"
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	baseURL := cfg.Assets.BaseURL
	var store *assets.Store
	if cfg.Assets.Dir != "" {
		store = assets.NewStore(cfg.Assets.Dir)
		if baseURL == "" {
			baseURL = "http://" + cfg.Assets.Listen
		}
		srv := &http.Server{Addr: cfg.Assets.Listen, Handler: assets.NewServer(store)}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("asset server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutCancel()
			return srv.Shutdown(shutCtx)
		})
	}

	g.Go(func() error {
		defer cancel() // runs are done, stop the asset server
		return runJob(ctx, cfg, doc, posterName, baseURL, store)
	})

	return g.Wait()
}

func applyRunFlags(cfg *config.Config) {
	if runContent != "" {
		cfg.ContentFile = runContent
	}
	if runPoster != "" {
		cfg.Poster = runPoster
	}
	if len(runLangs) > 0 {
		cfg.Languages = runLangs
	}
	if runChannel != "" {
		cfg.Channel = runChannel
	}
}

func runJob(ctx context.Context, cfg *config.Config, doc *types.ContentDoc, posterName, baseURL string, store *assets.Store) error {
	timeout := time.Duration(cfg.CommandTimeoutSec) * time.Second
	sess, err := channel.Connect(ctx, cfg.ChannelURL, cfg.Channel, channel.WithTimeout(timeout))
	if err != nil {
		return fmt.Errorf("connect %s: %w", cfg.ChannelURL, err)
	}
	defer sess.Close()

	retry := channel.DefaultRetryPolicy()

	// Readiness probe: the plugin side of the channel must answer before
	// any mutation is attempted.
	if _, err := channel.EnsureReady(ctx, sess, "get_document_info", nil, retry); err != nil {
		return err
	}

	client := canvas.NewClient(sess)
	resolver := canvas.NewResolver(client)
	m := cfg.Mapping
	var source cards.AssetSource
	if store != nil {
		source = store
	}
	runner := poster.NewRunner(
		client,
		resolver,
		cards.NewInstantiator(client, resolver, m),
		cards.NewVisibilityController(client, resolver, m),
		cards.NewFiller(client, resolver, source, baseURL, m,
			time.Duration(cfg.Assets.InlineIntervalMS)*time.Millisecond),
		poster.NewFinalizer(client, resolver, cfg.OutputDir, cfg.ExportFormat, cfg.ResizePadding),
		m,
		retry,
		posterName,
	)

	reports := report.NewStore(cfg.DataDir)
	var notifier *notify.Notifier
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		notifier, err = notify.New(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			return fmt.Errorf("create notifier: %w", err)
		}
	}

	for i, lang := range cfg.Languages {
		summary, err := runner.Run(ctx, doc, lang, i+1)
		if err != nil {
			return fmt.Errorf("run %s [%s]: %w", posterName, lang, err)
		}
		fmt.Fprintln(os.Stdout, summary.Text())
		path, err := reports.Save(summary.RunID, summary)
		if err != nil {
			return fmt.Errorf("save report: %w", err)
		}
		fmt.Fprintf(os.Stdout, "report: %s\n", path)
		if notifier != nil {
			notifier.Send(summary.Text())
		}
	}
	return nil
}
