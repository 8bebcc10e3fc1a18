package main

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/VacantAardvark/joseki/apiclient"
	"github.com/VacantAardvark/joseki/broadcast"
	"github.com/VacantAardvark/joseki/store"
)

type watchOptions struct {
	serverURL  string
	username   string
	facebookID string
	refresh    string
}

func newWatchCmd(root *rootOptions) *cobra.Command {
	opts := &watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Log in and log store notifications as events change",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if opts.facebookID == "" {
				return fmt.Errorf("--facebook-id is required")
			}
			ctx, stop := signalContext()
			defer stop()

			client := apiclient.NewClient(opts.serverURL)
			user, err := client.Login(ctx, opts.username, opts.facebookID)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			log.WithFields(log.Fields{"user_id": user.ID, "username": user.Username}).Info("Logged in")

			var broadcaster broadcast.Broadcaster
			if cfg.RedisURL != "" {
				broadcaster, err = broadcast.New(ctx, cfg.RedisURL, cfg.RedisChannel)
				if err != nil {
					return err
				}
				defer broadcaster.Close()
			}
			return runWatch(ctx, client, broadcaster, opts.refresh)
		},
	}
	cmd.Flags().StringVar(&opts.serverURL, "server", "http://localhost:8080", "Base URL of the joseki server")
	cmd.Flags().StringVar(&opts.username, "username", "", "Username used when the account is first created")
	cmd.Flags().StringVar(&opts.facebookID, "facebook-id", "", "Facebook ID to log in with")
	cmd.Flags().StringVar(&opts.refresh, "refresh", "@every 1m", "Cron schedule for a full refresh")
	return cmd
}

// runWatch feeds a local EventStore from the API until ctx is done. Every
// producer sends into one channel that the dispatcher pumps, so actions are
// delivered one at a time.
func runWatch(ctx context.Context, client *apiclient.Client, broadcaster broadcast.Broadcaster, refreshSpec string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eventStore := store.New()
	dispatcher := store.NewDispatcher()
	eventStore.Register(dispatcher)
	logNotifications(eventStore)

	inbound := make(chan store.Action, 64)
	actions := apiclient.NewActions(client, func(action store.Action) error {
		select {
		case inbound <- action:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(refreshSpec, func() {
		if err := actions.Refresh(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Warning("Scheduled refresh failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", refreshSpec, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	if broadcaster != nil {
		updates, err := broadcaster.Subscribe(ctx)
		if err != nil {
			return err
		}
		go forwardBroadcasts(ctx, updates, inbound, actions)
	}

	errCh := make(chan error, 2)
	go func() { errCh <- actions.Sync(ctx) }()
	go func() { errCh <- dispatcher.Pump(ctx, inbound) }()

	err := <-errCh
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// forwardBroadcasts passes deletions straight to the store. Other payloads
// describe changes from the server's point of view rather than this user's
// lists, so they trigger a refetch instead.
func forwardBroadcasts(ctx context.Context, updates <-chan store.Action, inbound chan<- store.Action, actions *apiclient.Actions) {
	for action := range updates {
		if _, ok := action.(store.EventDeleted); ok {
			select {
			case inbound <- action:
			case <-ctx.Done():
				return
			}
			continue
		}
		if err := actions.Refresh(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).WithField("actionType", action.Type()).Warning("Refresh after broadcast failed")
		}
	}
}

func logNotifications(eventStore *store.EventStore) {
	for _, name := range []store.Notification{store.ShepherdEventsGot, store.NotShepherdEventsGot, store.Created, store.Deleted} {
		name := name
		eventStore.AddEventListener(name, func() {
			log.WithFields(log.Fields{
				"notification": name,
				"shepherd":     len(eventStore.GetAllEventsByShepherd()),
				"not_shepherd": len(eventStore.GetAllEventsNotByShepherd()),
			}).Info("Store changed")
		})
	}
}
