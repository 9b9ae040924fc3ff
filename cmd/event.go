package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/frahmantamala/plant-operations/internal/core/events"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish change events through the audit recorder, e.g. to backfill activity logs`,
}

var (
	eventEntityID  int64
	eventOperation string
	eventActorID   int64
	eventCategory  string
	eventUnit      string
)

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a change event",
	Long: `Publish one of user_permissions.changed, permissions.changed, user.changed or downtime.changed.
The activity recorder is subscribed, so the event is written to activity_logs.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withDependencies(cmd.Context(), func(ctx context.Context, deps *Dependencies) error {
			event, err := buildEvent(args[0])
			if err != nil {
				return err
			}

			audit := deps.Services.Recorder.RegisterEventHandlers(deps.Bus)
			defer audit.Close()

			tap := deps.Bus.Subscribe(func(ctx context.Context, event events.Event) error {
				deps.Logger.Info("event delivered",
					"event_id", event.EventID(),
					"event_type", event.EventType(),
					"payload", event.Payload())
				return nil
			}, event.EventType())
			defer tap.Close()

			deps.Logger.Info("publishing event", "event_type", event.EventType(), "event_id", event.EventID())
			if err := deps.Bus.PublishSync(ctx, event); err != nil {
				return fmt.Errorf("publish %s: %w", event.EventType(), err)
			}
			return nil
		})
	},
}

func buildEvent(eventType string) (events.Event, error) {
	op := strings.ToUpper(eventOperation)
	switch op {
	case events.OperationInsert, events.OperationUpdate, events.OperationDelete:
	default:
		return nil, fmt.Errorf("unknown operation %q", eventOperation)
	}

	var actor *int64
	if eventActorID > 0 {
		actor = &eventActorID
	}

	switch eventType {
	case events.EventTypeUserPermissionsChanged:
		return events.NewUserPermissionsChangedEvent(eventEntityID, op, actor), nil
	case events.EventTypePermissionsChanged:
		return events.NewPermissionsChangedEvent(eventEntityID, op, actor), nil
	case events.EventTypeUserChanged:
		return events.NewUserChangedEvent(eventEntityID, op, actor), nil
	case events.EventTypeDowntimeChanged:
		return events.NewDowntimeChangedEvent(eventEntityID, eventCategory, eventUnit, op, actor), nil
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}
}

func init() {
	publishEventCmd.Flags().Int64Var(&eventEntityID, "id", 0, "id of the changed user, permission or downtime")
	publishEventCmd.Flags().StringVar(&eventOperation, "operation", events.OperationUpdate, "INSERT, UPDATE or DELETE")
	publishEventCmd.Flags().Int64Var(&eventActorID, "actor", 0, "id of the acting user")
	publishEventCmd.Flags().StringVar(&eventCategory, "category", "", "plant category (downtime.changed)")
	publishEventCmd.Flags().StringVar(&eventUnit, "unit", "", "plant unit (downtime.changed)")
	_ = publishEventCmd.MarkFlagRequired("id")

	eventCmd.AddCommand(publishEventCmd)
}
