package pushnotification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/annoflow/annoflow/internal/eventbus"
	"github.com/annoflow/annoflow/internal/task"
)

// Dispatcher turns engine events into operator push notifications.
// It consumes the bus asynchronously, so a slow or failing push provider
// never holds up a workflow transition.
type Dispatcher struct {
	eventBus *eventbus.Bus
	taskRepo task.Repository
	sender   *Sender
}

func NewDispatcher(eventBus *eventbus.Bus, taskRepo task.Repository, sender *Sender) *Dispatcher {
	return &Dispatcher{
		eventBus: eventBus,
		taskRepo: taskRepo,
		sender:   sender,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	subID, ch := d.eventBus.Subscribe(256)
	defer d.eventBus.Unsubscribe(subID)

	slog.Info("push notification dispatcher started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("push notification dispatcher stopped")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			switch event.Type {
			case eventbus.EventTypeTaskAssigned, eventbus.EventTypeReviewDecided:
				d.notify(ctx, event)
			}
		}
	}
}

func (d *Dispatcher) notify(ctx context.Context, event *eventbus.Event) {
	t, err := d.taskRepo.Get(ctx, event.ResourceID)
	if err != nil {
		slog.Error("push dispatcher: failed to get task", "id", event.ResourceID, "error", err)
		return
	}

	var title, body string
	switch event.Type {
	case eventbus.EventTypeTaskAssigned:
		title = "Task Assigned"
		body = fmt.Sprintf("%s was assigned to %d annotator(s)", t.Title, len(t.AssigneeIDs))
	case eventbus.EventTypeReviewDecided:
		title = "Review Decided"
		body = fmt.Sprintf("%s was %s", t.Title, t.Status)
	default:
		return
	}

	d.sender.SendToAll(ctx, &NotificationPayload{
		Title: title,
		Body:  body,
		URL:   fmt.Sprintf("/tasks/%s", t.ID),
		Tag:   event.ID,
	})
}
