package shutdown

import (
	"context"
	"testing"
)

func TestNotifyContextFollowsParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := NotifyContext(parent)
	defer stop()

	cancel()
	<-ctx.Done()
	if ctx.Err() == nil {
		t.Fatalf("expected cancellation")
	}
}
