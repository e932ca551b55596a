package mongo

import (
	"context"
	"errors"
	"testing"
)

func TestDirectManager(t *testing.T) {
	manager := NewDirectManager()
	want := errors.New("insert failed")

	calls := 0
	err := manager.ExecuteTransaction(context.Background(), func(context.Context) error {
		calls++
		return want
	})

	if calls != 1 {
		t.Errorf("expected a single call, got %d", calls)
	}
	if !errors.Is(err, want) {
		t.Errorf("expected function error, got %v", err)
	}
}
