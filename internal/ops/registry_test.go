package ops

import (
	"context"
	"errors"
	"sort"
	"testing"

	"subforge/internal/services"
)

func TestRegisterRejectsDuplicateIDs(t *testing.T) {
	registry := NewRegistry(nil)
	if err := registry.RegisterSubtitle("op-1", func() {}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	err := registry.RegisterSubtitle("op-1", func() {})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error on duplicate id, got %v", err)
	}
}

func TestRegisterRejectsEmptyID(t *testing.T) {
	registry := NewRegistry(nil)
	if err := registry.RegisterGeneric("", func() {}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGenericPromotion(t *testing.T) {
	registry := NewRegistry(nil)
	placeholderCancelled := false
	if err := registry.RegisterGeneric("op-1", func() { placeholderCancelled = true }); err != nil {
		t.Fatalf("register generic: %v", err)
	}
	concreteCancelled := false
	if err := registry.RegisterRender("op-1", func() { concreteCancelled = true }); err != nil {
		t.Fatalf("promotion must succeed, got %v", err)
	}
	if !registry.Cancel("op-1") {
		t.Fatal("Cancel returned false for registered id")
	}
	if !concreteCancelled {
		t.Error("concrete cancel did not fire")
	}
	if placeholderCancelled {
		t.Error("placeholder cancel should be replaced by promotion")
	}
}

func TestPromotionKeepsPlaceholderCancelWhenConcreteHasNone(t *testing.T) {
	registry := NewRegistry(nil)
	placeholderCancelled := false
	if err := registry.RegisterGeneric("op-1", func() { placeholderCancelled = true }); err != nil {
		t.Fatalf("register generic: %v", err)
	}
	if err := registry.RegisterRender("op-1", nil); err != nil {
		t.Fatalf("promotion: %v", err)
	}
	registry.Cancel("op-1")
	if !placeholderCancelled {
		t.Error("placeholder cancel should survive promotion without a new cancel")
	}
}

func TestPromotionRequiresGenericEntry(t *testing.T) {
	registry := NewRegistry(nil)
	if err := registry.RegisterSubtitle("op-1", func() {}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.RegisterRender("op-1", func() {}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("concrete entries must not be replaced, got %v", err)
	}
}

func TestCancelFiresContextAndRemovesEntry(t *testing.T) {
	registry := NewRegistry(nil)
	ctx, cancel := context.WithCancel(context.Background())
	if err := registry.RegisterSubtitle("op-1", cancel); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !registry.Cancel("op-1") {
		t.Fatal("Cancel returned false")
	}
	if ctx.Err() == nil {
		t.Error("context not cancelled")
	}
	if registry.Cancel("op-1") {
		t.Error("second Cancel must report unknown id")
	}
}

func TestCancelUnknownID(t *testing.T) {
	registry := NewRegistry(nil)
	if registry.Cancel("missing") {
		t.Error("Cancel of unknown id must return false")
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	registry := NewRegistry(nil)
	if err := registry.RegisterSubtitle("op-1", func() {}); err != nil {
		t.Fatalf("register: %v", err)
	}
	registry.Unregister("op-1")
	registry.Unregister("op-1")
	if len(registry.Active()) != 0 {
		t.Errorf("expected empty registry, got %v", registry.Active())
	}
}

func TestCancelClosesAttachedPage(t *testing.T) {
	registry := NewRegistry(nil)
	if err := registry.RegisterRender("op-1", func() {}); err != nil {
		t.Fatalf("register: %v", err)
	}
	closed := false
	registry.AttachPage("op-1", func() error {
		closed = true
		return nil
	})
	registry.Cancel("op-1")
	if !closed {
		t.Error("attached page was not closed on cancel")
	}
}

func TestActiveListsRegisteredIDs(t *testing.T) {
	registry := NewRegistry(nil)
	for _, id := range []string{"a", "b", "c"} {
		if err := registry.RegisterGeneric(id, func() {}); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}
	registry.Unregister("b")
	ids := registry.Active()
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "c" {
		t.Errorf("Active() = %v", ids)
	}
}
