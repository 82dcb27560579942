package repokit

import (
	"testing"

	"codefrog/internal/platform/testkit"
)

type fakeRepo struct{ q Queryer }

func TestBindFunc(t *testing.T) {
	b := BindFunc[*fakeRepo](func(q Queryer) *fakeRepo { return &fakeRepo{q: q} })
	if r := b.Bind(nil); r == nil {
		t.Fatal("bind returned nil")
	}
}

func TestRequireQueryerPanicsOnNil(t *testing.T) {
	testkit.MustPanic(t, func() { RequireQueryer(nil) })
}

func TestMustBindPanicsOnNilQueryer(t *testing.T) {
	b := BindFunc[*fakeRepo](func(q Queryer) *fakeRepo { return &fakeRepo{q: q} })
	testkit.MustPanic(t, func() { MustBind(b, nil) })
}
