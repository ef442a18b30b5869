package repos_test

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"shopfront/internal/repos"
)

func TestSlotRepo_PutGetDelete(t *testing.T) {
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	r := repos.NewSlotRepo(db)
	ctx := context.Background()

	if _, err := r.Get(ctx, "sid-1", repos.SlotCart); !errors.Is(err, repos.ErrSlotEmpty) {
		t.Fatalf("want ErrSlotEmpty, got %v", err)
	}
	if err := r.Put(ctx, "sid-1", repos.SlotCart, []byte(`[]`)); err != nil {
		t.Fatal(err)
	}
	if err := r.Put(ctx, "sid-1", repos.SlotCart, []byte(`[{"id":1,"quantity":2}]`)); err != nil {
		t.Fatal(err)
	}
	v, err := r.Get(ctx, "sid-1", repos.SlotCart)
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != `[{"id":1,"quantity":2}]` {
		t.Fatalf("overwrite lost, got %s", v)
	}

	// other sessions never see it
	if _, err := r.Get(ctx, "sid-2", repos.SlotCart); !errors.Is(err, repos.ErrSlotEmpty) {
		t.Fatalf("slot leaked across sessions: %v", err)
	}

	if err := r.Delete(ctx, "sid-1", repos.SlotCart); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Get(ctx, "sid-1", repos.SlotCart); !errors.Is(err, repos.ErrSlotEmpty) {
		t.Fatalf("want ErrSlotEmpty after delete, got %v", err)
	}
}

func TestSlotRepo_UpdateUnderContention(t *testing.T) {
	db, err := repos.OpenDB(filepath.Join(t.TempDir(), "slots.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	r := repos.NewSlotRepo(db)
	ctx := context.Background()

	incr := func(cur []byte) ([]byte, error) {
		n := 0
		if cur != nil {
			n, _ = strconv.Atoi(string(cur))
		}
		return []byte(strconv.Itoa(n + 1)), nil
	}

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs <- r.Update(ctx, "same", repos.SlotCart, incr)
		}()
		go func(i int) {
			defer wg.Done()
			errs <- r.Update(ctx, "sid-"+strconv.Itoa(i), repos.SlotCart, incr)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	v, err := r.Get(ctx, "same", repos.SlotCart)
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != strconv.Itoa(n) {
		t.Fatalf("lost updates: want %d, got %s", n, v)
	}

	// ErrUnchanged leaves the row alone and is not an error
	err = r.Update(ctx, "same", repos.SlotCart, func([]byte) ([]byte, error) { return nil, repos.ErrUnchanged })
	if err != nil {
		t.Fatalf("unchanged: %v", err)
	}
	boom := errors.New("boom")
	if err := r.Update(ctx, "same", repos.SlotCart, func([]byte) ([]byte, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	if v, _ := r.Get(ctx, "same", repos.SlotCart); string(v) != strconv.Itoa(n) {
		t.Fatalf("aborted update wrote %s", v)
	}
}

func TestProductRepo_Lookup(t *testing.T) {
	r := repos.NewDefaultProductRepo()
	p, ok := r.Get(3)
	if !ok || p.Name != "Running Shoes" || p.InStock() {
		t.Fatalf("unexpected product 3: %+v ok=%v", p, ok)
	}
	if _, ok := r.Get(99); ok {
		t.Fatal("unknown id must not resolve")
	}
	if got := r.Categories(); len(got) != 2 || got[0] != "Electronics" || got[1] != "Fashion" {
		t.Fatalf("categories: %v", got)
	}
	if got := r.ListByCategory("Fashion"); len(got) != 2 {
		t.Fatalf("fashion products: %d", len(got))
	}
}
