package cmap

import (
	"fmt"
	"sort"
	"sync"
	"testing"
)

type addr string

func TestNewWithShards(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{0, DefaultShardCount},
		{-1, DefaultShardCount},
		{3, DefaultShardCount},
		{1, 1},
		{2, 2},
		{8, 8},
		{32, 32},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("shards=%d", tt.input), func(t *testing.T) {
			m := NewWithShards[string, int](tt.input)
			if m.ShardCount() != tt.expected {
				t.Errorf("NewWithShards(%d) shard count = %d, want %d", tt.input, m.ShardCount(), tt.expected)
			}
		})
	}
}

func TestSetGetDelete(t *testing.T) {
	m := New[addr, int]()

	m.Set("a", 1)
	m.Set("b", 2)

	if v, ok := m.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = (%d, %v), want (1, true)", v, ok)
	}
	if _, ok := m.Get("missing"); ok {
		t.Error("Get(missing) reported present")
	}
	if !m.Has("b") {
		t.Error("Has(b) = false")
	}

	m.Delete("a")
	if m.Has("a") {
		t.Error("a still present after Delete")
	}
	if m.Count() != 1 {
		t.Errorf("Count = %d, want 1", m.Count())
	}

	m.Clear()
	if m.Count() != 0 {
		t.Errorf("Count after Clear = %d", m.Count())
	}
}

func TestShardIndex_Stable(t *testing.T) {
	m1 := NewWithShards[string, int](64)
	m2 := NewWithShards[string, int](64)

	used := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		key := fmt.Sprintf("0x%040x", i)
		if m1.ShardIndex(key) != m2.ShardIndex(key) {
			t.Fatalf("shard index differs between maps for %s", key)
		}
		used[m1.ShardIndex(key)] = true
	}
	if len(used) < 48 {
		t.Errorf("only %d of 64 shards used", len(used))
	}
}

func TestUpdate_Append(t *testing.T) {
	m := New[addr, []int]()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				m.Update("holder", func(v []int, _ bool) []int { return append(v, i) })
			}
		}()
	}
	wg.Wait()

	var n int
	m.View("holder", func(v []int, ok bool) {
		if !ok {
			t.Fatal("holder missing")
		}
		n = len(v)
	})
	if n != 800 {
		t.Errorf("len = %d, want 800", n)
	}
}

func TestUpdate_Exists(t *testing.T) {
	m := New[string, int]()
	got := m.Update("k", func(v int, exists bool) int {
		if exists {
			t.Error("new key reported existing")
		}
		return v + 1
	})
	if got != 1 {
		t.Errorf("Update = %d, want 1", got)
	}
	m.Update("k", func(v int, exists bool) int {
		if !exists || v != 1 {
			t.Errorf("got (%d, %v), want (1, true)", v, exists)
		}
		return v + 1
	})
}

func TestRangeAndKeys(t *testing.T) {
	m := New[string, int]()
	for i := 0; i < 50; i++ {
		m.Set(fmt.Sprintf("k%02d", i), i)
	}

	keys := m.Keys()
	sort.Strings(keys)
	if len(keys) != 50 || keys[0] != "k00" || keys[49] != "k49" {
		t.Errorf("Keys() = %d keys", len(keys))
	}

	visited := 0
	m.Range(func(string, int) bool {
		visited++
		return visited < 10
	})
	if visited != 10 {
		t.Errorf("Range visited %d, want 10", visited)
	}
}
